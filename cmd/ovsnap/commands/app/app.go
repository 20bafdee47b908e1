// Package app holds state shared by the root command and the noun
// subpackages: global flag values, the loaded configuration and factories
// for the snapshot manager, printer and prompter.
package app

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/thoreinstein/ovsnap/internal/cli"
	"github.com/thoreinstein/ovsnap/internal/cli/prompt"
	"github.com/thoreinstein/ovsnap/internal/config"
	"github.com/thoreinstein/ovsnap/internal/errors"
	"github.com/thoreinstein/ovsnap/internal/logging"
	"github.com/thoreinstein/ovsnap/internal/snapshot"
)

var (
	configFile string
	format     string

	raw     *config.Config
	loadErr error
	used    string
)

// Overridable for tests.
var (
	// ManagerOptions are appended to every Manager built.
	ManagerOptions []snapshot.Option

	// NewPrompter builds the interactive prompter.
	NewPrompter = prompt.New

	// Interactive reports whether stdin is a terminal.
	Interactive = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }
)

// ConfigFileVar binds the --config flag.
func ConfigFileVar() *string { return &configFile }

// FormatVar binds the --format flag.
func FormatVar() *string { return &format }

// Load reads the configuration. Errors are kept for Config so that
// commands which do not need a valid config still run.
func Load() {
	config.Init()
	raw, loadErr = config.Read(configFile)
	used = config.Used()
	if loadErr == nil {
		loadErr = config.Check(raw)
	}
}

// Config returns the validated configuration.
func Config() (*config.Config, error) {
	if loadErr != nil {
		return nil, errors.NewConfigError(loadErr)
	}
	if raw == nil {
		return nil, errors.NewConfigError(errors.New("configuration not loaded"))
	}
	return raw, nil
}

// RawConfig returns the configuration as read, valid or not, falling back
// to the defaults when it could not be read at all.
func RawConfig() *config.Config {
	if raw == nil {
		return config.Default()
	}
	return raw
}

// ConfigUsed returns the file the configuration came from, or "".
func ConfigUsed() string {
	if used == "" && configFile != "" {
		return configFile
	}
	return used
}

// Manager builds a snapshot manager for cfg, or for the loaded config
// when cfg is nil.
func Manager(cmd *cobra.Command, cfg *config.Config) (*snapshot.Manager, error) {
	if cfg == nil {
		var err error
		if cfg, err = Config(); err != nil {
			return nil, err
		}
	}
	opts := append([]snapshot.Option{snapshot.WithLogger(logging.FromContext(cmd.Context()))}, ManagerOptions...)
	return snapshot.NewManager(cfg, opts...)
}

// Printer returns a printer for the --format flag on the command's stdout.
func Printer(cmd *cobra.Command) (*cli.Printer, error) {
	f, err := cli.ParseFormat(format)
	if err != nil {
		return nil, errors.NewUserError(err, "use one of: text, json, yaml, toml")
	}
	return cli.NewPrinter(cmd.OutOrStdout(), f), nil
}
