// Package commands implements the CLI commands for ovsnap.
package commands

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/ovsnap/cmd"
	"github.com/thoreinstein/ovsnap/cmd/ovsnap/commands/app"
	"github.com/thoreinstein/ovsnap/cmd/ovsnap/commands/pki"
	"github.com/thoreinstein/ovsnap/internal/errors"
	"github.com/thoreinstein/ovsnap/internal/logging"
)

// debugEnv raises verbosity when no -v flag is given.
const debugEnv = "OVSNAP_DEBUG"

// verbosity holds the count of -v flags.
var verbosity int

// quiet holds the value of the -q/--quiet flag.
var quiet bool

// logFormat holds the value of the --log-format flag.
var logFormat string

// logFile holds the path to the log file.
var logFile string

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v",
		"increase verbosity level (e.g., -v, -vv)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"suppress non-error output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text",
		"log format: text, json")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "",
		"also write logs to file in JSON format")
	rootCmd.PersistentFlags().StringVarP(app.ConfigFileVar(), "config", "c", "",
		"config file (default: search $OVSNAP_CONFIG_DIR, ., ~/.config/ovsnap)")
	rootCmd.PersistentFlags().StringVarP(app.FormatVar(), "format", "o", "text",
		"output format: text, json, yaml, toml")

	rootCmd.Version = cmd.Version
	rootCmd.SetVersionTemplate("ovsnap version {{.Version}}\n")

	// Silence errors and usage so main controls error output
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	rootCmd.AddCommand(pki.Cmd)
}

var rootCmd = &cobra.Command{
	Use:   "ovsnap",
	Short: "Snapshot backup and restore for OpenVPN hosts",
	Long: `ovsnap captures the OpenVPN configuration, firewall rules and operator
home directory of a VPN host into a single compressed archive with a
manifest of content hashes, and restores such an archive exactly: files the
archive does not record are purged, the CRL is regenerated from the restored
Easy-RSA database and the VPN service is restarted.`,
	Example: `  # Take a snapshot
  ovsnap create

  # See what a restore would change
  ovsnap diff openvpn_full_backup_20250131_123045.tar.gz

  # Restore, choosing the archive interactively
  ovsnap restore --yes

  # Check the host
  ovsnap doctor

  See Also: ovsnap config, ovsnap pki`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := setupLogging(cmd); err != nil {
			return err
		}
		app.Load()
		return nil
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// setupLogging configures the default logger based on verbosity flags.
func setupLogging(cmd *cobra.Command) error {
	if quiet && verbosity > 0 {
		return errors.NewUserError(errors.New("cannot use --quiet and --verbose together"), "pick one")
	}

	var level slog.Level
	if quiet {
		level = slog.LevelError
	} else {
		v := verbosity
		if v == 0 {
			switch os.Getenv(debugEnv) {
			case "1", "true":
				v = 2
			case "2":
				v = 3
			}
		}
		level = logging.LevelFromVerbosity(v)
	}

	format, err := logging.ParseFormat(logFormat)
	if err != nil {
		return errors.NewUserError(err, "use --log-format text or json")
	}

	cfg := logging.Config{Level: level, Format: format, Output: cmd.ErrOrStderr()}
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return errors.NewUserError(errors.Wrap(err, "opening log file"), "check --log-file")
		}
		cfg.Tee = f
	}

	logger := logging.New(cfg)
	slog.SetDefault(logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logging.NewContext(ctx, logger))
	return nil
}

// Root returns the root command.
func Root() *cobra.Command {
	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
