package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/ovsnap/cmd/ovsnap/commands/app"
	"github.com/thoreinstein/ovsnap/internal/cli"
	"github.com/thoreinstein/ovsnap/internal/config"
	"github.com/thoreinstein/ovsnap/internal/editor"
	"github.com/thoreinstein/ovsnap/internal/errors"
	"github.com/thoreinstein/ovsnap/internal/paths"
)

var (
	configInitForce bool
	configInitPath  string
)

// openEditor is replaced in tests.
var openEditor = editor.Open

func init() {
	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false,
		"overwrite an existing config file")
	configInitCmd.Flags().StringVar(&configInitPath, "path", "",
		"where to write the file (default: ~/.config/ovsnap/config.yaml)")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage ovsnap configuration",
	Long: `Manage the ovsnap configuration file.

Without a subcommand, shows the effective configuration.`,
	Example: `  ovsnap config
  ovsnap config init
  ovsnap config edit

  See Also: ovsnap doctor`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after defaults, the config file and OVSNAP_*
environment overrides are merged. Text output is YAML.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file in use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		used := app.ConfigUsed()
		if used == "" {
			fmt.Fprintf(cmd.OutOrStdout(), "no config file; defaults in use (create one with: ovsnap config init)\n")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), used)
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the defaults",
	Example: `  ovsnap config init
  ovsnap config init --path /etc/ovsnap/config.yaml --force`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the config file in $EDITOR",
	Long: `Open the config file in your editor and validate it afterwards.

Uses $EDITOR, then $VISUAL, then nano, then vi.`,
	Args: cobra.NoArgs,
	RunE: runConfigEdit,
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	p, err := app.Printer(cmd)
	if err != nil {
		return err
	}
	cfg := app.RawConfig()
	if p.Format == cli.FormatText {
		p.Format = cli.FormatYAML
	}
	if err := p.Print(cfg, nil); err != nil {
		return err
	}
	if err := config.Check(cfg); err != nil {
		return errors.NewConfigError(err)
	}
	return nil
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	path := configInitPath
	if path == "" {
		path = paths.ConfigFile()
	}
	if err := config.Write(path, config.Default(), configInitForce); err != nil {
		return errors.NewUserError(err, "use --force to overwrite")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	return nil
}

func runConfigEdit(cmd *cobra.Command, _ []string) error {
	path := app.ConfigUsed()
	if path == "" {
		return errors.NewUserError(errors.New("no config file found"), "Run: ovsnap config init")
	}
	if err := openEditor(path); err != nil {
		return errors.NewSystemError(err, "set $EDITOR")
	}

	app.Load()
	if _, err := app.Config(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", path)
	return nil
}
