package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/ovsnap/cmd/ovsnap/commands/app"
	"github.com/thoreinstein/ovsnap/internal/errors"
)

var (
	restoreDryRun    bool
	restoreYes       bool
	restoreNoPurge   bool
	restoreNoRestart bool
)

func init() {
	restoreCmd.Flags().BoolVarP(&restoreDryRun, "dry-run", "n", false,
		"report what would change without touching anything")
	restoreCmd.Flags().BoolVarP(&restoreYes, "yes", "y", false,
		"do not ask for confirmation")
	restoreCmd.Flags().BoolVar(&restoreNoPurge, "no-purge", false,
		"keep files the archive does not record (overrides strict_purge)")
	restoreCmd.Flags().BoolVar(&restoreNoRestart, "no-restart", false,
		"do not restart the VPN service afterwards")
	rootCmd.AddCommand(restoreCmd)
}

var restoreCmd = &cobra.Command{
	Use:   "restore [archive]",
	Short: "Restore the live roots from an archive",
	Long: `Restore makes the live roots match an archive exactly:

  1. unpack the archive into a staging directory
  2. diff the manifest against the live roots
  3. with strict_purge, delete every file the archive does not record
  4. copy every archived file back with its mode, owner and mtime
  5. regenerate the CRL from the restored Easy-RSA index
  6. restart the VPN service

Per-file failures are reported and do not stop the restore.

Without an archive argument, an interactive finder lists the catalogue.
A real restore asks for confirmation unless --yes is given; without a
terminal --yes is required.`,
	Example: `  # Preview
  ovsnap restore openvpn_full_backup_20250131_123045.tar.gz --dry-run

  # Restore without prompting
  ovsnap restore openvpn_full_backup_20250131_123045.tar.gz --yes

  # Pick an archive interactively
  ovsnap restore

  See Also: ovsnap diff, ovsnap list`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRestore,
}

func runRestore(cmd *cobra.Command, args []string) error {
	p, err := app.Printer(cmd)
	if err != nil {
		return err
	}
	base, err := app.Config()
	if err != nil {
		return err
	}
	cfg := *base
	if restoreNoPurge {
		cfg.StrictPurge = false
	}
	if restoreNoRestart {
		cfg.Service.Restart = false
	}
	mgr, err := app.Manager(cmd, &cfg)
	if err != nil {
		return err
	}

	name := ""
	if len(args) == 1 {
		name = args[0]
	} else {
		if !app.Interactive() {
			return errors.NewUserError(errors.New("no archive given"), "Run: ovsnap list")
		}
		list, err := mgr.List()
		if err != nil {
			return err
		}
		picked, err := app.NewPrompter().SelectArchive(list)
		if err != nil {
			return errors.NewUserError(err, "Run: ovsnap create")
		}
		name = picked.Path
	}

	if !restoreDryRun && !restoreYes {
		if !app.Interactive() {
			return errors.NewUserError(errors.ErrConfirmationRequired, "re-run with --yes, or preview with --dry-run")
		}
		question := fmt.Sprintf("Restore %s over %s?", name, strings.Join(cfg.Roots, ", "))
		if cfg.StrictPurge {
			question += " Files not in the archive will be deleted."
		}
		ok, err := app.NewPrompter().Confirm(question)
		if err != nil {
			return err
		}
		if !ok {
			return errors.NewUserError(errors.ErrConfirmationRequired, "restore aborted")
		}
	}

	rep, err := mgr.Restore(cmd.Context(), name, restoreDryRun)
	if err != nil {
		return notFoundHint(err)
	}

	if err := p.Print(rep, func(w io.Writer) error {
		writeRestore(w, p, rep)
		return nil
	}); err != nil {
		return err
	}

	if failed := rep.Failed(); len(failed) > 0 {
		return errors.NewSystemError(errors.Newf("restore finished with %d failed item(s)", len(failed)), "see the report above")
	}
	if len(rep.Errors) > 0 {
		return errors.NewSystemError(errors.New(rep.Errors[0]), "files were restored; check the VPN service")
	}
	return nil
}
