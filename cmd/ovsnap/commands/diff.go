package commands

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/ovsnap/cmd/ovsnap/commands/app"
)

func init() {
	rootCmd.AddCommand(diffCmd)
}

var diffCmd = &cobra.Command{
	Use:   "diff <archive>",
	Short: "Show how the live roots differ from an archive",
	Long: `Unpack an archive into a staging directory and compare its manifest with
the live roots. Nothing on the host is modified.

Paths are reported in three groups: extra (on disk, not in the archive),
missing (in the archive, not on disk) and changed (content differs).`,
	Example: `  ovsnap diff openvpn_full_backup_20250131_123045.tar.gz
  ovsnap diff openvpn_full_backup_20250131_123045.tar.gz --format json

  See Also: ovsnap restore --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runDiff,
}

func runDiff(cmd *cobra.Command, args []string) error {
	p, err := app.Printer(cmd)
	if err != nil {
		return err
	}
	mgr, err := app.Manager(cmd, nil)
	if err != nil {
		return err
	}
	rep, err := mgr.Diff(cmd.Context(), args[0])
	if err != nil {
		return notFoundHint(err)
	}
	return p.Print(rep.Diff, func(w io.Writer) error {
		writeDiff(w, p, rep.Diff, mgr.Config().StrictPurge)
		return nil
	})
}
