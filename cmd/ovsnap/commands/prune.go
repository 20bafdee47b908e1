package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/ovsnap/cmd/ovsnap/commands/app"
	"github.com/thoreinstein/ovsnap/internal/archive"
	"github.com/thoreinstein/ovsnap/internal/errors"
)

var (
	pruneKeep   int
	pruneDryRun bool
)

func init() {
	pruneCmd.Flags().IntVar(&pruneKeep, "keep", -1,
		"number of archives to keep (default: retention from config)")
	pruneCmd.Flags().BoolVarP(&pruneDryRun, "dry-run", "n", false,
		"list what would be deleted")
	rootCmd.AddCommand(pruneCmd)
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete all but the newest archives",
	Long: `Delete archives beyond the retention count, oldest first. The count
comes from --keep or the retention setting.`,
	Example: `  ovsnap prune
  ovsnap prune --keep 3 --dry-run

  See Also: ovsnap list, ovsnap delete`,
	Args: cobra.NoArgs,
	RunE: runPrune,
}

type pruneOutput struct {
	DryRun  bool           `json:"dry_run"`
	Keep    int            `json:"keep"`
	Removed []archive.Info `json:"removed"`
}

func runPrune(cmd *cobra.Command, _ []string) error {
	p, err := app.Printer(cmd)
	if err != nil {
		return err
	}
	mgr, err := app.Manager(cmd, nil)
	if err != nil {
		return err
	}

	keep := pruneKeep
	if keep < 0 {
		keep = mgr.Config().Retention
	}
	out := pruneOutput{DryRun: pruneDryRun, Keep: keep, Removed: []archive.Info{}}

	if pruneDryRun {
		list, err := mgr.List()
		if err != nil {
			return err
		}
		if len(list) > keep {
			out.Removed = list[keep:]
		}
	} else {
		removed, err := mgr.Prune(keep)
		out.Removed = append(out.Removed, removed...)
		if err != nil {
			return errors.NewSystemError(err, fmt.Sprintf("%d archive(s) were removed before the failure", len(removed)))
		}
	}

	return p.Print(out, func(w io.Writer) error {
		if len(out.Removed) == 0 {
			fmt.Fprintf(w, "nothing to prune (keeping %d)\n", keep)
			return nil
		}
		verb := "deleted"
		if pruneDryRun {
			verb = "would delete"
		}
		for _, a := range out.Removed {
			fmt.Fprintf(w, "%s %s %s\n", p.OK("✓"), verb, a.Path)
		}
		return nil
	})
}
