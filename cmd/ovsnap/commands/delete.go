package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/ovsnap/cmd/ovsnap/commands/app"
)

func init() {
	rootCmd.AddCommand(deleteCmd)
}

var deleteCmd = &cobra.Command{
	Use:     "delete <archive>...",
	Aliases: []string{"rm"},
	Short:   "Delete archives",
	Long: `Delete one or more archives by name or absolute path. Only files named
like archives (openvpn_full_backup_YYYYMMDD_HHMMSS.tar.gz) can be deleted.`,
	Example: `  ovsnap delete openvpn_full_backup_20250131_123045.tar.gz

  See Also: ovsnap prune`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDelete,
}

type deleteOutput struct {
	Deleted []string `json:"deleted"`
}

func runDelete(cmd *cobra.Command, args []string) error {
	p, err := app.Printer(cmd)
	if err != nil {
		return err
	}
	mgr, err := app.Manager(cmd, nil)
	if err != nil {
		return err
	}

	out := deleteOutput{Deleted: []string{}}
	for _, name := range args {
		path, err := mgr.Delete(name)
		if err != nil {
			return notFoundHint(err)
		}
		out.Deleted = append(out.Deleted, path)
	}

	return p.Print(out, func(w io.Writer) error {
		for _, d := range out.Deleted {
			fmt.Fprintf(w, "%s deleted %s\n", p.OK("✓"), d)
		}
		return nil
	})
}
