package commands

import (
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/ovsnap/cmd/ovsnap/commands/app"
	"github.com/thoreinstein/ovsnap/internal/archive"
	"github.com/thoreinstein/ovsnap/internal/cli"
)

func init() {
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List archives, newest first",
	Long: `List the archives in the output directory and the extra archive
directories. When the same name exists in several directories, the output
directory wins.`,
	Example: `  ovsnap list
  ovsnap list --format json

  See Also: ovsnap info, ovsnap prune`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func runList(cmd *cobra.Command, _ []string) error {
	p, err := app.Printer(cmd)
	if err != nil {
		return err
	}
	mgr, err := app.Manager(cmd, nil)
	if err != nil {
		return err
	}
	list, err := mgr.List()
	if err != nil {
		return err
	}
	if list == nil {
		list = []archive.Info{}
	}

	return p.Print(list, func(w io.Writer) error {
		if len(list) == 0 {
			fmt.Fprintln(w, "No archives found.")
			fmt.Fprintln(w, "Create one with: ovsnap create")
			return nil
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Bold("NAME"), p.Bold("SIZE"), p.Bold("AGE"), p.Bold("DIR"))
		for _, a := range list {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.Name, cli.Size(a.Size), cli.Age(a.ModTime), p.Dim(filepath.Dir(a.Path)))
		}
		return tw.Flush()
	})
}
