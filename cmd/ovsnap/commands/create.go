package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/ovsnap/cmd/ovsnap/commands/app"
	"github.com/thoreinstein/ovsnap/internal/cli"
	"github.com/thoreinstein/ovsnap/internal/errors"
)

func init() {
	rootCmd.AddCommand(createCmd)
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Capture the configured roots into a new archive",
	Long: `Walk every configured root, record each regular file and symlink with its
content hash, mode and owner, snapshot the Easy-RSA index, and pack it all
into a new archive in the output directory.

Excluded paths and suffixes, the output directory and existing archives are
never captured.`,
	Example: `  ovsnap create
  ovsnap create --format json

  See Also: ovsnap list, ovsnap info`,
	Args: cobra.NoArgs,
	RunE: runCreate,
}

func runCreate(cmd *cobra.Command, _ []string) error {
	p, err := app.Printer(cmd)
	if err != nil {
		return err
	}
	mgr, err := app.Manager(cmd, nil)
	if err != nil {
		return err
	}

	created, err := mgr.Create(cmd.Context())
	if err != nil {
		return errors.NewSystemError(err, "check the output directory with: ovsnap doctor")
	}

	return p.Print(created, func(w io.Writer) error {
		fmt.Fprintf(w, "%s %s\n", p.OK("✓"), created.Path)
		fmt.Fprintf(w, "  %s files, %s\n", cli.Count(created.Files), cli.Size(created.Size))
		for _, s := range created.Skipped {
			fmt.Fprintf(w, "  %s skipped %s\n", p.Warn("⚠"), s)
		}
		return nil
	})
}
