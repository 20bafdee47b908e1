package commands

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/ovsnap/cmd"
	"github.com/thoreinstein/ovsnap/cmd/ovsnap/commands/app"
)

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Long:  `Print the version, commit, and build date of ovsnap.`,
	Args:  cobra.NoArgs,
	RunE: func(c *cobra.Command, _ []string) error {
		p, err := app.Printer(c)
		if err != nil {
			return err
		}
		info := cmd.Info()
		return p.Print(info, func(w io.Writer) error {
			_, err := io.WriteString(w, info.String())
			return err
		})
	},
}
