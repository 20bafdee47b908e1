package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/ovsnap/cmd/ovsnap/commands/app"
	"github.com/thoreinstein/ovsnap/internal/cli"
)

func init() {
	rootCmd.AddCommand(infoCmd)
}

var infoCmd = &cobra.Command{
	Use:   "info <archive>",
	Short: "Summarise an archive from its manifest",
	Long: `Read only the manifest of an archive, without unpacking any files, and
print its creation time, roots, file count and CA client counts.

The archive may be a bare name, looked up in the archive directories, or
an absolute path.`,
	Example: `  ovsnap info openvpn_full_backup_20250131_123045.tar.gz
  ovsnap info /mnt/usb/openvpn_full_backup_20250131_123045.tar.gz

  See Also: ovsnap list, ovsnap diff`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	p, err := app.Printer(cmd)
	if err != nil {
		return err
	}
	mgr, err := app.Manager(cmd, nil)
	if err != nil {
		return err
	}
	sum, err := mgr.Info(args[0])
	if err != nil {
		return notFoundHint(err)
	}

	return p.Print(sum, func(w io.Writer) error {
		fmt.Fprintf(w, "%s\n", p.Bold(sum.Name))
		fmt.Fprintf(w, "  path:    %s (%s)\n", sum.Path, cli.Size(sum.Size))
		fmt.Fprintf(w, "  created: %s (%s)\n", sum.CreatedAt.Format("2006-01-02 15:04:05 MST"), cli.Age(sum.CreatedAt))
		fmt.Fprintf(w, "  roots:   %s\n", strings.Join(sum.Roots, ", "))
		fmt.Fprintf(w, "  files:   %s (%s uncompressed)\n", cli.Count(sum.Files), cli.Size(sum.Bytes))
		if sum.HasPKI {
			fmt.Fprintf(w, "  clients: %d valid, %d revoked\n", sum.Valid, sum.Revoked)
		} else {
			fmt.Fprintf(w, "  clients: %s\n", p.Dim("no CA index captured"))
		}
		return nil
	})
}
