package pki

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/ovsnap/cmd/ovsnap/commands/app"
	"github.com/thoreinstein/ovsnap/internal/errors"
)

var revokeCmd = &cobra.Command{
	Use:   "revoke <name>...",
	Short: "Revoke client certificates",
	Long: `Revoke each named client with Easy-RSA, then regenerate the CRL once
and publish it. A name with no issued certificate counts as already revoked.
One failing name does not stop the others.`,
	Example: `  ovsnap pki revoke alice
  ovsnap pki revoke alice bob carol`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRevoke,
}

func runRevoke(cmd *cobra.Command, args []string) error {
	p, err := app.Printer(cmd)
	if err != nil {
		return err
	}
	mgr, err := app.Manager(cmd, nil)
	if err != nil {
		return err
	}

	res := mgr.Revoke(cmd.Context(), args)

	if err := p.Print(res, func(w io.Writer) error {
		for _, name := range res.Revoked {
			fmt.Fprintf(w, "%s revoked %s\n", p.OK("✓"), name)
		}
		for _, f := range res.Failed {
			fmt.Fprintf(w, "%s %s: %s\n", p.Fail("✗"), f.Name, f.Error)
		}
		writeCRL(w, p.OK, p.Warn, res.CRL.OK, res.CRL.Message)
		return nil
	}); err != nil {
		return err
	}

	switch {
	case len(res.Failed) > 0:
		return errors.NewExitError(errors.Newf("%d of %d revocation(s) failed", len(res.Failed), len(args)), errors.ExitSystem)
	case !res.CRL.OK:
		return errors.NewExitError(errors.Newf("CRL not published: %s", res.CRL.Message), errors.ExitSystem)
	}
	return nil
}

func writeCRL(w io.Writer, ok, warn func(string) string, published bool, msg string) {
	if published {
		fmt.Fprintf(w, "%s %s\n", ok("✓"), msg)
		return
	}
	fmt.Fprintf(w, "%s %s\n", warn("⚠"), msg)
}
