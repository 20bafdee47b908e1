package pki

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/ovsnap/cmd/ovsnap/commands/app"
	"github.com/thoreinstein/ovsnap/internal/errors"
)

var crlCmd = &cobra.Command{
	Use:   "crl",
	Short: "Regenerate and publish the CRL",
	Long: `Ask Easy-RSA for a new CRL and copy it to pki.crl_dest with mode 0644.
Runs even when pki.auto_regen_crl is off.`,
	Args: cobra.NoArgs,
	RunE: runCRL,
}

func runCRL(cmd *cobra.Command, _ []string) error {
	p, err := app.Printer(cmd)
	if err != nil {
		return err
	}
	mgr, err := app.Manager(cmd, nil)
	if err != nil {
		return err
	}

	res := mgr.RegenerateCRL(cmd.Context())
	if err := p.Print(res, func(w io.Writer) error {
		writeCRL(w, p.OK, p.Warn, res.OK, res.Message)
		return nil
	}); err != nil {
		return err
	}
	if !res.OK {
		return errors.NewSystemError(errors.New(res.Message), "Run: ovsnap doctor")
	}
	return nil
}
