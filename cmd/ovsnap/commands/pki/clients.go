package pki

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/ovsnap/cmd/ovsnap/commands/app"
	"github.com/thoreinstein/ovsnap/internal/errors"
	"github.com/thoreinstein/ovsnap/internal/pki"
)

var clientsStatus string

func init() {
	clientsCmd.Flags().StringVarP(&clientsStatus, "status", "s", "",
		"only show clients with this status: valid, revoked, expired")
}

var clientsCmd = &cobra.Command{
	Use:     "clients",
	Aliases: []string{"ls"},
	Short:   "List certificates in the CA index",
	Example: `  ovsnap pki clients
  ovsnap pki clients --status revoked
  ovsnap pki clients -o json`,
	Args: cobra.NoArgs,
	RunE: runClients,
}

var statusNames = map[string]string{
	"valid":   pki.StatusValid,
	"revoked": pki.StatusRevoked,
	"expired": pki.StatusExpired,
}

func runClients(cmd *cobra.Command, _ []string) error {
	want := ""
	if clientsStatus != "" {
		code, ok := statusNames[strings.ToLower(clientsStatus)]
		if !ok {
			return errors.NewUserError(
				errors.Newf("unknown status %q", clientsStatus),
				"use one of: valid, revoked, expired")
		}
		want = code
	}

	p, err := app.Printer(cmd)
	if err != nil {
		return err
	}
	mgr, err := app.Manager(cmd, nil)
	if err != nil {
		return err
	}

	snap, warnings := mgr.Clients()
	for _, w := range warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", w)
	}
	if snap == nil {
		return errors.NewUserError(
			errors.Wrap(pki.ErrPKIIncomplete, "no CA index found"),
			"check pki.easyrsa_dir in the config")
	}

	clients := make([]pki.Client, 0, len(snap.Clients))
	for _, c := range snap.Clients {
		if want == "" || c.Status == want {
			clients = append(clients, c)
		}
	}

	return p.Print(clients, func(w io.Writer) error {
		if len(clients) == 0 {
			fmt.Fprintln(w, "No clients.")
			return nil
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "CN\tSTATUS\tSERIAL\tEXPIRY")
		for _, c := range clients {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.CN, statusLabel(p.OK, p.Fail, p.Dim, c.Status), c.Serial, c.ExpiryRaw)
		}
		return tw.Flush()
	})
}

func statusLabel(ok, fail, dim func(string) string, status string) string {
	switch status {
	case pki.StatusValid:
		return ok("valid")
	case pki.StatusRevoked:
		return fail("revoked")
	case pki.StatusExpired:
		return dim("expired")
	default:
		return status
	}
}
