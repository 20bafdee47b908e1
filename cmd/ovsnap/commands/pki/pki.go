// Package pki provides CLI commands for the Easy-RSA CA database.
package pki

import "github.com/spf13/cobra"

// Cmd is the root pki command.
var Cmd = &cobra.Command{
	Use:   "pki",
	Short: "Inspect clients and manage revocation",
	Long: `Inspect the Easy-RSA CA index and revoke client certificates.

Revoking always publishes a new CRL to pki.crl_dest, whatever the
pki.auto_regen_crl setting, so the VPN daemon stops accepting the
revoked clients on its next reload.`,
	Example: `  # List clients
  ovsnap pki clients

  # Revoke two clients and publish a new CRL
  ovsnap pki revoke alice bob

  # Publish a fresh CRL
  ovsnap pki crl

  See Also:
    ovsnap pki clients - List certificates in the CA index
    ovsnap pki revoke  - Revoke client certificates
    ovsnap pki crl     - Regenerate and publish the CRL`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

func init() {
	Cmd.AddCommand(clientsCmd)
	Cmd.AddCommand(revokeCmd)
	Cmd.AddCommand(crlCmd)
}
