package pki

import (
	"context"
	"os"
)

// RevokeFailure records a name the CA tool could not revoke.
type RevokeFailure struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// RevokeResult aggregates a bulk revocation.
type RevokeResult struct {
	Revoked []string        `json:"revoked"`
	Failed  []RevokeFailure `json:"failed"`
	CRL     Result          `json:"crl"`
}

// RevokeAll revokes each name and then regenerates the CRL once. A name
// with no issued certificate counts as revoked. Failures do not stop the
// remaining names.
func (r *Regenerator) RevokeAll(ctx context.Context, names []string) RevokeResult {
	res := RevokeResult{Revoked: []string{}, Failed: []RevokeFailure{}}

	for _, name := range names {
		if err := ValidateName(name); err != nil {
			res.Failed = append(res.Failed, RevokeFailure{Name: name, Error: err.Error()})
			continue
		}
		if _, err := os.Stat(r.Layout.IssuedCertPath(name)); os.IsNotExist(err) {
			res.Revoked = append(res.Revoked, name)
			continue
		}
		if r.Tool == nil {
			res.Failed = append(res.Failed, RevokeFailure{Name: name, Error: "no CA tool configured"})
			continue
		}
		if err := r.Tool.Revoke(ctx, name); err != nil {
			res.Failed = append(res.Failed, RevokeFailure{Name: name, Error: err.Error()})
			continue
		}
		res.Revoked = append(res.Revoked, name)
	}

	// Explicit revocation always publishes a CRL, whatever the auto setting.
	regen := *r
	regen.Enabled = true
	res.CRL = regen.Regenerate(ctx)
	return res
}
