package pki

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// CATool is the external certificate authority tool.
type CATool interface {
	// Revoke revokes the certificate issued to name.
	Revoke(ctx context.Context, name string) error

	// GenerateCRL writes a new CRL valid for days into the PKI directory.
	GenerateCRL(ctx context.Context, days int) error
}

// EasyRSA runs the easyrsa script of a Layout.
type EasyRSA struct {
	Layout Layout
}

var _ CATool = (*EasyRSA)(nil)

// NewEasyRSA returns an EasyRSA bound to layout.
func NewEasyRSA(layout Layout) *EasyRSA {
	return &EasyRSA{Layout: layout}
}

// Revoke runs `easyrsa --batch revoke NAME`.
func (e *EasyRSA) Revoke(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	return e.run(ctx, nil, "--batch", "revoke", name)
}

// GenerateCRL runs `easyrsa gen-crl` with EASYRSA_CRL_DAYS set.
func (e *EasyRSA) GenerateCRL(ctx context.Context, days int) error {
	if days <= 0 {
		return errors.Newf("CRL validity must be positive, got %d", days)
	}
	return e.run(ctx, []string{"EASYRSA_CRL_DAYS=" + strconv.Itoa(days)}, "gen-crl")
}

func (e *EasyRSA) run(ctx context.Context, env []string, args ...string) error {
	cmd := exec.CommandContext(ctx, e.Layout.ToolPath(), args...)
	cmd.Dir = e.Layout.EasyRSADir
	cmd.Env = append(os.Environ(), env...)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(out.String())
		if msg != "" {
			return errors.Wrapf(err, "easyrsa %s: %s", strings.Join(args, " "), lastLine(msg))
		}
		return errors.Wrapf(err, "easyrsa %s", strings.Join(args, " "))
	}
	return nil
}

// lastLine returns the final line of s; easyrsa prints its error last.
func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
