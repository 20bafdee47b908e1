package pki

import (
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
)

// Layout locates the files of an Easy-RSA installation.
type Layout struct {
	// EasyRSADir holds the easyrsa entry point and the pki/ directory.
	EasyRSADir string
}

// PKIDir returns <easyrsa>/pki.
func (l Layout) PKIDir() string { return filepath.Join(l.EasyRSADir, "pki") }

// IndexPath returns <easyrsa>/pki/index.txt.
func (l Layout) IndexPath() string { return filepath.Join(l.PKIDir(), "index.txt") }

// SerialPath returns <easyrsa>/pki/serial.
func (l Layout) SerialPath() string { return filepath.Join(l.PKIDir(), "serial") }

// CAKeyPath returns <easyrsa>/pki/private/ca.key.
func (l Layout) CAKeyPath() string { return filepath.Join(l.PKIDir(), "private", "ca.key") }

// CRLPath returns <easyrsa>/pki/crl.pem, where gen-crl writes its output.
func (l Layout) CRLPath() string { return filepath.Join(l.PKIDir(), "crl.pem") }

// ToolPath returns <easyrsa>/easyrsa.
func (l Layout) ToolPath() string { return filepath.Join(l.EasyRSADir, "easyrsa") }

// IssuedCertPath returns the certificate path for a client name.
func (l Layout) IssuedCertPath(name string) string {
	return filepath.Join(l.PKIDir(), "issued", name+".crt")
}

// ValidateName rejects names that are empty, contain path separators, or
// begin with a dash (which the CA tool would read as an option).
func ValidateName(name string) error {
	switch {
	case name == "":
		return errors.Wrap(ErrInvalidName, "empty name")
	case strings.ContainsAny(name, `/\`) || name == "." || name == "..":
		return errors.Wrapf(ErrInvalidName, "%q contains a path element", name)
	case strings.HasPrefix(name, "-"):
		return errors.Wrapf(ErrInvalidName, "%q starts with a dash", name)
	case strings.ContainsAny(name, " \t\n\x00"):
		return errors.Wrapf(ErrInvalidName, "%q contains whitespace", name)
	}
	return nil
}
