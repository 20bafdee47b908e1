// Package doctor runs diagnostic checks against an ovsnap host: the
// configuration, the captured roots, the archive directories, the CA
// installation and the service manager.
package doctor

import "github.com/cockroachdb/errors"

// Severity ranks a check result. Higher is worse.
type Severity int

const (
	SeverityPass Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityPass:
		return "pass"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText renders the severity by name in JSON, YAML and TOML reports.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a severity name.
func (s *Severity) UnmarshalText(b []byte) error {
	for _, v := range []Severity{SeverityPass, SeverityInfo, SeverityWarning, SeverityError} {
		if v.String() == string(b) {
			*s = v
			return nil
		}
	}
	return errors.Newf("unknown severity %q", b)
}

func worst(a, b Severity) Severity {
	if b > a {
		return b
	}
	return a
}

// CheckResult is the outcome of one check. Problems holds one line per
// issue; Fixable marks results a Fixer can repair.
type CheckResult struct {
	Name     string   `json:"name" yaml:"name" toml:"name"`
	Category string   `json:"category" yaml:"category" toml:"category"`
	Status   Severity `json:"status" yaml:"status" toml:"status"`
	Message  string   `json:"message" yaml:"message" toml:"message"`
	Problems []string `json:"problems,omitempty" yaml:"problems,omitempty" toml:"problems,omitempty"`
	Fixable  bool     `json:"fixable,omitempty" yaml:"fixable,omitempty" toml:"fixable,omitempty"`
	FixHint  string   `json:"fix_hint,omitempty" yaml:"fix_hint,omitempty" toml:"fix_hint,omitempty"`
}

// Summary counts results by severity.
type Summary struct {
	Passed   int `json:"passed" yaml:"passed" toml:"passed"`
	Info     int `json:"info" yaml:"info" toml:"info"`
	Warnings int `json:"warnings" yaml:"warnings" toml:"warnings"`
	Errors   int `json:"errors" yaml:"errors" toml:"errors"`
}

func (s *Summary) add(sev Severity) {
	switch sev {
	case SeverityPass:
		s.Passed++
	case SeverityInfo:
		s.Info++
	case SeverityWarning:
		s.Warnings++
	case SeverityError:
		s.Errors++
	}
}
