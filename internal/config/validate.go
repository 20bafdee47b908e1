package config

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/ovsnap/internal/paths"
)

var (
	ErrUnsupportedVersion = errors.New("unsupported config version")
	ErrNoRoots            = errors.New("at least one root is required")
	ErrInvalidPath        = errors.New("invalid path")
	ErrNotAbsolute        = paths.ErrNotAbsolute
	ErrOutOfRange         = errors.New("value out of range")
)

// FieldError ties a validation failure to the config key that caused it.
type FieldError struct {
	Field string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Err.Error() + ": " + e.Value
}

func (e *FieldError) Unwrap() error { return e.Err }

// Validate returns every problem found in cfg, in field order. Paths are
// checked for form only; nothing is stat'ed.
func Validate(cfg *Config) []error {
	if cfg == nil {
		return []error{errors.New("config is nil")}
	}

	var v validator
	if cfg.Version != CurrentVersion {
		v.add("version", strconv.Itoa(cfg.Version), ErrUnsupportedVersion)
	}
	if len(cfg.Roots) == 0 {
		v.errs = append(v.errs, ErrNoRoots)
	}
	v.paths("roots", cfg.Roots...)
	v.paths("output_dir", cfg.OutputDir)
	v.paths("archive_dirs", cfg.ArchiveDirs...)
	if cfg.StagingDir != "" {
		v.paths("staging_dir", cfg.StagingDir)
	}
	v.paths("exclude.paths", cfg.Exclude.Paths...)
	for _, s := range cfg.Exclude.Suffixes {
		if s == "" || strings.ContainsRune(s, 0) {
			v.add("exclude.suffixes", s, ErrInvalidPath)
		}
	}

	v.paths("pki.easyrsa_dir", cfg.PKI.EasyRSADir)
	v.paths("pki.crl_dest", cfg.PKI.CRLDest)
	if cfg.PKI.CRLDays <= 0 {
		v.add("pki.crl_days", strconv.Itoa(cfg.PKI.CRLDays), ErrOutOfRange)
	}
	if cfg.Retention < 0 {
		v.add("retention", strconv.Itoa(cfg.Retention), ErrOutOfRange)
	}
	if cfg.Service.Restart && len(cfg.Service.Units) == 0 {
		v.add("service.units", "[]", errors.New("required when service.restart is true"))
	}
	return v.errs
}

type validator struct {
	errs []error
}

func (v *validator) add(field, value string, err error) {
	v.errs = append(v.errs, &FieldError{Field: field, Value: value, Err: err})
}

func (v *validator) paths(field string, ps ...string) {
	for _, p := range ps {
		if err := checkPath(p); err != nil {
			v.add(field, p, err)
		}
	}
}

func checkPath(p string) error {
	if p == "" || strings.ContainsRune(p, 0) || filepath.Clean(p) == "." {
		return ErrInvalidPath
	}
	if !filepath.IsAbs(p) {
		return ErrNotAbsolute
	}
	return nil
}
