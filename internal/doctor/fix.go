package doctor

import (
	"fmt"
	"os"

	"github.com/thoreinstein/ovsnap/internal/errors"
)

// Fixer is an optional interface that checks can implement to support
// auto-remediation with doctor --fix.
type Fixer interface {
	// CanFix returns true if this check has fixable issues.
	// Must be called after Run().
	CanFix() bool

	// Fix attempts to remediate the issues found by Run().
	Fix() []FixResult
}

// FixResult describes the outcome of an attempted fix operation.
type FixResult struct {
	Path        string `json:"path" yaml:"path" toml:"path"`
	Fixed       bool   `json:"fixed" yaml:"fixed" toml:"fixed"`
	Description string `json:"description" yaml:"description" toml:"description"`
	Error       error  `json:"-" yaml:"-" toml:"-"`
}

// Private permissions: archives and the config hold CA keys and paths.
const (
	privateFilePerm os.FileMode = 0o600
	privateDirPerm  os.FileMode = 0o700
)

// fixKind is the remediation an issue needs.
type fixKind int

const (
	fixNone fixKind = iota
	fixChmod
	fixMkdir
)

// issue is one problem found on a path.
type issue struct {
	Path     string
	Problem  string
	Severity Severity
	Fix      fixKind
	Perm     os.FileMode
}

func (i issue) String() string {
	return i.Path + ": " + i.Problem
}

// PermissionFixer applies chmod and mkdir remediations. Checks embed it
// and record their issues after each run.
type PermissionFixer struct {
	issues []issue
}

// CanFix returns true if there are any fixable issues.
func (f *PermissionFixer) CanFix() bool {
	return f.CountFixable() > 0
}

// CountFixable returns the number of fixable issues.
func (f *PermissionFixer) CountFixable() int {
	n := 0
	for _, i := range f.issues {
		if i.Fix != fixNone {
			n++
		}
	}
	return n
}

// Fix attempts every fixable issue.
func (f *PermissionFixer) Fix() []FixResult {
	results := make([]FixResult, 0, f.CountFixable())
	for _, i := range f.issues {
		if i.Fix == fixNone {
			continue
		}
		results = append(results, fixIssue(i))
	}
	return results
}

func (f *PermissionFixer) setIssues(issues []issue) {
	f.issues = issues
}

func fixIssue(i issue) FixResult {
	res := FixResult{Path: i.Path}
	switch i.Fix {
	case fixChmod:
		if err := os.Chmod(i.Path, i.Perm); err != nil {
			res.Description = fmt.Sprintf("failed to chmod %04o: %v", i.Perm, err)
			res.Error = errors.Wrapf(err, "chmod %04o %s", i.Perm, i.Path)
			return res
		}
		res.Description = fmt.Sprintf("chmod %04o", i.Perm)
	case fixMkdir:
		if err := os.MkdirAll(i.Path, i.Perm); err != nil {
			res.Description = fmt.Sprintf("failed to create directory: %v", err)
			res.Error = errors.Wrapf(err, "mkdir %s", i.Path)
			return res
		}
		res.Description = fmt.Sprintf("mkdir -m %04o", i.Perm)
	default:
		res.Error = errors.Newf("no fix for %s", i.Path)
		res.Description = "not fixable"
		return res
	}
	res.Fixed = true
	return res
}
