// Package exclude decides which paths are invisible to capture, diff and
// purge.
//
// Two rules combine with OR: an exact match against a set of literal paths
// (compared after lexical cleaning, without resolving symlinks) and a
// suffix match against a set of filename suffixes. Nothing else is
// excluded; there are no globs and no exceptions.
package exclude

import (
	"path/filepath"
	"slices"
	"strings"
)

// Filter holds the configured exclusion rules. The zero value and a nil
// *Filter exclude nothing.
type Filter struct {
	paths    map[string]struct{}
	suffixes []string
}

// New returns a Filter for the given literal paths and suffixes.
// Empty entries are ignored.
func New(paths, suffixes []string) *Filter {
	f := &Filter{paths: make(map[string]struct{}, len(paths))}
	for _, p := range paths {
		if p == "" {
			continue
		}
		f.paths[filepath.Clean(p)] = struct{}{}
	}
	for _, s := range suffixes {
		if s == "" {
			continue
		}
		f.suffixes = append(f.suffixes, s)
	}
	slices.Sort(f.suffixes)
	f.suffixes = slices.Compact(f.suffixes)
	return f
}

// Excluded reports whether path must be skipped.
func (f *Filter) Excluded(path string) bool {
	if f == nil {
		return false
	}
	norm := filepath.Clean(path)
	if _, ok := f.paths[norm]; ok {
		return true
	}
	for _, s := range f.suffixes {
		if strings.HasSuffix(norm, s) {
			return true
		}
	}
	return false
}

// Paths returns the literal excluded paths, sorted.
func (f *Filter) Paths() []string {
	if f == nil {
		return nil
	}
	out := make([]string, 0, len(f.paths))
	for p := range f.paths {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// Suffixes returns the excluded suffixes, sorted.
func (f *Filter) Suffixes() []string {
	if f == nil {
		return nil
	}
	return slices.Clone(f.suffixes)
}
