// Package diff compares a manifest against the live filesystem.
package diff

import (
	"log/slog"
	"slices"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/ovsnap/internal/exclude"
	"github.com/thoreinstein/ovsnap/internal/logging"
	"github.com/thoreinstein/ovsnap/internal/manifest"
)

// Report is the difference between a manifest and the live filesystem.
// Every list is sorted lexicographically.
type Report struct {
	// Extra are paths on disk that the manifest does not record.
	Extra []string `json:"extra"`

	// Missing are recorded paths that are gone from disk.
	Missing []string `json:"missing"`

	// Changed are paths on both sides whose digest differs.
	Changed []string `json:"changed"`
}

// Empty reports whether live state matches the manifest.
func (r *Report) Empty() bool {
	return r.Total() == 0
}

// Total is the number of differing paths.
func (r *Report) Total() int {
	return len(r.Extra) + len(r.Missing) + len(r.Changed)
}

// Hasher digests one path the way the manifest recorded it.
type Hasher func(path string) (string, error)

// Engine computes Reports.
type Engine struct {
	// Filter must match the one used at capture, or excluded paths will
	// show up as extra.
	Filter *exclude.Filter

	// Hasher defaults to manifest.Digest.
	Hasher Hasher

	Logger *slog.Logger
}

// Diff walks m.Roots, never the live configuration, and compares what it
// finds with m.Files. A path whose digest cannot be computed is reported
// as changed so a restore rewrites it.
func (e *Engine) Diff(m *manifest.Manifest) (*Report, error) {
	log := logging.OrDiscard(e.Logger)
	hash := e.Hasher
	if hash == nil {
		hash = manifest.Digest
	}

	current := make(map[string]struct{})
	for _, root := range m.Roots {
		found, err := manifest.Walk(root, e.Filter)
		if err != nil {
			return nil, errors.Wrap(err, "scanning live tree")
		}
		for _, p := range found {
			current[p] = struct{}{}
		}
	}

	recorded := m.Index()
	rep := &Report{Extra: []string{}, Missing: []string{}, Changed: []string{}}

	for p := range current {
		if _, ok := recorded[p]; !ok {
			rep.Extra = append(rep.Extra, p)
		}
	}
	for p, rec := range recorded {
		if _, ok := current[p]; !ok {
			rep.Missing = append(rep.Missing, p)
			continue
		}
		sum, err := hash(p)
		if err != nil {
			log.Warn("cannot hash file, treating as changed", "path", p, "error", err)
			rep.Changed = append(rep.Changed, p)
			continue
		}
		if sum != rec.SHA256 {
			rep.Changed = append(rep.Changed, p)
		}
	}

	slices.Sort(rep.Extra)
	slices.Sort(rep.Missing)
	slices.Sort(rep.Changed)

	log.Debug("diff computed",
		"extra", len(rep.Extra),
		"missing", len(rep.Missing),
		"changed", len(rep.Changed),
	)
	return rep, nil
}
