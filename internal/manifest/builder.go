package manifest

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/ovsnap/internal/exclude"
	"github.com/thoreinstein/ovsnap/internal/logging"
	"github.com/thoreinstein/ovsnap/internal/paths"
	"github.com/thoreinstein/ovsnap/internal/pki"
)

// recordFile is replaced in tests to simulate files changing mid-capture.
var recordFile = Record

// Builder captures manifests.
type Builder struct {
	// Filter hides paths from capture. Nil excludes nothing.
	Filter *exclude.Filter

	// PKI locates the CA database to snapshot. Nil skips the PKI section.
	PKI *pki.Layout

	// Clock returns the capture time. Defaults to time.Now.
	Clock func() time.Time

	Logger *slog.Logger
}

// Build walks roots in order and records every visible file. Files that
// vanish or cannot be read between the walk and the hash are skipped and
// listed in Manifest.Skipped. When roots overlap, the first record of a
// path wins.
func (b *Builder) Build(roots []string) (*Manifest, error) {
	log := logging.OrDiscard(b.Logger)
	now := time.Now
	if b.Clock != nil {
		now = b.Clock
	}

	m := &Manifest{
		Version:   Version,
		CreatedAt: NewTimestamp(now()),
		Roots:     make([]string, 0, len(roots)),
		Files:     []File{},
	}

	seen := make(map[string]struct{})
	for _, r := range roots {
		if err := paths.RequireAbs(r); err != nil {
			return nil, errors.Wrap(err, "manifest root")
		}
		root := filepath.Clean(r)
		m.Roots = append(m.Roots, root)

		found, err := Walk(root, b.Filter)
		if err != nil {
			return nil, err
		}
		for _, p := range found {
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}

			rec, err := recordFile(p)
			if err != nil {
				if os.IsNotExist(errors.UnwrapAll(err)) {
					log.Debug("file vanished during capture", "path", p)
				} else {
					log.Warn("skipping unreadable file", "path", p, "error", err)
				}
				m.Skipped = append(m.Skipped, p)
				continue
			}
			m.Files = append(m.Files, rec)
		}
	}

	if b.PKI != nil {
		snap, warnings := pki.ReadSnapshot(*b.PKI)
		for _, w := range warnings {
			log.Warn("incomplete CA index snapshot", "error", w)
		}
		m.PKI = snap
	}

	log.Info("manifest built",
		"roots", len(m.Roots),
		"files", len(m.Files),
		"skipped", len(m.Skipped),
		"pki", m.PKI != nil,
	)
	return m, nil
}
