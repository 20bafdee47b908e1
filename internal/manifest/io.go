package manifest

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/ovsnap/pkg/fileutil"
)

// FilePerm is the permission of a saved manifest. It lists private paths.
const FilePerm os.FileMode = 0o600

// Encode writes m as indented JSON.
func (m *Manifest) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return errors.Wrap(enc.Encode(m), "encoding manifest")
}

// Save writes m to dir/manifest.json atomically and returns the path.
func (m *Manifest) Save(dir string) (string, error) {
	path := filepath.Join(dir, FileName)
	if err := fileutil.AtomicWriteFunc(path, FilePerm, m.Encode); err != nil {
		return "", errors.Wrap(err, "saving manifest")
	}
	return path, nil
}

// Load reads a manifest file.
func Load(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening manifest")
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses a manifest and checks its basic shape.
func Decode(r io.Reader) (*Manifest, error) {
	var m Manifest
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		if errors.Is(err, ErrInvalidManifest) {
			return nil, err
		}
		return nil, errors.Wrapf(ErrInvalidManifest, "%v", err)
	}
	if m.Version < 1 {
		return nil, errors.Wrapf(ErrInvalidManifest, "unsupported version %d", m.Version)
	}
	for _, r := range m.Roots {
		if !filepath.IsAbs(r) {
			return nil, errors.Wrapf(ErrInvalidManifest, "root %q is not absolute", r)
		}
	}
	for i, f := range m.Files {
		if !filepath.IsAbs(f.Path) {
			return nil, errors.Wrapf(ErrInvalidManifest, "file %d: path %q is not absolute", i, f.Path)
		}
	}
	if m.Files == nil {
		m.Files = []File{}
	}
	return &m, nil
}
