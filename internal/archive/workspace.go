package archive

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/gzip"

	"github.com/thoreinstein/ovsnap/internal/manifest"
	"github.com/thoreinstein/ovsnap/internal/paths"
)

// Workspace is an archive unpacked into a private staging directory.
// Callers must Close it; Close is safe to call more than once.
type Workspace struct {
	// Dir is the staging directory.
	Dir string

	// Archive is the path the workspace was unpacked from.
	Archive string

	// Manifest is the archive's manifest.
	Manifest *manifest.Manifest
}

// Open unpacks archivePath into a new staging directory under tmpDir
// (os.TempDir when empty) and loads its manifest. On error the staging
// directory has already been removed.
func Open(archivePath, tmpDir string) (*Workspace, error) {
	if tmpDir != "" {
		if err := paths.EnsureDir(tmpDir, paths.DefaultDirPerm); err != nil {
			return nil, errors.Wrap(err, "creating staging root")
		}
	}
	dir, err := os.MkdirTemp(tmpDir, StagingPrefix+"*")
	if err != nil {
		return nil, errors.Wrap(err, "creating staging directory")
	}
	ws := &Workspace{Dir: dir, Archive: archivePath}

	m, err := ws.load()
	if err != nil {
		ws.Close()
		return nil, err
	}
	ws.Manifest = m
	return ws, nil
}

func (w *Workspace) load() (*manifest.Manifest, error) {
	if err := Unpack(w.Archive, w.Dir); err != nil {
		return nil, err
	}
	m, err := manifest.Load(filepath.Join(w.Dir, manifest.FileName))
	if err != nil {
		if os.IsNotExist(errors.UnwrapAll(err)) {
			return nil, errors.Wrapf(ErrMissingManifest, "%s", filepath.Base(w.Archive))
		}
		return nil, err
	}
	return m, nil
}

// RootDir returns where the tree of an absolute root was unpacked.
func (w *Workspace) RootDir(root string) string {
	return filepath.Join(w.Dir, filepath.FromSlash(paths.ArchiveName(root)))
}

// Close removes the staging directory.
func (w *Workspace) Close() error {
	if w == nil || w.Dir == "" {
		return nil
	}
	err := os.RemoveAll(w.Dir)
	if err == nil {
		w.Dir = ""
	}
	return errors.Wrap(err, "removing staging directory")
}

// ReadManifest decodes only the manifest of an archive, without extracting
// any file trees.
func ReadManifest(archivePath string) (*manifest.Manifest, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, errors.Wrap(err, "opening archive")
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", filepath.Base(archivePath))
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil, errors.Wrapf(ErrMissingManifest, "%s", filepath.Base(archivePath))
		}
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", filepath.Base(archivePath))
		}
		if hdr.Typeflag == tar.TypeReg && filepath.Clean(hdr.Name) == manifest.FileName {
			return manifest.Decode(tr)
		}
	}
}
