package archive

import (
	"archive/tar"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/gzip"

	"github.com/thoreinstein/ovsnap/internal/exclude"
	"github.com/thoreinstein/ovsnap/internal/logging"
	"github.com/thoreinstein/ovsnap/internal/manifest"
	"github.com/thoreinstein/ovsnap/internal/paths"
	"github.com/thoreinstein/ovsnap/pkg/fileutil"
)

// FilePerm is the permission of a written archive.
const FilePerm os.FileMode = 0o600

// Packer writes archives.
type Packer struct {
	// Filter hides paths from the archive, as it does from the manifest.
	Filter *exclude.Filter

	// TempDir holds the manifest staging directory. Empty means os.TempDir.
	TempDir string

	// Level is the gzip level. Zero means gzip.DefaultCompression.
	Level int

	Logger *slog.Logger
}

// Pack writes m and the trees of roots into a new archive in outDir and
// returns its path. Roots missing on disk are omitted. The archive is
// written to a temp file and renamed into place, so a failed pack leaves
// nothing behind.
func (p *Packer) Pack(m *manifest.Manifest, roots []string, outDir string) (string, error) {
	log := logging.OrDiscard(p.Logger)

	if err := paths.EnsureDir(outDir, paths.DefaultDirPerm); err != nil {
		return "", errors.Wrap(err, "creating output directory")
	}

	if p.TempDir != "" {
		if err := paths.EnsureDir(p.TempDir, paths.DefaultDirPerm); err != nil {
			return "", errors.Wrap(err, "creating staging root")
		}
	}
	staging, err := os.MkdirTemp(p.TempDir, "ovsnap_pack_")
	if err != nil {
		return "", errors.Wrap(err, "creating manifest staging directory")
	}
	defer os.RemoveAll(staging)

	manifestPath, err := m.Save(staging)
	if err != nil {
		return "", err
	}

	dest, err := freeName(outDir, m)
	if err != nil {
		return "", err
	}

	level := p.Level
	if level == 0 {
		level = gzip.DefaultCompression
	}

	err = fileutil.AtomicWriteFunc(dest, FilePerm, func(w io.Writer) error {
		gz, err := gzip.NewWriterLevel(w, level)
		if err != nil {
			return errors.Wrap(err, "creating gzip writer")
		}
		tw := tar.NewWriter(gz)

		if err := p.addManifest(tw, manifestPath); err != nil {
			return err
		}
		for _, root := range roots {
			if err := p.addTree(tw, filepath.Clean(root), log); err != nil {
				return errors.Wrapf(err, "archiving %s", root)
			}
		}

		if err := tw.Close(); err != nil {
			return errors.Wrap(err, "closing tar stream")
		}
		return errors.Wrap(gz.Close(), "closing gzip stream")
	})
	if err != nil {
		return "", errors.Wrap(err, "writing archive")
	}

	log.Info("archive written", "path", dest, "files", len(m.Files))
	return dest, nil
}

// freeName picks the first unused archive name for m in dir.
func freeName(dir string, m *manifest.Manifest) (string, error) {
	for seq := 0; seq < 100; seq++ {
		path := filepath.Join(dir, Name(m.CreatedAt.Time, seq))
		if _, err := os.Lstat(path); os.IsNotExist(err) {
			return path, nil
		}
	}
	return "", errors.Newf("no free archive name for %s in %s", m.CreatedAt, dir)
}

func (p *Packer) addManifest(tw *tar.Writer, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.Wrap(err, "stat manifest")
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return errors.Wrap(err, "manifest header")
	}
	hdr.Name = manifest.FileName
	return writeFile(tw, hdr, path)
}

// addTree appends root and everything beneath it that the filter allows.
// A missing root is skipped; entries that vanish mid-walk are skipped. A
// root that links to a directory is stored as that directory.
func (p *Packer) addTree(tw *tar.Writer, root string, log *slog.Logger) error {
	if p.Filter.Excluded(root) {
		return nil
	}
	if _, err := os.Stat(root); os.IsNotExist(err) {
		log.Debug("root missing, omitted from archive", "root", root)
		return nil
	}

	return paths.WalkRoot(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			switch {
			case path == root:
				return err
			case os.IsNotExist(err):
				return nil
			case d != nil && d.IsDir():
				log.Warn("skipping unreadable directory", "path", path, "error", err)
				return fs.SkipDir
			default:
				return err
			}
		}
		if path != root && p.Filter.Excluded(path) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if fileutil.IsTemp(d.Name()) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}

		var link string
		switch {
		case info.Mode()&fs.ModeSymlink != 0:
			if link, err = os.Readlink(path); err != nil {
				return errors.Wrapf(err, "reading link %s", path)
			}
		case info.IsDir(), info.Mode().IsRegular():
		default:
			log.Debug("skipping special file", "path", path, "mode", info.Mode().String())
			return nil
		}

		hdr, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return errors.Wrapf(err, "header for %s", path)
		}
		hdr.Name = paths.ArchiveName(path)
		if info.IsDir() {
			hdr.Name += "/"
		}

		if !info.Mode().IsRegular() {
			return errors.Wrapf(tw.WriteHeader(hdr), "writing %s", hdr.Name)
		}
		if err := writeFile(tw, hdr, path); err != nil {
			if os.IsNotExist(errors.UnwrapAll(err)) {
				log.Debug("file vanished during pack", "path", path)
				return nil
			}
			return err
		}
		return nil
	})
}

// writeFile writes hdr and exactly hdr.Size bytes of path.
func writeFile(tw *tar.Writer, hdr *tar.Header, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	if err := tw.WriteHeader(hdr); err != nil {
		return errors.Wrapf(err, "writing header %s", hdr.Name)
	}
	if _, err := io.CopyN(tw, f, hdr.Size); err != nil {
		return errors.Wrapf(err, "writing %s", hdr.Name)
	}
	return nil
}
