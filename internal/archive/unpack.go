package archive

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/gzip"

	"github.com/thoreinstein/ovsnap/internal/manifest"
)

// Unpack extracts the archive at src into dest, which must exist.
// Directories, regular files and symlinks are recreated with their modes
// and modification times; other entry types are ignored. Entries that
// would land outside dest, directly or through a symlink written earlier,
// fail with ErrUnsafePath.
func Unpack(src, dest string) error {
	f, err := os.Open(src)
	if err != nil {
		return errors.Wrap(err, "opening archive")
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "reading %s", filepath.Base(src))
	}
	defer gz.Close()

	type dirMode struct {
		path string
		hdr  *tar.Header
	}
	var dirs []dirMode

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrapf(err, "reading %s", filepath.Base(src))
		}

		target, err := entryPath(dest, hdr.Name)
		if err != nil {
			return err
		}
		if target == dest {
			continue
		}
		if err := checkParents(dest, target); err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o700); err != nil {
				return errors.Wrapf(err, "creating %s", hdr.Name)
			}
			dirs = append(dirs, dirMode{target, hdr})

		case tar.TypeReg:
			if err := extractFile(tr, hdr, target); err != nil {
				return err
			}

		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0o700); err != nil {
				return errors.Wrapf(err, "creating parent of %s", hdr.Name)
			}
			if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
				return errors.Wrapf(err, "replacing %s", hdr.Name)
			}
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return errors.Wrapf(err, "creating link %s", hdr.Name)
			}
		}
	}

	// Directory modes last, deepest first, so read-only directories do
	// not block their own children.
	for i := len(dirs) - 1; i >= 0; i-- {
		d := dirs[i]
		mode := manifest.Mode(d.hdr.Mode & 0o7777).FileMode()
		if err := os.Chmod(d.path, mode); err != nil {
			return errors.Wrapf(err, "chmod %s", d.hdr.Name)
		}
		_ = os.Chtimes(d.path, d.hdr.ModTime, d.hdr.ModTime)
	}
	return nil
}

func extractFile(r io.Reader, hdr *tar.Header, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o700); err != nil {
		return errors.Wrapf(err, "creating parent of %s", hdr.Name)
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "replacing %s", hdr.Name)
	}

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return errors.Wrapf(err, "creating %s", hdr.Name)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return errors.Wrapf(err, "extracting %s", hdr.Name)
	}
	if err := out.Close(); err != nil {
		return errors.Wrapf(err, "closing %s", hdr.Name)
	}

	mode := manifest.Mode(hdr.Mode & 0o7777).FileMode()
	if err := os.Chmod(target, mode); err != nil {
		return errors.Wrapf(err, "chmod %s", hdr.Name)
	}
	_ = os.Chtimes(target, hdr.ModTime, hdr.ModTime)
	return nil
}

// entryPath maps an entry name to a path under dest.
func entryPath(dest, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || strings.HasPrefix(name, "/") || clean == ".." ||
		strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", errors.Wrapf(ErrUnsafePath, "%q", name)
	}
	return filepath.Join(dest, clean), nil
}

// checkParents fails if any directory between dest and target is a symlink.
func checkParents(dest, target string) error {
	rel, err := filepath.Rel(dest, filepath.Dir(target))
	if err != nil || rel == "." {
		return nil
	}
	cur := dest
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		cur = filepath.Join(cur, part)
		info, err := os.Lstat(cur)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return errors.Wrapf(err, "stat %s", cur)
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return errors.Wrapf(ErrUnsafePath, "%q passes through symlink %s", target, cur)
		}
	}
	return nil
}
