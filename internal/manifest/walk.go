package manifest

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/ovsnap/internal/digest"
	"github.com/thoreinstein/ovsnap/internal/exclude"
	"github.com/thoreinstein/ovsnap/internal/paths"
)

// Walk returns the regular files and symlinks under root that filter does
// not exclude, in lexical order. A root that is a symlink to a directory is
// walked through, with paths reported under the root as given; symlinks
// below it are listed, never descended into. Excluded directories are
// pruned.
//
// A missing root yields no paths. Unreadable subdirectories are skipped;
// only a root that exists but cannot be listed is an error.
func Walk(root string, filter *exclude.Filter) ([]string, error) {
	root = filepath.Clean(root)
	if filter.Excluded(root) {
		return nil, nil
	}

	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "stat %s", root)
	}
	if !info.IsDir() {
		return nil, nil
	}

	var out []string
	err = paths.WalkRoot(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if path != root && filter.Excluded(path) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if t := d.Type(); t.IsRegular() || t&fs.ModeSymlink != 0 {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "walking %s", root)
	}
	return out, nil
}

// Digest returns the content digest of path. Regular files are hashed by
// content; symlinks by their target string, so they are never followed.
func Digest(path string) (string, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return "", errors.Wrap(err, "lstat")
	}
	return digestInfo(path, info)
}

func digestInfo(path string, info fs.FileInfo) (string, error) {
	switch {
	case info.Mode()&fs.ModeSymlink != 0:
		target, err := os.Readlink(path)
		if err != nil {
			return "", errors.Wrap(err, "reading link")
		}
		return digest.String(target), nil
	case info.Mode().IsRegular():
		return digest.File(path)
	default:
		return "", errors.Newf("%s is neither a regular file nor a symlink", path)
	}
}

// Record captures the file record of path.
func Record(path string) (File, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return File{}, errors.Wrap(err, "lstat")
	}
	sum, err := digestInfo(path, info)
	if err != nil {
		return File{}, err
	}
	uid, gid := owner(info)
	return File{
		Path:   path,
		SHA256: sum,
		Size:   info.Size(),
		Mode:   ModeOf(info.Mode()),
		UID:    uid,
		GID:    gid,
	}, nil
}
