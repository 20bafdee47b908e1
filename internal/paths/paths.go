package paths

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/cockroachdb/errors"
)

// AppName names the config directory and prefixes temp files.
const AppName = "ovsnap"

// ErrNotAbsolute is returned for a configured path that is relative.
var ErrNotAbsolute = errors.New("path is not absolute")

// DefaultDirPerm is used by EnsureDir when perm is 0.
const DefaultDirPerm = 0o700

// EnsureDir creates path and its parents. An existing directory is not an
// error and keeps its mode.
func EnsureDir(path string, perm os.FileMode) error {
	if perm == 0 {
		perm = DefaultDirPerm
	}
	return os.MkdirAll(path, perm)
}

// ConfigHome is the XDG config home, ~/.config on Linux.
func ConfigHome() string {
	return xdg.ConfigHome
}

// ConfigFile is the default config location, <ConfigHome>/ovsnap/config.yaml.
func ConfigFile() string {
	return filepath.Join(ConfigHome(), AppName, "config.yaml")
}

// RequireAbs returns ErrNotAbsolute if p is relative.
func RequireAbs(p string) error {
	if !filepath.IsAbs(p) {
		return errors.Wrapf(ErrNotAbsolute, "%q", p)
	}
	return nil
}

// ArchiveName is the in-archive form of an absolute path: cleaned, slash
// separated, without the leading separator.
func ArchiveName(abs string) string {
	return strings.TrimLeft(filepath.ToSlash(filepath.Clean(abs)), "/")
}

// Within reports whether p equals or lies beneath one of roots. The
// comparison is lexical on cleaned paths.
func Within(p string, roots []string) bool {
	p = filepath.Clean(p)
	for _, r := range roots {
		rel, err := filepath.Rel(filepath.Clean(r), p)
		if err != nil {
			continue
		}
		if rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))) {
			return true
		}
	}
	return false
}

// ResolveRoot returns the directory a walk of root should start from. A
// root that is a symlink to a directory resolves to its target; anything
// else is returned cleaned and unchanged.
func ResolveRoot(root string) string {
	root = filepath.Clean(root)
	info, err := os.Lstat(root)
	if err != nil || info.Mode()&fs.ModeSymlink == 0 {
		return root
	}
	target, err := filepath.EvalSymlinks(root)
	if err != nil {
		return root
	}
	if st, err := os.Stat(target); err != nil || !st.IsDir() {
		return root
	}
	return target
}

// WalkRoot is filepath.WalkDir over root, except that a root which is a
// symlink to a directory is descended into. Paths handed to fn stay under
// root as given. Symlinks below the root are not followed.
func WalkRoot(root string, fn fs.WalkDirFunc) error {
	root = filepath.Clean(root)
	start := ResolveRoot(root)
	if start == root {
		return filepath.WalkDir(root, fn)
	}
	return filepath.WalkDir(start, func(path string, d fs.DirEntry, err error) error {
		rel, rerr := filepath.Rel(start, path)
		if rerr != nil {
			return rerr
		}
		return fn(filepath.Join(root, rel), d, err)
	})
}
