package restore

import (
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/ovsnap/internal/archive"
	"github.com/thoreinstein/ovsnap/pkg/fileutil"
)

const modeBits = fs.ModePerm | fs.ModeSetuid | fs.ModeSetgid | fs.ModeSticky

// copyFromStaging writes every file of the workspace's root trees onto the
// live roots. Files are replaced atomically with their archived mode and
// modification time; ownership is restored from the manifest when running
// as root. Failures are recorded per path.
func (e *Executor) copyFromStaging(ws *archive.Workspace, log *slog.Logger) []ItemResult {
	results := []ItemResult{}
	recorded := ws.Manifest.Index()
	chown := os.Geteuid() == 0

	record := func(res ItemResult) {
		if res.Status == StatusFailed {
			log.Warn("restore copy failed", "path", res.Path, "error", res.Reason)
		}
		results = append(results, res)
	}

	for _, root := range ws.Manifest.Roots {
		src := ws.RootDir(root)
		if _, err := os.Lstat(src); err != nil {
			log.Debug("root not in archive", "root", root)
			continue
		}

		_ = filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
			rel, rerr := filepath.Rel(src, path)
			if rerr != nil {
				return nil
			}
			dest := filepath.Join(root, rel)

			if err != nil {
				record(ItemResult{Path: dest, Action: ActionCopy, Status: StatusFailed, Reason: err.Error()})
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if path != src && e.Filter.Excluded(dest) {
				if d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}

			info, err := d.Info()
			if err != nil {
				record(ItemResult{Path: dest, Action: ActionCopy, Status: StatusFailed, Reason: err.Error()})
				return nil
			}

			res := ItemResult{Path: dest, Status: StatusOK}
			switch {
			case info.IsDir():
				if err := ensureDir(dest, info.Mode(), path == src); err != nil {
					record(ItemResult{Path: dest, Action: ActionMkdir, Status: StatusFailed, Reason: err.Error()})
					return fs.SkipDir
				}
				return nil
			case info.Mode()&fs.ModeSymlink != 0:
				res.Action = ActionLink
				err = copyLink(path, dest)
			case info.Mode().IsRegular():
				res.Action = ActionCopy
				err = copyFile(path, dest, info)
			default:
				return nil
			}

			if err == nil && chown {
				if rec, ok := recorded[dest]; ok {
					err = errors.Wrap(os.Lchown(dest, rec.UID, rec.GID), "chown")
				}
			}
			if err != nil {
				res.Status, res.Reason = StatusFailed, err.Error()
			}
			record(res)
			return nil
		})
	}
	return results
}

// ensureDir makes dest a directory, creating it with mode if absent. An
// existing directory keeps its mode. A symlink in dest's place is refused
// unless linkOK, which is set only for a configured root, and then must
// point at a directory.
func ensureDir(dest string, mode fs.FileMode, linkOK bool) error {
	info, err := os.Lstat(dest)
	if err == nil {
		if info.Mode()&fs.ModeSymlink != 0 {
			if !linkOK {
				return errors.Newf("%s is a symlink, refusing to write through it", dest)
			}
			if info, err = os.Stat(dest); err != nil {
				return errors.Wrap(err, "stat")
			}
		}
		if !info.IsDir() {
			return errors.Newf("%s exists and is not a directory", dest)
		}
		return nil
	}
	if !os.IsNotExist(err) {
		return errors.Wrap(err, "lstat")
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return errors.Wrap(err, "mkdir")
	}
	return errors.Wrap(os.Chmod(dest, mode&modeBits), "chmod")
}

func copyFile(src, dest string, info fs.FileInfo) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrap(err, "opening staged file")
	}
	defer in.Close()

	err = fileutil.AtomicWriteFunc(dest, info.Mode()&modeBits, func(w io.Writer) error {
		_, err := io.Copy(w, in)
		return errors.Wrap(err, "copying")
	})
	if err != nil {
		return err
	}
	return errors.Wrap(os.Chtimes(dest, info.ModTime(), info.ModTime()), "setting times")
}

func copyLink(src, dest string) error {
	target, err := os.Readlink(src)
	if err != nil {
		return errors.Wrap(err, "reading staged link")
	}
	if cur, err := os.Lstat(dest); err == nil {
		if cur.IsDir() {
			return errors.Newf("%s exists and is a directory", dest)
		}
		if existing, err := os.Readlink(dest); err == nil && existing == target {
			return nil
		}
		if err := os.Remove(dest); err != nil {
			return errors.Wrap(err, "replacing")
		}
	}
	return errors.Wrap(os.Symlink(target, dest), "creating link")
}
