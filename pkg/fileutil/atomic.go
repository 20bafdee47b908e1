// Package fileutil holds the atomic write and bounded read helpers every
// ovsnap writer goes through.
package fileutil

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/thoreinstein/ovsnap/internal/errors"
)

// Temp files created by the atomic writers are named
// TempPrefix + random + TempSuffix.
const (
	TempPrefix = ".ovsnap-atomic-"
	TempSuffix = ".tmp"
)

// IsTemp reports whether base names an in-flight atomic write.
func IsTemp(base string) bool {
	return strings.HasPrefix(base, TempPrefix) && strings.HasSuffix(base, TempSuffix)
}

// AtomicWriteFile writes data to path through a temp file and a rename.
// The parent directory must exist.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	return AtomicWriteFunc(path, perm, func(w io.Writer) error {
		_, err := w.Write(data)
		return errors.Wrap(err, "writing temp file")
	})
}

// AtomicWriteFunc streams whatever write produces into path. The temp file
// sits next to path so the rename never crosses filesystems; on any failure
// path keeps its old content and the temp file is removed.
func AtomicWriteFunc(path string, perm os.FileMode, write func(w io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), TempPrefix+"*"+TempSuffix)
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = write(tmp); err != nil {
		return err
	}
	if err = tmp.Chmod(perm); err != nil {
		return errors.Wrap(err, "setting file permissions")
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "closing temp file")
	}
	return errors.Wrap(os.Rename(tmp.Name(), path), "renaming temp file")
}

// AtomicCopyFile copies src over dst atomically with mode perm. The parent
// of dst must exist.
func AtomicCopyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrap(err, "opening source file")
	}
	defer in.Close()

	return AtomicWriteFunc(dst, perm, func(w io.Writer) error {
		_, err := io.Copy(w, in)
		return errors.Wrap(err, "copying file")
	})
}

// AtomicWriteYAML marshals v with yaml.v3 and writes it atomically.
func AtomicWriteYAML(path string, v any, perm os.FileMode) (err error) {
	// yaml.Marshal panics on some types, such as channels.
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("marshaling YAML: %v", r)
		}
	}()

	data, err := yaml.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "marshaling YAML")
	}
	return AtomicWriteFile(path, data, perm)
}
