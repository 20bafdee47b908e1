package fileutil

import (
	"io"
	"os"

	"github.com/thoreinstein/ovsnap/internal/errors"
)

// MaxFileSize bounds reads of small bookkeeping files such as the CA
// serial counter.
const MaxFileSize = 1 << 20

// ErrFileTooLarge is returned when a file holds more bytes than allowed.
var ErrFileTooLarge = errors.New("file exceeds maximum size")

// ReadFileWithLimit is ReadFileLimit with MaxFileSize.
func ReadFileWithLimit(path string) ([]byte, error) {
	return ReadFileLimit(path, MaxFileSize)
}

// ReadFileLimit reads path, failing with ErrFileTooLarge past limit bytes.
func ReadFileLimit(path string, limit int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	// Read one byte past the limit so an oversized file is detectable.
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	if int64(len(data)) > limit {
		return nil, errors.Wrapf(ErrFileTooLarge, "%s exceeds %d bytes", path, limit)
	}
	return data, nil
}
