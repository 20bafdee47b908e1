// Package digest computes content digests for captured files.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"github.com/cockroachdb/errors"
)

// ChunkSize is the read size used when streaming file contents into the
// hash, so memory use does not depend on file size.
const ChunkSize = 64 * 1024

// File returns the hex-encoded SHA-256 of the file at path.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "opening file")
	}
	defer f.Close()

	return Reader(f)
}

// Reader returns the hex-encoded SHA-256 of everything read from r.
func Reader(r io.Reader) (string, error) {
	h := sha256.New()
	buf := make([]byte, ChunkSize)
	if _, err := io.CopyBuffer(h, onlyReader{r}, buf); err != nil {
		return "", errors.Wrap(err, "reading file")
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// String returns the hex-encoded SHA-256 of s.
func String(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// onlyReader hides WriterTo on *os.File so io.CopyBuffer honours the
// fixed buffer size.
type onlyReader struct {
	io.Reader
}
