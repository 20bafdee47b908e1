package archive

import (
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// Archive naming.
const (
	// Prefix starts every archive name.
	Prefix = "openvpn_full_backup_"

	// Ext ends every archive name.
	Ext = ".tar.gz"

	// StampLayout is the time layout between Prefix and Ext.
	StampLayout = "20060102_150405"

	// StagingPrefix starts the name of every unpack workspace.
	StagingPrefix = "restore_staging_"
)

// Sentinel errors for archive handling.
var (
	// ErrMissingManifest indicates an archive without manifest.json.
	ErrMissingManifest = errors.New("archive has no manifest")

	// ErrUnsafePath indicates an entry that would escape the unpack directory.
	ErrUnsafePath = errors.New("unsafe archive entry")

	// ErrNotFound indicates no archive with the requested name exists.
	ErrNotFound = errors.New("archive not found")

	// ErrInvalidName indicates a name that is not an archive name.
	ErrInvalidName = errors.New("not an archive name")
)

// Name returns the archive name for a capture time.
// A seq above zero disambiguates captures within the same second.
func Name(t time.Time, seq int) string {
	stamp := t.UTC().Format(StampLayout)
	if seq > 0 {
		return fmt.Sprintf("%s%s_%d%s", Prefix, stamp, seq, Ext)
	}
	return Prefix + stamp + Ext
}

// IsArchiveName reports whether base looks like an archive written by Pack.
// It rejects anything containing a path separator.
func IsArchiveName(base string) bool {
	if strings.ContainsAny(base, `/\`) {
		return false
	}
	stamp, ok := strings.CutPrefix(base, Prefix)
	if !ok {
		return false
	}
	stamp, ok = strings.CutSuffix(stamp, Ext)
	if !ok || len(stamp) < len(StampLayout) {
		return false
	}
	_, err := time.Parse(StampLayout, stamp[:len(StampLayout)])
	return err == nil
}
