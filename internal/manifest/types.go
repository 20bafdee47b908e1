package manifest

import (
	"io/fs"
	"reflect"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/ovsnap/internal/pki"
)

// Version is the manifest schema version written by this package.
const Version = 1

// FileName is the name of the manifest inside an archive.
const FileName = "manifest.json"

// TimeLayout is the fixed UTC layout of created_at.
const TimeLayout = "2006-01-02T15:04:05Z"

// ErrInvalidManifest indicates a manifest that could not be decoded.
var ErrInvalidManifest = errors.New("invalid manifest")

// Manifest describes one snapshot.
type Manifest struct {
	// Version is the schema tag.
	Version int `json:"version"`

	// CreatedAt is the capture time, second precision, UTC.
	CreatedAt Timestamp `json:"created_at"`

	// Roots are the absolute directories that were captured. They define
	// the scope of every later diff against this manifest.
	Roots []string `json:"roots"`

	// Files holds one record per path in capture order.
	Files []File `json:"files"`

	// PKI is the CA database snapshot, nil when no index was found.
	PKI *pki.Snapshot `json:"openvpn_pki,omitempty"`

	// Skipped lists paths that vanished or could not be read during capture.
	// It is populated by Build but not stored in JSON.
	Skipped []string `json:"-"`
}

// File is the record of one captured path.
type File struct {
	Path   string `json:"path"`
	SHA256 string `json:"sha256"`
	Size   int64  `json:"size"`
	Mode   Mode   `json:"mode"`
	UID    int    `json:"uid"`
	GID    int    `json:"gid"`
}

// Index returns the records keyed by path.
func (m *Manifest) Index() map[string]File {
	idx := make(map[string]File, len(m.Files))
	for _, f := range m.Files {
		idx[f.Path] = f
	}
	return idx
}

// SortedPaths returns every recorded path in lexicographic order.
func (m *Manifest) SortedPaths() []string {
	out := make([]string, 0, len(m.Files))
	for _, f := range m.Files {
		out = append(out, f.Path)
	}
	sort.Strings(out)
	return out
}

// TotalSize sums the recorded file sizes.
func (m *Manifest) TotalSize() int64 {
	var n int64
	for _, f := range m.Files {
		n += f.Size
	}
	return n
}

// Equal reports whether m and o describe the same snapshot, field for field.
func (m *Manifest) Equal(o *Manifest) bool {
	if m == nil || o == nil {
		return m == o
	}
	return m.Version == o.Version &&
		m.CreatedAt.Equal(o.CreatedAt.Time) &&
		slices.Equal(m.Roots, o.Roots) &&
		slices.Equal(m.Files, o.Files) &&
		reflect.DeepEqual(m.PKI, o.PKI)
}

// Timestamp is a time serialised with TimeLayout.
type Timestamp struct {
	time.Time
}

// NewTimestamp truncates t to whole seconds in UTC.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{t.UTC().Truncate(time.Second)}
}

func (t Timestamp) String() string {
	return t.UTC().Format(TimeLayout)
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(t.String())), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return errors.Wrapf(ErrInvalidManifest, "created_at %s is not a string", data)
	}
	parsed, err := time.Parse(TimeLayout, s)
	if err != nil {
		return errors.Wrapf(ErrInvalidManifest, "created_at %q: %v", s, err)
	}
	t.Time = parsed
	return nil
}

// Mode holds Unix permission bits (including setuid, setgid and sticky).
type Mode uint32

// ModeOf extracts the Unix permission bits of fm.
func ModeOf(fm fs.FileMode) Mode {
	m := Mode(fm.Perm())
	if fm&fs.ModeSetuid != 0 {
		m |= 0o4000
	}
	if fm&fs.ModeSetgid != 0 {
		m |= 0o2000
	}
	if fm&fs.ModeSticky != 0 {
		m |= 0o1000
	}
	return m
}

// FileMode converts m back to an fs.FileMode suitable for os.Chmod.
func (m Mode) FileMode() fs.FileMode {
	fm := fs.FileMode(m) & fs.ModePerm
	if m&0o4000 != 0 {
		fm |= fs.ModeSetuid
	}
	if m&0o2000 != 0 {
		fm |= fs.ModeSetgid
	}
	if m&0o1000 != 0 {
		fm |= fs.ModeSticky
	}
	return fm
}

func (m Mode) String() string {
	return "0o" + strconv.FormatUint(uint64(m), 8)
}

// MarshalJSON implements json.Marshaler.
func (m Mode) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(m.String())), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Mode) UnmarshalJSON(data []byte) error {
	raw := string(data)
	base := 10
	if s, err := strconv.Unquote(raw); err == nil {
		raw = s
		base = 8
		if rest, ok := strings.CutPrefix(strings.ToLower(raw), "0o"); ok {
			raw = rest
		}
	}
	v, err := strconv.ParseUint(raw, base, 32)
	if err != nil || v > 0o7777 {
		return errors.Wrapf(ErrInvalidManifest, "mode %s", data)
	}
	*m = Mode(v)
	return nil
}
