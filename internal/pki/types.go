package pki

import "github.com/cockroachdb/errors"

// Sentinel errors for CA database handling.
var (
	// ErrMalformedLine indicates an index line with too few fields.
	ErrMalformedLine = errors.New("malformed index line")

	// ErrPKIIncomplete indicates the index, CA key or CA tool is missing.
	ErrPKIIncomplete = errors.New("PKI incomplete")

	// ErrInvalidName indicates a client name that cannot be passed to the CA tool.
	ErrInvalidName = errors.New("invalid client name")
)

// Certificate status codes used in the index.
const (
	StatusValid   = "V"
	StatusRevoked = "R"
	StatusExpired = "E"
)

// UnknownCN is recorded when a subject carries no CN segment.
const UnknownCN = "?"

// Client is the revocation-relevant view of one index line.
type Client struct {
	CN        string `json:"cn"`
	Status    string `json:"status"`
	Serial    string `json:"serial"`
	ExpiryRaw string `json:"expiry_raw"`
}

// Snapshot is the CA bookkeeping captured alongside a manifest. Pointer
// fields serialise as null when the value could not be read.
type Snapshot struct {
	Root        *string  `json:"pki_root"`
	IndexSHA256 *string  `json:"index_sha256"`
	Serial      *string  `json:"serial"`
	Clients     []Client `json:"clients"`
}

// Counts returns the number of valid and revoked clients.
func (s *Snapshot) Counts() (valid, revoked int) {
	if s == nil {
		return 0, 0
	}
	for _, c := range s.Clients {
		switch c.Status {
		case StatusValid:
			valid++
		case StatusRevoked:
			revoked++
		}
	}
	return valid, revoked
}

// LineError records an index line that was skipped.
type LineError struct {
	Line int
	Text string
	Err  error
}

func (e *LineError) Error() string {
	return errors.Wrapf(e.Err, "line %d", e.Line).Error()
}

func (e *LineError) Unwrap() error {
	return e.Err
}
