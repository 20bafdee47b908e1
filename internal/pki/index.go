package pki

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/ovsnap/internal/digest"
	"github.com/thoreinstein/ovsnap/pkg/fileutil"
)

// minIndexFields is status, expiry, serial, filename and subject; the
// revocation date column is empty for valid certificates and disappears
// when a line is split on runs of whitespace.
const minIndexFields = 5

// indexColumns is the tab-separated column count written by OpenSSL.
const indexColumns = 6

// ParseIndexLine extracts a Client from one index line.
//
// Tab-separated lines are read by column, which keeps an empty revocation
// date and subjects containing spaces intact. Otherwise the line is split
// on whitespace: six or more fields carry a revocation date before the
// serial, five fields do not.
func ParseIndexLine(line string) (Client, error) {
	if cols := strings.Split(line, "\t"); len(cols) >= indexColumns {
		return Client{
			CN:        CommonName(strings.TrimSpace(strings.Join(cols[indexColumns-1:], "\t"))),
			Status:    strings.TrimSpace(cols[0]),
			Serial:    strings.TrimSpace(cols[3]),
			ExpiryRaw: strings.TrimSpace(cols[1]),
		}, nil
	}

	fields := strings.Fields(line)
	if len(fields) < minIndexFields {
		return Client{}, errors.Wrapf(ErrMalformedLine, "want %d fields, got %d", minIndexFields, len(fields))
	}

	serial := fields[2]
	if len(fields) > minIndexFields {
		serial = fields[3]
	}

	return Client{
		CN:        CommonName(fields[len(fields)-1]),
		Status:    fields[0],
		Serial:    serial,
		ExpiryRaw: fields[1],
	}, nil
}

// CommonName returns the CN= segment of a /KEY=VALUE subject, or UnknownCN.
func CommonName(subject string) string {
	if !strings.HasPrefix(subject, "/") {
		return UnknownCN
	}
	for _, part := range strings.Split(subject, "/") {
		if cn, ok := strings.CutPrefix(part, "CN="); ok {
			if cn == "" {
				return UnknownCN
			}
			return cn
		}
	}
	return UnknownCN
}

// ParseIndex parses every non-blank line of r. Malformed lines are skipped
// and returned as LineErrors; a read failure stops parsing and is returned
// as err.
func ParseIndex(r io.Reader) (clients []Client, skipped []*LineError, err error) {
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		c, perr := ParseIndexLine(line)
		if perr != nil {
			skipped = append(skipped, &LineError{Line: n, Text: line, Err: perr})
			continue
		}
		clients = append(clients, c)
	}
	if err := sc.Err(); err != nil {
		return clients, skipped, errors.Wrap(err, "reading index")
	}
	return clients, skipped, nil
}

// ReadSnapshot captures the CA bookkeeping under layout. It returns nil
// when the index file does not exist. Read and parse problems degrade the
// snapshot (null fields, fewer clients) rather than failing; they are
// returned in warnings for logging.
func ReadSnapshot(layout Layout) (snap *Snapshot, warnings []error) {
	indexPath := layout.IndexPath()
	if _, err := os.Stat(indexPath); err != nil {
		if !os.IsNotExist(err) {
			warnings = append(warnings, errors.Wrap(err, "stat index"))
		}
		return nil, warnings
	}

	snap = &Snapshot{Clients: []Client{}}
	root := layout.PKIDir()
	snap.Root = &root

	if sum, err := digest.File(indexPath); err != nil {
		warnings = append(warnings, errors.Wrap(err, "hashing index"))
	} else {
		snap.IndexSHA256 = &sum
	}

	if f, err := os.Open(indexPath); err != nil {
		warnings = append(warnings, errors.Wrap(err, "opening index"))
	} else {
		clients, skipped, perr := ParseIndex(f)
		f.Close()
		snap.Clients = append(snap.Clients, clients...)
		for _, s := range skipped {
			warnings = append(warnings, s)
		}
		if perr != nil {
			warnings = append(warnings, perr)
		}
	}

	if data, err := fileutil.ReadFileWithLimit(layout.SerialPath()); err == nil {
		serial := strings.TrimSpace(string(data))
		snap.Serial = &serial
	} else if !os.IsNotExist(errors.UnwrapAll(err)) {
		warnings = append(warnings, errors.Wrap(err, "reading serial"))
	}

	return snap, warnings
}
