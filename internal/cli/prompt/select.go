// Package prompt provides interactive CLI prompts for user input.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ktr0731/go-fuzzyfinder"

	"github.com/thoreinstein/ovsnap/internal/archive"
	"github.com/thoreinstein/ovsnap/internal/cli"
	"github.com/thoreinstein/ovsnap/internal/errors"
)

// Sentinel errors for interactive selection.
var (
	ErrNoArchives         = errors.New("no archives to select from")
	ErrSelectionCancelled = errors.New("selection cancelled")
)

// FindFunc picks one archive and returns its index.
type FindFunc func(list []archive.Info) (int, error)

// Prompter asks the operator questions.
type Prompter struct {
	reader io.Reader
	writer io.Writer
	find   FindFunc
}

// New returns a Prompter on stdin and stdout with a fuzzy finder.
func New() *Prompter {
	return &Prompter{reader: os.Stdin, writer: os.Stdout, find: FuzzyFind}
}

// NewWithIO returns a Prompter with custom streams and finder, for testing.
func NewWithIO(r io.Reader, w io.Writer, find FindFunc) *Prompter {
	return &Prompter{reader: r, writer: w, find: find}
}

// SelectArchive lets the operator choose an archive. A single archive is
// chosen without prompting.
func (p *Prompter) SelectArchive(list []archive.Info) (*archive.Info, error) {
	switch len(list) {
	case 0:
		return nil, ErrNoArchives
	case 1:
		return &list[0], nil
	}

	idx, err := p.find(list)
	if err != nil {
		if errors.Is(err, fuzzyfinder.ErrAbort) {
			return nil, ErrSelectionCancelled
		}
		return nil, errors.Wrap(err, "selecting archive")
	}
	if idx < 0 || idx >= len(list) {
		return nil, errors.Newf("selection %d out of range", idx)
	}
	return &list[idx], nil
}

// Confirm asks a yes/no question. Anything but y or yes is a no; EOF is a
// cancellation.
func (p *Prompter) Confirm(question string) (bool, error) {
	fmt.Fprintf(p.writer, "%s [y/N]: ", question)

	input, err := bufio.NewReader(p.reader).ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || input == "") {
		if errors.Is(err, io.EOF) {
			return false, ErrSelectionCancelled
		}
		return false, errors.Wrap(err, "reading answer")
	}

	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// FuzzyFind shows the archives in a fuzzy finder with a detail preview.
func FuzzyFind(list []archive.Info) (int, error) {
	return fuzzyfinder.Find(
		list,
		func(i int) string {
			return list[i].Name
		},
		fuzzyfinder.WithHeader("Select an archive to restore"),
		fuzzyfinder.WithPreviewWindow(func(i, _, _ int) string {
			if i == -1 {
				return ""
			}
			return preview(list[i])
		}),
	)
}

func preview(a archive.Info) string {
	return fmt.Sprintf("Name:     %s\nPath:     %s\nSize:     %s\nModified: %s (%s)",
		a.Name,
		a.Path,
		cli.Size(a.Size),
		a.ModTime.Local().Format("2006-01-02 15:04:05"),
		cli.Age(a.ModTime),
	)
}
