// Package editor launches the operator's preferred text editor.
package editor

import (
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/cockroachdb/errors"
)

// Open edits path in the detected editor, attached to the process's
// terminal.
func Open(path string) error {
	return Run(path, os.Stdin, os.Stdout, os.Stderr)
}

// Run edits path with the given streams. EDITOR and VISUAL may carry
// arguments, e.g. "code --wait".
func Run(path string, stdin io.Reader, stdout, stderr io.Writer) error {
	argv := detectEditor()
	cmd := exec.Command(argv[0], append(argv[1:], path)...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "running editor %s", argv[0])
	}
	return nil
}

// detectEditor returns the editor command line. Fallback chain:
// $EDITOR, $VISUAL, nano, vi.
func detectEditor() []string {
	for _, env := range []string{"EDITOR", "VISUAL"} {
		if fields := strings.Fields(os.Getenv(env)); len(fields) > 0 {
			return fields
		}
	}
	if _, err := exec.LookPath("nano"); err == nil {
		return []string{"nano"}
	}
	return []string{"vi"}
}
