package errors

import (
	"fmt"
	"io"

	crdb "github.com/cockroachdb/errors"
)

// Process exit codes.
const (
	// ExitUser covers bad input, bad configuration and refused prompts.
	ExitUser = 1

	// ExitSystem covers I/O failures, failed restores and CA tool errors.
	ExitSystem = 2
)

// ErrConfirmationRequired indicates a destructive command ran without --yes
// and without a terminal to ask on, or the operator declined.
var ErrConfirmationRequired = crdb.New("confirmation required")

// ExitError carries the exit code a command failure maps to, and an
// optional hint printed under the message.
type ExitError struct {
	Err        error
	Code       int
	Suggestion string
}

// NewExitError wraps err with code and no suggestion.
func NewExitError(err error, code int) *ExitError {
	return &ExitError{Err: err, Code: code}
}

// NewUserError wraps err with ExitUser.
func NewUserError(err error, suggestion string) *ExitError {
	return &ExitError{Err: err, Code: ExitUser, Suggestion: suggestion}
}

// NewSystemError wraps err with ExitSystem.
func NewSystemError(err error, suggestion string) *ExitError {
	return &ExitError{Err: err, Code: ExitSystem, Suggestion: suggestion}
}

// NewConfigError wraps a configuration load or validation failure.
func NewConfigError(err error) *ExitError {
	return NewUserError(err, "Run: ovsnap doctor")
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit code %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Report prints err and any suggestion to w and returns the exit code for
// it: 0 for nil, the ExitError code when there is one, ExitUser otherwise.
func Report(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if !As(err, &exitErr) {
		fmt.Fprintf(w, "Error: %v\n", err)
		return ExitUser
	}
	fmt.Fprintf(w, "Error: %v\n", exitErr)
	if exitErr.Suggestion != "" {
		fmt.Fprintf(w, "  %s\n", exitErr.Suggestion)
	}
	return exitErr.Code
}
