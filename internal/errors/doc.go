// Package errors is the single errors import for ovsnap code. It forwards
// to github.com/cockroachdb/errors, so every error carries a stack trace
// and errors.Is sees through joined errors, and adds ExitError for the CLI.
//
// Commands decide the exit code where the failure is understood:
//
//	if errors.Is(err, archive.ErrNotFound) {
//		return errors.NewUserError(err, "Run: ovsnap list")
//	}
//	return errors.NewSystemError(err, "check the output directory")
//
// and main hands whatever comes back to [Report].
package errors
