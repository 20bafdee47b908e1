package commands

import (
	"github.com/thoreinstein/ovsnap/internal/archive"
	"github.com/thoreinstein/ovsnap/internal/errors"
)

// notFoundHint turns a missing archive into a user error.
func notFoundHint(err error) error {
	if errors.Is(err, archive.ErrNotFound) || errors.Is(err, archive.ErrInvalidName) {
		return errors.NewUserError(err, "Run: ovsnap list")
	}
	if errors.Is(err, archive.ErrMissingManifest) {
		return errors.NewUserError(err, "the file is not an ovsnap archive")
	}
	return err
}
