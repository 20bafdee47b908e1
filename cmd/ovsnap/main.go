// Package main is the entry point for the ovsnap CLI.
package main

import (
	"os"

	"github.com/thoreinstein/ovsnap/cmd/ovsnap/commands"
	"github.com/thoreinstein/ovsnap/internal/errors"
)

func main() {
	if code := errors.Report(os.Stderr, commands.Execute()); code != 0 {
		os.Exit(code)
	}
}
