// Package service restarts the VPN daemon after a restore.
package service

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/ovsnap/internal/logging"
)

// DefaultUnits are tried in order: the templated server instance first,
// then the plain unit used by distribution packages.
var DefaultUnits = []string{"openvpn@server", "openvpn"}

// Controller restarts the network service.
type Controller interface {
	Restart(ctx context.Context) error
}

// RunFunc runs a command and returns its combined output.
type RunFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Exec runs commands with os/exec.
func Exec(ctx context.Context, name string, args ...string) ([]byte, error) {
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.Bytes(), err
}

// Systemd restarts the first unit that systemctl accepts.
type Systemd struct {
	Units []string

	// Run defaults to Exec.
	Run RunFunc

	Logger *slog.Logger
}

var _ Controller = (*Systemd)(nil)

// NewSystemd returns a Systemd for units, or DefaultUnits when none are
// given.
func NewSystemd(units ...string) *Systemd {
	if len(units) == 0 {
		units = DefaultUnits
	}
	return &Systemd{Units: units}
}

// Restart runs `systemctl restart UNIT` for each unit until one succeeds.
// If all fail, the error lists every attempt.
func (s *Systemd) Restart(ctx context.Context) error {
	if len(s.Units) == 0 {
		return errors.New("no service units configured")
	}
	log := logging.OrDiscard(s.Logger)
	run := s.Run
	if run == nil {
		run = Exec
	}

	var errs []error
	for _, unit := range s.Units {
		out, err := run(ctx, "systemctl", "restart", unit)
		if err == nil {
			log.Info("service restarted", "unit", unit)
			return nil
		}
		if msg := strings.TrimSpace(string(out)); msg != "" {
			err = errors.Wrapf(err, "%s", msg)
		}
		log.Debug("service restart attempt failed", "unit", unit, "error", err)
		errs = append(errs, errors.Wrapf(err, "restart %s", unit))
	}
	return errors.Join(errs...)
}
