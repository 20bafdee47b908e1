package pki

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/thoreinstein/ovsnap/internal/logging"
	"github.com/thoreinstein/ovsnap/pkg/fileutil"
)

// DefaultCRLDays is the validity window passed to the CA tool.
const DefaultCRLDays = 3650

// CRLPerm is world-readable, owner-writable.
const CRLPerm os.FileMode = 0o644

// Regenerator rebuilds and publishes the CRL.
type Regenerator struct {
	Layout Layout
	Tool   CATool

	// Dest is where the VPN daemon reads the CRL from.
	Dest string

	// Days is the CRL validity window. Zero means DefaultCRLDays.
	Days int

	// Enabled gates the whole operation.
	Enabled bool

	Logger *slog.Logger
}

// Result is the outcome of a regeneration attempt.
type Result struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// RegenerateIfPossible checks preconditions, generates a new CRL and copies
// it to Dest. It reports failures in the result and never panics.
func (r *Regenerator) RegenerateIfPossible(ctx context.Context) (ok bool, msg string) {
	log := logging.OrDiscard(r.Logger)

	defer func() {
		if p := recover(); p != nil {
			ok, msg = false, fmt.Sprintf("CRL regen failed: %v", p)
			log.Error("CRL regeneration panicked", "panic", p)
		}
	}()

	if !r.Enabled {
		return false, "auto CRL regeneration disabled"
	}

	if missing := r.missingPrerequisites(); len(missing) > 0 {
		msg := fmt.Sprintf("%s (missing %s)", ErrPKIIncomplete.Error(), strings.Join(missing, ", "))
		log.Warn("skipping CRL regeneration", "missing", strings.Join(missing, ","))
		return false, msg
	}

	if r.Tool == nil {
		return false, "CRL regen failed: no CA tool configured"
	}

	days := r.Days
	if days <= 0 {
		days = DefaultCRLDays
	}

	if err := r.Tool.GenerateCRL(ctx, days); err != nil {
		log.Warn("CRL generation failed", "error", err)
		return false, "CRL regen failed: " + err.Error()
	}

	src := r.Layout.CRLPath()
	if _, err := os.Stat(src); err != nil {
		log.Warn("CA tool produced no CRL", "path", src)
		return true, "CRL regenerated (nothing to publish)"
	}

	if r.Dest != "" {
		if err := os.MkdirAll(filepath.Dir(r.Dest), 0o755); err != nil {
			return false, "CRL regen failed: " + err.Error()
		}
		if err := fileutil.AtomicCopyFile(src, r.Dest, CRLPerm); err != nil {
			log.Warn("publishing CRL failed", "dest", r.Dest, "error", err)
			return false, "CRL regen failed: " + err.Error()
		}
	}

	log.Info("CRL regenerated", "dest", r.Dest, "days", days)
	return true, "CRL regenerated."
}

// Regenerate wraps RegenerateIfPossible in a Result.
func (r *Regenerator) Regenerate(ctx context.Context) Result {
	ok, msg := r.RegenerateIfPossible(ctx)
	return Result{OK: ok, Message: msg}
}

func (r *Regenerator) missingPrerequisites() []string {
	var missing []string
	for _, c := range []struct{ name, path string }{
		{"index", r.Layout.IndexPath()},
		{"ca.key", r.Layout.CAKeyPath()},
		{"easyrsa", r.Layout.ToolPath()},
	} {
		if _, err := os.Stat(c.path); err != nil {
			missing = append(missing, c.name)
		}
	}
	return missing
}
