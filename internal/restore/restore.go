package restore

import (
	"context"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/thoreinstein/ovsnap/internal/archive"
	"github.com/thoreinstein/ovsnap/internal/diff"
	"github.com/thoreinstein/ovsnap/internal/exclude"
	"github.com/thoreinstein/ovsnap/internal/logging"
	"github.com/thoreinstein/ovsnap/internal/pki"
	"github.com/thoreinstein/ovsnap/internal/service"
)

// Options select the restore mode.
type Options struct {
	// DryRun computes the diff and returns without touching anything.
	DryRun bool

	// StrictPurge deletes paths the snapshot does not record.
	StrictPurge bool
}

// CRLRegenerator republishes the revocation list. *pki.Regenerator
// implements it.
type CRLRegenerator interface {
	Regenerate(ctx context.Context) pki.Result
}

// Executor performs restores. The caller must ensure only one restore runs
// against the same roots at a time.
type Executor struct {
	// Filter must match the capture filter.
	Filter *exclude.Filter

	// Roots are the configured live roots. Directories are only removed
	// recursively when they lie under one of them. Empty means the
	// manifest's roots.
	Roots []string

	// StagingDir is where workspaces are created. Empty means os.TempDir.
	StagingDir string

	// CRL is nil when no CA is managed.
	CRL CRLRegenerator

	// Service is nil when nothing should be restarted.
	Service service.Controller

	// Remover defaults to the os package.
	Remover Remover

	Logger *slog.Logger

	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Restore unpacks archivePath and applies it. Setup failures (staging
// directory, unreadable archive, missing manifest, untraversable root)
// are returned as errors before anything is modified.
func (e *Executor) Restore(ctx context.Context, archivePath string, opts Options) (*Report, error) {
	log := logging.OrDiscard(e.Logger)

	ws, err := archive.Open(archivePath, e.StagingDir)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", archivePath)
	}
	defer func() {
		if cerr := ws.Close(); cerr != nil {
			log.Warn("staging cleanup failed", "dir", ws.Dir, "error", cerr)
		}
	}()

	return e.Apply(ctx, ws, opts)
}

// Apply restores from an already opened workspace. It does not close ws.
func (e *Executor) Apply(ctx context.Context, ws *archive.Workspace, opts Options) (*Report, error) {
	now := time.Now
	if e.Clock != nil {
		now = e.Clock
	}

	rep := &Report{
		ID:        uuid.NewString(),
		Archive:   ws.Archive,
		DryRun:    opts.DryRun,
		PurgeMode: PurgeNone,
		Phase:     PhaseUnpacked,
		Purged:    []ItemResult{},
		Copied:    []ItemResult{},
		Errors:    []string{},
		StartedAt: now(),
	}
	if opts.StrictPurge {
		rep.PurgeMode = PurgeStrict
	}
	log := logging.OrDiscard(e.Logger).With("restore_id", rep.ID)
	log.Info("restore started", "archive", ws.Archive, "dry_run", opts.DryRun, "purge", rep.PurgeMode)

	engine := &diff.Engine{Filter: e.Filter, Logger: log}
	d, err := engine.Diff(ws.Manifest)
	if err != nil {
		return nil, errors.Wrap(err, "computing diff")
	}
	rep.Diff = d
	rep.Phase = PhaseDiffed

	if opts.DryRun {
		rep.Phase = PhaseDryRunReported
		rep.FinishedAt = now()
		return rep, nil
	}

	rep.Phase = PhasePurging
	if opts.StrictPurge && len(d.Extra) > 0 {
		rep.Purged = e.purge(ws.Manifest.Roots, ws.Manifest.Index(), d.Extra, log)
	}

	rep.Phase = PhaseCopying
	rep.Copied = e.copyFromStaging(ws, log)

	rep.Phase = PhaseCRLRegen
	if e.CRL != nil {
		res := e.CRL.Regenerate(ctx)
		rep.CRL = &res
	} else {
		rep.CRL = &pki.Result{OK: false, Message: "CRL regeneration not configured"}
	}

	rep.Phase = PhaseServiceRestart
	rep.Service = e.restartService(ctx, log)
	rep.Errors = append(rep.Errors, rep.Service.Errors...)

	rep.Phase = PhaseDone
	rep.FinishedAt = now()
	log.Info("restore finished",
		"purged", Count(rep.Purged, StatusOK),
		"copied", Count(rep.Copied, StatusOK),
		"failed", len(rep.Failed()),
		"crl", rep.CRL.Message,
		"service", rep.Service.Status,
	)
	return rep, nil
}

func (e *Executor) restartService(ctx context.Context, log *slog.Logger) *ServiceResult {
	if e.Service == nil {
		return &ServiceResult{Status: "skipped", Errors: []string{}}
	}
	if err := e.Service.Restart(ctx); err != nil {
		log.Warn("service restart failed", "error", err)
		return &ServiceResult{Status: "Failed: " + err.Error(), Errors: []string{err.Error()}}
	}
	return &ServiceResult{Status: "OK", Errors: []string{}}
}
