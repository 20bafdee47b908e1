package restore

import (
	"time"

	"github.com/thoreinstein/ovsnap/internal/diff"
	"github.com/thoreinstein/ovsnap/internal/pki"
)

// Phase is a restore state.
type Phase string

// Restore phases in execution order.
const (
	PhaseUnpacked       Phase = "unpacked"
	PhaseDiffed         Phase = "diffed"
	PhaseDryRunReported Phase = "dry_run_reported"
	PhasePurging        Phase = "purging"
	PhaseCopying        Phase = "copying"
	PhaseCRLRegen       Phase = "crl_regen"
	PhaseServiceRestart Phase = "service_restart"
	PhaseDone           Phase = "done"
)

// Purge modes as reported.
const (
	PurgeStrict = "strict"
	PurgeNone   = "none"
)

// Status is the outcome of one item.
type Status string

// Item outcomes.
const (
	StatusOK      Status = "ok"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Item actions.
const (
	ActionDelete = "delete"
	ActionCopy   = "copy"
	ActionMkdir  = "mkdir"
	ActionLink   = "link"
)

// ItemResult records what happened to one path.
type ItemResult struct {
	Path   string `json:"path"`
	Action string `json:"action"`
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// ServiceResult records the service restart.
type ServiceResult struct {
	Status string   `json:"status"`
	Errors []string `json:"errors"`
}

// Report is the result of a restore. It is returned even when individual
// items fail.
type Report struct {
	ID        string       `json:"id"`
	Archive   string       `json:"archive"`
	DryRun    bool         `json:"dry_run"`
	PurgeMode string       `json:"purge_mode"`
	Phase     Phase        `json:"phase"`
	Diff      *diff.Report `json:"diff"`

	Purged []ItemResult `json:"purged"`
	Copied []ItemResult `json:"copied"`

	// CRL and Service are nil until their phase runs.
	CRL     *pki.Result    `json:"crl"`
	Service *ServiceResult `json:"service"`

	// Errors collects external command failures.
	Errors []string `json:"errors"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Count returns how many items of results have status s.
func Count(results []ItemResult, s Status) int {
	n := 0
	for _, r := range results {
		if r.Status == s {
			n++
		}
	}
	return n
}

// Failed returns every failed purge or copy item.
func (r *Report) Failed() []ItemResult {
	var out []ItemResult
	for _, set := range [][]ItemResult{r.Purged, r.Copied} {
		for _, it := range set {
			if it.Status == StatusFailed {
				out = append(out, it)
			}
		}
	}
	return out
}
