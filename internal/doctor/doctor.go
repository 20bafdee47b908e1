package doctor

import "time"

// Check is one diagnostic. Name is unique within a runner.
type Check interface {
	Name() string
	Category() string
	Run() *CheckResult
}

// Runner executes diagnostic checks in registration order.
type Runner struct {
	checks []Check

	// Clock stamps the report. Defaults to time.Now.
	Clock func() time.Time
}

// NewRunner returns a runner over checks.
func NewRunner(checks ...Check) *Runner {
	return &Runner{checks: checks}
}

// AddCheck appends c.
func (r *Runner) AddCheck(c Check) {
	r.checks = append(r.checks, c)
}

// Run executes every check and tallies the results.
func (r *Runner) Run() *Report {
	now := time.Now
	if r.Clock != nil {
		now = r.Clock
	}
	report := &Report{
		Timestamp: now().UTC(),
		Results:   make([]*CheckResult, 0, len(r.checks)),
	}
	for _, check := range r.checks {
		result := check.Run()
		report.Results = append(report.Results, result)
		report.Summary.add(result.Status)
	}
	return report
}

// Fix runs Fix on every check that implements Fixer and has fixable
// issues. Checks must have been run first.
func (r *Runner) Fix() []FixResult {
	var out []FixResult
	for _, check := range r.checks {
		if f, ok := check.(Fixer); ok && f.CanFix() {
			out = append(out, f.Fix()...)
		}
	}
	return out
}

// Report is one doctor run.
type Report struct {
	Timestamp time.Time      `json:"timestamp" yaml:"timestamp" toml:"timestamp"`
	Results   []*CheckResult `json:"results" yaml:"results" toml:"results"`
	Summary   Summary        `json:"summary" yaml:"summary" toml:"summary"`
}

// HasErrors reports whether any check failed.
func (r *Report) HasErrors() bool {
	return r.Summary.Errors > 0
}

// HasWarnings reports whether any check warned.
func (r *Report) HasWarnings() bool {
	return r.Summary.Warnings > 0
}
