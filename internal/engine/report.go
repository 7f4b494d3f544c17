package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/rocval-dev/rocval/internal/profiles"
)

// RunStatus tracks the lifecycle of one validation run.
type RunStatus string

const (
	// RunNotStarted is the state of a freshly created report
	RunNotStarted RunStatus = "not_started"
	// RunRunning indicates the requirement tree walk is in progress
	RunRunning RunStatus = "running"
	// RunCompleted is the terminal state of a finished run
	RunCompleted RunStatus = "completed"
	// RunAborted indicates a fatal, non-check failure ended the run early
	RunAborted RunStatus = "aborted"
)

// Report is the complete outcome of one validation run. Results appear in
// requirement tree order, ancestors of the validated profile first.
type Report struct {
	RunID          string        `json:"run_id" yaml:"run_id"`
	ProfileToken   string        `json:"profile" yaml:"profile"`
	ProfileID      string        `json:"profile_id" yaml:"profile_id"`
	ProfileVersion string        `json:"profile_version" yaml:"profile_version"`
	Status         RunStatus     `json:"status" yaml:"status"`
	StartTime      time.Time     `json:"start_time" yaml:"start_time"`
	EndTime        time.Time     `json:"end_time" yaml:"end_time"`
	Duration       time.Duration `json:"duration_ms" yaml:"duration_ms"`
	Results        []CheckResult `json:"results" yaml:"results"`
	Summary        Summary       `json:"summary" yaml:"summary"`
}

// Summary provides aggregate statistics about the run.
type Summary struct {
	TotalChecks     int `json:"total_checks" yaml:"total_checks"`
	PassedChecks    int `json:"passed_checks" yaml:"passed_checks"`
	FailedChecks    int `json:"failed_checks" yaml:"failed_checks"`
	ErrorChecks     int `json:"error_checks" yaml:"error_checks"`
	TotalViolations int `json:"total_violations" yaml:"total_violations"`
}

// NewReport creates an empty report for one run against the given profile.
func NewReport(p *profiles.Profile) *Report {
	r := &Report{
		RunID:        uuid.NewString(),
		ProfileToken: p.Token,
		ProfileID:    p.ID,
		Status:       RunNotStarted,
		Results:      make([]CheckResult, 0),
	}
	if p.Version != nil {
		r.ProfileVersion = p.Version.String()
	}
	return r
}

func (r *Report) start() {
	r.Status = RunRunning
	r.StartTime = time.Now()
}

func (r *Report) abort() {
	r.Status = RunAborted
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
}

func (r *Report) add(results ...CheckResult) {
	r.Results = append(r.Results, results...)
}

// Finalize completes the run: it sets the end time and calculates the
// summary.
func (r *Report) Finalize() {
	r.Status = RunCompleted
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
	r.calculateSummary()
}

// Passed reports whether the run completed with no failed or errored checks.
func (r *Report) Passed() bool {
	if r.Status != RunCompleted {
		return false
	}
	return r.Summary.FailedChecks == 0 && r.Summary.ErrorChecks == 0
}

func (r *Report) calculateSummary() {
	r.Summary = Summary{TotalChecks: len(r.Results)}

	for _, res := range r.Results {
		switch res.Status {
		case StatusPass:
			r.Summary.PassedChecks++
		case StatusFail:
			r.Summary.FailedChecks++
		case StatusError:
			r.Summary.ErrorChecks++
		}
		r.Summary.TotalViolations += len(res.Violations)
	}
}
