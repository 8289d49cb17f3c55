package models

import "time"

// RunStatus is the outcome of a single CheckerRun.
type RunStatus string

const (
	RunStatusInProgress RunStatus = "in_progress"
	RunStatusSucceeded  RunStatus = "succeeded"
	RunStatusFailed     RunStatus = "failed"
	RunStatusErrored    RunStatus = "errored"
)

// RunDataException is the Data key holding the error text of an errored run.
const RunDataException = "exception"

// CheckerRun records one invocation of a checker.
type CheckerRun struct {
	ID          string           `json:"id"`
	Checker     string           `json:"checker"`
	Status      RunStatus        `json:"status"`
	Attempts    int              `json:"attempts"`
	CreatedAt   time.Time        `json:"created_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	Failures    []CheckerFailure `json:"failures,omitempty"`
	Data        map[string]any   `json:"data,omitempty"`

	// DryRun runs are never persisted.
	DryRun bool `json:"-"`
}

// Duration returns how long the run took, or zero while it is in progress.
func (r *CheckerRun) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.CreatedAt)
}

// Exception returns the recorded error text of an errored run.
func (r *CheckerRun) Exception() string {
	if r.Data == nil {
		return ""
	}
	s, _ := r.Data[RunDataException].(string)
	return s
}

// Complete marks the run finished with the given status.
func (r *CheckerRun) Complete(status RunStatus, at time.Time) {
	r.Status = status
	r.CompletedAt = &at
}

// Override suppresses failures whose Data contains every key/value pair
// of the override's Data.
type Override struct {
	ID          string         `json:"id"`
	Checker     string         `json:"checker,omitempty"`
	AllCheckers bool           `json:"all_checkers,omitempty"`
	Data        map[string]any `json:"data"`
	Note        string         `json:"note,omitempty"`
	User        string         `json:"user,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// StatusTransition records a change of a checker's persisted status.
type StatusTransition struct {
	Checker string        `json:"checker"`
	From    CheckerStatus `json:"from"`
	To      CheckerStatus `json:"to"`
	RunID   string        `json:"run_id,omitempty"`
	At      time.Time     `json:"at"`
}
