package models

import "time"

// Summary reports what happened during one run cycle. It separates a
// quiet system (no failures, no errors) from a broken one.
type Summary struct {
	ChecksRun        int           `json:"checkers_run"`
	ChecksFailed     int           `json:"checkers_failed"`
	ChecksErrored    int           `json:"checkers_errored"`
	FailuresReported int           `json:"failures_reported"`
	SinkErrors       int           `json:"sink_errors"`
	Duration         time.Duration `json:"duration_ns"`

	// Errored names the checkers that raised instead of reporting.
	Errored []string `json:"errored,omitempty"`
}

// Healthy reports whether every checker ran and none reported failures.
func (s *Summary) Healthy() bool {
	return s.ChecksFailed == 0 && s.ChecksErrored == 0
}

// Add folds the outcome of one run into the summary.
func (s *Summary) Add(run *CheckerRun) {
	s.ChecksRun++
	switch run.Status {
	case RunStatusFailed:
		s.ChecksFailed++
	case RunStatusErrored:
		s.ChecksErrored++
		s.Errored = append(s.Errored, run.Checker)
	}
}

// Merge adds the counts of other into s.
func (s *Summary) Merge(other *Summary) {
	s.ChecksRun += other.ChecksRun
	s.ChecksFailed += other.ChecksFailed
	s.ChecksErrored += other.ChecksErrored
	s.FailuresReported += other.FailuresReported
	s.SinkErrors += other.SinkErrors
	s.Errored = append(s.Errored, other.Errored...)
}
