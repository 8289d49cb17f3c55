// Package statistics summarizes a checker's run history for the status API
// and CLI.
package statistics

import (
	"hash/fnv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spboyer/checkerd/internal/models"
)

// CheckerStats describes how a checker has been behaving.
type CheckerStats struct {
	// AverageRuntime is the mean duration of completed runs.
	AverageRuntime time.Duration `json:"average_runtime_ns"`
	// SuccessRate is the percentage of finished runs that succeeded.
	SuccessRate float64 `json:"success_rate"`
	// SuccessRateCI bounds SuccessRate at 95% confidence, in percent.
	SuccessRateCI ConfidenceInterval `json:"success_rate_ci"`
	AgeInDays     int                `json:"age_in_days"`
	FinishedRuns  int                `json:"finished_runs"`
	// StatusChanged is the time since the last status change, e.g. "3 hours ago".
	StatusChanged string `json:"status_changed,omitempty"`
}

// Compute derives stats for c from runs. In-progress runs are ignored.
func Compute(c *models.Checker, runs []*models.CheckerRun, now time.Time) CheckerStats {
	var (
		total     time.Duration
		completed int
		outcomes  []float64
	)
	for _, run := range runs {
		if run.Status == models.RunStatusInProgress {
			continue
		}
		if run.CompletedAt != nil {
			total += run.Duration()
			completed++
		}
		if run.Status == models.RunStatusSucceeded {
			outcomes = append(outcomes, 100)
		} else {
			outcomes = append(outcomes, 0)
		}
	}

	s := CheckerStats{
		AgeInDays:    int(now.Sub(c.CreatedAt).Hours() / 24),
		FinishedRuns: len(outcomes),
	}
	if completed > 0 {
		s.AverageRuntime = total / time.Duration(completed)
	}
	if len(outcomes) > 0 {
		s.SuccessRateCI = BootstrapCI(outcomes, 0.95, seedFor(c.Name))
		s.SuccessRate = s.SuccessRateCI.Mean
	}
	if c.LatestStatusChange != nil {
		s.StatusChanged = humanize.RelTime(*c.LatestStatusChange, now, "ago", "from now")
	}
	return s
}

// seedFor keeps a checker's interval stable between requests.
func seedFor(name string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return h.Sum64()
}
