package webapi

import (
	"time"

	"github.com/spboyer/checkerd/internal/models"
	"github.com/spboyer/checkerd/internal/statistics"
)

// CheckerSummary is the API response for a single checker in the list.
type CheckerSummary struct {
	Name          string               `json:"name"`
	Section       string               `json:"section,omitempty"`
	Description   string               `json:"description,omitempty"`
	Owner         string               `json:"owner,omitempty"`
	Severity      models.Severity      `json:"severity"`
	Cadence       models.Cadence       `json:"cadence"`
	Status        models.CheckerStatus `json:"status"`
	LatestRunDate *time.Time           `json:"latestRunDate,omitempty"`
	StatusChanged *time.Time           `json:"latestStatusChange,omitempty"`
}

// CheckerDetail is the API response for a single checker with its recent
// runs and statistics.
type CheckerDetail struct {
	CheckerSummary
	Stats       statistics.CheckerStats   `json:"stats"`
	Runs        []RunSummary              `json:"runs"`
	Transitions []models.StatusTransition `json:"transitions"`
}

// RunSummary is a run without its failures.
type RunSummary struct {
	ID           string           `json:"id"`
	Checker      string           `json:"checker"`
	Status       models.RunStatus `json:"status"`
	Attempts     int              `json:"attempts"`
	FailureCount int              `json:"failureCount"`
	Duration     float64          `json:"duration"`
	Timestamp    time.Time        `json:"timestamp"`
}

// RunDetail is the API response for a single run with its failures.
type RunDetail struct {
	RunSummary
	Failures  []models.CheckerFailure `json:"failures"`
	Exception string                  `json:"exception,omitempty"`
}

// HealthResponse is the health check response.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Checkers int    `json:"checkers"`
	Failing  int    `json:"failing"`
}

// ErrorResponse is returned for errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

func summarizeChecker(c *models.Checker) CheckerSummary {
	return CheckerSummary{
		Name:          c.Name,
		Section:       c.Section,
		Description:   c.Description,
		Owner:         c.Owner,
		Severity:      c.Severity,
		Cadence:       c.Cadence,
		Status:        c.Status,
		LatestRunDate: c.LatestRunDate,
		StatusChanged: c.LatestStatusChange,
	}
}

func summarizeRun(r *models.CheckerRun) RunSummary {
	return RunSummary{
		ID:           r.ID,
		Checker:      r.Checker,
		Status:       r.Status,
		Attempts:     r.Attempts,
		FailureCount: len(r.Failures),
		Duration:     r.Duration().Seconds(),
		Timestamp:    r.CreatedAt,
	}
}
