// Package models holds the records shared by the registry, runner, store
// and reactions: failures, runs, persisted checker state, overrides and
// status transitions.
package models

import (
	"fmt"
	"time"
)

// Severity decides whether a checker pages or only notifies.
type Severity string

const (
	SeverityLow  Severity = "low"
	SeverityHigh Severity = "high"
)

// Cadence is how often the scheduler runs a checker.
type Cadence string

const (
	CadenceEveryTenMinutes Cadence = "every_ten_minutes"
	CadenceHourly          Cadence = "hourly"
	CadenceDaily           Cadence = "daily"
)

// Cadences lists every cadence, most frequent last.
var Cadences = []Cadence{CadenceDaily, CadenceHourly, CadenceEveryTenMinutes}

// ParseSeverity converts s into a Severity. An empty string yields SeverityLow.
func ParseSeverity(s string) (Severity, error) {
	switch Severity(s) {
	case "":
		return SeverityLow, nil
	case SeverityLow, SeverityHigh:
		return Severity(s), nil
	default:
		return "", fmt.Errorf("unknown severity %q", s)
	}
}

// ParseCadence converts s into a Cadence. An empty string yields CadenceHourly.
func ParseCadence(s string) (Cadence, error) {
	switch Cadence(s) {
	case "":
		return CadenceHourly, nil
	case CadenceEveryTenMinutes, CadenceHourly, CadenceDaily:
		return Cadence(s), nil
	default:
		return "", fmt.Errorf("unknown cadence %q", s)
	}
}

// CheckerStatus is the persisted status of a checker across runs. It is
// tracked separately from the latest run so that changes can be acted on
// and so a checker can be ignored.
type CheckerStatus string

const (
	CheckerStatusNew        CheckerStatus = "new"
	CheckerStatusIgnored    CheckerStatus = "ignored"
	CheckerStatusSucceeding CheckerStatus = "succeeding"
	CheckerStatusFailing    CheckerStatus = "failing"
	CheckerStatusErrored    CheckerStatus = "errored"
)

// Checker is the persisted state of a registered checker.
type Checker struct {
	Name               string        `json:"name"`
	Section            string        `json:"section,omitempty"`
	Description        string        `json:"description,omitempty"`
	Owner              string        `json:"owner,omitempty"`
	Severity           Severity      `json:"severity"`
	Cadence            Cadence       `json:"cadence"`
	Status             CheckerStatus `json:"status"`
	CreatedAt          time.Time     `json:"created_at"`
	LatestStatusChange *time.Time    `json:"latest_status_change,omitempty"`
	LatestRunDate      *time.Time    `json:"latest_run_date,omitempty"`
}

// NewChecker returns the initial state for a checker seen for the first time.
func NewChecker(name, section string, now time.Time) *Checker {
	return &Checker{
		Name:      name,
		Section:   section,
		Severity:  SeverityLow,
		Cadence:   CadenceHourly,
		Status:    CheckerStatusNew,
		CreatedAt: now,
	}
}
