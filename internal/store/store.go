// Package store persists checker state, runs, failures, overrides and
// status transitions.
package store

import (
	"errors"

	"github.com/spboyer/checkerd/internal/models"
)

// ErrNotFound is returned when a checker, run or override does not exist.
var ErrNotFound = errors.New("not found")

// DefaultRunRetention is how many runs per checker a store keeps.
const DefaultRunRetention = 200

// Store is the persistence layer used by the runner and the status API.
// Implementations must be safe for concurrent use. Returned records are
// copies; mutate them and call the matching Save method.
type Store interface {
	// GetOrCreateChecker returns the state for name, creating it with
	// status new when it has never been seen.
	GetOrCreateChecker(name, section string) (*models.Checker, error)
	// GetChecker returns ErrNotFound for unknown names.
	GetChecker(name string) (*models.Checker, error)
	SaveChecker(c *models.Checker) error
	// ListCheckers returns every checker sorted by name.
	ListCheckers() ([]*models.Checker, error)

	// CreateRun stores a new run, assigning an ID when empty.
	CreateRun(run *models.CheckerRun) error
	SaveRun(run *models.CheckerRun) error
	GetRun(id string) (*models.CheckerRun, error)
	// LatestRun returns the newest run of checker other than excludeID,
	// or ErrNotFound.
	LatestRun(checker, excludeID string) (*models.CheckerRun, error)
	// Runs returns up to limit runs of checker, newest first. limit <= 0
	// returns all.
	Runs(checker string, limit int) ([]*models.CheckerRun, error)

	// Overrides returns the overrides scoped to checker plus every
	// all-checkers override.
	Overrides(checker string) ([]models.Override, error)
	AddOverride(o *models.Override) error
	DeleteOverride(id string) error

	RecordTransition(t models.StatusTransition) error
	// Transitions returns the transitions of checker, oldest first.
	Transitions(checker string) ([]models.StatusTransition, error)
}

// SetIgnored marks the checker ignored, or returns an ignored checker to
// new so its next run records a transition and alerts again. Checkers
// that never ran are created. It reports whether the status changed.
func SetIgnored(st Store, name, section string, ignored bool) (bool, error) {
	c, err := st.GetOrCreateChecker(name, section)
	if err != nil {
		return false, err
	}
	switch {
	case ignored && c.Status != models.CheckerStatusIgnored:
		c.Status = models.CheckerStatusIgnored
	case !ignored && c.Status == models.CheckerStatusIgnored:
		c.Status = models.CheckerStatusNew
	default:
		return false, nil
	}
	if err := st.SaveChecker(c); err != nil {
		return false, err
	}
	return true, nil
}
