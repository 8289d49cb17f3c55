package webapi

import (
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/spboyer/checkerd/internal/models"
)

// groupOrder is the order the status overview lists its groups in.
var groupOrder = []models.CheckerStatus{
	models.CheckerStatusFailing,
	models.CheckerStatusErrored,
	models.CheckerStatusIgnored,
	models.CheckerStatusSucceeding,
	models.CheckerStatusNew,
}

// StatusGroup is every checker sharing one status.
type StatusGroup struct {
	Status   models.CheckerStatus `json:"status"`
	Checkers []CheckerSummary     `json:"checkers"`
}

// CurrentFailure is one failure of a failing checker's latest run.
type CurrentFailure struct {
	Checker  string          `json:"checker"`
	Severity models.Severity `json:"severity"`
	models.CheckerFailure
}

// GroupCheckers splits checkers by status. Groups come failing, errored,
// ignored, succeeding, then new, and empty groups are left out. Within a
// group the most recently changed checker comes first; a checker whose
// status never changed sorts by when it was created.
func GroupCheckers(checkers []*models.Checker) []StatusGroup {
	byStatus := make(map[models.CheckerStatus][]*models.Checker)
	for _, c := range checkers {
		byStatus[c.Status] = append(byStatus[c.Status], c)
	}

	var groups []StatusGroup
	for _, status := range groupOrder {
		members := byStatus[status]
		if len(members) == 0 {
			continue
		}
		sort.SliceStable(members, func(i, j int) bool {
			a, b := changedAt(members[i]), changedAt(members[j])
			if !a.Equal(b) {
				return a.After(b)
			}
			return members[i].Name < members[j].Name
		})
		g := StatusGroup{Status: status, Checkers: make([]CheckerSummary, 0, len(members))}
		for _, c := range members {
			g.Checkers = append(g.Checkers, summarizeChecker(c))
		}
		groups = append(groups, g)
	}
	return groups
}

func changedAt(c *models.Checker) time.Time {
	if c.LatestStatusChange != nil {
		return *c.LatestStatusChange
	}
	return c.CreatedAt
}

// CurrentFailures lists the failures of the latest run of every failing
// checker, in the order GroupCheckers puts those checkers.
func CurrentFailures(st StatusStore) ([]CurrentFailure, error) {
	checkers, err := st.ListCheckers()
	if err != nil {
		return nil, err
	}
	out := []CurrentFailure{}
	for _, g := range GroupCheckers(checkers) {
		if g.Status != models.CheckerStatusFailing {
			continue
		}
		for _, c := range g.Checkers {
			runs, err := st.Runs(c.Name, 1)
			if err != nil {
				return nil, fmt.Errorf("reading runs of %s: %w", c.Name, err)
			}
			if len(runs) == 0 {
				continue
			}
			for _, f := range runs[0].Failures {
				out = append(out, CurrentFailure{Checker: c.Name, Severity: c.Severity, CheckerFailure: f})
			}
		}
	}
	return out, nil
}

// HandleFailures returns the current failures of failing checkers.
func (h *Handlers) HandleFailures(w http.ResponseWriter, _ *http.Request) {
	failures, err := CurrentFailures(h.store)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, failures)
}
