// Package webapi serves read-only checker status over HTTP.
package webapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/spboyer/checkerd/internal/models"
	"github.com/spboyer/checkerd/internal/statistics"
	"github.com/spboyer/checkerd/internal/store"
)

// Version is set at build time or defaults to dev.
var Version = "dev"

// RecentRuns is how many runs the checker detail endpoint returns.
const RecentRuns = 50

// StatusStore is the subset of store.Store the API reads from.
type StatusStore interface {
	GetChecker(name string) (*models.Checker, error)
	ListCheckers() ([]*models.Checker, error)
	GetRun(id string) (*models.CheckerRun, error)
	Runs(checker string, limit int) ([]*models.CheckerRun, error)
	Transitions(checker string) ([]models.StatusTransition, error)
}

// Handlers holds the HTTP handler methods for the web API.
type Handlers struct {
	store StatusStore
	now   func() time.Time
}

// NewHandlers creates a new Handlers with the given store.
func NewHandlers(st StatusStore) *Handlers {
	return &Handlers{store: st, now: time.Now}
}

// HandleHealth reports liveness and how many checkers are failing.
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	checkers, err := h.store.ListCheckers()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := HealthResponse{Status: "ok", Version: Version, Checkers: len(checkers)}
	for _, c := range checkers {
		if c.Status == models.CheckerStatusFailing || c.Status == models.CheckerStatusErrored {
			resp.Failing++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleCheckers lists checkers, optionally filtered by ?status= and
// ordered by ?sort=name|status|latest_run and ?order=asc|desc.
func (h *Handlers) HandleCheckers(w http.ResponseWriter, r *http.Request) {
	checkers, err := h.store.ListCheckers()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	q := r.URL.Query()
	status := models.CheckerStatus(q.Get("status"))
	out := make([]CheckerSummary, 0, len(checkers))
	for _, c := range checkers {
		if status != "" && c.Status != status {
			continue
		}
		out = append(out, summarizeChecker(c))
	}
	sortCheckers(out, q.Get("sort"), q.Get("order"))
	writeJSON(w, http.StatusOK, out)
}

// HandleCheckerDetail returns a checker with its latest runs and stats.
func (h *Handlers) HandleCheckerDetail(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "checker name is required")
		return
	}

	c, err := h.store.GetChecker(name)
	if err != nil {
		writeStoreError(w, err, "checker not found")
		return
	}
	runs, err := h.store.Runs(name, RecentRuns)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	transitions, err := h.store.Transitions(name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	detail := CheckerDetail{
		CheckerSummary: summarizeChecker(c),
		Stats:          statistics.Compute(c, runs, h.now()),
		Runs:           make([]RunSummary, 0, len(runs)),
		Transitions:    transitions,
	}
	if detail.Transitions == nil {
		detail.Transitions = []models.StatusTransition{}
	}
	for _, run := range runs {
		detail.Runs = append(detail.Runs, summarizeRun(run))
	}
	writeJSON(w, http.StatusOK, detail)
}

// HandleRunDetail returns a run with its failures.
func (h *Handlers) HandleRunDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "run id is required")
		return
	}

	run, err := h.store.GetRun(id)
	if err != nil {
		writeStoreError(w, err, "run not found")
		return
	}
	detail := RunDetail{
		RunSummary: summarizeRun(run),
		Failures:   run.Failures,
		Exception:  run.Exception(),
	}
	if detail.Failures == nil {
		detail.Failures = []models.CheckerFailure{}
	}
	writeJSON(w, http.StatusOK, detail)
}

// RegisterRoutes registers all web API routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, st StatusStore) {
	h := NewHandlers(st)
	mux.HandleFunc("GET /api/health", h.HandleHealth)
	mux.HandleFunc("GET /api/checkers", h.HandleCheckers)
	mux.HandleFunc("GET /api/checkers/{name}", h.HandleCheckerDetail)
	mux.HandleFunc("GET /api/runs/{id}", h.HandleRunDetail)
	mux.HandleFunc("GET /api/failures", h.HandleFailures)
}

// CORSMiddleware wraps a handler with CORS headers.
// If allowedOrigins is empty, no CORS header is set (same-origin only).
// Otherwise, the request Origin is checked against the allowed list.
func CORSMiddleware(next http.Handler, allowedOrigins ...string) http.Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if len(allowedOrigins) > 0 && origin != "" && allowed[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

var statusRank = map[models.CheckerStatus]int{
	models.CheckerStatusErrored:    0,
	models.CheckerStatusFailing:    1,
	models.CheckerStatusNew:        2,
	models.CheckerStatusSucceeding: 3,
	models.CheckerStatusIgnored:    4,
}

func sortCheckers(cs []CheckerSummary, field, order string) {
	less := func(i, j int) bool {
		switch field {
		case "status":
			if statusRank[cs[i].Status] != statusRank[cs[j].Status] {
				return statusRank[cs[i].Status] < statusRank[cs[j].Status]
			}
			return cs[i].Name < cs[j].Name
		case "latest_run":
			a, b := cs[i].LatestRunDate, cs[j].LatestRunDate
			if a == nil || b == nil {
				return a == nil && b != nil
			}
			return a.Before(*b)
		default: // "name" or empty
			return cs[i].Name < cs[j].Name
		}
	}

	if order == "desc" {
		sort.SliceStable(cs, func(i, j int) bool { return less(j, i) })
	} else {
		sort.SliceStable(cs, less)
	}
}

func writeStoreError(w http.ResponseWriter, err error, notFound string) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, notFound)
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, ErrorResponse{Error: msg, Code: code})
}
