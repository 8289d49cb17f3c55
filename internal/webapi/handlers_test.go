package webapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/spboyer/checkerd/internal/models"
	"github.com/spboyer/checkerd/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func seededStore(t *testing.T) *store.MemoryStore {
	t.Helper()
	st := store.NewMemoryStore()

	for i, name := range []string{"queue_backlog", "cert_expiry", "disk_space"} {
		c, err := st.GetOrCreateChecker(name, "ops")
		require.NoError(t, err)
		latest := base.Add(time.Duration(i) * time.Hour)
		c.LatestRunDate = &latest
		c.CreatedAt = base.Add(-48 * time.Hour)
		switch name {
		case "queue_backlog":
			c.Status = models.CheckerStatusFailing
			c.LatestStatusChange = &latest
		case "cert_expiry":
			c.Status = models.CheckerStatusSucceeding
		}
		require.NoError(t, st.SaveChecker(c))
	}

	for i := range 3 {
		created := base.Add(time.Duration(i) * time.Minute)
		run := &models.CheckerRun{
			ID:        []string{"r1", "r2", "r3"}[i],
			Checker:   "queue_backlog",
			Attempts:  1,
			CreatedAt: created,
		}
		status := models.RunStatusSucceeded
		if i == 2 {
			status = models.RunStatusFailed
			run.Failures = []models.CheckerFailure{{ID: "r3-0", RunID: "r3", Text: "backlog > 1000", Data: map[string]any{"queue": "emails"}}}
		}
		run.Complete(status, created.Add(2*time.Second))
		require.NoError(t, st.CreateRun(run))
	}

	errored := &models.CheckerRun{ID: "e1", Checker: "disk_space", CreatedAt: base, Data: map[string]any{models.RunDataException: "boom"}}
	errored.Complete(models.RunStatusErrored, base.Add(time.Second))
	require.NoError(t, st.CreateRun(errored))

	require.NoError(t, st.RecordTransition(models.StatusTransition{
		Checker: "queue_backlog", From: models.CheckerStatusSucceeding, To: models.CheckerStatusFailing, RunID: "r3", At: base,
	}))
	return st
}

func serve(t *testing.T, st StatusStore, target string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	RegisterRoutes(mux, st)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHandleHealth(t *testing.T) {
	rec := serve(t, seededStore(t), "/api/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := decode[HealthResponse](t, rec)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, Version, body.Version)
	assert.Equal(t, 3, body.Checkers)
	assert.Equal(t, 1, body.Failing)
}

func TestHandleCheckers(t *testing.T) {
	st := seededStore(t)

	t.Run("sorted by name", func(t *testing.T) {
		body := decode[[]CheckerSummary](t, serve(t, st, "/api/checkers"))
		require.Len(t, body, 3)
		assert.Equal(t, []string{"cert_expiry", "disk_space", "queue_backlog"}, names(body))
	})

	t.Run("filter by status", func(t *testing.T) {
		body := decode[[]CheckerSummary](t, serve(t, st, "/api/checkers?status=failing"))
		require.Len(t, body, 1)
		assert.Equal(t, "queue_backlog", body[0].Name)
		assert.Equal(t, "ops", body[0].Section)
	})

	t.Run("worst status first", func(t *testing.T) {
		body := decode[[]CheckerSummary](t, serve(t, st, "/api/checkers?sort=status"))
		assert.Equal(t, []string{"queue_backlog", "disk_space", "cert_expiry"}, names(body))
	})

	t.Run("latest run descending", func(t *testing.T) {
		body := decode[[]CheckerSummary](t, serve(t, st, "/api/checkers?sort=latest_run&order=desc"))
		assert.Equal(t, []string{"disk_space", "cert_expiry", "queue_backlog"}, names(body))
	})

	t.Run("empty store", func(t *testing.T) {
		rec := serve(t, store.NewMemoryStore(), "/api/checkers")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, "[]", rec.Body.String())
	})
}

func TestHandleCheckerDetail(t *testing.T) {
	rec := serve(t, seededStore(t), "/api/checkers/queue_backlog")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[CheckerDetail](t, rec)
	assert.Equal(t, "queue_backlog", body.Name)
	assert.Equal(t, models.CheckerStatusFailing, body.Status)

	require.Len(t, body.Runs, 3)
	assert.Equal(t, "r3", body.Runs[0].ID, "newest run first")
	assert.Equal(t, 1, body.Runs[0].FailureCount)
	assert.InDelta(t, 2.0, body.Runs[0].Duration, 1e-9)

	assert.Equal(t, 3, body.Stats.FinishedRuns)
	assert.Equal(t, 2*time.Second, body.Stats.AverageRuntime)
	assert.InDelta(t, 66.67, body.Stats.SuccessRate, 0.01)
	assert.NotEmpty(t, body.Stats.StatusChanged)

	require.Len(t, body.Transitions, 1)
	assert.Equal(t, models.CheckerStatusFailing, body.Transitions[0].To)
}

func TestHandleCheckerDetail_NoRuns(t *testing.T) {
	rec := serve(t, seededStore(t), "/api/checkers/cert_expiry")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[CheckerDetail](t, rec)
	assert.Empty(t, body.Runs)
	assert.NotNil(t, body.Transitions)
	assert.Zero(t, body.Stats.FinishedRuns)
}

func TestHandleCheckerDetail_LimitsRuns(t *testing.T) {
	st := store.NewMemoryStore()
	_, err := st.GetOrCreateChecker("busy", "")
	require.NoError(t, err)
	for i := range RecentRuns + 10 {
		created := base.Add(time.Duration(i) * time.Minute)
		run := &models.CheckerRun{Checker: "busy", CreatedAt: created}
		run.Complete(models.RunStatusSucceeded, created.Add(time.Second))
		require.NoError(t, st.CreateRun(run))
	}

	body := decode[CheckerDetail](t, serve(t, st, "/api/checkers/busy"))
	assert.Len(t, body.Runs, RecentRuns)
	assert.Equal(t, RecentRuns, body.Stats.FinishedRuns)
}

func TestHandleCheckerDetail_NotFound(t *testing.T) {
	rec := serve(t, seededStore(t), "/api/checkers/nope")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decode[ErrorResponse](t, rec)
	assert.Equal(t, "checker not found", body.Error)
	assert.Equal(t, http.StatusNotFound, body.Code)
}

func TestHandleRunDetail(t *testing.T) {
	st := seededStore(t)

	t.Run("failed run", func(t *testing.T) {
		rec := serve(t, st, "/api/runs/r3")
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode[RunDetail](t, rec)
		assert.Equal(t, models.RunStatusFailed, body.Status)
		require.Len(t, body.Failures, 1)
		assert.Equal(t, "backlog > 1000", body.Failures[0].Text)
		assert.Equal(t, "emails", body.Failures[0].Data["queue"])
	})

	t.Run("errored run", func(t *testing.T) {
		body := decode[RunDetail](t, serve(t, st, "/api/runs/e1"))
		assert.Equal(t, "boom", body.Exception)
		assert.NotNil(t, body.Failures)
	})

	t.Run("unknown run", func(t *testing.T) {
		rec := serve(t, st, "/api/runs/missing")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

type brokenStore struct{ StatusStore }

func (brokenStore) ListCheckers() ([]*models.Checker, error) { return nil, errors.New("disk on fire") }
func (brokenStore) GetRun(string) (*models.CheckerRun, error) {
	return nil, errors.New("disk on fire")
}

func TestHandlers_StoreErrors(t *testing.T) {
	for _, target := range []string{"/api/health", "/api/checkers", "/api/runs/r1", "/api/failures"} {
		t.Run(target, func(t *testing.T) {
			rec := serve(t, brokenStore{}, target)
			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.Contains(t, rec.Body.String(), "disk on fire")
		})
	}
}

func TestCORSMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		rec := httptest.NewRecorder()
		CORSMiddleware(ok, "http://localhost:5173").ServeHTTP(rec, req)
		assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("same origin only", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set("Origin", "http://evil.example.com")
		rec := httptest.NewRecorder()
		CORSMiddleware(ok).ServeHTTP(rec, req)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/checkers", nil)
		rec := httptest.NewRecorder()
		CORSMiddleware(ok).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func names(cs []CheckerSummary) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Name
	}
	return out
}
