package webserver

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/spboyer/checkerd/internal/models"
	"github.com/spboyer/checkerd/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, st *store.MemoryStore) http.Handler {
	t.Helper()
	srv, err := New(Config{Store: st})
	require.NoError(t, err)
	return srv.Handler()
}

func get(handler http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestNew_RequiresStore(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestNew_Defaults(t *testing.T) {
	srv, err := New(Config{Store: store.NewMemoryStore()})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", srv.Addr())
}

func TestHealthEndpoint(t *testing.T) {
	rec := get(newTestServer(t, store.NewMemoryStore()), "/api/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestUnknownAPIPath(t *testing.T) {
	rec := get(newTestServer(t, store.NewMemoryStore()), "/api/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestStatusPage(t *testing.T) {
	st := store.NewMemoryStore()
	c, err := st.GetOrCreateChecker("queue_backlog", "ops")
	require.NoError(t, err)
	c.Status = models.CheckerStatusFailing
	require.NoError(t, st.SaveChecker(c))

	rec := get(newTestServer(t, st), "/")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	assert.Contains(t, body, "<!doctype html>")
	assert.Contains(t, body, "<table>")
	assert.Contains(t, body, `<a href="/api/checkers/queue_backlog">queue_backlog</a>`)
	assert.Contains(t, body, "Failing (1)")
	assert.Contains(t, body, "never")
	assert.NotContains(t, body, "Current failures")
}

func TestStatusPage_GroupsAndCurrentFailures(t *testing.T) {
	st := store.NewMemoryStore()
	early := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)
	for _, c := range []struct {
		name    string
		status  models.CheckerStatus
		changed time.Time
	}{
		{"cert_expiry", models.CheckerStatusSucceeding, late},
		{"old_failure", models.CheckerStatusFailing, early},
		{"muted", models.CheckerStatusIgnored, early},
		{"new_failure", models.CheckerStatusFailing, late},
		{"disk_space", models.CheckerStatusErrored, early},
	} {
		ch, err := st.GetOrCreateChecker(c.name, "ops")
		require.NoError(t, err)
		ch.Status = c.status
		ch.LatestStatusChange = &c.changed
		require.NoError(t, st.SaveChecker(ch))
	}

	stale := &models.CheckerRun{ID: "r1", Checker: "new_failure", CreatedAt: early,
		Failures: []models.CheckerFailure{{RunID: "r1", Text: "stale backlog"}}}
	stale.Complete(models.RunStatusFailed, early.Add(time.Second))
	require.NoError(t, st.CreateRun(stale))
	latest := &models.CheckerRun{ID: "r2", Checker: "new_failure", CreatedAt: late,
		Failures: []models.CheckerFailure{{RunID: "r2", Text: "backlog over 1000", Subtext: "queue emails"}}}
	latest.Complete(models.RunStatusFailed, late.Add(time.Second))
	require.NoError(t, st.CreateRun(latest))

	body := get(newTestServer(t, st), "/").Body.String()

	headings := []string{"Failing (2)", "Errored (1)", "Ignored (1)", "Succeeding (1)", "Current failures"}
	last := -1
	for _, h := range headings {
		i := strings.Index(body, h)
		require.GreaterOrEqual(t, i, 0, h)
		assert.Greater(t, i, last, "%s out of order", h)
		last = i
	}
	assert.Less(t, strings.Index(body, ">new_failure<"), strings.Index(body, ">old_failure<"))

	failures := body[strings.Index(body, "Current failures"):]
	assert.Contains(t, failures, `<a href="/api/runs/r2">new_failure</a>`)
	assert.Contains(t, failures, "backlog over 1000")
	assert.Contains(t, failures, "queue emails")
	assert.NotContains(t, failures, "stale backlog")
}

func TestStatusPage_Empty(t *testing.T) {
	rec := get(newTestServer(t, store.NewMemoryStore()), "/")
	assert.Contains(t, rec.Body.String(), "No checkers have run yet.")
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	srv, err := New(Config{Store: store.NewMemoryStore()})
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/api/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
