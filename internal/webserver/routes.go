package webserver

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spboyer/checkerd/internal/template"
	"github.com/spboyer/checkerd/internal/webapi"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const pageHead = `<!doctype html>
<html>
<head><meta charset="utf-8"><title>checkerd</title></head>
<body>
`

const pageTail = `</body>
</html>
`

// registerRoutes sets up API and status page routes on the given mux.
func registerRoutes(mux *http.ServeMux, cfg Config) {
	webapi.RegisterRoutes(mux, cfg.Store)
	mux.HandleFunc("GET /{$}", statusPage(cfg.Store))
	mux.HandleFunc("/api/", handleAPINotFound)
}

// statusPage renders checkers grouped by status, worst first, followed by
// the failures of every failing checker's latest run.
func statusPage(st webapi.StatusStore) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		checkers, err := st.ListCheckers()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		failures, err := webapi.CurrentFailures(st)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		var md strings.Builder
		md.WriteString("# Checkers\n\n")
		if len(checkers) == 0 {
			md.WriteString("No checkers have run yet.\n")
		}
		for _, g := range webapi.GroupCheckers(checkers) {
			fmt.Fprintf(&md, "## %s (%d)\n\n", titleCaser.String(string(g.Status)), len(g.Checkers))
			md.WriteString("| Checker | Severity | Cadence | Last run | Status changed |\n")
			md.WriteString("|---|---|---|---|---|\n")
			for _, c := range g.Checkers {
				fmt.Fprintf(&md, "| [%s](/api/checkers/%s) | %s | %s | %s | %s |\n",
					cell(c.Name), c.Name, c.Severity, c.Cadence, stamp(c.LatestRunDate), stamp(c.StatusChanged))
			}
			md.WriteString("\n")
		}
		if len(failures) > 0 {
			md.WriteString("## Current failures\n\n")
			md.WriteString("| Checker | Severity | Failure | Details |\n")
			md.WriteString("|---|---|---|---|\n")
			for _, f := range failures {
				fmt.Fprintf(&md, "| [%s](/api/runs/%s) | %s | %s | %s |\n",
					cell(f.Checker), f.RunID, f.Severity, cell(oneLine(f.Text)), cell(oneLine(f.Subtext)))
			}
		}

		body, err := template.HTML(md.String())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, pageHead, body, pageTail)
	}
}

// handleAPINotFound answers unknown API paths with JSON instead of the
// page.
func handleAPINotFound(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	fmt.Fprint(w, `{"error":"not found","code":404}`+"\n")
}

var titleCaser = cases.Title(language.English)

func stamp(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.UTC().Format("2006-01-02 15:04 MST")
}

// oneLine keeps multi-line failure text inside its table cell.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
