package reporting

import (
	"fmt"
	"strings"

	"github.com/spboyer/checkerd/internal/models"
)

// InterpretSummary returns a plain-language verdict for a cycle.
func InterpretSummary(s *models.Summary) string {
	switch {
	case s.ChecksRun == 0:
		return "No checkers ran."
	case s.Healthy():
		return fmt.Sprintf("All %d checkers succeeded.", s.ChecksRun)
	case s.ChecksErrored > 0 && s.ChecksFailed == 0:
		return fmt.Sprintf("%d of %d checkers could not run.", s.ChecksErrored, s.ChecksRun)
	case s.ChecksErrored == 0:
		return fmt.Sprintf("%d of %d checkers found problems.", s.ChecksFailed, s.ChecksRun)
	default:
		return fmt.Sprintf("%d of %d checkers found problems and %d could not run.", s.ChecksFailed, s.ChecksRun, s.ChecksErrored)
	}
}

// InterpretSinkErrors explains undelivered failures, or returns "".
func InterpretSinkErrors(s *models.Summary) string {
	if s.SinkErrors == 0 {
		return ""
	}
	return fmt.Sprintf("%d of %d failures could not be delivered; check the sink configuration.", s.SinkErrors, s.FailuresReported)
}

// FormatSummaryReport produces a plain-language report of a cycle.
func FormatSummaryReport(s *models.Summary, results []Result) string {
	var b strings.Builder

	b.WriteString("=== Summary ===\n\n")
	b.WriteString(InterpretSummary(s) + "\n")
	if msg := InterpretSinkErrors(s); msg != "" {
		b.WriteString(msg + "\n")
	}
	fmt.Fprintf(&b, "Duration:  %v\n", s.Duration)
	if s.ChecksRun > 0 {
		fmt.Fprintf(&b, "Checkers:  %d succeeded, %d failed, %d errored out of %d run\n",
			s.ChecksRun-s.ChecksFailed-s.ChecksErrored, s.ChecksFailed, s.ChecksErrored, s.ChecksRun)
	}
	if s.FailuresReported > 0 {
		fmt.Fprintf(&b, "Failures:  %d reported\n", s.FailuresReported)
	}

	if len(results) > 0 {
		b.WriteString("\nPer-Checker:\n")
		for _, r := range results {
			if r.Run == nil {
				fmt.Fprintf(&b, "  - %s: skipped", r.Checker)
				if r.SkipReason != "" {
					fmt.Fprintf(&b, " (%s)", r.SkipReason)
				}
				b.WriteString("\n")
				continue
			}
			icon := "✓"
			if r.Run.Status != models.RunStatusSucceeded {
				icon = "✗"
			}
			fmt.Fprintf(&b, "  %s %s: %s\n", icon, r.Checker, r.Run.Status)
			for _, f := range r.Run.Failures {
				fmt.Fprintf(&b, "      %s\n", f.Text)
			}
			if exc := r.Run.Exception(); exc != "" {
				first, _, _ := strings.Cut(exc, "\n")
				fmt.Fprintf(&b, "      %s\n", first)
			}
		}
	}

	return b.String()
}
