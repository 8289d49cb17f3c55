package reporting

import (
	"strings"
	"testing"
	"time"

	"github.com/spboyer/checkerd/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestInterpretSummary(t *testing.T) {
	tests := []struct {
		name string
		in   models.Summary
		want string
	}{
		{"nothing ran", models.Summary{}, "No checkers ran."},
		{"healthy", models.Summary{ChecksRun: 5}, "All 5 checkers succeeded."},
		{"failures only", models.Summary{ChecksRun: 5, ChecksFailed: 2}, "2 of 5 checkers found problems."},
		{"errors only", models.Summary{ChecksRun: 5, ChecksErrored: 1}, "1 of 5 checkers could not run."},
		{"both", models.Summary{ChecksRun: 5, ChecksFailed: 2, ChecksErrored: 1}, "2 of 5 checkers found problems and 1 could not run."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InterpretSummary(&tt.in))
		})
	}
}

func TestInterpretSinkErrors(t *testing.T) {
	assert.Empty(t, InterpretSinkErrors(&models.Summary{FailuresReported: 3}))
	assert.Equal(t, "1 of 3 failures could not be delivered; check the sink configuration.",
		InterpretSinkErrors(&models.Summary{FailuresReported: 3, SinkErrors: 1}))
}

func TestFormatSummaryReport(t *testing.T) {
	s := &models.Summary{
		ChecksRun:        3,
		ChecksFailed:     1,
		ChecksErrored:    1,
		FailuresReported: 2,
		Duration:         3 * time.Second,
		Errored:          []string{"cert_expiry"},
	}
	report := FormatSummaryReport(s, newTestResults())

	assert.True(t, strings.HasPrefix(report, "=== Summary ==="))
	assert.Contains(t, report, "1 of 3 checkers found problems and 1 could not run.")
	assert.Contains(t, report, "Duration:  3s")
	assert.Contains(t, report, "1 succeeded, 1 failed, 1 errored out of 3 run")
	assert.Contains(t, report, "Failures:  2 reported")
	assert.Contains(t, report, "✓ disk_space: succeeded")
	assert.Contains(t, report, "✗ queue_backlog: failed")
	assert.Contains(t, report, "emails backlog > 1000")
	assert.Contains(t, report, "✗ cert_expiry: errored")
	assert.Contains(t, report, "tls: handshake failure")
	assert.NotContains(t, report, "goroutine 1")
	assert.Contains(t, report, "- nightly_export: skipped (skipped by --skip)")
}
