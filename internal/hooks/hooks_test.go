package hooks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/spboyer/checkerd/internal/models"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunHook(t *testing.T) {
	// Determine a portable true/false command
	trueCmd := "true"
	falseCmd := "false"
	if runtime.GOOS == "windows" {
		trueCmd = "cmd /c exit 0"
		falseCmd = "cmd /c exit 1"
	}

	tests := []struct {
		name      string
		hook      HookConfig
		wantErr   bool
		errSubstr string
	}{
		{
			name:    "happy path - command succeeds",
			hook:    HookConfig{Command: trueCmd},
			wantErr: false,
		},
		{
			name:      "empty command returns error",
			hook:      HookConfig{Command: ""},
			wantErr:   true,
			errSubstr: "empty command",
		},
		{
			name:      "whitespace-only command returns error",
			hook:      HookConfig{Command: "   "},
			wantErr:   true,
			errSubstr: "empty command",
		},
		{
			name:    "non-zero exit with error_on_fail true returns error",
			hook:    HookConfig{Command: falseCmd, ErrorOnFail: true},
			wantErr: true,
		},
		{
			name:    "non-zero exit with error_on_fail false continues",
			hook:    HookConfig{Command: falseCmd, ErrorOnFail: false},
			wantErr: false,
		},
		{
			name:    "custom acceptable exit codes",
			hook:    HookConfig{Command: falseCmd, ExitCodes: []int{1}, ErrorOnFail: true},
			wantErr: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := &Runner{Logger: quietLogger()}
			err := r.runHook(context.Background(), "test", 0, tc.hook)

			if tc.wantErr && err == nil {
				t.Fatalf("expected error but got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.errSubstr != "" && err != nil {
				if got := err.Error(); !strings.Contains(got, tc.errSubstr) {
					t.Errorf("error %q does not contain %q", got, tc.errSubstr)
				}
			}
		})
	}
}

func TestExecute_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	r := &Runner{Logger: quietLogger()}
	hooks := []HookConfig{
		{Command: "echo hello"},
	}

	err := r.Execute(ctx, "test", hooks)
	if err == nil {
		t.Fatal("expected context cancellation error but got nil")
	}

	if got := err.Error(); !strings.Contains(got, "context canceled") {
		t.Errorf("error %q does not mention context cancellation", got)
	}
}

func TestExecute_ContextTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Millisecond)
	defer cancel()
	time.Sleep(5 * time.Millisecond) // ensure timeout fires

	r := &Runner{Logger: quietLogger()}
	hooks := []HookConfig{
		{Command: "echo hello"},
	}

	err := r.Execute(ctx, "test", hooks)
	if err == nil {
		t.Fatal("expected context timeout error but got nil")
	}
}

func TestWrap(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping hook wrapping tests on Windows")
	}

	r := &Runner{Logger: quietLogger()}

	t.Run("runs cycle between hooks", func(t *testing.T) {
		var got models.Cadence
		cycle := r.Wrap(HooksConfig{
			BeforeCycle: []HookConfig{{Command: "true", ErrorOnFail: true}},
			AfterCycle:  []HookConfig{{Command: "true", ErrorOnFail: true}},
		}, func(_ context.Context, c models.Cadence) error {
			got = c
			return nil
		})
		if err := cycle(context.Background(), models.CadenceDaily); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != models.CadenceDaily {
			t.Errorf("cycle not called with cadence, got %q", got)
		}
	})

	t.Run("failing before hook skips the cycle", func(t *testing.T) {
		called := false
		cycle := r.Wrap(HooksConfig{
			BeforeCycle: []HookConfig{{Command: "false", ErrorOnFail: true}},
		}, func(context.Context, models.Cadence) error {
			called = true
			return nil
		})
		if err := cycle(context.Background(), models.CadenceHourly); err == nil {
			t.Fatal("expected error from before_cycle hook")
		}
		if called {
			t.Error("cycle ran after a failing before_cycle hook")
		}
	})

	t.Run("after hooks run when the cycle fails", func(t *testing.T) {
		cycleErr := errors.New("store unavailable")
		cycle := r.Wrap(HooksConfig{
			AfterCycle: []HookConfig{{Command: "false", ErrorOnFail: true}},
		}, func(context.Context, models.Cadence) error {
			return cycleErr
		})
		err := cycle(context.Background(), models.CadenceHourly)
		if !errors.Is(err, cycleErr) {
			t.Fatalf("expected cycle error, got %v", err)
		}
		if !strings.Contains(err.Error(), "after_cycle") {
			t.Errorf("expected after_cycle error in %q", err)
		}
	})
}
