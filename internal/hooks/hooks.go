// Package hooks runs user-configured commands before and after each
// checker cycle, for example to warm a cache or to push a heartbeat.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"slices"
	"strings"

	"github.com/spboyer/checkerd/internal/models"
)

// HookConfig defines a single hook command.
type HookConfig struct {
	Command          string `yaml:"command" json:"command"`
	WorkingDirectory string `yaml:"working_directory,omitempty" json:"working_directory,omitempty"`
	ExitCodes        []int  `yaml:"exit_codes,omitempty" json:"exit_codes,omitempty"`
	ErrorOnFail      bool   `yaml:"error_on_fail,omitempty" json:"error_on_fail,omitempty"`
}

// HooksConfig holds the cycle hooks.
type HooksConfig struct {
	BeforeCycle []HookConfig `yaml:"before_cycle,omitempty" json:"before_cycle,omitempty"`
	AfterCycle  []HookConfig `yaml:"after_cycle,omitempty" json:"after_cycle,omitempty"`
}

// Runner executes hook commands at cycle boundaries.
type Runner struct {
	Logger *slog.Logger
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

// Execute runs all hooks for a given lifecycle point.
// name identifies the lifecycle point (e.g. "before_cycle") for logging and error context.
func (r *Runner) Execute(ctx context.Context, name string, hooks []HookConfig) error {
	for i, h := range hooks {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("hook %s: context canceled: %w", name, err)
		}

		if err := r.runHook(ctx, name, i, h); err != nil {
			return err
		}
	}
	return nil
}

// Wrap returns a cycle function that runs the before_cycle hooks, then
// cycle, then the after_cycle hooks. A failing before_cycle hook with
// error_on_fail skips the cycle. after_cycle hooks run even when the
// cycle returns an error.
func (r *Runner) Wrap(cfg HooksConfig, cycle func(ctx context.Context, cadence models.Cadence) error) func(ctx context.Context, cadence models.Cadence) error {
	return func(ctx context.Context, cadence models.Cadence) error {
		if err := r.Execute(ctx, "before_cycle", cfg.BeforeCycle); err != nil {
			return err
		}
		cycleErr := cycle(ctx, cadence)
		afterErr := r.Execute(ctx, "after_cycle", cfg.AfterCycle)
		return errors.Join(cycleErr, afterErr)
	}
}

func (r *Runner) runHook(ctx context.Context, name string, index int, h HookConfig) error {
	if strings.TrimSpace(h.Command) == "" {
		return fmt.Errorf("hook %s[%d]: empty command", name, index)
	}

	parts := strings.Fields(h.Command)
	//nolint:gosec // hook commands come from the operator's .checkerd.yaml, not untrusted input
	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)

	if h.WorkingDirectory != "" {
		cmd.Dir = h.WorkingDirectory
	}

	output, err := cmd.CombinedOutput()

	logger := r.logger().With("hook", name, "index", index)
	if len(output) > 0 {
		logger.Debug("hook output", "output", strings.TrimSpace(string(output)))
	}

	if err != nil {
		var exitErr *exec.ExitError
		if ok := errors.As(err, &exitErr); ok {
			exitCode := exitErr.ExitCode()

			if !isAcceptableExit(exitCode, h.ExitCodes) {
				if h.ErrorOnFail {
					return fmt.Errorf("hook %s[%d]: command exited with code %d", name, index, exitCode)
				}
				logger.Warn("hook exited with unexpected code, continuing", "exit_code", exitCode)
			}
		} else {
			// Non-exit error (e.g. command not found)
			if h.ErrorOnFail {
				return fmt.Errorf("hook %s[%d]: %w", name, index, err)
			}
			logger.Warn("hook failed, continuing", "error", err)
		}
		return nil
	}

	// err == nil means exit code 0; verify 0 is acceptable
	if !isAcceptableExit(0, h.ExitCodes) {
		if h.ErrorOnFail {
			return fmt.Errorf("hook %s[%d]: command exited with code 0 but expected %v", name, index, h.ExitCodes)
		}
		logger.Warn("hook exited with code 0 but other codes were expected, continuing", "expected", h.ExitCodes)
	}

	return nil
}

// isAcceptableExit checks whether exitCode is in the allowed list.
// An empty allowedCodes list defaults to allowing only exit code 0.
func isAcceptableExit(exitCode int, allowedCodes []int) bool {
	if len(allowedCodes) == 0 {
		return exitCode == 0
	}
	return slices.Contains(allowedCodes, exitCode)
}
