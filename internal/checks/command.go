package checks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/spboyer/checkerd/internal/models"
)

// defaultCommandTimeout applies to command checks without a timeout.
const defaultCommandTimeout = 30 * time.Second

// CommandCheckArgs holds the arguments for creating a command check.
type CommandCheckArgs struct {
	Name string `mapstructure:"-"`
	// Command is the program to execute.
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
	// Dir is the working directory. Empty means the daemon's.
	Dir     string            `mapstructure:"dir"`
	Env     map[string]string `mapstructure:"env"`
	Timeout time.Duration     `mapstructure:"timeout"`
}

// commandCheck runs a program and reports each non-empty stdout line as a
// failure. A non-zero exit with no stdout is reported as one failure with
// stderr as its subtext. The checker name is available to the program as
// CHECKERD_CHECKER.
type commandCheck struct {
	name    string
	command string
	args    []string
	dir     string
	env     []string
	timeout time.Duration
}

func NewCommandCheck(args CommandCheckArgs) (*commandCheck, error) {
	if args.Command == "" {
		return nil, fmt.Errorf("command check '%s' must have a 'command'", args.Name)
	}

	var env []string
	for k, v := range args.Env {
		env = append(env, k+"="+v)
	}

	return &commandCheck{
		name:    args.Name,
		command: args.Command,
		args:    args.Args,
		dir:     args.Dir,
		env:     env,
		timeout: timeoutOrDefault(args.Timeout, defaultCommandTimeout),
	}, nil
}

func (c *commandCheck) Name() string { return c.name }
func (c *commandCheck) Kind() Kind   { return KindCommand }

func (c *commandCheck) Run(ctx context.Context) ([]models.CheckerFailure, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(timeoutCtx, c.command, c.args...)
	cmd.Dir = c.dir
	cmd.Env = append(cmd.Environ(), "CHECKERD_CHECKER="+c.name)
	cmd.Env = append(cmd.Env, c.env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return nil, fmt.Errorf("running %s: %w", c.command, err)
	}
	if err != nil && timeoutCtx.Err() != nil {
		return nil, fmt.Errorf("running %s: %w", c.command, timeoutCtx.Err())
	}

	var failures []models.CheckerFailure
	for line := range strings.Lines(stdout.String()) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		failures = append(failures, models.NewFailure(line))
	}

	if len(failures) == 0 && exitErr != nil {
		f := models.NewFailure(fmt.Sprintf("%s exited with code %d", c.command, exitErr.ExitCode())).
			WithData(map[string]any{"exit_code": exitErr.ExitCode()})
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			f = f.WithSubtext(msg)
		}
		failures = append(failures, f)
	}
	return failures, nil
}
