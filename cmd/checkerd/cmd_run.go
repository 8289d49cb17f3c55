package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spboyer/checkerd/internal/models"
	"github.com/spboyer/checkerd/internal/registry"
	"github.com/spboyer/checkerd/internal/reporting"
	"github.com/spboyer/checkerd/internal/runner"
	"github.com/spboyer/checkerd/internal/store"
	"github.com/spf13/cobra"
)

func newRunCommand() *cobra.Command {
	var failing bool

	cmd := &cobra.Command{
		Use:   "run [name...]",
		Short: "Run checkers now and record the results",
		Long: `Run the named checkers immediately, record their runs and update their
status exactly as a scheduled run would.

With --failing, every checker whose stored status is failing or errored is
run again, which is the quickest way to confirm a fix.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if failing && len(args) > 0 {
				return fmt.Errorf("--failing does not take checker names")
			}
			if !failing && len(args) == 0 {
				return fmt.Errorf("name at least one checker, or pass --failing")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck

			st, err := a.openStore()
			if err != nil {
				return err
			}

			var regs []registry.Registration
			if failing {
				regs, err = failingRegistrations(a.reg, st)
			} else {
				regs, err = namedRegistrations(a.reg, args)
			}
			if err != nil {
				return err
			}
			if len(regs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No failing checkers.") //nolint:errcheck
				return nil
			}

			collected := &runCollector{}
			r, err := a.newRunner(st, runner.WithRunObservers(collected))
			if err != nil {
				return err
			}

			summary, err := r.RunRegistrations(cmd.Context(), regs, r.Sink())
			printRuns(cmd.OutOrStdout(), collected.runs())
			if err != nil {
				return err
			}
			return summaryError(summary)
		},
	}

	cmd.Flags().BoolVar(&failing, "failing", false, "Run every checker that is currently failing or errored")
	return cmd
}

func namedRegistrations(reg *registry.Registry, names []string) ([]registry.Registration, error) {
	regs := make([]registry.Registration, 0, len(names))
	var unknown []string
	for _, name := range names {
		r, ok := reg.Get(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		regs = append(regs, r)
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown checker(s): %s", strings.Join(unknown, ", "))
	}
	return regs, nil
}

// failingRegistrations returns the registered checkers whose stored status
// is failing or errored, in registration order.
func failingRegistrations(reg *registry.Registry, st store.Store) ([]registry.Registration, error) {
	checkers, err := st.ListCheckers()
	if err != nil {
		return nil, err
	}
	bad := map[string]bool{}
	for _, c := range checkers {
		if c.Status == models.CheckerStatusFailing || c.Status == models.CheckerStatusErrored {
			bad[c.Name] = true
		}
	}

	var regs []registry.Registration
	for _, r := range reg.All() {
		if bad[r.Name] {
			regs = append(regs, r)
		}
	}
	return regs, nil
}

// runCollector records every run a command persisted, for printing.
type runCollector struct {
	mu   sync.Mutex
	list []*models.CheckerRun
}

func (c *runCollector) RunCompleted(_ context.Context, run *models.CheckerRun) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.list = append(c.list, run)
	return nil
}

func (c *runCollector) runs() []*models.CheckerRun {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*models.CheckerRun(nil), c.list...)
}

func printRuns(w io.Writer, runs []*models.CheckerRun) {
	for _, run := range runs {
		fmt.Fprintf(w, "%s: %s", run.Checker, run.Status) //nolint:errcheck
		if n := len(run.Failures); n > 0 {
			fmt.Fprintf(w, " (%d failure(s))", n) //nolint:errcheck
		}
		if run.Attempts > 1 {
			fmt.Fprintf(w, " after %d attempts", run.Attempts) //nolint:errcheck
		}
		fmt.Fprintln(w) //nolint:errcheck
		for _, f := range run.Failures {
			fmt.Fprintf(w, "  - %s\n", f.Text) //nolint:errcheck
		}
		if exc := run.Exception(); exc != "" {
			first, _, _ := strings.Cut(exc, "\n")
			fmt.Fprintf(w, "  ! %s\n", first) //nolint:errcheck
		}
	}
}

// summaryError turns an unhealthy summary into a CheckerFailureError.
func summaryError(s *models.Summary) error {
	if s.Healthy() {
		return nil
	}
	return &CheckerFailureError{Message: reporting.InterpretSummary(s)}
}
