// Package runner invokes registered checkers, records their runs, drives
// the checker status machine and forwards failures to a sink.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spboyer/checkerd/internal/models"
	"github.com/spboyer/checkerd/internal/overrides"
	"github.com/spboyer/checkerd/internal/registry"
	"github.com/spboyer/checkerd/internal/store"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultTimeout bounds a single checker attempt.
	DefaultTimeout = time.Hour

	// DefaultMaxFailures caps the failures kept per run. Checkers that scan
	// every row of a table can otherwise flood the store and the sink.
	DefaultMaxFailures = 100
)

//go:generate go tool mockgen -source=runner.go -destination=runner_mocks_test.go -package=runner

// Sink receives every failure found during a run cycle.
type Sink interface {
	Notify(ctx context.Context, checker string, failure models.CheckerFailure) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, checker string, failure models.CheckerFailure) error

func (f SinkFunc) Notify(ctx context.Context, checker string, failure models.CheckerFailure) error {
	return f(ctx, checker, failure)
}

// Transition is passed to TransitionHandlers when a checker's persisted
// status changes.
type Transition struct {
	models.StatusTransition
	// State is the checker as saved after the change.
	State models.Checker
	Run   *models.CheckerRun
}

// TransitionHandler reacts to checker status changes.
type TransitionHandler interface {
	HandleTransition(ctx context.Context, t Transition) error
}

// RunObserver is told about every persisted run once it completes.
type RunObserver interface {
	RunCompleted(ctx context.Context, run *models.CheckerRun) error
}

// Runner runs checkers against a store.
type Runner struct {
	store       store.Store
	sink        Sink
	handlers    []TransitionHandler
	observers   []RunObserver
	logger      *slog.Logger
	timeout     time.Duration
	maxFailures int
	workers     int
	killswitch  bool
	disabled    []string
	now         func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithSink sets the sink used by RunCadence.
func WithSink(s Sink) Option {
	return func(r *Runner) { r.sink = s }
}

// WithTransitionHandlers adds handlers called on status changes.
func WithTransitionHandlers(h ...TransitionHandler) Option {
	return func(r *Runner) { r.handlers = append(r.handlers, h...) }
}

// WithRunObservers adds observers called after each persisted run.
func WithRunObservers(o ...RunObserver) Option {
	return func(r *Runner) { r.observers = append(r.observers, o...) }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithTimeout bounds each checker attempt. Zero keeps DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithMaxFailures caps the failures kept per run. Zero keeps DefaultMaxFailures.
func WithMaxFailures(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.maxFailures = n
		}
	}
}

// WithWorkers runs up to n checkers at once. The default of 1 runs them
// sequentially, which is the safe choice for checkers that query shared
// resources.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithKillswitch makes RunCadence a no-op when disabled is true.
func WithKillswitch(disabled bool) Option {
	return func(r *Runner) { r.killswitch = disabled }
}

// WithDisabled skips the named checkers in RunCadence.
func WithDisabled(names ...string) Option {
	return func(r *Runner) { r.disabled = append(r.disabled, names...) }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// New returns a Runner backed by st. A nil store uses a fresh MemoryStore.
func New(st store.Store, opts ...Option) *Runner {
	if st == nil {
		st = store.NewMemoryStore()
	}
	r := &Runner{
		store:       st,
		logger:      slog.Default(),
		timeout:     DefaultTimeout,
		maxFailures: DefaultMaxFailures,
		workers:     1,
		now:         time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Store returns the store the runner writes to.
func (r *Runner) Store() store.Store { return r.store }

// Sink returns the sink set with WithSink, or nil.
func (r *Runner) Sink() Sink { return r.sink }

// RunOnce invokes every checker in reg once, in registration order, and
// passes each failure it reports to sink. A checker that errors is
// recorded and does not stop the cycle. The returned error is only
// non-nil when ctx is cancelled before the cycle finishes; the summary
// then covers the checkers that ran.
func RunOnce(ctx context.Context, reg *registry.Registry, sink Sink) (*models.Summary, error) {
	return New(nil).RunOnce(ctx, reg, sink)
}

// RunOnce is the method form of the package-level RunOnce, using the
// runner's store and handlers.
func (r *Runner) RunOnce(ctx context.Context, reg *registry.Registry, sink Sink) (*models.Summary, error) {
	return r.run(ctx, reg.All(), sink)
}

// RunCadence runs the enabled checkers of cadence through the runner's sink.
func (r *Runner) RunCadence(ctx context.Context, reg *registry.Registry, cadence models.Cadence) (*models.Summary, error) {
	if r.killswitch {
		r.logger.Info("checkers disabled", "cadence", cadence)
		return &models.Summary{}, nil
	}
	regs := reg.ForCadence(cadence, r.disabled)
	r.logger.Info("running checkers", "cadence", cadence, "count", len(regs))
	return r.run(ctx, regs, r.sink)
}

// RunRegistrations runs an explicit list of registrations, in order.
func (r *Runner) RunRegistrations(ctx context.Context, regs []registry.Registration, sink Sink) (*models.Summary, error) {
	return r.run(ctx, regs, sink)
}

func (r *Runner) run(ctx context.Context, regs []registry.Registration, sink Sink) (*models.Summary, error) {
	start := r.now()
	summary := &models.Summary{}
	defer func() { summary.Duration = r.now().Sub(start) }()

	if r.workers <= 1 || len(regs) <= 1 {
		for _, reg := range regs {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			run := r.runForSummary(ctx, reg)
			summary.Add(run)
			r.deliver(ctx, sink, run, summary)
		}
		return summary, nil
	}

	runs := make([]*models.CheckerRun, len(regs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, reg := range regs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			runs[i] = r.runForSummary(gctx, reg)
			return nil
		})
	}
	err := g.Wait()

	// Deliver in registration order so sink output is deterministic.
	for _, run := range runs {
		if run == nil {
			continue
		}
		summary.Add(run)
		r.deliver(ctx, sink, run, summary)
	}
	return summary, err
}

// runForSummary runs reg and turns store errors into an errored run so
// the cycle can continue.
func (r *Runner) runForSummary(ctx context.Context, reg registry.Registration) *models.CheckerRun {
	run, err := r.RunChecker(ctx, reg)
	if err == nil {
		return run
	}
	r.logger.Error("checker run not recorded", "name", reg.Name, "error", err)
	if run == nil {
		run = &models.CheckerRun{Checker: reg.Name, CreatedAt: r.now().UTC()}
	}
	run.Status = models.RunStatusErrored
	if run.Data == nil {
		run.Data = map[string]any{}
	}
	run.Data[models.RunDataException] = err.Error()
	return run
}

func (r *Runner) deliver(ctx context.Context, sink Sink, run *models.CheckerRun, summary *models.Summary) {
	if sink == nil {
		return
	}
	for _, f := range run.Failures {
		if err := sink.Notify(ctx, run.Checker, f); err != nil {
			derr := &SinkDeliveryError{Checker: run.Checker, Failure: f.Text, Err: err}
			r.logger.Warn("sink delivery failed", "name", run.Checker, "error", derr)
			summary.SinkErrors++
			continue
		}
		summary.FailuresReported++
	}
}

// RunChecker runs one checker, persists the run and updates the
// checker's status. Checker errors are reported through the run's status;
// the returned error is only non-nil when the store fails.
func (r *Runner) RunChecker(ctx context.Context, reg registry.Registration) (*models.CheckerRun, error) {
	return r.runChecker(ctx, reg, false)
}

// DryRun runs one checker without writing anything to the store and
// without updating status or notifying handlers.
func (r *Runner) DryRun(ctx context.Context, reg registry.Registration) (*models.CheckerRun, error) {
	return r.runChecker(ctx, reg, true)
}

func (r *Runner) runChecker(ctx context.Context, reg registry.Registration, dry bool) (*models.CheckerRun, error) {
	logger := r.logger.With("name", reg.Name)
	logger.Info("checker started", "dry_run", dry)

	var checker *models.Checker
	if !dry {
		var err error
		checker, err = r.store.GetOrCreateChecker(reg.Name, reg.Section)
		if err != nil {
			return nil, fmt.Errorf("loading checker %q: %w", reg.Name, err)
		}
		if err := r.syncMetadata(checker, reg); err != nil {
			return nil, err
		}
	}

	run := &models.CheckerRun{
		Checker:   reg.Name,
		Status:    models.RunStatusInProgress,
		CreatedAt: r.now().UTC(),
		DryRun:    dry,
	}
	if !dry {
		if err := r.store.CreateRun(run); err != nil {
			return nil, fmt.Errorf("creating run for %q: %w", reg.Name, err)
		}
	}

	list, err := r.store.Overrides(reg.Name)
	if err != nil {
		return run, fmt.Errorf("loading overrides for %q: %w", reg.Name, err)
	}

	failures, attempts, execErr := r.execute(ctx, reg, list)
	run.Attempts = attempts

	switch {
	case execErr != nil:
		logger.Info("checker errored", "error", execErr)
		run.Data = map[string]any{models.RunDataException: execErr.Detail()}
		run.Complete(models.RunStatusErrored, r.now().UTC())
	case len(failures) > 0:
		for i := range failures {
			failures[i].RunID = run.ID
			if failures[i].ID == "" && run.ID != "" {
				failures[i].ID = fmt.Sprintf("%s-%d", run.ID, i)
			}
		}
		run.Failures = failures
		run.Complete(models.RunStatusFailed, r.now().UTC())
		logger.Info("checker failed", "failures", len(failures), "attempts", attempts)
	default:
		run.Complete(models.RunStatusSucceeded, r.now().UTC())
		logger.Info("checker succeeded", "attempts", attempts)
	}

	if dry {
		return run, nil
	}

	if err := r.store.SaveRun(run); err != nil {
		return run, fmt.Errorf("saving run for %q: %w", reg.Name, err)
	}
	if err := r.updateStatus(ctx, checker, run); err != nil {
		return run, err
	}
	for _, o := range r.observers {
		if err := o.RunCompleted(ctx, run); err != nil {
			logger.Warn("run observer failed", "run_id", run.ID, "error", err)
		}
	}
	return run, nil
}

// execute calls the checker up to reg.Tries times, stopping at the first
// attempt with no relevant failures. It returns the last attempt's
// relevant failures, capped at maxFailures.
func (r *Runner) execute(ctx context.Context, reg registry.Registration, list []models.Override) ([]models.CheckerFailure, int, *CheckerExecutionError) {
	tries := max(reg.Tries, 1)

	var collected []models.CheckerFailure
	attempt := 0
	for attempt < tries {
		attempt++
		got, err := r.invoke(ctx, reg, attempt)
		if err != nil {
			return nil, attempt, err
		}

		collected = collected[:0]
		for _, f := range got {
			if !overrides.IsRelevant(f, reg.Name, list) {
				continue
			}
			collected = append(collected, f)
			if len(collected) >= r.maxFailures {
				break
			}
		}
		if len(collected) == 0 {
			return nil, attempt, nil
		}
		r.logger.Debug("checker attempt failed", "name", reg.Name, "attempt", attempt, "tries", tries)
	}
	return collected, attempt, nil
}

type invokeResult struct {
	failures []models.CheckerFailure
	err      *CheckerExecutionError
}

// invoke runs one attempt under the timeout. The checker runs on its own
// goroutine so a checker that ignores ctx still times out.
func (r *Runner) invoke(ctx context.Context, reg registry.Registration, attempt int) ([]models.CheckerFailure, *CheckerExecutionError) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	done := make(chan invokeResult, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- invokeResult{err: &CheckerExecutionError{
					Checker: reg.Name,
					Attempt: attempt,
					Err:     fmt.Errorf("panic: %v", p),
					Panic:   p,
					Stack:   debug.Stack(),
				}}
			}
		}()
		failures, err := reg.Func(ctx)
		if err != nil {
			done <- invokeResult{err: &CheckerExecutionError{Checker: reg.Name, Attempt: attempt, Err: err}}
			return
		}
		done <- invokeResult{failures: failures}
	}()

	select {
	case res := <-done:
		return res.failures, res.err
	case <-ctx.Done():
		return nil, &CheckerExecutionError{Checker: reg.Name, Attempt: attempt, Err: ctx.Err()}
	}
}

// syncMetadata persists description, owner, severity and cadence changes made
// to the registration since the previous run.
func (r *Runner) syncMetadata(c *models.Checker, reg registry.Registration) error {
	changed := false
	if c.Description != reg.Description {
		if c.Description != "" {
			dmp := diffmatchpatch.New()
			diffs := dmp.DiffMain(c.Description, reg.Description, false)
			r.logger.Debug("checker description changed", "name", c.Name,
				"patch", dmp.PatchToText(dmp.PatchMake(c.Description, diffs)))
		}
		c.Description = reg.Description
		changed = true
	}
	if reg.Owner != "" && c.Owner != reg.Owner {
		c.Owner = reg.Owner
		changed = true
	}
	if reg.Severity != "" && c.Severity != reg.Severity {
		c.Severity = reg.Severity
		changed = true
	}
	if reg.Cadence != "" && c.Cadence != reg.Cadence {
		c.Cadence = reg.Cadence
		changed = true
	}
	if !changed {
		return nil
	}
	if err := r.store.SaveChecker(c); err != nil {
		return fmt.Errorf("saving checker %q: %w", c.Name, err)
	}
	return nil
}

var statusForRun = map[models.RunStatus]models.CheckerStatus{
	models.RunStatusFailed:    models.CheckerStatusFailing,
	models.RunStatusSucceeded: models.CheckerStatusSucceeding,
	models.RunStatusErrored:   models.CheckerStatusErrored,
}

// updateStatus moves the checker to the status implied by run. Status is
// only written once the run and its failures are persisted, so handlers
// always see the complete run.
func (r *Runner) updateStatus(ctx context.Context, c *models.Checker, run *models.CheckerRun) error {
	if c.Status == models.CheckerStatusIgnored {
		return nil
	}

	next, ok := statusForRun[run.Status]
	if !ok {
		next = models.CheckerStatusErrored
	}

	now := r.now().UTC()
	old := c.Status

	_, err := r.store.LatestRun(c.Name, run.ID)
	firstRun := err != nil || old == models.CheckerStatusNew
	if firstRun || next != old {
		c.LatestStatusChange = &now
	}
	c.Status = next
	c.LatestRunDate = &now

	if err := r.store.SaveChecker(c); err != nil {
		return fmt.Errorf("saving checker %q: %w", c.Name, err)
	}
	if next == old {
		return nil
	}

	t := models.StatusTransition{Checker: c.Name, From: old, To: next, RunID: run.ID, At: now}
	if err := r.store.RecordTransition(t); err != nil {
		r.logger.Warn("recording transition failed", "name", c.Name, "error", err)
	}
	r.logger.Info("checker status changed", "name", c.Name, "from", old, "to", next)
	r.notifyTransition(ctx, Transition{StatusTransition: t, State: *c, Run: run})
	return nil
}

func (r *Runner) notifyTransition(ctx context.Context, t Transition) {
	var wg sync.WaitGroup
	for _, h := range r.handlers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := h.HandleTransition(ctx, t); err != nil {
				r.logger.Warn("transition handler failed", "name", t.Checker, "to", t.To, "error", err)
			}
		}()
	}
	wg.Wait()
}
