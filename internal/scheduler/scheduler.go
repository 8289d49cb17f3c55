// Package scheduler runs checker cycles on their cadences: every ten
// minutes, hourly, and once a day at a fixed time of day.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spboyer/checkerd/internal/models"
)

// DefaultDailyAt is when daily checkers run.
var DefaultDailyAt = Clock{Hour: 9, Minute: 30}

// Clock is a time of day.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM".
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return Clock{}, fmt.Errorf("invalid time of day %q, expected HH:MM: %w", s, err)
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Next returns the first time after now at which cadence fires. Interval
// cadences are aligned to wall-clock boundaries, so hourly fires on the hour.
func Next(cadence models.Cadence, now time.Time, dailyAt Clock) time.Time {
	switch cadence {
	case models.CadenceEveryTenMinutes:
		return now.Truncate(10 * time.Minute).Add(10 * time.Minute)
	case models.CadenceDaily:
		next := time.Date(now.Year(), now.Month(), now.Day(), dailyAt.Hour, dailyAt.Minute, 0, 0, now.Location())
		if !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}
		return next
	default:
		return now.Truncate(time.Hour).Add(time.Hour)
	}
}

// CycleFunc runs every checker of one cadence.
type CycleFunc func(ctx context.Context, cadence models.Cadence) error

// Scheduler fires a CycleFunc for each cadence. At most one cycle per
// cadence runs at a time; a tick that arrives while that cadence's cycle
// is still running is dropped.
type Scheduler struct {
	cycle    CycleFunc
	cadences []models.Cadence
	dailyAt  Clock
	logger   *slog.Logger
	now      func() time.Time
	after    func(d time.Duration) <-chan time.Time
	runNow   bool

	busy    map[models.Cadence]*atomic.Bool
	dropped atomic.Int64
	cycles  atomic.Int64
	wg      sync.WaitGroup
}

type Option func(*Scheduler)

func WithDailyAt(c Clock) Option {
	return func(s *Scheduler) { s.dailyAt = c }
}

// WithCadences limits the scheduler to the given cadences.
func WithCadences(c ...models.Cadence) Option {
	return func(s *Scheduler) { s.cadences = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithRunNow starts one cycle of every scheduled cadence as soon as Run
// starts, before the first tick.
func WithRunNow() Option {
	return func(s *Scheduler) { s.runNow = true }
}

// WithClock replaces time.Now and time.After, for tests.
func WithClock(now func() time.Time, after func(time.Duration) <-chan time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
		s.after = after
	}
}

func New(cycle CycleFunc, opts ...Option) *Scheduler {
	s := &Scheduler{
		cycle:    cycle,
		cadences: models.Cadences,
		dailyAt:  DefaultDailyAt,
		logger:   slog.Default(),
		now:      time.Now,
		after:    time.After,
	}
	for _, o := range opts {
		o(s)
	}
	s.busy = make(map[models.Cadence]*atomic.Bool, len(s.cadences))
	for _, c := range s.cadences {
		s.busy[c] = &atomic.Bool{}
	}
	return s
}

// Run blocks until ctx is cancelled, then waits for running cycles to
// finish.
func (s *Scheduler) Run(ctx context.Context) error {
	var loops sync.WaitGroup
	for _, c := range s.cadences {
		loops.Add(1)
		go func() {
			defer loops.Done()
			s.loop(ctx, c)
		}()
	}
	s.logger.Info("scheduler started", "cadences", s.cadences, "daily_at", s.dailyAt.String())

	if s.runNow && ctx.Err() == nil {
		for _, c := range s.cadences {
			s.Trigger(ctx, c)
		}
	}

	loops.Wait()
	s.wg.Wait()
	s.logger.Info("scheduler stopped", "cycles", s.cycles.Load(), "dropped", s.dropped.Load())
	return nil
}

func (s *Scheduler) loop(ctx context.Context, cadence models.Cadence) {
	for {
		now := s.now()
		wait := Next(cadence, now, s.dailyAt).Sub(now)
		select {
		case <-ctx.Done():
			return
		case <-s.after(wait):
			s.Trigger(ctx, cadence)
		}
	}
}

// Trigger starts a cycle for cadence unless one is already running. It
// reports whether a cycle was started.
func (s *Scheduler) Trigger(ctx context.Context, cadence models.Cadence) bool {
	busy, ok := s.busy[cadence]
	if !ok {
		return false
	}
	if !busy.CompareAndSwap(false, true) {
		s.dropped.Add(1)
		s.logger.Warn("previous cycle still running, dropping tick", "cadence", cadence)
		return false
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer busy.Store(false)

		start := s.now()
		s.cycles.Add(1)
		if err := s.cycle(ctx, cadence); err != nil {
			s.logger.Error("checker cycle failed", "cadence", cadence, "error", err)
			return
		}
		s.logger.Debug("checker cycle finished", "cadence", cadence, "duration", s.now().Sub(start))
	}()
	return true
}

// Dropped returns how many ticks were dropped because a cycle was running.
func (s *Scheduler) Dropped() int64 { return s.dropped.Load() }

// Cycles returns how many cycles were started.
func (s *Scheduler) Cycles() int64 { return s.cycles.Load() }
