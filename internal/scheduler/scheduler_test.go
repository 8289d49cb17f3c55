package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spboyer/checkerd/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestParseClock(t *testing.T) {
	c, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, DefaultDailyAt, c)
	assert.Equal(t, "09:30", c.String())

	_, err = ParseClock("9.30am")
	require.Error(t, err)
}

func TestNext(t *testing.T) {
	at := func(h, m, s int) time.Time { return time.Date(2026, 3, 1, h, m, s, 0, time.UTC) }

	tests := []struct {
		name    string
		cadence models.Cadence
		now     time.Time
		want    time.Time
	}{
		{"ten minutes aligns to boundary", models.CadenceEveryTenMinutes, at(9, 4, 10), at(9, 10, 0)},
		{"ten minutes on boundary moves on", models.CadenceEveryTenMinutes, at(9, 10, 0), at(9, 20, 0)},
		{"hourly on the hour", models.CadenceHourly, at(9, 59, 59), at(10, 0, 0)},
		{"daily later today", models.CadenceDaily, at(8, 0, 0), at(9, 30, 0)},
		{"daily at exactly the time is tomorrow", models.CadenceDaily, at(9, 30, 0), time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)},
		{"daily after the time is tomorrow", models.CadenceDaily, at(18, 0, 0), time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Next(tt.cadence, tt.now, DefaultDailyAt))
		})
	}
}

func TestScheduler_DropsTicksWhileCycleRuns(t *testing.T) {
	ticks := make(chan time.Time)
	release := make(chan struct{})
	started := make(chan struct{}, 10)

	var runs atomic.Int32
	cycle := func(ctx context.Context, cadence models.Cadence) error {
		assert.Equal(t, models.CadenceHourly, cadence)
		n := runs.Add(1)
		select {
		case started <- struct{}{}:
		default:
		}
		if n == 1 {
			<-release
		}
		return nil
	}

	s := New(cycle, quiet(), WithCadences(models.CadenceHourly),
		WithClock(time.Now, func(time.Duration) <-chan time.Time { return ticks }))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	ticks <- time.Now()
	<-started

	// Both ticks arrive while the first cycle is blocked.
	ticks <- time.Now()
	ticks <- time.Now()
	require.Eventually(t, func() bool { return s.Dropped() >= 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())

	close(release)
	require.Eventually(t, func() bool {
		select {
		case ticks <- time.Now():
		default:
		}
		return runs.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.GreaterOrEqual(t, s.Dropped(), int64(1))
	assert.GreaterOrEqual(t, s.Cycles(), int64(2))
}

func TestScheduler_TriggerAndErrors(t *testing.T) {
	var runs atomic.Int32
	s := New(func(context.Context, models.Cadence) error {
		runs.Add(1)
		return errors.New("store unavailable")
	}, quiet(), WithCadences(models.CadenceDaily))

	assert.False(t, s.Trigger(context.Background(), models.CadenceHourly), "unscheduled cadence")
	assert.True(t, s.Trigger(context.Background(), models.CadenceDaily))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, s.Run(ctx))
	assert.Equal(t, int32(1), runs.Load())
}

func TestScheduler_StopsOnCancel(t *testing.T) {
	s := New(func(context.Context, models.Cadence) error { return nil }, quiet())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Zero(t, s.Cycles())
}

func TestScheduler_RunNow(t *testing.T) {
	never := func(time.Duration) <-chan time.Time { return nil }
	started := make(chan models.Cadence, 2)
	release := make(chan struct{})
	var finished atomic.Int32
	cycle := func(ctx context.Context, cadence models.Cadence) error {
		started <- cadence
		<-release
		finished.Add(1)
		return nil
	}

	s := New(cycle, quiet(), WithRunNow(),
		WithCadences(models.CadenceHourly, models.CadenceDaily),
		WithClock(time.Now, never))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	got := []models.Cadence{<-started, <-started}
	assert.ElementsMatch(t, []models.Cadence{models.CadenceHourly, models.CadenceDaily}, got)

	// Run waits for the startup cycles after cancellation.
	cancel()
	select {
	case <-done:
		t.Fatal("Run returned while startup cycles were running")
	case <-time.After(20 * time.Millisecond):
	}
	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, int32(2), finished.Load())
	assert.Equal(t, int64(2), s.Cycles())
}

func TestScheduler_RunNowCancelled(t *testing.T) {
	s := New(func(context.Context, models.Cadence) error { return nil }, quiet(), WithRunNow())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, s.Run(ctx))
	assert.Zero(t, s.Cycles())
}
