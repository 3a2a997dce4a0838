// Package sched provides the fixed-rate execution driver for simulation and
// logging loops.
package sched

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"talon/internal/stats"
)

// ErrInvalidRate is returned when a task is constructed with a non-positive
// rate.
var ErrInvalidRate = errors.New("periodic task rate must be positive")

// WorkFunc is the user work function invoked once per tick with the delta
// time in seconds. A returned error is logged; it never stops the loop.
type WorkFunc func(dt float64) error

// Option configures a PeriodicTask.
type Option func(*PeriodicTask)

// WithLogger sets the diagnostic logger.
func WithLogger(l *zap.Logger) Option {
	return func(t *PeriodicTask) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithVariableDeltaTime enables overrun-adjusted delta time from the start.
func WithVariableDeltaTime(enable bool) Option {
	return func(t *PeriodicTask) { t.vdt.Store(enable) }
}

// WithPriority records a scheduling priority hint. The Go runtime does not
// expose thread priorities, so the hint is diagnostic only.
func WithPriority(p int) Option {
	return func(t *PeriodicTask) { t.priority = p }
}

// PeriodicTask invokes a work function at a fixed rate on its own goroutine.
//
// By default the work function always receives 1/rate as its delta time, so
// the driven model stays temporally deterministic regardless of scheduling
// jitter. When variable delta time is enabled, the tick after an overrun
// receives the true elapsed time instead. Every overrun is counted and its
// magnitude (actual - budget, seconds) is recorded in the busted-frame
// statistic.
type PeriodicTask struct {
	name     string
	rate     float64
	period   time.Duration
	priority int
	fn       WorkFunc
	logger   *zap.Logger

	vdt      atomic.Bool
	frames   atomic.Uint64
	overruns atomic.Uint64
	busted   stats.Statistic

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
	running   atomic.Bool
}

// New creates a task that will call fn at rateHz ticks per second once
// started. A non-positive rate is rejected at construction.
func New(name string, rateHz float64, fn WorkFunc, opts ...Option) (*PeriodicTask, error) {
	if rateHz <= 0 {
		return nil, ErrInvalidRate
	}
	if fn == nil {
		return nil, errors.New("periodic task work function is required")
	}
	t := &PeriodicTask{
		name:   name,
		rate:   rateHz,
		period: time.Duration(float64(time.Second) / rateHz),
		fn:     fn,
		logger: zap.NewNop(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Start launches the tick loop. Subsequent calls are no-ops.
func (t *PeriodicTask) Start(ctx context.Context) {
	t.startOnce.Do(func() {
		runCtx, cancel := context.WithCancel(ctx)
		t.cancel = cancel
		t.running.Store(true)
		t.logger.Info("periodic task started",
			zap.String("task", t.name),
			zap.Float64("rate_hz", t.rate),
			zap.Duration("period", t.period),
			zap.Int("priority", t.priority),
		)
		go t.run(runCtx)
	})
}

// Stop requests cooperative shutdown and waits for the loop to exit. The
// in-flight tick, if any, completes first; that is the bounded-latency
// guarantee, not a defect.
func (t *PeriodicTask) Stop() {
	t.stopOnce.Do(func() {
		if t.cancel != nil {
			t.cancel()
		}
	})
	if t.cancel != nil {
		<-t.done
	}
}

func (t *PeriodicTask) run(ctx context.Context) {
	defer close(t.done)
	defer t.running.Store(false)

	start := time.Now()
	nominal := 1.0 / t.rate
	dt := nominal

	for {
		frameStart := time.Now()
		if err := t.fn(dt); err != nil {
			// A bad frame never stops the periodic loop.
			t.logger.Warn("frame work failed",
				zap.String("task", t.name),
				zap.Uint64("frame", t.frames.Load()),
				zap.Error(err),
			)
		}
		t.frames.Add(1)

		elapsed := time.Since(frameStart)
		dt = nominal
		if elapsed > t.period {
			overrun := (elapsed - t.period).Seconds()
			t.busted.Add(overrun)
			t.overruns.Add(1)
			if t.vdt.Load() {
				dt = elapsed.Seconds()
			}
			// The slack is gone; fall through to the shutdown check without
			// sleeping so the next frame starts immediately.
			select {
			case <-ctx.Done():
				t.exit(start)
				return
			default:
			}
			continue
		}

		timer := time.NewTimer(t.period - elapsed)
		select {
		case <-ctx.Done():
			timer.Stop()
			t.exit(start)
			return
		case <-timer.C:
		}
	}
}

func (t *PeriodicTask) exit(start time.Time) {
	t.logger.Info("periodic task stopped",
		zap.String("task", t.name),
		zap.Uint64("frames", t.frames.Load()),
		zap.Uint64("overruns", t.overruns.Load()),
		zap.Duration("uptime", time.Since(start)),
	)
}

// Name returns the task name.
func (t *PeriodicTask) Name() string { return t.name }

// Rate returns the configured rate in Hz.
func (t *PeriodicTask) Rate() float64 { return t.rate }

// TotalFrames returns the number of completed ticks.
func (t *PeriodicTask) TotalFrames() uint64 { return t.frames.Load() }

// Overruns returns the number of busted frames.
func (t *PeriodicTask) Overruns() uint64 { return t.overruns.Load() }

// BustedFrameStats exposes the overrun-magnitude statistic. It is safe to
// read while the tick loop is running.
func (t *PeriodicTask) BustedFrameStats() *stats.Statistic { return &t.busted }

// VariableDeltaTimeEnabled reports whether overrun-adjusted delta time is on.
func (t *PeriodicTask) VariableDeltaTimeEnabled() bool { return t.vdt.Load() }

// SetVariableDeltaTime toggles overrun-adjusted delta time.
func (t *PeriodicTask) SetVariableDeltaTime(enable bool) { t.vdt.Store(enable) }

// Running reports whether the tick loop is active.
func (t *PeriodicTask) Running() bool { return t.running.Load() }
