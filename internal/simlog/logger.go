package simlog

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"talon/internal/queue"
)

// TimeSource selects which timeline advances the logger's authoritative
// current time.
type TimeSource int

const (
	SourceExec TimeSource = iota // engine real time
	SourceSim                    // simulated time
	SourceUTC                    // wall-clock UTC seconds of day
)

// ErrInvalidTimeSource is returned for an unrecognized timeline name.
var ErrInvalidTimeSource = errors.New("invalid time source")

// ParseTimeSource maps a configuration string to a TimeSource.
func ParseTimeSource(s string) (TimeSource, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "exec":
		return SourceExec, nil
	case "sim":
		return SourceSim, nil
	case "utc":
		return SourceUTC, nil
	default:
		return SourceUTC, fmt.Errorf("%w: %q", ErrInvalidTimeSource, s)
	}
}

func (ts TimeSource) String() string {
	switch ts {
	case SourceExec:
		return "exec"
	case SourceSim:
		return "sim"
	case SourceUTC:
		return "utc"
	default:
		return "unknown"
	}
}

// State is the logger lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateActive
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Clock supplies the exec and sim timelines, in seconds. The simulation owns
// both; the logger only reads them once per tick.
type Clock interface {
	ExecSeconds() float64
	SimSeconds() float64
}

// wallClock backs a logger that was given no Clock: both timelines run on
// wall time since construction.
type wallClock struct {
	start time.Time
}

func (c wallClock) ExecSeconds() float64 { return time.Since(c.start).Seconds() }
func (c wallClock) SimSeconds() float64  { return time.Since(c.start).Seconds() }

// Config controls an EventLogger.
type Config struct {
	Source        TimeSource
	IncludeExec   bool
	IncludeSim    bool
	IncludeUTC    bool
	QueueCapacity int
	Sink          Sink
	Clock         Clock
	Logger        *zap.Logger
}

// DefaultConfig mirrors the historical defaults: UTC timeline, every
// timestamp column rendered, queue capacity 1000.
func DefaultConfig() Config {
	return Config{
		Source:        SourceUTC,
		IncludeExec:   true,
		IncludeSim:    true,
		IncludeUTC:    true,
		QueueCapacity: queue.DefaultCapacity,
	}
}

// EventLogger owns the bounded event queue and renders drained events to its
// sink. Producers call Log from any thread; Tick runs on exactly one
// consumer thread, typically driven by a PeriodicTask.
type EventLogger struct {
	source                     TimeSource
	showExec, showSim, showUTC bool
	events                     *queue.Bounded[*Event]
	sink                       Sink
	clock                      Clock
	zlog                       *zap.Logger

	state atomic.Int32

	// Consumer-thread state. currentTime tracks the selected timeline.
	mu          sync.Mutex
	currentTime float64
	execTime    float64
	simTime     float64
	utcTime     float64
	pending     []*Event

	rendered   atomic.Int64
	sinkErrors atomic.Int64

	sinkErrLimit *rate.Limiter
	dropLimit    *rate.Limiter
}

// New builds an EventLogger. The sink is required; a nil clock falls back to
// wall time for both exec and sim.
func New(cfg Config) (*EventLogger, error) {
	if cfg.Sink == nil {
		return nil, errors.New("event logger requires a sink")
	}
	if cfg.Source < SourceExec || cfg.Source > SourceUTC {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTimeSource, cfg.Source)
	}
	if cfg.Clock == nil {
		cfg.Clock = wallClock{start: time.Now()}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	q, err := queue.NewBounded[*Event](queue.Config{
		Name:     "simlog",
		Capacity: cfg.QueueCapacity,
		Logger:   cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	return &EventLogger{
		source:   cfg.Source,
		showExec: cfg.IncludeExec,
		showSim:  cfg.IncludeSim,
		showUTC:  cfg.IncludeUTC,
		events:   q,
		sink:     cfg.Sink,
		clock:    cfg.Clock,
		zlog:     cfg.Logger,
		// One diagnostic per second each for sink failures and queue drops.
		sinkErrLimit: rate.NewLimiter(rate.Every(time.Second), 1),
		dropLimit:    rate.NewLimiter(rate.Every(time.Second), 1),
	}, nil
}

// Log enqueues an event for the next drain tick. It never blocks; when the
// queue is full the event is discarded and counted, which is the documented
// overflow policy for real-time producers.
func (l *EventLogger) Log(e *Event) bool {
	if e == nil {
		return false
	}
	if l.events.Push(e) {
		return true
	}
	if !l.events.Closed() && l.dropLimit.Allow() {
		l.zlog.Warn("event queue full, dropping event",
			zap.Int64("dropped", l.events.Dropped()),
		)
	}
	return false
}

// Tick is the consumer-side update: advance the clocks, drain the queue,
// stamp and render each event in FIFO order. A sink failure skips the
// remaining renders for this tick; the unwritten events are retried on the
// next tick. Tick matches sched.WorkFunc so a PeriodicTask can drive it.
func (l *EventLogger) Tick(dt float64) error {
	_ = dt
	state := l.State()
	if state == StateStopped {
		return nil
	}
	if state == StateIdle {
		l.state.CompareAndSwap(int32(StateIdle), int32(StateActive))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.advanceClocksLocked()
	l.pending = append(l.pending, l.events.DrainAll()...)
	l.flushPendingLocked()
	return nil
}

func (l *EventLogger) advanceClocksLocked() {
	l.execTime = l.clock.ExecSeconds()
	l.simTime = l.clock.SimSeconds()
	l.utcTime = utcSecondsOfDay(time.Now())
	switch l.source {
	case SourceExec:
		l.currentTime = l.execTime
	case SourceSim:
		l.currentTime = l.simTime
	case SourceUTC:
		l.currentTime = l.utcTime
	}
}

// flushPendingLocked renders queued events until the sink fails. Events keep
// their first stamp, so a retried event renders the timestamps of the tick
// that first attempted it.
func (l *EventLogger) flushPendingLocked() {
	for len(l.pending) > 0 {
		e := l.pending[0]
		e.Stamp(l.execTime, l.simTime, l.utcTime, l.showExec, l.showSim, l.showUTC)
		if err := l.sink.WriteLine(e.Describe()); err != nil {
			l.sinkErrors.Add(1)
			if l.sinkErrLimit.Allow() {
				l.zlog.Error("event sink write failed, will retry next tick",
					zap.Int("pending", len(l.pending)),
					zap.Error(err),
				)
			}
			return
		}
		l.pending = l.pending[1:]
		l.rendered.Add(1)
	}
	l.pending = nil
}

// Close drains outstanding events and stops the logger. Pushes arriving
// after Close starts are rejected. Safe to call once the driving
// PeriodicTask has stopped.
func (l *EventLogger) Close() error {
	if !l.state.CompareAndSwap(int32(StateActive), int32(StateDraining)) &&
		!l.state.CompareAndSwap(int32(StateIdle), int32(StateDraining)) {
		return nil
	}
	l.events.Close()

	l.mu.Lock()
	l.advanceClocksLocked()
	l.pending = append(l.pending, l.events.DrainAll()...)
	l.flushPendingLocked()
	unflushed := len(l.pending)
	l.mu.Unlock()

	l.state.Store(int32(StateStopped))
	if unflushed > 0 {
		l.zlog.Error("events lost at shutdown, sink unavailable",
			zap.Int("count", unflushed),
		)
	}

	qs := l.events.Stats()
	l.zlog.Info("event logger stopped",
		zap.Int64("rendered", l.rendered.Load()),
		zap.Int64("dropped", qs.Dropped),
		zap.Int64("sink_errors", l.sinkErrors.Load()),
	)
	return l.sink.Close()
}

// SetClock replaces the time source. Only honored while the logger is still
// idle, so the simulation can register itself as the clock after both sides
// are constructed.
func (l *EventLogger) SetClock(c Clock) {
	if c == nil || l.State() != StateIdle {
		return
	}
	l.mu.Lock()
	l.clock = c
	l.mu.Unlock()
}

// State returns the lifecycle state.
func (l *EventLogger) State() State { return State(l.state.Load()) }

// CurrentTime returns the authoritative time of the selected timeline as of
// the last tick.
func (l *EventLogger) CurrentTime() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.currentTime
}

// Source returns the configured timeline.
func (l *EventLogger) Source() TimeSource { return l.source }

// QueueStats exposes queue counters for end-of-run reporting.
func (l *EventLogger) QueueStats() queue.Stats { return l.events.Stats() }

// Rendered returns the number of lines written to the sink.
func (l *EventLogger) Rendered() int64 { return l.rendered.Load() }

// utcSecondsOfDay converts a wall-clock instant to seconds since midnight
// UTC, matching the historical event log convention.
func utcSecondsOfDay(t time.Time) float64 {
	u := t.UTC()
	h, m, s := u.Clock()
	return float64(h*3600+m*60+s) + float64(u.Nanosecond())/1e9
}
