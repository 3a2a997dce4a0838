// Package queue implements the bounded event queue that decouples real-time
// producers from the logging consumer.
package queue

import (
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// DefaultCapacity bounds a queue when no capacity is configured.
const DefaultCapacity = 1000

// ErrInvalidCapacity is returned when a queue is configured with a negative
// capacity.
var ErrInvalidCapacity = errors.New("queue capacity must be positive")

// Stats is a point-in-time view of queue counters. Depth is approximate while
// producers are active.
type Stats struct {
	Pushed    int64
	Drained   int64
	Dropped   int64
	Depth     int
	HighWater int
}

// Config controls a Bounded queue instance.
type Config struct {
	Name     string
	Capacity int
	Logger   *zap.Logger
}

// Bounded is a fixed-capacity FIFO for multiple producers and a single
// draining consumer. Push never blocks: once the queue is full new items are
// rejected and counted as drops, which keeps real-time producer threads from
// ever stalling on the consumer.
type Bounded[T any] struct {
	mu    sync.Mutex
	items []T
	cap   int

	closed atomic.Bool
	logger *zap.Logger
	name   string

	pushed    atomic.Int64
	drained   atomic.Int64
	dropped   atomic.Int64
	highWater atomic.Int64
}

// NewBounded builds a queue with the supplied configuration. A zero or
// negative capacity is a configuration error.
func NewBounded[T any](cfg Config) (*Bounded[T], error) {
	if cfg.Capacity == 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.Capacity < 0 {
		return nil, ErrInvalidCapacity
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Bounded[T]{
		items:  make([]T, 0, cfg.Capacity),
		cap:    cfg.Capacity,
		logger: cfg.Logger,
		name:   cfg.Name,
	}, nil
}

// Push attempts to enqueue v. It returns false when the queue is full or
// closed; a full-queue rejection increments the drop counter.
func (q *Bounded[T]) Push(v T) bool {
	if q.closed.Load() {
		return false
	}

	q.mu.Lock()
	if len(q.items) >= q.cap {
		q.mu.Unlock()
		q.dropped.Add(1)
		return false
	}
	q.items = append(q.items, v)
	depth := int64(len(q.items))
	q.mu.Unlock()

	q.pushed.Add(1)
	for {
		hw := q.highWater.Load()
		if depth <= hw || q.highWater.CompareAndSwap(hw, depth) {
			break
		}
	}
	return true
}

// DrainAll atomically detaches and returns every queued item in FIFO order.
// It returns nil when the queue is empty. The caller owns the returned slice.
func (q *Bounded[T]) DrainAll() []T {
	q.mu.Lock()
	if len(q.items) == 0 {
		q.mu.Unlock()
		return nil
	}
	out := q.items
	q.items = make([]T, 0, q.cap)
	q.mu.Unlock()

	q.drained.Add(int64(len(out)))
	return out
}

// Len reports the approximate number of queued items.
func (q *Bounded[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Cap returns the configured capacity.
func (q *Bounded[T]) Cap() int { return q.cap }

// Dropped returns the number of rejected items.
func (q *Bounded[T]) Dropped() int64 { return q.dropped.Load() }

// Close rejects all further pushes. Items already queued remain available to
// DrainAll so the consumer can flush the residue during shutdown.
func (q *Bounded[T]) Close() {
	if q.closed.CompareAndSwap(false, true) {
		q.logger.Debug("queue closed",
			zap.String("queue", q.name),
			zap.Int64("pushed", q.pushed.Load()),
			zap.Int64("dropped", q.dropped.Load()),
		)
	}
}

// Closed reports whether Close has been called.
func (q *Bounded[T]) Closed() bool { return q.closed.Load() }

// Stats returns current queue counters.
func (q *Bounded[T]) Stats() Stats {
	q.mu.Lock()
	depth := len(q.items)
	q.mu.Unlock()
	return Stats{
		Pushed:    q.pushed.Load(),
		Drained:   q.drained.Load(),
		Dropped:   q.dropped.Load(),
		Depth:     depth,
		HighWater: int(q.highWater.Load()),
	}
}
