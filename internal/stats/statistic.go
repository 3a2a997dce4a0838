// Package stats provides a running aggregate over a scalar sample stream.
package stats

import (
	"math"
	"sync"
)

// Snapshot is a point-in-time copy of a Statistic's aggregates.
type Snapshot struct {
	N      uint64
	Sum    float64
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

// Statistic accumulates count, sum, sum of squares, min and max of a sample
// stream in O(1) per sample. It is cumulative: samples are never discarded
// except by Clear.
//
// All methods are safe for concurrent use. The writer is typically a single
// scheduler thread while observers read from elsewhere.
type Statistic struct {
	mu         sync.Mutex
	n          uint64
	sum        float64
	sumSquares float64
	min        float64
	max        float64
}

// Add records one sample.
func (s *Statistic) Add(v float64) {
	s.mu.Lock()
	if s.n == 0 || v < s.min {
		s.min = v
	}
	if s.n == 0 || v > s.max {
		s.max = v
	}
	s.n++
	s.sum += v
	s.sumSquares += v * v
	s.mu.Unlock()
}

// Clear resets the aggregate to the empty state.
func (s *Statistic) Clear() {
	s.mu.Lock()
	s.n = 0
	s.sum = 0
	s.sumSquares = 0
	s.min = 0
	s.max = 0
	s.mu.Unlock()
}

// N returns the number of samples recorded.
func (s *Statistic) N() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

// Sum returns the sum of all samples, 0 when empty.
func (s *Statistic) Sum() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sum
}

// Mean returns the arithmetic mean, 0 when empty.
func (s *Statistic) Mean() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meanLocked()
}

func (s *Statistic) meanLocked() float64 {
	if s.n == 0 {
		return 0
	}
	return s.sum / float64(s.n)
}

// StdDev returns the population standard deviation, 0 when empty.
func (s *Statistic) StdDev() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.n == 0 {
		return 0
	}
	mean := s.meanLocked()
	variance := s.sumSquares/float64(s.n) - mean*mean
	if variance < 0 {
		// Rounding can push the variance of near-constant streams below zero.
		variance = 0
	}
	return math.Sqrt(variance)
}

// Min returns the smallest sample, NaN when empty.
func (s *Statistic) Min() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.n == 0 {
		return math.NaN()
	}
	return s.min
}

// Max returns the largest sample, NaN when empty.
func (s *Statistic) Max() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.n == 0 {
		return math.NaN()
	}
	return s.max
}

// Value returns a consistent snapshot of all aggregates.
func (s *Statistic) Value() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		N:   s.n,
		Sum: s.sum,
	}
	if s.n == 0 {
		snap.Min = math.NaN()
		snap.Max = math.NaN()
		return snap
	}
	mean := s.meanLocked()
	variance := s.sumSquares/float64(s.n) - mean*mean
	if variance < 0 {
		variance = 0
	}
	snap.Mean = mean
	snap.StdDev = math.Sqrt(variance)
	snap.Min = s.min
	snap.Max = s.max
	return snap
}
