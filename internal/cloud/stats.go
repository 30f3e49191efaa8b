package cloud

import (
	"sync"
	"time"
)

// Stats tracks request counts and cumulative latency for a Client.
type Stats struct {
	requests int64
	errors   int64
	duration time.Duration
	mu       sync.RWMutex
}

// NewStats creates a new stats tracker
func NewStats() *Stats {
	return &Stats{}
}

// RecordRequest records a completed request
func (s *Stats) RecordRequest(duration time.Duration) {
	s.mu.Lock()
	s.requests++
	s.duration += duration
	s.mu.Unlock()
}

// RecordError records a failed request
func (s *Stats) RecordError() {
	s.mu.Lock()
	s.errors++
	s.mu.Unlock()
}

// Get returns requests, errors and total request time.
func (s *Stats) Get() (int64, int64, time.Duration) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.requests, s.errors, s.duration
}
