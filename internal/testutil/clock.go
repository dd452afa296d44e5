// Package testutil holds deterministic time and identity sources for tests
// and scenario runs.
package testutil

import (
	"sync"
	"time"
)

// Epoch is the default start of a ManualTime.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// ManualTime is a time source that only moves when told to.
//
// Pass its Now method to engine.WithNow so drawing timeouts fire exactly
// when a test advances the clock.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type ManualTime struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualTime creates a time source at start. A zero start means Epoch.
func NewManualTime(start time.Time) *ManualTime {
	if start.IsZero() {
		start = Epoch
	}
	return &ManualTime{now: start}
}

// Now returns the current manual time.
func (m *ManualTime) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d and returns the new time.
// Negative durations are ignored so time never runs backwards.
func (m *ManualTime) Advance(d time.Duration) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d > 0 {
		m.now = m.now.Add(d)
	}
	return m.now
}

// Reset moves the clock back to start. Used for test reuse.
func (m *ManualTime) Reset(start time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if start.IsZero() {
		start = Epoch
	}
	m.now = start
}
