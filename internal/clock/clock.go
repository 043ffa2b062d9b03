// Package clock provides the time source used by every access-control component.
// All status evaluation, window arithmetic, and expiry checks go through an injected
// Clock so tests can pin the current time instead of mocking time.Now.
package clock

import (
	"sync"
	"time"
)

// Clock supplies the current time. Implementations must return UTC timestamps.
type Clock interface {
	Now() time.Time
}

// systemClock reads the wall clock.
type systemClock struct{}

// Now returns the current wall-clock time in UTC.
func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// System returns a Clock backed by the wall clock.
func System() Clock {
	return systemClock{}
}

// Fixed is a manually controlled Clock for tests. The zero value is not usable;
// construct it with NewFixed.
type Fixed struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixed returns a Fixed clock pinned at the given instant.
func NewFixed(now time.Time) *Fixed {
	return &Fixed{now: now.UTC()}
}

// Now returns the pinned instant.
func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the pinned instant forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// Set pins the clock to a new instant.
func (f *Fixed) Set(now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = now.UTC()
}
