// Package usecase implements the attempt limiter on top of counter persistence.
package usecase

import (
	"context"
	"time"

	ratelimitDomain "github.com/allisson/docgate/internal/ratelimit/domain"
)

// CounterRepository defines persistence operations for attempt counters.
// Increment and Block are conditional so that concurrent callers hitting the
// same identifier serialize in the store rather than in this process.
type CounterRepository interface {
	// Get retrieves the counter for an identifier.
	// Returns ErrCounterNotFound when no attempts have been recorded.
	Get(ctx context.Context, identifier string) (*ratelimitDomain.AttemptCounter, error)

	// StartWindow creates the counter or resets a stale one to a fresh window.
	StartWindow(ctx context.Context, counter *ratelimitDomain.AttemptCounter) error

	// Increment adds one attempt inside the given window and returns the new
	// count. Returns ErrCounterNotFound when the window rotated concurrently.
	Increment(ctx context.Context, identifier string, windowStart time.Time) (int, error)

	// Block transitions the counter into the blocked state. Returns false when
	// another caller already holds an active block; an active block is never
	// extended.
	Block(ctx context.Context, identifier string, blockedUntil time.Time, now time.Time) (bool, error)

	// Delete removes the counter for an identifier.
	Delete(ctx context.Context, identifier string) error

	// DeleteStale removes counters whose window and block both elapsed before
	// the cutoff.
	DeleteStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// Limiter defines the attempt limiting operations callers gate on.
type Limiter interface {
	// Check reports whether an attempt for the triple may proceed right now.
	// It never mutates state except to transition an exhausted counter into
	// the blocked state. A denial carries the remaining wait.
	Check(ctx context.Context, action, clientAddress string, targetID int64) (*ratelimitDomain.Decision, error)

	// RecordAttempt records the outcome of an attempt that was allowed to
	// proceed. A success removes the counter entirely; a failure counts
	// against the window budget and blocks the identifier once the budget is
	// spent.
	RecordAttempt(ctx context.Context, action, clientAddress string, targetID int64, success bool) error

	// Cleanup removes counters that have been idle for longer than olderThan
	// and returns how many were removed.
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}
