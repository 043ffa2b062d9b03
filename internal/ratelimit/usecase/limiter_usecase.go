package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/allisson/docgate/internal/clock"
	apperrors "github.com/allisson/docgate/internal/errors"
	ratelimitDomain "github.com/allisson/docgate/internal/ratelimit/domain"
)

// maxIncrementRetries bounds the re-read loop when the counting window rotates
// between the read and the conditional increment.
const maxIncrementRetries = 3

// limiterUseCase implements Limiter over a CounterRepository. Decisions are
// soft state: when the store is unreachable the limiter either denies with
// ErrStoreUnavailable or, when configured fail-open, lets the attempt through.
type limiterUseCase struct {
	repo     CounterRepository
	registry *ratelimitDomain.Registry
	clock    clock.Clock
	failOpen bool
}

// Check reports whether an attempt for the triple may proceed. An unknown
// identifier is always allowed; reads never create counters.
func (l *limiterUseCase) Check(
	ctx context.Context,
	action, clientAddress string,
	targetID int64,
) (*ratelimitDomain.Decision, error) {
	identifier := ratelimitDomain.Identifier(action, clientAddress, targetID)
	profile := l.registry.Lookup(action)
	now := l.clock.Now()

	counter, err := l.repo.Get(ctx, identifier)
	if err != nil {
		if errors.Is(err, ratelimitDomain.ErrCounterNotFound) {
			return &ratelimitDomain.Decision{Allowed: true}, nil
		}
		return l.decideOnStoreFailure(ctx, "check", err)
	}

	// An active block wins regardless of window state.
	if counter.Blocked(now) {
		return &ratelimitDomain.Decision{
			Allowed:    false,
			RetryAfter: counter.BlockedUntil.Sub(now),
		}, nil
	}

	if counter.WindowExpired(now, profile.Window) {
		return &ratelimitDomain.Decision{Allowed: true}, nil
	}

	if counter.Attempts >= profile.MaxAttempts {
		blockedUntil := now.Add(profile.Block)

		transitioned, err := l.repo.Block(ctx, identifier, blockedUntil, now)
		if err != nil {
			return l.decideOnStoreFailure(ctx, "check", err)
		}
		if !transitioned {
			// Lost the transition race; deny with the winner's deadline.
			current, err := l.repo.Get(ctx, identifier)
			if err == nil && current.Blocked(now) {
				blockedUntil = current.BlockedUntil
			}
		}

		return &ratelimitDomain.Decision{
			Allowed:    false,
			RetryAfter: blockedUntil.Sub(now),
		}, nil
	}

	return &ratelimitDomain.Decision{Allowed: true}, nil
}

// RecordAttempt records the outcome of an attempt that was allowed to proceed.
func (l *limiterUseCase) RecordAttempt(
	ctx context.Context,
	action, clientAddress string,
	targetID int64,
	success bool,
) error {
	identifier := ratelimitDomain.Identifier(action, clientAddress, targetID)
	profile := l.registry.Lookup(action)
	now := l.clock.Now()

	// A success removes the counter entirely rather than decrementing it.
	if success {
		if err := l.repo.Delete(ctx, identifier); err != nil {
			return l.absorbStoreFailure(ctx, "record_attempt", err)
		}
		return nil
	}

	attempts, err := l.countFailedAttempt(ctx, identifier, profile, now)
	if err != nil {
		return l.absorbStoreFailure(ctx, "record_attempt", err)
	}

	if attempts >= profile.MaxAttempts {
		// Conditional transition: a concurrent block is left untouched, so a
		// failure past the budget never extends an existing block.
		if _, err := l.repo.Block(ctx, identifier, now.Add(profile.Block), now); err != nil {
			return l.absorbStoreFailure(ctx, "record_attempt", err)
		}
	}

	return nil
}

// countFailedAttempt increments the counter for a failed attempt and returns
// the resulting count. A missing or stale counter starts a fresh window at one
// attempt; a window that rotates mid-flight is retried a bounded number of times.
func (l *limiterUseCase) countFailedAttempt(
	ctx context.Context,
	identifier string,
	profile ratelimitDomain.Profile,
	now time.Time,
) (int, error) {
	for range maxIncrementRetries {
		counter, err := l.repo.Get(ctx, identifier)
		if err != nil {
			if !errors.Is(err, ratelimitDomain.ErrCounterNotFound) {
				return 0, err
			}
			fresh := &ratelimitDomain.AttemptCounter{
				Identifier:  identifier,
				Attempts:    1,
				WindowStart: now,
			}
			if err := l.repo.StartWindow(ctx, fresh); err != nil {
				return 0, err
			}
			return 1, nil
		}

		// Attempts arriving during an active block are already denied
		// upstream; counting them would effectively extend the block.
		if counter.Blocked(now) {
			return 0, nil
		}

		if counter.WindowExpired(now, profile.Window) {
			fresh := &ratelimitDomain.AttemptCounter{
				Identifier:  identifier,
				Attempts:    1,
				WindowStart: now,
			}
			if err := l.repo.StartWindow(ctx, fresh); err != nil {
				return 0, err
			}
			return 1, nil
		}

		attempts, err := l.repo.Increment(ctx, identifier, counter.WindowStart)
		if err != nil {
			if errors.Is(err, ratelimitDomain.ErrCounterNotFound) {
				continue
			}
			return 0, err
		}
		return attempts, nil
	}

	return 0, apperrors.Wrap(ratelimitDomain.ErrStoreUnavailable, "attempt window kept rotating")
}

// Cleanup removes counters idle for longer than olderThan.
func (l *limiterUseCase) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	return l.repo.DeleteStale(ctx, l.clock.Now().Add(-olderThan))
}

// decideOnStoreFailure maps a store failure during a check to a decision.
// Fail-open lets the attempt through with a warning; fail-closed surfaces
// ErrStoreUnavailable so callers can answer with a service error instead of a
// misleading denial.
func (l *limiterUseCase) decideOnStoreFailure(
	ctx context.Context,
	operation string,
	err error,
) (*ratelimitDomain.Decision, error) {
	if l.failOpen {
		slog.WarnContext(ctx, "attempt counter store unavailable, allowing attempt",
			"operation", operation,
			"error", err,
		)
		return &ratelimitDomain.Decision{Allowed: true}, nil
	}
	return nil, apperrors.Wrapf(ratelimitDomain.ErrStoreUnavailable, "attempt counter store: %v", err)
}

// absorbStoreFailure maps a store failure during attempt recording. Fail-open
// drops the record with a warning, fail-closed surfaces ErrStoreUnavailable.
func (l *limiterUseCase) absorbStoreFailure(ctx context.Context, operation string, err error) error {
	if l.failOpen {
		slog.WarnContext(ctx, "attempt counter store unavailable, dropping attempt record",
			"operation", operation,
			"error", err,
		)
		return nil
	}
	return apperrors.Wrapf(ratelimitDomain.ErrStoreUnavailable, "attempt counter store: %v", err)
}

// NewLimiterUseCase creates a new Limiter with the provided dependencies.
func NewLimiterUseCase(
	repo CounterRepository,
	registry *ratelimitDomain.Registry,
	clk clock.Clock,
	failOpen bool,
) Limiter {
	return &limiterUseCase{
		repo:     repo,
		registry: registry,
		clock:    clk,
		failOpen: failOpen,
	}
}
