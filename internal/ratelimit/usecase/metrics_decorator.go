package usecase

import (
	"context"
	"time"

	"github.com/allisson/docgate/internal/metrics"
	ratelimitDomain "github.com/allisson/docgate/internal/ratelimit/domain"
)

// limiterWithMetrics decorates the Limiter with metrics instrumentation.
type limiterWithMetrics struct {
	next    Limiter
	metrics metrics.BusinessMetrics
}

// NewLimiterWithMetrics wraps a Limiter with metrics recording.
func NewLimiterWithMetrics(limiter Limiter, m metrics.BusinessMetrics) Limiter {
	return &limiterWithMetrics{
		next:    limiter,
		metrics: m,
	}
}

// Check records metrics for limit checks, distinguishing denials from errors.
func (l *limiterWithMetrics) Check(
	ctx context.Context,
	action, clientAddress string,
	targetID int64,
) (*ratelimitDomain.Decision, error) {
	start := time.Now()
	decision, err := l.next.Check(ctx, action, clientAddress, targetID)

	status := "success"
	switch {
	case err != nil:
		status = "error"
	case !decision.Allowed:
		status = "denied"
	}

	l.metrics.RecordOperation(ctx, "ratelimit", "check", status)
	l.metrics.RecordDuration(ctx, "ratelimit", "check", time.Since(start), status)

	return decision, err
}

// RecordAttempt records metrics for attempt outcome recording.
func (l *limiterWithMetrics) RecordAttempt(
	ctx context.Context,
	action, clientAddress string,
	targetID int64,
	success bool,
) error {
	start := time.Now()
	err := l.next.RecordAttempt(ctx, action, clientAddress, targetID, success)

	status := "success"
	if err != nil {
		status = "error"
	}

	l.metrics.RecordOperation(ctx, "ratelimit", "record_attempt", status)
	l.metrics.RecordDuration(ctx, "ratelimit", "record_attempt", time.Since(start), status)

	return err
}

// Cleanup records metrics for stale counter cleanup runs.
func (l *limiterWithMetrics) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	start := time.Now()
	count, err := l.next.Cleanup(ctx, olderThan)

	status := "success"
	if err != nil {
		status = "error"
	}

	l.metrics.RecordOperation(ctx, "ratelimit", "cleanup", status)
	l.metrics.RecordDuration(ctx, "ratelimit", "cleanup", time.Since(start), status)

	return count, err
}
