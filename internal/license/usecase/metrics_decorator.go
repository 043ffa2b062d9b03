package usecase

import (
	"context"
	"time"

	licenseDomain "github.com/allisson/docgate/internal/license/domain"
	"github.com/allisson/docgate/internal/metrics"
)

// useCaseWithMetrics decorates the license UseCase with metrics instrumentation.
type useCaseWithMetrics struct {
	next    UseCase
	metrics metrics.BusinessMetrics
}

// NewUseCaseWithMetrics wraps a license UseCase with metrics recording.
func NewUseCaseWithMetrics(useCase UseCase, m metrics.BusinessMetrics) UseCase {
	return &useCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Activate records metrics for license activation operations.
func (u *useCaseWithMetrics) Activate(
	ctx context.Context,
	key string,
) (*licenseDomain.StatusSnapshot, error) {
	start := time.Now()
	snapshot, err := u.next.Activate(ctx, key)

	status := "success"
	if err != nil {
		status = "error"
	}

	u.metrics.RecordOperation(ctx, "license", "activate", status)
	u.metrics.RecordDuration(ctx, "license", "activate", time.Since(start), status)

	return snapshot, err
}

// Status records metrics for license status evaluations.
func (u *useCaseWithMetrics) Status(ctx context.Context) (*licenseDomain.StatusSnapshot, error) {
	start := time.Now()
	snapshot, err := u.next.Status(ctx)

	status := "success"
	if err != nil {
		status = "error"
	}

	u.metrics.RecordOperation(ctx, "license", "status", status)
	u.metrics.RecordDuration(ctx, "license", "status", time.Since(start), status)

	return snapshot, err
}

// RefreshStatus records metrics for license status refreshes.
func (u *useCaseWithMetrics) RefreshStatus(ctx context.Context) (*licenseDomain.StatusSnapshot, error) {
	start := time.Now()
	snapshot, err := u.next.RefreshStatus(ctx)

	status := "success"
	if err != nil {
		status = "error"
	}

	u.metrics.RecordOperation(ctx, "license", "refresh_status", status)
	u.metrics.RecordDuration(ctx, "license", "refresh_status", time.Since(start), status)

	return snapshot, err
}
