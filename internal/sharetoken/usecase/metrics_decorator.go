package usecase

import (
	"context"
	"time"

	"github.com/allisson/docgate/internal/metrics"
	sharetokenDomain "github.com/allisson/docgate/internal/sharetoken/domain"
)

// useCaseWithMetrics decorates the share token UseCase with metrics instrumentation.
type useCaseWithMetrics struct {
	next    UseCase
	metrics metrics.BusinessMetrics
}

// NewUseCaseWithMetrics wraps a share token UseCase with metrics recording.
func NewUseCaseWithMetrics(useCase UseCase, m metrics.BusinessMetrics) UseCase {
	return &useCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (u *useCaseWithMetrics) record(ctx context.Context, operation, status string, start time.Time) {
	u.metrics.RecordOperation(ctx, "sharetoken", operation, status)
	u.metrics.RecordDuration(ctx, "sharetoken", operation, time.Since(start), status)
}

// Issue records metrics for token issuance.
func (u *useCaseWithMetrics) Issue(ctx context.Context, input IssueInput) (*IssueOutput, error) {
	start := time.Now()
	output, err := u.next.Issue(ctx, input)

	status := "success"
	if err != nil {
		status = "error"
	}
	u.record(ctx, "issue", status, start)

	return output, err
}

// ValidateAndConsume records metrics for validations, labelling denials with
// their reason.
func (u *useCaseWithMetrics) ValidateAndConsume(
	ctx context.Context,
	secret string,
	targetID int64,
) (*sharetokenDomain.ValidationResult, error) {
	start := time.Now()
	result, err := u.next.ValidateAndConsume(ctx, secret, targetID)

	status := "success"
	switch {
	case err != nil:
		status = "error"
	case !result.Granted:
		status = string(result.Reason)
	}
	u.record(ctx, "validate_and_consume", status, start)

	return result, err
}

// Peek records metrics for non-consuming lookups.
func (u *useCaseWithMetrics) Peek(ctx context.Context, secret string) (*sharetokenDomain.ShareToken, error) {
	start := time.Now()
	token, err := u.next.Peek(ctx, secret)

	status := "success"
	if err != nil {
		status = "error"
	}
	u.record(ctx, "peek", status, start)

	return token, err
}

// Revoke records metrics for token revocations.
func (u *useCaseWithMetrics) Revoke(ctx context.Context, secret string) (bool, error) {
	start := time.Now()
	removed, err := u.next.Revoke(ctx, secret)

	status := "success"
	if err != nil {
		status = "error"
	}
	u.record(ctx, "revoke", status, start)

	return removed, err
}

// ListByTarget records metrics for token listings.
func (u *useCaseWithMetrics) ListByTarget(
	ctx context.Context,
	targetID int64,
	limit, offset int,
) ([]*sharetokenDomain.ShareToken, error) {
	start := time.Now()
	tokens, err := u.next.ListByTarget(ctx, targetID, limit, offset)

	status := "success"
	if err != nil {
		status = "error"
	}
	u.record(ctx, "list_by_target", status, start)

	return tokens, err
}

// SweepDead records metrics for sweep runs.
func (u *useCaseWithMetrics) SweepDead(ctx context.Context, dryRun bool) (int64, error) {
	start := time.Now()
	count, err := u.next.SweepDead(ctx, dryRun)

	status := "success"
	if err != nil {
		status = "error"
	}
	u.record(ctx, "sweep_dead", status, start)

	return count, err
}
