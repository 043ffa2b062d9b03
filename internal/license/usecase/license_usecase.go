package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/docgate/internal/clock"
	"github.com/allisson/docgate/internal/database"
	licenseDomain "github.com/allisson/docgate/internal/license/domain"
	licenseService "github.com/allisson/docgate/internal/license/service"
)

// licenseUseCase implements UseCase for managing the deployment license.
type licenseUseCase struct {
	txManager database.TxManager
	repo      LicenseRepository
	evaluator *licenseService.Evaluator
	clock     clock.Clock
}

// Activate classifies the submitted key and atomically replaces the stored
// license record. The previous record is removed in the same transaction so a
// partially applied activation can never leave two keys behind.
func (l *licenseUseCase) Activate(ctx context.Context, key string) (*licenseDomain.StatusSnapshot, error) {
	key = strings.TrimSpace(key)

	tier, ok := licenseService.Classify(key)
	if !ok {
		return nil, licenseDomain.ErrInvalidLicenseKey
	}

	now := l.clock.Now()

	record := &licenseDomain.LicenseRecord{
		ID:        uuid.Must(uuid.NewV7()),
		Key:       key,
		Tier:      tier,
		Status:    licenseDomain.StatusValid,
		IssuedAt:  now,
		CreatedAt: now,
	}

	// Paid tiers carry a one-term expiry set at issuance time; the evaluator
	// never re-derives it.
	if tier.Expiring() {
		expiresAt := now.Add(licenseService.PaidTermDays * 24 * time.Hour)
		record.ExpiresAt = &expiresAt
	}

	err := l.txManager.WithTx(ctx, func(ctx context.Context) error {
		if _, err := l.repo.DeleteAll(ctx); err != nil {
			return err
		}
		return l.repo.Create(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	return l.evaluator.Snapshot(record, now), nil
}

// Status derives the current license status without writing anything back.
func (l *licenseUseCase) Status(ctx context.Context) (*licenseDomain.StatusSnapshot, error) {
	record, err := l.repo.Get(ctx)
	if err != nil {
		if errors.Is(err, licenseDomain.ErrLicenseNotFound) {
			return l.evaluator.Snapshot(nil, l.clock.Now()), nil
		}
		return nil, err
	}

	return l.evaluator.Snapshot(record, l.clock.Now()), nil
}

// RefreshStatus derives the current status and persists it when the cached
// column is stale. A license can silently cross from valid to grace_period to
// expired between calls, so the cache is only ever an optimization.
func (l *licenseUseCase) RefreshStatus(ctx context.Context) (*licenseDomain.StatusSnapshot, error) {
	record, err := l.repo.Get(ctx)
	if err != nil {
		if errors.Is(err, licenseDomain.ErrLicenseNotFound) {
			return l.evaluator.Snapshot(nil, l.clock.Now()), nil
		}
		return nil, err
	}

	snapshot := l.evaluator.Snapshot(record, l.clock.Now())

	if snapshot.Status != record.Status {
		if err := l.repo.UpdateStatus(ctx, record.ID, snapshot.Status); err != nil {
			return nil, err
		}
	}

	return snapshot, nil
}

// NewLicenseUseCase creates a new license UseCase with the provided dependencies.
func NewLicenseUseCase(
	txManager database.TxManager,
	repo LicenseRepository,
	evaluator *licenseService.Evaluator,
	clk clock.Clock,
) UseCase {
	return &licenseUseCase{
		txManager: txManager,
		repo:      repo,
		evaluator: evaluator,
		clock:     clk,
	}
}
