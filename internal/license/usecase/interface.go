// Package usecase implements business logic orchestration for license management.
package usecase

import (
	"context"

	"github.com/google/uuid"

	licenseDomain "github.com/allisson/docgate/internal/license/domain"
)

// LicenseRepository defines persistence operations for license records.
// Implementations must support transaction-aware operations via context propagation.
type LicenseRepository interface {
	// Create stores a new license record.
	Create(ctx context.Context, record *licenseDomain.LicenseRecord) error

	// Get retrieves the currently active license record.
	// Returns ErrLicenseNotFound when no key has been activated.
	Get(ctx context.Context) (*licenseDomain.LicenseRecord, error)

	// DeleteAll removes every stored license record.
	DeleteAll(ctx context.Context) (int64, error)

	// UpdateStatus persists a derived status for an existing record.
	UpdateStatus(ctx context.Context, recordID uuid.UUID, status licenseDomain.Status) error
}

// UseCase defines business logic operations for license management.
type UseCase interface {
	// Activate validates the format of a submitted key and replaces the stored
	// license record with a new one. Paid-tier keys get an expiry one term from
	// activation; unlimited and development keys never expire.
	//
	// Returns ErrInvalidLicenseKey if the key matches no known format.
	Activate(ctx context.Context, key string) (*licenseDomain.StatusSnapshot, error)

	// Status derives the current license status. Pure read: the persisted
	// status column is never written here, even when stale. An absent record
	// yields an inactive snapshot, not an error.
	Status(ctx context.Context) (*licenseDomain.StatusSnapshot, error)

	// RefreshStatus derives the current status and persists it when it differs
	// from the cached column. This is the explicit cache-write step callers may
	// skip entirely.
	RefreshStatus(ctx context.Context) (*licenseDomain.StatusSnapshot, error)
}
