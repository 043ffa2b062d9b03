// Package repository implements license record persistence.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/allisson/docgate/internal/database"
	apperrors "github.com/allisson/docgate/internal/errors"
	licenseDomain "github.com/allisson/docgate/internal/license/domain"
)

// PostgreSQLLicenseRepository implements license record persistence for PostgreSQL.
// Uses transaction support via database.GetTx().
type PostgreSQLLicenseRepository struct {
	db *sql.DB
}

// Create inserts a new license record. Returns an error if database insertion fails.
func (p *PostgreSQLLicenseRepository) Create(ctx context.Context, record *licenseDomain.LicenseRecord) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO licenses (id, license_key, tier, status, issued_at, expires_at, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := querier.ExecContext(
		ctx,
		query,
		record.ID,
		record.Key,
		record.Tier,
		record.Status,
		record.IssuedAt,
		record.ExpiresAt,
		record.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create license record")
	}
	return nil
}

// Get retrieves the most recently activated license record.
// Returns ErrLicenseNotFound if no key has been activated yet.
func (p *PostgreSQLLicenseRepository) Get(ctx context.Context) (*licenseDomain.LicenseRecord, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, license_key, tier, status, issued_at, expires_at, created_at
			  FROM licenses ORDER BY created_at DESC LIMIT 1`

	var record licenseDomain.LicenseRecord
	var expiresAt sql.NullTime

	err := querier.QueryRowContext(ctx, query).Scan(
		&record.ID,
		&record.Key,
		&record.Tier,
		&record.Status,
		&record.IssuedAt,
		&expiresAt,
		&record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, licenseDomain.ErrLicenseNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get license record")
	}

	if expiresAt.Valid {
		t := expiresAt.Time.UTC()
		record.ExpiresAt = &t
	}

	return &record, nil
}

// DeleteAll removes every stored license record. Called inside the activation
// transaction so a new key fully replaces the previous one.
func (p *PostgreSQLLicenseRepository) DeleteAll(ctx context.Context) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM licenses`)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete license records")
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count deleted license records")
	}
	return count, nil
}

// UpdateStatus persists a freshly derived status for the given record. This is
// the explicit cache-write step; evaluation itself never writes.
func (p *PostgreSQLLicenseRepository) UpdateStatus(
	ctx context.Context,
	recordID uuid.UUID,
	status licenseDomain.Status,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE licenses SET status = $1 WHERE id = $2`

	result, err := querier.ExecContext(ctx, query, status, recordID)
	if err != nil {
		return apperrors.Wrap(err, "failed to update license status")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to check license status update")
	}
	if affected == 0 {
		return licenseDomain.ErrLicenseNotFound
	}
	return nil
}

// NewPostgreSQLLicenseRepository creates a new PostgreSQL license repository.
func NewPostgreSQLLicenseRepository(db *sql.DB) *PostgreSQLLicenseRepository {
	return &PostgreSQLLicenseRepository{db: db}
}
