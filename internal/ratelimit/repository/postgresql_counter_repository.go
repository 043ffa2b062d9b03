// Package repository implements attempt counter persistence. The blocked-state
// transition and the in-window increment are single conditional statements so
// concurrent callers hitting the same identifier serialize on the row.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/allisson/docgate/internal/database"
	apperrors "github.com/allisson/docgate/internal/errors"
	ratelimitDomain "github.com/allisson/docgate/internal/ratelimit/domain"
)

// PostgreSQLCounterRepository implements attempt counter persistence for PostgreSQL.
type PostgreSQLCounterRepository struct {
	db *sql.DB
}

// Get retrieves the counter for an identifier.
// Returns ErrCounterNotFound if no attempts have been recorded.
func (p *PostgreSQLCounterRepository) Get(
	ctx context.Context,
	identifier string,
) (*ratelimitDomain.AttemptCounter, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT identifier, attempts, window_start, blocked_until
			  FROM rate_limit_counters WHERE identifier = $1`

	var counter ratelimitDomain.AttemptCounter
	var blockedUntil sql.NullTime

	err := querier.QueryRowContext(ctx, query, identifier).Scan(
		&counter.Identifier,
		&counter.Attempts,
		&counter.WindowStart,
		&blockedUntil,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ratelimitDomain.ErrCounterNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get attempt counter")
	}

	if blockedUntil.Valid {
		counter.BlockedUntil = blockedUntil.Time.UTC()
	}

	return &counter, nil
}

// StartWindow creates the counter or resets a stale one to a fresh window with
// a single attempt and no block.
func (p *PostgreSQLCounterRepository) StartWindow(
	ctx context.Context,
	counter *ratelimitDomain.AttemptCounter,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO rate_limit_counters (identifier, attempts, window_start, blocked_until)
			  VALUES ($1, $2, $3, NULL)
			  ON CONFLICT (identifier)
			  DO UPDATE SET attempts = EXCLUDED.attempts,
							window_start = EXCLUDED.window_start,
							blocked_until = NULL`

	_, err := querier.ExecContext(ctx, query, counter.Identifier, counter.Attempts, counter.WindowStart)
	if err != nil {
		return apperrors.Wrap(err, "failed to start attempt window")
	}
	return nil
}

// Increment adds one attempt inside the given window and returns the new
// count. Returns ErrCounterNotFound if the window rotated concurrently, so the
// caller can re-read and retry.
func (p *PostgreSQLCounterRepository) Increment(
	ctx context.Context,
	identifier string,
	windowStart time.Time,
) (int, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE rate_limit_counters SET attempts = attempts + 1
			  WHERE identifier = $1 AND window_start = $2
			  RETURNING attempts`

	var attempts int
	err := querier.QueryRowContext(ctx, query, identifier, windowStart).Scan(&attempts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ratelimitDomain.ErrCounterNotFound
		}
		return 0, apperrors.Wrap(err, "failed to increment attempt counter")
	}

	return attempts, nil
}

// Block transitions the counter into the blocked state. The condition only
// matches rows without an active block, so a concurrent block is never
// extended; returns false when another caller won the transition.
func (p *PostgreSQLCounterRepository) Block(
	ctx context.Context,
	identifier string,
	blockedUntil time.Time,
	now time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE rate_limit_counters SET blocked_until = $1
			  WHERE identifier = $2 AND (blocked_until IS NULL OR blocked_until <= $3)`

	result, err := querier.ExecContext(ctx, query, blockedUntil, identifier, now)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to block attempt counter")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to check block transition")
	}
	return affected > 0, nil
}

// Delete removes the counter for an identifier. A successful attempt fully
// clears prior failures rather than decrementing.
func (p *PostgreSQLCounterRepository) Delete(ctx context.Context, identifier string) error {
	querier := database.GetTx(ctx, p.db)

	_, err := querier.ExecContext(ctx, `DELETE FROM rate_limit_counters WHERE identifier = $1`, identifier)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete attempt counter")
	}
	return nil
}

// DeleteStale removes counters whose window and block both elapsed before the
// cutoff. Safe to run concurrently with traffic: it only touches rows that are
// already logically dead.
func (p *PostgreSQLCounterRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM rate_limit_counters
			  WHERE window_start < $1 AND (blocked_until IS NULL OR blocked_until < $1)`

	result, err := querier.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete stale attempt counters")
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count deleted attempt counters")
	}
	return count, nil
}

// NewPostgreSQLCounterRepository creates a new PostgreSQL attempt counter repository.
func NewPostgreSQLCounterRepository(db *sql.DB) *PostgreSQLCounterRepository {
	return &PostgreSQLCounterRepository{db: db}
}
