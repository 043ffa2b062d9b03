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

// MySQLCounterRepository implements attempt counter persistence for MySQL.
// MySQL has no UPDATE ... RETURNING, so Increment re-reads the row after a
// conditional update; the update itself is still the serialization point.
type MySQLCounterRepository struct {
	db *sql.DB
}

// Get retrieves the counter for an identifier.
// Returns ErrCounterNotFound if no attempts have been recorded.
func (m *MySQLCounterRepository) Get(
	ctx context.Context,
	identifier string,
) (*ratelimitDomain.AttemptCounter, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT identifier, attempts, window_start, blocked_until
			  FROM rate_limit_counters WHERE identifier = ?`

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
func (m *MySQLCounterRepository) StartWindow(
	ctx context.Context,
	counter *ratelimitDomain.AttemptCounter,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO rate_limit_counters (identifier, attempts, window_start, blocked_until)
			  VALUES (?, ?, ?, NULL)
			  ON DUPLICATE KEY UPDATE attempts = VALUES(attempts),
									  window_start = VALUES(window_start),
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
func (m *MySQLCounterRepository) Increment(
	ctx context.Context,
	identifier string,
	windowStart time.Time,
) (int, error) {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE rate_limit_counters SET attempts = attempts + 1
			  WHERE identifier = ? AND window_start = ?`

	result, err := querier.ExecContext(ctx, query, identifier, windowStart)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to increment attempt counter")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to check attempt increment")
	}
	if affected == 0 {
		return 0, ratelimitDomain.ErrCounterNotFound
	}

	var attempts int
	err = querier.QueryRowContext(
		ctx,
		`SELECT attempts FROM rate_limit_counters WHERE identifier = ?`,
		identifier,
	).Scan(&attempts)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to read attempt counter")
	}

	return attempts, nil
}

// Block transitions the counter into the blocked state. The condition only
// matches rows without an active block, so a concurrent block is never
// extended; returns false when another caller won the transition.
func (m *MySQLCounterRepository) Block(
	ctx context.Context,
	identifier string,
	blockedUntil time.Time,
	now time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE rate_limit_counters SET blocked_until = ?
			  WHERE identifier = ? AND (blocked_until IS NULL OR blocked_until <= ?)`

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

// Delete removes the counter for an identifier.
func (m *MySQLCounterRepository) Delete(ctx context.Context, identifier string) error {
	querier := database.GetTx(ctx, m.db)

	_, err := querier.ExecContext(ctx, `DELETE FROM rate_limit_counters WHERE identifier = ?`, identifier)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete attempt counter")
	}
	return nil
}

// DeleteStale removes counters whose window and block both elapsed before the cutoff.
func (m *MySQLCounterRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM rate_limit_counters
			  WHERE window_start < ? AND (blocked_until IS NULL OR blocked_until < ?)`

	result, err := querier.ExecContext(ctx, query, cutoff, cutoff)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete stale attempt counters")
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count deleted attempt counters")
	}
	return count, nil
}

// NewMySQLCounterRepository creates a new MySQL attempt counter repository.
func NewMySQLCounterRepository(db *sql.DB) *MySQLCounterRepository {
	return &MySQLCounterRepository{db: db}
}
