// Package repository implements share token persistence. Consuming a use is a
// single conditional statement so concurrent redemptions of the same secret
// serialize on the row and never overspend the budget.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/allisson/docgate/internal/database"
	apperrors "github.com/allisson/docgate/internal/errors"
	sharetokenDomain "github.com/allisson/docgate/internal/sharetoken/domain"
)

// PostgreSQLShareTokenRepository implements share token persistence for PostgreSQL.
type PostgreSQLShareTokenRepository struct {
	db *sql.DB
}

// Create inserts a new share token. Returns an error if database insertion fails.
func (p *PostgreSQLShareTokenRepository) Create(
	ctx context.Context,
	token *sharetokenDomain.ShareToken,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO share_tokens (id, secret_hash, target_id, max_uses, use_count, issued_by, created_at, expires_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := querier.ExecContext(
		ctx,
		query,
		token.ID,
		token.SecretHash,
		token.TargetID,
		token.MaxUses,
		token.UseCount,
		token.IssuedBy,
		token.CreatedAt,
		token.ExpiresAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create share token")
	}
	return nil
}

// GetBySecretHash retrieves a share token by its secret digest.
// Returns ErrShareTokenNotFound if no token matches.
func (p *PostgreSQLShareTokenRepository) GetBySecretHash(
	ctx context.Context,
	secretHash string,
) (*sharetokenDomain.ShareToken, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, secret_hash, target_id, max_uses, use_count, issued_by, created_at, expires_at
			  FROM share_tokens WHERE secret_hash = $1`

	var token sharetokenDomain.ShareToken

	err := querier.QueryRowContext(ctx, query, secretHash).Scan(
		&token.ID,
		&token.SecretHash,
		&token.TargetID,
		&token.MaxUses,
		&token.UseCount,
		&token.IssuedBy,
		&token.CreatedAt,
		&token.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sharetokenDomain.ErrShareTokenNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get share token")
	}

	return &token, nil
}

// ConsumeUse spends one use of the token in a single conditional update. The
// condition covers target, expiry, and budget, so a usable row is consumed
// atomically. Returns the row after the increment, or ErrShareTokenNotFound
// when no usable row matched; the caller classifies why.
func (p *PostgreSQLShareTokenRepository) ConsumeUse(
	ctx context.Context,
	secretHash string,
	targetID int64,
	now time.Time,
) (*sharetokenDomain.ShareToken, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE share_tokens SET use_count = use_count + 1
			  WHERE secret_hash = $1 AND target_id = $2 AND expires_at > $3
					AND (max_uses = 0 OR use_count < max_uses)
			  RETURNING id, secret_hash, target_id, max_uses, use_count, issued_by, created_at, expires_at`

	var token sharetokenDomain.ShareToken

	err := querier.QueryRowContext(ctx, query, secretHash, targetID, now).Scan(
		&token.ID,
		&token.SecretHash,
		&token.TargetID,
		&token.MaxUses,
		&token.UseCount,
		&token.IssuedBy,
		&token.CreatedAt,
		&token.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sharetokenDomain.ErrShareTokenNotFound
		}
		return nil, apperrors.Wrap(err, "failed to consume share token use")
	}

	return &token, nil
}

// Delete removes the token with the given secret digest. Returns whether a row
// was removed.
func (p *PostgreSQLShareTokenRepository) Delete(ctx context.Context, secretHash string) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM share_tokens WHERE secret_hash = $1`, secretHash)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to delete share token")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to check share token deletion")
	}
	return affected > 0, nil
}

// ListByTarget retrieves tokens issued for a target, newest first.
func (p *PostgreSQLShareTokenRepository) ListByTarget(
	ctx context.Context,
	targetID int64,
	limit, offset int,
) ([]*sharetokenDomain.ShareToken, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, secret_hash, target_id, max_uses, use_count, issued_by, created_at, expires_at
			  FROM share_tokens WHERE target_id = $1
			  ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := querier.QueryContext(ctx, query, targetID, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list share tokens")
	}
	defer func() { _ = rows.Close() }()

	var tokens []*sharetokenDomain.ShareToken
	for rows.Next() {
		var token sharetokenDomain.ShareToken
		err := rows.Scan(
			&token.ID,
			&token.SecretHash,
			&token.TargetID,
			&token.MaxUses,
			&token.UseCount,
			&token.IssuedBy,
			&token.CreatedAt,
			&token.ExpiresAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan share token")
		}
		tokens = append(tokens, &token)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate share tokens")
	}

	return tokens, nil
}

// DeleteDead removes tokens that are expired or have spent their budget.
func (p *PostgreSQLShareTokenRepository) DeleteDead(ctx context.Context, now time.Time) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM share_tokens
			  WHERE expires_at < $1 OR (max_uses <> 0 AND use_count >= max_uses)`

	result, err := querier.ExecContext(ctx, query, now)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete dead share tokens")
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count deleted share tokens")
	}
	return count, nil
}

// CountDead counts the tokens DeleteDead would remove.
func (p *PostgreSQLShareTokenRepository) CountDead(ctx context.Context, now time.Time) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT COUNT(*) FROM share_tokens
			  WHERE expires_at < $1 OR (max_uses <> 0 AND use_count >= max_uses)`

	var count int64
	if err := querier.QueryRowContext(ctx, query, now).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count dead share tokens")
	}
	return count, nil
}

// NewPostgreSQLShareTokenRepository creates a new PostgreSQL share token repository.
func NewPostgreSQLShareTokenRepository(db *sql.DB) *PostgreSQLShareTokenRepository {
	return &PostgreSQLShareTokenRepository{db: db}
}
