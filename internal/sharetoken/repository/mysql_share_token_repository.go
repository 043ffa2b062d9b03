package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/docgate/internal/database"
	apperrors "github.com/allisson/docgate/internal/errors"
	sharetokenDomain "github.com/allisson/docgate/internal/sharetoken/domain"
)

// MySQLShareTokenRepository implements share token persistence for MySQL.
// UUIDs are stored as CHAR(36) strings since MySQL has no native UUID type,
// and MySQL has no UPDATE ... RETURNING, so ConsumeUse re-reads the row after
// the conditional update; the update itself is still the serialization point.
type MySQLShareTokenRepository struct {
	db *sql.DB
}

// Create inserts a new share token. Returns an error if database insertion fails.
func (m *MySQLShareTokenRepository) Create(
	ctx context.Context,
	token *sharetokenDomain.ShareToken,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO share_tokens (id, secret_hash, target_id, max_uses, use_count, issued_by, created_at, expires_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		token.ID.String(),
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
func (m *MySQLShareTokenRepository) GetBySecretHash(
	ctx context.Context,
	secretHash string,
) (*sharetokenDomain.ShareToken, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, secret_hash, target_id, max_uses, use_count, issued_by, created_at, expires_at
			  FROM share_tokens WHERE secret_hash = ?`

	return m.scanToken(querier.QueryRowContext(ctx, query, secretHash))
}

// ConsumeUse spends one use of the token in a single conditional update.
// Returns the row after the increment, or ErrShareTokenNotFound when no usable
// row matched; the caller classifies why.
func (m *MySQLShareTokenRepository) ConsumeUse(
	ctx context.Context,
	secretHash string,
	targetID int64,
	now time.Time,
) (*sharetokenDomain.ShareToken, error) {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE share_tokens SET use_count = use_count + 1
			  WHERE secret_hash = ? AND target_id = ? AND expires_at > ?
					AND (max_uses = 0 OR use_count < max_uses)`

	result, err := querier.ExecContext(ctx, query, secretHash, targetID, now)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to consume share token use")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to check share token consumption")
	}
	if affected == 0 {
		return nil, sharetokenDomain.ErrShareTokenNotFound
	}

	query = `SELECT id, secret_hash, target_id, max_uses, use_count, issued_by, created_at, expires_at
			 FROM share_tokens WHERE secret_hash = ?`

	return m.scanToken(querier.QueryRowContext(ctx, query, secretHash))
}

// Delete removes the token with the given secret digest. Returns whether a row
// was removed.
func (m *MySQLShareTokenRepository) Delete(ctx context.Context, secretHash string) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM share_tokens WHERE secret_hash = ?`, secretHash)
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
func (m *MySQLShareTokenRepository) ListByTarget(
	ctx context.Context,
	targetID int64,
	limit, offset int,
) ([]*sharetokenDomain.ShareToken, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, secret_hash, target_id, max_uses, use_count, issued_by, created_at, expires_at
			  FROM share_tokens WHERE target_id = ?
			  ORDER BY created_at DESC LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, targetID, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list share tokens")
	}
	defer func() { _ = rows.Close() }()

	var tokens []*sharetokenDomain.ShareToken
	for rows.Next() {
		var token sharetokenDomain.ShareToken
		var id string

		err := rows.Scan(
			&id,
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

		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to parse share token id")
		}
		token.ID = parsed

		tokens = append(tokens, &token)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate share tokens")
	}

	return tokens, nil
}

// DeleteDead removes tokens that are expired or have spent their budget.
func (m *MySQLShareTokenRepository) DeleteDead(ctx context.Context, now time.Time) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM share_tokens
			  WHERE expires_at < ? OR (max_uses <> 0 AND use_count >= max_uses)`

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
func (m *MySQLShareTokenRepository) CountDead(ctx context.Context, now time.Time) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT COUNT(*) FROM share_tokens
			  WHERE expires_at < ? OR (max_uses <> 0 AND use_count >= max_uses)`

	var count int64
	if err := querier.QueryRowContext(ctx, query, now).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count dead share tokens")
	}
	return count, nil
}

func (m *MySQLShareTokenRepository) scanToken(row *sql.Row) (*sharetokenDomain.ShareToken, error) {
	var token sharetokenDomain.ShareToken
	var id string

	err := row.Scan(
		&id,
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

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to parse share token id")
	}
	token.ID = parsed

	return &token, nil
}

// NewMySQLShareTokenRepository creates a new MySQL share token repository.
func NewMySQLShareTokenRepository(db *sql.DB) *MySQLShareTokenRepository {
	return &MySQLShareTokenRepository{db: db}
}
