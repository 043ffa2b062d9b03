package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sharetokenDomain "github.com/allisson/docgate/internal/sharetoken/domain"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db, mock
}

func shareTokenColumns() []string {
	return []string{"id", "secret_hash", "target_id", "max_uses", "use_count", "issued_by", "created_at", "expires_at"}
}

func TestPostgreSQLShareTokenRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgreSQLShareTokenRepository(db)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	token := &sharetokenDomain.ShareToken{
		ID:         uuid.Must(uuid.NewV7()),
		SecretHash: "abc123",
		TargetID:   42,
		MaxUses:    3,
		UseCount:   0,
		IssuedBy:   "admin",
		CreatedAt:  now,
		ExpiresAt:  now.Add(24 * time.Hour),
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO share_tokens")).
		WithArgs(token.ID, token.SecretHash, token.TargetID, token.MaxUses, token.UseCount,
			token.IssuedBy, token.CreatedAt, token.ExpiresAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), token)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLShareTokenRepository_GetBySecretHash(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLShareTokenRepository(db)

		id := uuid.Must(uuid.NewV7())
		now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

		rows := sqlmock.NewRows(shareTokenColumns()).
			AddRow(id, "abc123", int64(42), 3, 1, "admin", now, now.Add(24*time.Hour))

		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, secret_hash, target_id, max_uses, use_count")).
			WithArgs("abc123").
			WillReturnRows(rows)

		token, err := repo.GetBySecretHash(context.Background(), "abc123")
		require.NoError(t, err)
		assert.Equal(t, id, token.ID)
		assert.Equal(t, int64(42), token.TargetID)
		assert.Equal(t, 1, token.UseCount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLShareTokenRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, secret_hash, target_id, max_uses, use_count")).
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		token, err := repo.GetBySecretHash(context.Background(), "missing")
		assert.ErrorIs(t, err, sharetokenDomain.ErrShareTokenNotFound)
		assert.Nil(t, token)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgreSQLShareTokenRepository_ConsumeUse(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLShareTokenRepository(db)

		id := uuid.Must(uuid.NewV7())
		now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

		rows := sqlmock.NewRows(shareTokenColumns()).
			AddRow(id, "abc123", int64(42), 3, 2, "admin", now.Add(-time.Hour), now.Add(time.Hour))

		mock.ExpectQuery(regexp.QuoteMeta("UPDATE share_tokens SET use_count = use_count + 1")).
			WithArgs("abc123", int64(42), now).
			WillReturnRows(rows)

		token, err := repo.ConsumeUse(context.Background(), "abc123", 42, now)
		require.NoError(t, err)
		assert.Equal(t, 2, token.UseCount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error_NoUsableRow", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLShareTokenRepository(db)

		now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

		mock.ExpectQuery(regexp.QuoteMeta("UPDATE share_tokens SET use_count = use_count + 1")).
			WithArgs("abc123", int64(42), now).
			WillReturnError(sql.ErrNoRows)

		token, err := repo.ConsumeUse(context.Background(), "abc123", 42, now)
		assert.ErrorIs(t, err, sharetokenDomain.ErrShareTokenNotFound)
		assert.Nil(t, token)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgreSQLShareTokenRepository_Delete(t *testing.T) {
	t.Run("Success_Removed", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLShareTokenRepository(db)

		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM share_tokens WHERE secret_hash = $1")).
			WithArgs("abc123").
			WillReturnResult(sqlmock.NewResult(0, 1))

		removed, err := repo.Delete(context.Background(), "abc123")
		require.NoError(t, err)
		assert.True(t, removed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success_AlreadyGone", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLShareTokenRepository(db)

		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM share_tokens WHERE secret_hash = $1")).
			WithArgs("abc123").
			WillReturnResult(sqlmock.NewResult(0, 0))

		removed, err := repo.Delete(context.Background(), "abc123")
		require.NoError(t, err)
		assert.False(t, removed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgreSQLShareTokenRepository_ListByTarget(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgreSQLShareTokenRepository(db)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(shareTokenColumns()).
		AddRow(uuid.Must(uuid.NewV7()), "hash1", int64(42), 3, 0, "admin", now, now.Add(time.Hour)).
		AddRow(uuid.Must(uuid.NewV7()), "hash2", int64(42), 0, 10, "admin", now.Add(-time.Hour), now.Add(time.Hour))

	mock.ExpectQuery(regexp.QuoteMeta("FROM share_tokens WHERE target_id = $1")).
		WithArgs(int64(42), 10, 0).
		WillReturnRows(rows)

	tokens, err := repo.ListByTarget(context.Background(), 42, 10, 0)
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, "hash1", tokens[0].SecretHash)
	assert.Equal(t, "hash2", tokens[1].SecretHash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLShareTokenRepository_DeleteDead(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgreSQLShareTokenRepository(db)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM share_tokens")).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 5))

	count, err := repo.DeleteDead(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLShareTokenRepository_CountDead(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgreSQLShareTokenRepository(db)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM share_tokens")).
		WithArgs(now).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))

	count, err := repo.CountDead(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
