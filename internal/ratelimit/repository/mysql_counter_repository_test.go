package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ratelimitDomain "github.com/allisson/docgate/internal/ratelimit/domain"
)

func TestMySQLCounterRepository_Get(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMySQLCounterRepository(db)

		windowStart := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

		rows := sqlmock.NewRows(counterColumns()).
			AddRow("abc123", 2, windowStart, nil)

		mock.ExpectQuery(regexp.QuoteMeta("SELECT identifier, attempts, window_start, blocked_until")).
			WithArgs("abc123").
			WillReturnRows(rows)

		counter, err := repo.Get(context.Background(), "abc123")
		require.NoError(t, err)
		assert.Equal(t, 2, counter.Attempts)
		assert.True(t, counter.BlockedUntil.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMySQLCounterRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta("SELECT identifier, attempts, window_start, blocked_until")).
			WithArgs("abc123").
			WillReturnError(sql.ErrNoRows)

		counter, err := repo.Get(context.Background(), "abc123")
		assert.ErrorIs(t, err, ratelimitDomain.ErrCounterNotFound)
		assert.Nil(t, counter)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMySQLCounterRepository_StartWindow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMySQLCounterRepository(db)

	windowStart := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	counter := &ratelimitDomain.AttemptCounter{
		Identifier:  "abc123",
		Attempts:    1,
		WindowStart: windowStart,
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO rate_limit_counters")).
		WithArgs("abc123", 1, windowStart).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.StartWindow(context.Background(), counter)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLCounterRepository_Increment(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMySQLCounterRepository(db)

		windowStart := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE rate_limit_counters SET attempts = attempts + 1")).
			WithArgs("abc123", windowStart).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT attempts FROM rate_limit_counters")).
			WithArgs("abc123").
			WillReturnRows(sqlmock.NewRows([]string{"attempts"}).AddRow(4))

		attempts, err := repo.Increment(context.Background(), "abc123", windowStart)
		require.NoError(t, err)
		assert.Equal(t, 4, attempts)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error_WindowRotated", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMySQLCounterRepository(db)

		windowStart := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE rate_limit_counters SET attempts = attempts + 1")).
			WithArgs("abc123", windowStart).
			WillReturnResult(sqlmock.NewResult(0, 0))

		attempts, err := repo.Increment(context.Background(), "abc123", windowStart)
		assert.ErrorIs(t, err, ratelimitDomain.ErrCounterNotFound)
		assert.Zero(t, attempts)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMySQLCounterRepository_Block(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMySQLCounterRepository(db)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	blockedUntil := now.Add(15 * time.Minute)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE rate_limit_counters SET blocked_until = ?")).
		WithArgs(blockedUntil, "abc123", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	transitioned, err := repo.Block(context.Background(), "abc123", blockedUntil, now)
	require.NoError(t, err)
	assert.True(t, transitioned)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLCounterRepository_DeleteStale(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMySQLCounterRepository(db)

	cutoff := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM rate_limit_counters")).
		WithArgs(cutoff, cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	count, err := repo.DeleteStale(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
