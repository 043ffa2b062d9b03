package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/allisson/docgate/internal/clock"
	apperrors "github.com/allisson/docgate/internal/errors"
	sharetokenDomain "github.com/allisson/docgate/internal/sharetoken/domain"
	sharetokenService "github.com/allisson/docgate/internal/sharetoken/service"
)

// mockShareTokenRepository is a mock implementation of ShareTokenRepository for testing.
type mockShareTokenRepository struct {
	mock.Mock
}

func (m *mockShareTokenRepository) Create(ctx context.Context, token *sharetokenDomain.ShareToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *mockShareTokenRepository) GetBySecretHash(
	ctx context.Context,
	secretHash string,
) (*sharetokenDomain.ShareToken, error) {
	args := m.Called(ctx, secretHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sharetokenDomain.ShareToken), args.Error(1)
}

func (m *mockShareTokenRepository) ConsumeUse(
	ctx context.Context,
	secretHash string,
	targetID int64,
	now time.Time,
) (*sharetokenDomain.ShareToken, error) {
	args := m.Called(ctx, secretHash, targetID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sharetokenDomain.ShareToken), args.Error(1)
}

func (m *mockShareTokenRepository) Delete(ctx context.Context, secretHash string) (bool, error) {
	args := m.Called(ctx, secretHash)
	return args.Bool(0), args.Error(1)
}

func (m *mockShareTokenRepository) ListByTarget(
	ctx context.Context,
	targetID int64,
	limit, offset int,
) ([]*sharetokenDomain.ShareToken, error) {
	args := m.Called(ctx, targetID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*sharetokenDomain.ShareToken), args.Error(1)
}

func (m *mockShareTokenRepository) DeleteDead(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockShareTokenRepository) CountDead(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func newShareTokenUseCase(repo *mockShareTokenRepository, clk clock.Clock) UseCase {
	return NewShareTokenUseCase(repo, sharetokenService.NewSecretService(), clk, 24*time.Hour)
}

func TestShareTokenUseCase_Issue(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Success_DefaultTTL", func(t *testing.T) {
		repo := &mockShareTokenRepository{}
		repo.On("Create", ctx, mock.MatchedBy(func(token *sharetokenDomain.ShareToken) bool {
			return token.TargetID == 42 &&
				token.MaxUses == 3 &&
				token.UseCount == 0 &&
				token.IssuedBy == "admin" &&
				token.ExpiresAt.Equal(now.Add(24*time.Hour))
		})).Return(nil).Once()

		useCase := newShareTokenUseCase(repo, clock.NewFixed(now))

		output, err := useCase.Issue(ctx, IssueInput{TargetID: 42, MaxUses: 3, IssuedBy: "admin"})
		require.NoError(t, err)
		assert.NotEmpty(t, output.Secret)
		assert.NotEqual(t, output.Secret, output.Token.SecretHash, "plain secret must never be stored")

		repo.AssertExpectations(t)
	})

	t.Run("Success_ExplicitTTL", func(t *testing.T) {
		repo := &mockShareTokenRepository{}
		repo.On("Create", ctx, mock.MatchedBy(func(token *sharetokenDomain.ShareToken) bool {
			return token.ExpiresAt.Equal(now.Add(time.Hour))
		})).Return(nil).Once()

		useCase := newShareTokenUseCase(repo, clock.NewFixed(now))

		_, err := useCase.Issue(ctx, IssueInput{TargetID: 42, TTL: time.Hour})
		require.NoError(t, err)

		repo.AssertExpectations(t)
	})

	t.Run("Error_InvalidTarget", func(t *testing.T) {
		repo := &mockShareTokenRepository{}
		useCase := newShareTokenUseCase(repo, clock.NewFixed(now))

		output, err := useCase.Issue(ctx, IssueInput{TargetID: 0})
		assert.ErrorIs(t, err, sharetokenDomain.ErrInvalidShareTokenInput)
		assert.Nil(t, output)

		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Error_NegativeMaxUses", func(t *testing.T) {
		repo := &mockShareTokenRepository{}
		useCase := newShareTokenUseCase(repo, clock.NewFixed(now))

		output, err := useCase.Issue(ctx, IssueInput{TargetID: 42, MaxUses: -1})
		assert.ErrorIs(t, err, sharetokenDomain.ErrInvalidShareTokenInput)
		assert.Nil(t, output)
	})
}

func TestShareTokenUseCase_ValidateAndConsume(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	secrets := sharetokenService.NewSecretService()

	secret := "link-secret"
	secretHash := secrets.HashSecret(secret)

	t.Run("Success_ConsumesOneUse", func(t *testing.T) {
		repo := &mockShareTokenRepository{}
		repo.On("ConsumeUse", ctx, secretHash, int64(42), now).Return(&sharetokenDomain.ShareToken{
			SecretHash: secretHash,
			TargetID:   42,
			MaxUses:    3,
			UseCount:   2,
			ExpiresAt:  now.Add(time.Hour),
		}, nil).Once()

		useCase := newShareTokenUseCase(repo, clock.NewFixed(now))

		result, err := useCase.ValidateAndConsume(ctx, secret, 42)
		require.NoError(t, err)
		assert.True(t, result.Granted)
		require.NotNil(t, result.RemainingUses)
		assert.Equal(t, 1, *result.RemainingUses)
		assert.True(t, result.ExpiresAt.Equal(now.Add(time.Hour)))

		repo.AssertExpectations(t)
	})

	t.Run("Success_UnlimitedTokenHasNoRemaining", func(t *testing.T) {
		repo := &mockShareTokenRepository{}
		repo.On("ConsumeUse", ctx, secretHash, int64(42), now).Return(&sharetokenDomain.ShareToken{
			SecretHash: secretHash,
			TargetID:   42,
			MaxUses:    sharetokenDomain.UnlimitedUses,
			UseCount:   99,
			ExpiresAt:  now.Add(time.Hour),
		}, nil).Once()

		useCase := newShareTokenUseCase(repo, clock.NewFixed(now))

		result, err := useCase.ValidateAndConsume(ctx, secret, 42)
		require.NoError(t, err)
		assert.True(t, result.Granted)
		assert.Nil(t, result.RemainingUses)
	})

	t.Run("Denied_UnknownSecret", func(t *testing.T) {
		repo := &mockShareTokenRepository{}
		repo.On("ConsumeUse", ctx, secretHash, int64(42), now).
			Return(nil, sharetokenDomain.ErrShareTokenNotFound).Once()
		repo.On("GetBySecretHash", ctx, secretHash).
			Return(nil, sharetokenDomain.ErrShareTokenNotFound).Once()

		useCase := newShareTokenUseCase(repo, clock.NewFixed(now))

		result, err := useCase.ValidateAndConsume(ctx, secret, 42)
		require.NoError(t, err)
		assert.False(t, result.Granted)
		assert.Equal(t, sharetokenDomain.DenialNotFound, result.Reason)
	})

	t.Run("Denied_WrongTarget", func(t *testing.T) {
		repo := &mockShareTokenRepository{}
		repo.On("ConsumeUse", ctx, secretHash, int64(7), now).
			Return(nil, sharetokenDomain.ErrShareTokenNotFound).Once()
		repo.On("GetBySecretHash", ctx, secretHash).Return(&sharetokenDomain.ShareToken{
			SecretHash: secretHash,
			TargetID:   42,
			ExpiresAt:  now.Add(time.Hour),
		}, nil).Once()

		useCase := newShareTokenUseCase(repo, clock.NewFixed(now))

		result, err := useCase.ValidateAndConsume(ctx, secret, 7)
		require.NoError(t, err)
		assert.Equal(t, sharetokenDomain.DenialWrongTarget, result.Reason)

		repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("Denied_ExpiredTokenRemovedLazily", func(t *testing.T) {
		repo := &mockShareTokenRepository{}
		repo.On("ConsumeUse", ctx, secretHash, int64(42), now).
			Return(nil, sharetokenDomain.ErrShareTokenNotFound).Once()
		repo.On("GetBySecretHash", ctx, secretHash).Return(&sharetokenDomain.ShareToken{
			SecretHash: secretHash,
			TargetID:   42,
			ExpiresAt:  now.Add(-time.Minute),
		}, nil).Once()
		repo.On("Delete", ctx, secretHash).Return(true, nil).Once()

		useCase := newShareTokenUseCase(repo, clock.NewFixed(now))

		result, err := useCase.ValidateAndConsume(ctx, secret, 42)
		require.NoError(t, err)
		assert.Equal(t, sharetokenDomain.DenialExpired, result.Reason)

		repo.AssertExpectations(t)
	})

	t.Run("Denied_ExhaustedTokenRemovedLazily", func(t *testing.T) {
		repo := &mockShareTokenRepository{}
		repo.On("ConsumeUse", ctx, secretHash, int64(42), now).
			Return(nil, sharetokenDomain.ErrShareTokenNotFound).Once()
		repo.On("GetBySecretHash", ctx, secretHash).Return(&sharetokenDomain.ShareToken{
			SecretHash: secretHash,
			TargetID:   42,
			MaxUses:    1,
			UseCount:   1,
			ExpiresAt:  now.Add(time.Hour),
		}, nil).Once()
		repo.On("Delete", ctx, secretHash).Return(true, nil).Once()

		useCase := newShareTokenUseCase(repo, clock.NewFixed(now))

		result, err := useCase.ValidateAndConsume(ctx, secret, 42)
		require.NoError(t, err)
		assert.Equal(t, sharetokenDomain.DenialExhausted, result.Reason)

		repo.AssertExpectations(t)
	})

	t.Run("Success_RetriesAfterLostRace", func(t *testing.T) {
		repo := &mockShareTokenRepository{}
		// First consume misses, but the re-read still shows a usable row, so
		// the consume is retried and succeeds.
		repo.On("ConsumeUse", ctx, secretHash, int64(42), now).
			Return(nil, sharetokenDomain.ErrShareTokenNotFound).Once()
		repo.On("GetBySecretHash", ctx, secretHash).Return(&sharetokenDomain.ShareToken{
			SecretHash: secretHash,
			TargetID:   42,
			MaxUses:    3,
			UseCount:   1,
			ExpiresAt:  now.Add(time.Hour),
		}, nil).Once()
		repo.On("ConsumeUse", ctx, secretHash, int64(42), now).Return(&sharetokenDomain.ShareToken{
			SecretHash: secretHash,
			TargetID:   42,
			MaxUses:    3,
			UseCount:   2,
			ExpiresAt:  now.Add(time.Hour),
		}, nil).Once()

		useCase := newShareTokenUseCase(repo, clock.NewFixed(now))

		result, err := useCase.ValidateAndConsume(ctx, secret, 42)
		require.NoError(t, err)
		assert.True(t, result.Granted)

		repo.AssertExpectations(t)
	})

	t.Run("Error_StorageFailurePropagates", func(t *testing.T) {
		repo := &mockShareTokenRepository{}
		repo.On("ConsumeUse", ctx, secretHash, int64(42), now).Return(nil, assert.AnError).Once()

		useCase := newShareTokenUseCase(repo, clock.NewFixed(now))

		result, err := useCase.ValidateAndConsume(ctx, secret, 42)
		assert.ErrorIs(t, err, assert.AnError)
		assert.Nil(t, result)
	})

	t.Run("Error_RetriesExhausted", func(t *testing.T) {
		repo := &mockShareTokenRepository{}
		repo.On("ConsumeUse", ctx, secretHash, int64(42), now).
			Return(nil, sharetokenDomain.ErrShareTokenNotFound).Times(3)
		repo.On("GetBySecretHash", ctx, secretHash).Return(&sharetokenDomain.ShareToken{
			SecretHash: secretHash,
			TargetID:   42,
			MaxUses:    3,
			UseCount:   1,
			ExpiresAt:  now.Add(time.Hour),
		}, nil).Times(3)

		useCase := newShareTokenUseCase(repo, clock.NewFixed(now))

		result, err := useCase.ValidateAndConsume(ctx, secret, 42)
		assert.ErrorIs(t, err, apperrors.ErrUnavailable)
		assert.Nil(t, result)
	})
}

func TestShareTokenUseCase_Revoke(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	secrets := sharetokenService.NewSecretService()

	repo := &mockShareTokenRepository{}
	repo.On("Delete", ctx, secrets.HashSecret("link-secret")).Return(true, nil).Once()

	useCase := newShareTokenUseCase(repo, clock.NewFixed(now))

	removed, err := useCase.Revoke(ctx, "link-secret")
	require.NoError(t, err)
	assert.True(t, removed)

	repo.AssertExpectations(t)
}

func TestShareTokenUseCase_SweepDead(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("RemovesDeadTokens", func(t *testing.T) {
		repo := &mockShareTokenRepository{}
		repo.On("DeleteDead", ctx, now).Return(int64(6), nil).Once()

		useCase := newShareTokenUseCase(repo, clock.NewFixed(now))

		count, err := useCase.SweepDead(ctx, false)
		require.NoError(t, err)
		assert.Equal(t, int64(6), count)

		repo.AssertExpectations(t)
	})

	t.Run("DryRunOnlyCounts", func(t *testing.T) {
		repo := &mockShareTokenRepository{}
		repo.On("CountDead", ctx, now).Return(int64(6), nil).Once()

		useCase := newShareTokenUseCase(repo, clock.NewFixed(now))

		count, err := useCase.SweepDead(ctx, true)
		require.NoError(t, err)
		assert.Equal(t, int64(6), count)

		repo.AssertNotCalled(t, "DeleteDead")
		repo.AssertExpectations(t)
	})
}
