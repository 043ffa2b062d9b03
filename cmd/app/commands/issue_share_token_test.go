package commands

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	sharetokenDomain "github.com/allisson/docgate/internal/sharetoken/domain"
	sharetokenUsecase "github.com/allisson/docgate/internal/sharetoken/usecase"
)

func TestRunIssueShareToken(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()
	expiresAt := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	t.Run("text-output", func(t *testing.T) {
		mockUseCase := &mockShareTokenUseCase{}
		mockUseCase.On("Issue", ctx, sharetokenUsecase.IssueInput{
			TargetID: 42,
			MaxUses:  5,
			TTL:      time.Hour,
			IssuedBy: "admin",
		}).Return(&sharetokenUsecase.IssueOutput{
			Secret: "plain-secret",
			Token: &sharetokenDomain.ShareToken{
				ID:        uuid.Must(uuid.NewV7()),
				TargetID:  42,
				MaxUses:   5,
				IssuedBy:  "admin",
				ExpiresAt: expiresAt,
			},
		}, nil)

		var out bytes.Buffer
		err := RunIssueShareToken(ctx, mockUseCase, logger, &out, 42, 5, time.Hour, "admin", "text")

		require.NoError(t, err)
		require.Contains(t, out.String(), "Secret:  plain-secret")
		require.Contains(t, out.String(), "Uses:    5")
		require.Contains(t, out.String(), "cannot be shown again")
		mockUseCase.AssertExpectations(t)
	})

	t.Run("json-output-unlimited-uses", func(t *testing.T) {
		mockUseCase := &mockShareTokenUseCase{}
		mockUseCase.On("Issue", ctx, sharetokenUsecase.IssueInput{
			TargetID: 7,
			IssuedBy: "admin",
		}).Return(&sharetokenUsecase.IssueOutput{
			Secret: "plain-secret",
			Token: &sharetokenDomain.ShareToken{
				ID:        uuid.Must(uuid.NewV7()),
				TargetID:  7,
				IssuedBy:  "admin",
				ExpiresAt: expiresAt,
			},
		}, nil)

		var out bytes.Buffer
		err := RunIssueShareToken(ctx, mockUseCase, logger, &out, 7, 0, 0, "admin", "json")

		require.NoError(t, err)
		require.Contains(t, out.String(), `"secret": "plain-secret"`)
		require.Contains(t, out.String(), `"max_uses": 0`)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("invalid-document-id", func(t *testing.T) {
		mockUseCase := &mockShareTokenUseCase{}
		err := RunIssueShareToken(ctx, mockUseCase, logger, &bytes.Buffer{}, 0, 1, time.Hour, "admin", "text")

		require.Error(t, err)
		require.Contains(t, err.Error(), "document-id must be a positive number")
		mockUseCase.AssertNotCalled(t, "Issue")
	})

	t.Run("issue-failure", func(t *testing.T) {
		mockUseCase := &mockShareTokenUseCase{}
		mockUseCase.On("Issue", ctx, sharetokenUsecase.IssueInput{
			TargetID: 42,
			MaxUses:  -1,
			IssuedBy: "admin",
		}).Return(nil, sharetokenDomain.ErrInvalidShareTokenInput)

		var out bytes.Buffer
		err := RunIssueShareToken(ctx, mockUseCase, logger, &out, 42, -1, 0, "admin", "text")

		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to issue share token")
		mockUseCase.AssertExpectations(t)
	})
}
