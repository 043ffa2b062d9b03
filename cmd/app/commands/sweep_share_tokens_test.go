package commands

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunSweepShareTokens(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("text-output", func(t *testing.T) {
		mockUseCase := &mockShareTokenUseCase{}
		mockUseCase.On("SweepDead", ctx, false).Return(int64(10), nil)

		var out bytes.Buffer
		err := RunSweepShareTokens(ctx, mockUseCase, logger, &out, false, "text")

		require.NoError(t, err)
		require.Contains(t, out.String(), "Successfully deleted 10 dead share token(s)")
		mockUseCase.AssertExpectations(t)
	})

	t.Run("json-output-dry-run", func(t *testing.T) {
		mockUseCase := &mockShareTokenUseCase{}
		mockUseCase.On("SweepDead", ctx, true).Return(int64(5), nil)

		var out bytes.Buffer
		err := RunSweepShareTokens(ctx, mockUseCase, logger, &out, true, "json")

		require.NoError(t, err)
		require.Contains(t, out.String(), `"count": 5`)
		require.Contains(t, out.String(), `"dry_run": true`)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("sweep-failure", func(t *testing.T) {
		mockUseCase := &mockShareTokenUseCase{}
		mockUseCase.On("SweepDead", ctx, false).Return(int64(0), errors.New("connection refused"))

		var out bytes.Buffer
		err := RunSweepShareTokens(ctx, mockUseCase, logger, &out, false, "text")

		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to sweep share tokens")
		mockUseCase.AssertExpectations(t)
	})
}
