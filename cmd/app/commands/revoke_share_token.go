package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	sharetokenUsecase "github.com/allisson/docgate/internal/sharetoken/usecase"
)

// RunRevokeShareToken removes the share token matching the given secret.
// Returns an error when no token matches. Supports both text and JSON output.
func RunRevokeShareToken(
	ctx context.Context,
	useCase sharetokenUsecase.UseCase,
	logger *slog.Logger,
	w io.Writer,
	secret string,
	format string,
) error {
	if secret == "" {
		return fmt.Errorf("secret must not be empty")
	}

	logger.Info("revoking share token")

	existed, err := useCase.Revoke(ctx, secret)
	if err != nil {
		return fmt.Errorf("failed to revoke share token: %w", err)
	}
	if !existed {
		return fmt.Errorf("no share token matches the given secret")
	}

	if format == "json" {
		jsonBytes, err := json.MarshalIndent(map[string]interface{}{"revoked": true}, "", "  ")
		if err != nil {
			fmt.Fprintf(w, "failed to marshal JSON: %v\n", err)
			return nil
		}
		fmt.Fprintln(w, string(jsonBytes))
	} else {
		fmt.Fprintln(w, "Share token revoked")
	}

	logger.Info("share token revoked")
	return nil
}
