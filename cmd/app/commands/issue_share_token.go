package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	sharetokenUsecase "github.com/allisson/docgate/internal/sharetoken/usecase"
)

// RunIssueShareToken creates a new share token for a document and prints the
// plain secret. The secret is shown exactly once and cannot be recovered
// afterwards. Supports both text and JSON output formats.
func RunIssueShareToken(
	ctx context.Context,
	useCase sharetokenUsecase.UseCase,
	logger *slog.Logger,
	w io.Writer,
	documentID int64,
	maxUses int,
	ttl time.Duration,
	issuedBy string,
	format string,
) error {
	if documentID < 1 {
		return fmt.Errorf("document-id must be a positive number, got: %d", documentID)
	}

	logger.Info("issuing share token",
		slog.Int64("document_id", documentID),
		slog.Int("max_uses", maxUses),
		slog.Duration("ttl", ttl),
	)

	output, err := useCase.Issue(ctx, sharetokenUsecase.IssueInput{
		TargetID: documentID,
		MaxUses:  maxUses,
		TTL:      ttl,
		IssuedBy: issuedBy,
	})
	if err != nil {
		return fmt.Errorf("failed to issue share token: %w", err)
	}

	if format == "json" {
		outputIssueJSON(w, output)
	} else {
		outputIssueText(w, output)
	}

	logger.Info("share token issued",
		slog.String("token_id", output.Token.ID.String()),
		slog.Int64("document_id", documentID),
	)

	return nil
}

// outputIssueText outputs the issued token in human-readable text format.
func outputIssueText(w io.Writer, output *sharetokenUsecase.IssueOutput) {
	token := output.Token
	fmt.Fprintf(w, "Share token issued for document %d\n", token.TargetID)
	fmt.Fprintf(w, "Secret:  %s\n", output.Secret)
	fmt.Fprintf(w, "Expires: %s\n", token.ExpiresAt.Format(time.RFC3339))
	if token.MaxUses == 0 {
		fmt.Fprintf(w, "Uses:    unlimited\n")
	} else {
		fmt.Fprintf(w, "Uses:    %d\n", token.MaxUses)
	}
	fmt.Fprintln(w, "Store the secret now. It cannot be shown again.")
}

// outputIssueJSON outputs the issued token in JSON format.
func outputIssueJSON(w io.Writer, output *sharetokenUsecase.IssueOutput) {
	token := output.Token
	result := map[string]interface{}{
		"id":          token.ID.String(),
		"secret":      output.Secret,
		"document_id": token.TargetID,
		"max_uses":    token.MaxUses,
		"issued_by":   token.IssuedBy,
		"expires_at":  token.ExpiresAt.Format(time.RFC3339),
	}

	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(w, "failed to marshal JSON: %v\n", err)
		return
	}

	fmt.Fprintln(w, string(jsonBytes))
}
