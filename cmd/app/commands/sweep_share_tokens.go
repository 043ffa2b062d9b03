package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	sharetokenUsecase "github.com/allisson/docgate/internal/sharetoken/usecase"
)

// RunSweepShareTokens deletes share tokens that are expired or have spent
// their use budget. Supports dry-run mode to preview the deletion count and
// both text/JSON output formats.
//
// Requirements: Database must be migrated and accessible.
func RunSweepShareTokens(
	ctx context.Context,
	useCase sharetokenUsecase.UseCase,
	logger *slog.Logger,
	w io.Writer,
	dryRun bool,
	format string,
) error {
	logger.Info("sweeping dead share tokens", slog.Bool("dry_run", dryRun))

	count, err := useCase.SweepDead(ctx, dryRun)
	if err != nil {
		return fmt.Errorf("failed to sweep share tokens: %w", err)
	}

	if format == "json" {
		outputSweepJSON(w, count, dryRun)
	} else {
		outputSweepText(w, count, dryRun)
	}

	logger.Info("sweep completed",
		slog.Int64("count", count),
		slog.Bool("dry_run", dryRun),
	)

	return nil
}

// outputSweepText outputs the result in human-readable text format.
func outputSweepText(w io.Writer, count int64, dryRun bool) {
	if dryRun {
		fmt.Fprintf(w, "Dry-run mode: Would delete %d dead share token(s)\n", count)
	} else {
		fmt.Fprintf(w, "Successfully deleted %d dead share token(s)\n", count)
	}
}

// outputSweepJSON outputs the result in JSON format for machine consumption.
func outputSweepJSON(w io.Writer, count int64, dryRun bool) {
	result := map[string]interface{}{
		"count":   count,
		"dry_run": dryRun,
	}

	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(w, "failed to marshal JSON: %v\n", err)
		return
	}

	fmt.Fprintln(w, string(jsonBytes))
}
