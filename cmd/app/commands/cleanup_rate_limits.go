package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	ratelimitUsecase "github.com/allisson/docgate/internal/ratelimit/usecase"
)

// RunCleanupRateLimits deletes attempt counters that have been idle for longer
// than the given duration. Supports both text and JSON output formats.
//
// Requirements: The configured counter backend must be accessible.
func RunCleanupRateLimits(
	ctx context.Context,
	limiter ratelimitUsecase.Limiter,
	logger *slog.Logger,
	w io.Writer,
	olderThan time.Duration,
	format string,
) error {
	if olderThan <= 0 {
		return fmt.Errorf("older-than must be a positive duration, got: %s", olderThan)
	}

	logger.Info("cleaning up stale rate limit counters",
		slog.Duration("older_than", olderThan),
	)

	count, err := limiter.Cleanup(ctx, olderThan)
	if err != nil {
		return fmt.Errorf("failed to cleanup rate limit counters: %w", err)
	}

	if format == "json" {
		outputCleanupJSON(w, count, olderThan)
	} else {
		outputCleanupText(w, count, olderThan)
	}

	logger.Info("cleanup completed", slog.Int64("count", count))

	return nil
}

// outputCleanupText outputs the result in human-readable text format.
func outputCleanupText(w io.Writer, count int64, olderThan time.Duration) {
	fmt.Fprintf(w, "Successfully deleted %d stale counter(s) older than %s\n", count, olderThan)
}

// outputCleanupJSON outputs the result in JSON format for machine consumption.
func outputCleanupJSON(w io.Writer, count int64, olderThan time.Duration) {
	result := map[string]interface{}{
		"count":      count,
		"older_than": olderThan.String(),
	}

	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(w, "failed to marshal JSON: %v\n", err)
		return
	}

	fmt.Fprintln(w, string(jsonBytes))
}
