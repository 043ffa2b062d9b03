package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	licenseDomain "github.com/allisson/docgate/internal/license/domain"
	licenseUsecase "github.com/allisson/docgate/internal/license/usecase"
)

// RunLicenseSet activates a license key, replacing any previously stored key.
// Supports both text and JSON output formats.
func RunLicenseSet(
	ctx context.Context,
	useCase licenseUsecase.UseCase,
	logger *slog.Logger,
	w io.Writer,
	key string,
	format string,
) error {
	if key == "" {
		return fmt.Errorf("license key must not be empty")
	}

	logger.Info("activating license key")

	snapshot, err := useCase.Activate(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to activate license: %w", err)
	}

	if format == "json" {
		outputSnapshotJSON(w, snapshot)
	} else {
		outputSnapshotText(w, snapshot)
	}

	logger.Info("license activated",
		slog.String("status", string(snapshot.Status)),
		slog.String("tier", string(snapshot.Tier)),
	)

	return nil
}

// outputSnapshotText outputs a license status snapshot in human-readable form.
func outputSnapshotText(w io.Writer, snapshot *licenseDomain.StatusSnapshot) {
	fmt.Fprintf(w, "Status:  %s\n", snapshot.Status)
	fmt.Fprintf(w, "Tier:    %s\n", snapshot.Tier)
	fmt.Fprintf(w, "Usable:  %t\n", snapshot.Usable)
	if snapshot.ExpiresAt != nil {
		fmt.Fprintf(w, "Expires: %s\n", snapshot.ExpiresAt.Format(time.RFC3339))
	}
	if snapshot.GraceEndsAt != nil {
		fmt.Fprintf(w, "Grace ends: %s\n", snapshot.GraceEndsAt.Format(time.RFC3339))
	}
}

// outputSnapshotJSON outputs a license status snapshot in JSON format.
func outputSnapshotJSON(w io.Writer, snapshot *licenseDomain.StatusSnapshot) {
	result := map[string]interface{}{
		"status": string(snapshot.Status),
		"tier":   string(snapshot.Tier),
		"usable": snapshot.Usable,
	}
	if snapshot.ExpiresAt != nil {
		result["expires_at"] = snapshot.ExpiresAt.Format(time.RFC3339)
	}
	if snapshot.GraceEndsAt != nil {
		result["grace_ends_at"] = snapshot.GraceEndsAt.Format(time.RFC3339)
	}

	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(w, "failed to marshal JSON: %v\n", err)
		return
	}

	fmt.Fprintln(w, string(jsonBytes))
}
