package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	licenseDomain "github.com/allisson/docgate/internal/license/domain"
	licenseUsecase "github.com/allisson/docgate/internal/license/usecase"
)

// RunLicenseStatus reports the current license status. With refresh enabled it
// also persists the derived status when the cached column is stale.
// Supports both text and JSON output formats.
func RunLicenseStatus(
	ctx context.Context,
	useCase licenseUsecase.UseCase,
	logger *slog.Logger,
	w io.Writer,
	refresh bool,
	format string,
) error {
	logger.Info("checking license status", slog.Bool("refresh", refresh))

	var snapshot *licenseDomain.StatusSnapshot
	var err error
	if refresh {
		snapshot, err = useCase.RefreshStatus(ctx)
	} else {
		snapshot, err = useCase.Status(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to derive license status: %w", err)
	}

	if format == "json" {
		outputSnapshotJSON(w, snapshot)
	} else {
		outputSnapshotText(w, snapshot)
	}

	return nil
}
