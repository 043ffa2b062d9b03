// Package http provides HTTP handlers for license management.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/docgate/internal/httputil"
	"github.com/allisson/docgate/internal/license/http/dto"
	licenseUsecase "github.com/allisson/docgate/internal/license/usecase"
	customValidation "github.com/allisson/docgate/internal/validation"
)

// LicenseHandler handles HTTP requests for license activation and status.
type LicenseHandler struct {
	licenseUseCase licenseUsecase.UseCase
	logger         *slog.Logger
}

// NewLicenseHandler creates a new license handler.
func NewLicenseHandler(licenseUseCase licenseUsecase.UseCase, logger *slog.Logger) *LicenseHandler {
	return &LicenseHandler{
		licenseUseCase: licenseUseCase,
		logger:         logger,
	}
}

// StatusHandler reports the current license snapshot.
// GET /v1/license
// Returns 200 OK with the derived status; an absent key reads as inactive.
func (h *LicenseHandler) StatusHandler(c *gin.Context) {
	snapshot, err := h.licenseUseCase.Status(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapSnapshotToResponse(snapshot))
}

// ActivateHandler activates or replaces the license key.
// PUT /v1/license
// Returns 200 OK with the snapshot derived from the new key, or
// 422 Unprocessable Entity when the key matches no known format.
func (h *LicenseHandler) ActivateHandler(c *gin.Context) {
	var req dto.ActivateLicenseRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	snapshot, err := h.licenseUseCase.Activate(c.Request.Context(), req.Key)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapSnapshotToResponse(snapshot))
}
