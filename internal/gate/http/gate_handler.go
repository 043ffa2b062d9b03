// Package http provides HTTP handlers for access decisions and share link
// management. Handlers translate gate decisions into status codes: denials are
// structured responses, never opaque errors.
package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/allisson/docgate/internal/gate"
	"github.com/allisson/docgate/internal/gate/http/dto"
	"github.com/allisson/docgate/internal/httputil"
	sharetokenUsecase "github.com/allisson/docgate/internal/sharetoken/usecase"
	customValidation "github.com/allisson/docgate/internal/validation"
)

// GateHandler handles HTTP requests for access decisions and share links.
type GateHandler struct {
	gate   gate.Gate
	logger *slog.Logger
}

// NewGateHandler creates a new gate handler.
func NewGateHandler(accessGate gate.Gate, logger *slog.Logger) *GateHandler {
	return &GateHandler{
		gate:   accessGate,
		logger: logger,
	}
}

// VerifyPasswordHandler checks a submitted document password.
// POST /v1/documents/:id/password
// Returns 200 OK when granted, 401 on a wrong password, 429 with a
// Retry-After header when the client is throttled.
func (h *GateHandler) VerifyPasswordHandler(c *gin.Context) {
	documentID, err := parseDocumentID(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	var req dto.VerifyPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	decision, err := h.gate.VerifyDocumentPassword(
		c.Request.Context(),
		documentID,
		clientAddress(c, req.ClientAddress),
		req.Password,
		req.PasswordHash,
	)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.writeDecision(c, decision)
}

// ResolveShareLinkHandler validates a share link secret and spends one use.
// POST /v1/share-links/resolve
// Returns 200 OK when granted; token denials come back as 403 with the
// denial reason in the body.
func (h *GateHandler) ResolveShareLinkHandler(c *gin.Context) {
	var req dto.ResolveShareLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	decision, err := h.gate.ResolveShareLink(
		c.Request.Context(),
		req.Secret,
		req.DocumentID,
		clientAddress(c, req.ClientAddress),
	)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.writeDecision(c, decision)
}

// IssueShareLinkHandler creates a new share link.
// POST /v1/share-links
// Returns 201 Created with the plaintext secret. The secret is never
// retrievable again; the store keeps only its digest.
func (h *GateHandler) IssueShareLinkHandler(c *gin.Context) {
	var req dto.IssueShareLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	output, err := h.gate.IssueShareLink(c.Request.Context(), sharetokenUsecase.IssueInput{
		TargetID: req.DocumentID,
		MaxUses:  req.MaxUses,
		TTL:      time.Duration(req.TTLSeconds) * time.Second,
		IssuedBy: req.IssuedBy,
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	response := dto.MapTokenToShareLinkResponse(output.Token)
	response.Secret = output.Secret
	c.JSON(http.StatusCreated, response)
}

// ListShareLinksHandler retrieves share links for a document, newest first.
// GET /v1/documents/:id/share-links?offset=0&limit=50
func (h *GateHandler) ListShareLinksHandler(c *gin.Context) {
	documentID, err := parseDocumentID(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	tokens, err := h.gate.ListShareLinks(c.Request.Context(), documentID, limit, offset)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapTokensToListResponse(tokens))
}

// RevokeShareLinkHandler removes a share link by its secret.
// DELETE /v1/share-links/:secret
// Returns 204 No Content, or 404 when no such link exists.
func (h *GateHandler) RevokeShareLinkHandler(c *gin.Context) {
	secret := c.Param("secret")
	if secret == "" {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("secret cannot be empty"), h.logger)
		return
	}

	removed, err := h.gate.RevokeShareLink(c.Request.Context(), secret)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, httputil.ErrorResponse{
			Error:   "not_found",
			Message: "share link not found",
		})
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

// writeDecision maps a gate decision onto an HTTP response.
func (h *GateHandler) writeDecision(c *gin.Context, decision *gate.Decision) {
	if decision.Granted {
		c.JSON(http.StatusOK, dto.MapDecisionToResponse(decision))
		return
	}

	switch decision.Reason {
	case gate.ReasonRateLimited:
		httputil.HandleRateLimitedGin(c, decision.RetryAfter)
	case gate.ReasonInvalidPassword:
		c.JSON(http.StatusUnauthorized, dto.MapDecisionToResponse(decision))
	default:
		c.JSON(http.StatusForbidden, dto.MapDecisionToResponse(decision))
	}
}

// parseDocumentID extracts the document id path parameter.
func parseDocumentID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid document id: must be a positive integer")
	}
	return id, nil
}

// clientAddress prefers the address the calling application observed for its
// end user and falls back to the direct peer.
func clientAddress(c *gin.Context, fromRequest string) string {
	if fromRequest != "" {
		return fromRequest
	}
	return c.ClientIP()
}
