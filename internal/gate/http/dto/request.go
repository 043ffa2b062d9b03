// Package dto provides data transfer objects for access gate HTTP handlers.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/docgate/internal/validation"
)

// VerifyPasswordRequest contains the parameters for a document password check.
// The stored hash travels with the request because the document store lives in
// the calling application, not here.
type VerifyPasswordRequest struct {
	Password      string `json:"password" binding:"required"`
	PasswordHash  string `json:"password_hash" binding:"required"`
	ClientAddress string `json:"client_address"`
}

// Validate checks if the password verification request is valid.
func (r *VerifyPasswordRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Password, validation.Required),
		validation.Field(&r.PasswordHash, validation.Required, customValidation.NotBlank),
	)
}

// ResolveShareLinkRequest contains the parameters for resolving a share link.
type ResolveShareLinkRequest struct {
	Secret        string `json:"secret" binding:"required"`
	DocumentID    int64  `json:"document_id" binding:"required"`
	ClientAddress string `json:"client_address"`
}

// Validate checks if the resolve request is valid.
func (r *ResolveShareLinkRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Secret, validation.Required, customValidation.NotBlank, customValidation.NoWhitespace),
		validation.Field(&r.DocumentID, validation.Required, validation.Min(int64(1))),
	)
}

// IssueShareLinkRequest contains the parameters for issuing a share link.
// MaxUses zero means unlimited; TTLSeconds zero means the configured default.
type IssueShareLinkRequest struct {
	DocumentID int64  `json:"document_id" binding:"required"`
	MaxUses    int    `json:"max_uses"`
	TTLSeconds int64  `json:"ttl_seconds"`
	IssuedBy   string `json:"issued_by"`
}

// Validate checks if the issue request is valid.
func (r *IssueShareLinkRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.DocumentID, validation.Required, validation.Min(int64(1))),
		validation.Field(&r.MaxUses, validation.Min(0)),
		validation.Field(&r.TTLSeconds, validation.Min(int64(0))),
	)
}
