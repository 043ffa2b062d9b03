// Package dto provides data transfer objects for license HTTP handlers.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/docgate/internal/validation"
)

// ActivateLicenseRequest contains the parameters for activating a license key.
type ActivateLicenseRequest struct {
	Key string `json:"key" binding:"required"`
}

// Validate checks if the activation request is valid.
func (r *ActivateLicenseRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Key,
			validation.Required,
			customValidation.NotBlank,
			customValidation.NoWhitespace,
		),
	)
}
