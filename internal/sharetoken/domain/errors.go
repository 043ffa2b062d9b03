package domain

import (
	"github.com/allisson/docgate/internal/errors"
)

// Share token errors.
var (
	// ErrShareTokenNotFound indicates no stored token matches the given secret.
	ErrShareTokenNotFound = errors.Wrap(errors.ErrNotFound, "share token not found")

	// ErrInvalidShareTokenInput indicates issuance parameters failed validation.
	ErrInvalidShareTokenInput = errors.Wrap(errors.ErrInvalidInput, "invalid share token input")
)
