package domain

import (
	"github.com/allisson/docgate/internal/errors"
)

// License errors.
var (
	// ErrLicenseNotFound indicates no license record has been stored yet.
	ErrLicenseNotFound = errors.Wrap(errors.ErrNotFound, "license not found")

	// ErrInvalidLicenseKey indicates the submitted key failed format classification.
	ErrInvalidLicenseKey = errors.Wrap(errors.ErrInvalidInput, "invalid license key")
)
