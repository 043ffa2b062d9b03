package domain

import (
	"github.com/allisson/docgate/internal/errors"
)

// Rate limiting errors.
var (
	// ErrCounterNotFound indicates no counter exists for the identifier, or the
	// window rotated between a read and a conditional write.
	ErrCounterNotFound = errors.Wrap(errors.ErrNotFound, "attempt counter not found")

	// ErrStoreUnavailable indicates the counter store could not be reached.
	// Surfaced instead of a denial so callers can respond 503 rather than 429.
	ErrStoreUnavailable = errors.Wrap(errors.ErrUnavailable, "rate limit store unavailable")
)
