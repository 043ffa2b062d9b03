// Package domain defines share token domain models. A share token grants
// access to exactly one target document, is capped by an optional use budget,
// and expires at a fixed instant. Only the SHA-256 digest of the secret is
// ever stored.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// UnlimitedUses is the MaxUses value for tokens without a use budget.
const UnlimitedUses = 0

// ShareToken is the stored form of an issued share link.
type ShareToken struct {
	ID         uuid.UUID
	SecretHash string
	TargetID   int64
	MaxUses    int // UnlimitedUses means no budget
	UseCount   int
	IssuedBy   string
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// Expired reports whether the token's lifetime ended at the given instant.
// A token is live strictly before its expiry; the expiry instant itself
// counts as expired.
func (t *ShareToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Exhausted reports whether the use budget is spent. Tokens without a budget
// never exhaust.
func (t *ShareToken) Exhausted() bool {
	return t.MaxUses != UnlimitedUses && t.UseCount >= t.MaxUses
}

// UsableAt reports whether the token can still be consumed at the given instant.
func (t *ShareToken) UsableAt(now time.Time) bool {
	return !t.Expired(now) && !t.Exhausted()
}

// Remaining returns the uses left, or nil for tokens without a budget.
func (t *ShareToken) Remaining() *int {
	if t.MaxUses == UnlimitedUses {
		return nil
	}
	remaining := t.MaxUses - t.UseCount
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}

// DenialReason says why a token validation was refused. Denials are ordinary
// outcomes, not errors; errors are reserved for storage failures.
type DenialReason string

const (
	DenialNone        DenialReason = ""
	DenialNotFound    DenialReason = "not_found"
	DenialWrongTarget DenialReason = "wrong_target"
	DenialExpired     DenialReason = "expired"
	DenialExhausted   DenialReason = "exhausted"
)

// ValidationResult is the outcome of validating and consuming a share token.
type ValidationResult struct {
	Granted bool
	Reason  DenialReason
	// RemainingUses is the budget left after this use; nil for unlimited tokens.
	RemainingUses *int
	// ExpiresAt is the token expiry; zero on denial.
	ExpiresAt time.Time
}

// Denied builds a denial result for the given reason.
func Denied(reason DenialReason) *ValidationResult {
	return &ValidationResult{Granted: false, Reason: reason}
}
