// Package domain defines license domain models for premium feature gating.
// A license record stores an opaque key plus its issuance data. The status is
// always re-derivable from the key, expiry, and current time; the persisted
// status column is a cache, never an independent source of truth.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is the derived validity state of a license.
type Status string

const (
	// StatusInactive indicates no license key has been configured.
	StatusInactive Status = "inactive"

	// StatusValid indicates the key is well-formed and within its term.
	StatusValid Status = "valid"

	// StatusInvalid indicates the key failed format classification.
	StatusInvalid Status = "invalid"

	// StatusGracePeriod indicates the term elapsed but features remain usable
	// while a renewal is awaited. Distinct from valid so UIs can warn users
	// before the hard cutoff.
	StatusGracePeriod Status = "grace_period"

	// StatusExpired indicates the term and grace period both elapsed. Terminal:
	// only activating a new key leaves this state.
	StatusExpired Status = "expired"
)

// Usable reports whether premium features are granted for this status.
func (s Status) Usable() bool {
	return s == StatusValid || s == StatusGracePeriod
}

// Tier is the commercial tier encoded in the key format. The format patterns
// are a classifier, not a security mechanism; authorization flows through the
// access gate.
type Tier string

const (
	// TierPremium is the entry paid tier.
	TierPremium Tier = "premium"

	// TierProPlus is the enterprise paid tier.
	TierProPlus Tier = "pro_plus"

	// TierUnlimited keys never expire (site-license deals).
	TierUnlimited Tier = "unlimited"

	// TierDevelopment keys never expire and are only handed out internally.
	TierDevelopment Tier = "development"

	// TierUnknown marks keys that match no known format.
	TierUnknown Tier = "unknown"
)

// Expiring reports whether keys of this tier carry a term.
func (t Tier) Expiring() bool {
	return t == TierPremium || t == TierProPlus
}

// LicenseRecord is the stored license. At most one record is active per
// deployment; activating a new key replaces the previous record.
type LicenseRecord struct {
	ID        uuid.UUID
	Key       string
	Tier      Tier
	Status    Status
	IssuedAt  time.Time
	ExpiresAt *time.Time
	CreatedAt time.Time
}

// StatusSnapshot is the immutable view returned to callers on every
// status evaluation.
type StatusSnapshot struct {
	Status      Status
	Tier        Tier
	ExpiresAt   *time.Time
	GraceEndsAt *time.Time
	Usable      bool
}
