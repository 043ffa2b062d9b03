// Package service implements pure license key classification and status
// evaluation. The evaluator performs no I/O and is fully deterministic given
// its inputs, so it is unit-testable without mocking time.
package service

import (
	"regexp"
	"strings"
	"time"

	licenseDomain "github.com/allisson/docgate/internal/license/domain"
)

const (
	// MinKeyLength is the minimum length of a well-formed license key.
	MinKeyLength = 20

	// PaidTermDays is the term of a paid-tier key, counted from issuance.
	PaidTermDays = 365

	// DefaultGracePeriodDays is the post-expiry window during which features
	// remain usable. Deployment-wide, not per key.
	DefaultGracePeriodDays = 14
)

// Key format patterns per tier. Dashes group the random part into blocks of
// four, e.g. PDF-PREM-7K2M-9QXA-R4TZ-W8PL.
var (
	premiumKeyPattern     = regexp.MustCompile(`^PDF-PREM(-[A-Z0-9]{4}){4}$`)
	proPlusKeyPattern     = regexp.MustCompile(`^PDF-PROP(-[A-Z0-9]{4}){4}$`)
	unlimitedKeyPattern   = regexp.MustCompile(`^UNL-[A-Z0-9]{16,}$`)
	developmentKeyPattern = regexp.MustCompile(`^DEV-[A-Z0-9]{16,}$`)
)

// Evaluator derives license status from a record and an instant. It holds no
// state besides the configured grace period.
type Evaluator struct {
	gracePeriod time.Duration
}

// NewEvaluator creates an Evaluator with the given grace period in days.
// Non-positive values fall back to DefaultGracePeriodDays.
func NewEvaluator(gracePeriodDays int) *Evaluator {
	if gracePeriodDays <= 0 {
		gracePeriodDays = DefaultGracePeriodDays
	}
	return &Evaluator{gracePeriod: time.Duration(gracePeriodDays) * 24 * time.Hour}
}

// GracePeriod returns the configured grace period.
func (e *Evaluator) GracePeriod() time.Duration {
	return e.gracePeriod
}

// Classify maps a key to its tier. Returns TierUnknown and false for keys that
// match no format, including keys shorter than MinKeyLength.
func Classify(key string) (licenseDomain.Tier, bool) {
	key = strings.TrimSpace(key)
	if len(key) < MinKeyLength {
		return licenseDomain.TierUnknown, false
	}

	switch {
	case premiumKeyPattern.MatchString(key):
		return licenseDomain.TierPremium, true
	case proPlusKeyPattern.MatchString(key):
		return licenseDomain.TierProPlus, true
	case unlimitedKeyPattern.MatchString(key):
		return licenseDomain.TierUnlimited, true
	case developmentKeyPattern.MatchString(key):
		return licenseDomain.TierDevelopment, true
	default:
		return licenseDomain.TierUnknown, false
	}
}

// Evaluate derives the status of a record at the given instant. It never
// returns an error: malformed keys resolve to StatusInvalid, a nil record to
// StatusInactive.
func (e *Evaluator) Evaluate(record *licenseDomain.LicenseRecord, now time.Time) licenseDomain.Status {
	if record == nil || strings.TrimSpace(record.Key) == "" {
		return licenseDomain.StatusInactive
	}

	key := strings.TrimSpace(record.Key)
	if len(key) < MinKeyLength {
		return licenseDomain.StatusInvalid
	}

	tier, ok := Classify(key)
	if !ok {
		return licenseDomain.StatusInvalid
	}

	// Unlimited and development keys never expire.
	if !tier.Expiring() || record.ExpiresAt == nil {
		return licenseDomain.StatusValid
	}

	expiresAt := record.ExpiresAt.UTC()
	if !now.After(expiresAt) {
		return licenseDomain.StatusValid
	}

	graceEnd := expiresAt.Add(e.gracePeriod)
	if !now.After(graceEnd) {
		return licenseDomain.StatusGracePeriod
	}

	return licenseDomain.StatusExpired
}

// Snapshot evaluates a record and packages the caller-facing view, including
// the grace deadline so UIs can warn before the hard cutoff.
func (e *Evaluator) Snapshot(record *licenseDomain.LicenseRecord, now time.Time) *licenseDomain.StatusSnapshot {
	status := e.Evaluate(record, now)

	snapshot := &licenseDomain.StatusSnapshot{
		Status: status,
		Tier:   licenseDomain.TierUnknown,
		Usable: status.Usable(),
	}

	if record == nil {
		return snapshot
	}

	if tier, ok := Classify(record.Key); ok {
		snapshot.Tier = tier
	}

	if record.ExpiresAt != nil {
		expiresAt := record.ExpiresAt.UTC()
		graceEnd := expiresAt.Add(e.gracePeriod)
		snapshot.ExpiresAt = &expiresAt
		snapshot.GraceEndsAt = &graceEnd
	}

	return snapshot
}
