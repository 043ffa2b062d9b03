// Package domain defines rate limiting domain models. Attempts are counted per
// (action, client address, target) triple inside a fixed window; spending the
// attempt budget transitions the counter into a blocked state that outlives the
// window.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Well-known throttled actions. Unregistered actions fall back to the
// registry's default profile.
const (
	// ActionPasswordVerify throttles document password guesses.
	ActionPasswordVerify = "password_verify"

	// ActionShareResolve throttles share-link resolution probing.
	ActionShareResolve = "share_resolve"
)

// Identifier derives the counter key for an (action, client address, target)
// triple. The digest keeps raw client addresses out of index structures and
// normalizes case and surrounding whitespace.
func Identifier(action, clientAddress string, targetID int64) string {
	normalized := fmt.Sprintf(
		"%s|%s|%d",
		strings.ToLower(strings.TrimSpace(action)),
		strings.ToLower(strings.TrimSpace(clientAddress)),
		targetID,
	)
	digest := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(digest[:])
}

// AttemptCounter tracks failed attempts for one identifier within the current
// window. Attempts only increment inside [WindowStart, WindowStart+Window); a
// stale counter is reset by the next recorded attempt, not by reads.
type AttemptCounter struct {
	Identifier   string
	Attempts     int
	WindowStart  time.Time
	BlockedUntil time.Time // zero when not blocked
}

// Blocked reports whether an active block covers the given instant. An active
// block always wins regardless of window state.
func (c *AttemptCounter) Blocked(now time.Time) bool {
	return !c.BlockedUntil.IsZero() && c.BlockedUntil.After(now)
}

// WindowExpired reports whether the counting window elapsed at the given instant.
func (c *AttemptCounter) WindowExpired(now time.Time, window time.Duration) bool {
	return c.WindowStart.Add(window).Before(now)
}

// Profile is the per-action limit configuration.
type Profile struct {
	// MaxAttempts is the failed-attempt budget per window.
	MaxAttempts int
	// Window is the counting window.
	Window time.Duration
	// Block is how long the identifier stays blocked once the budget is spent.
	Block time.Duration
}

// Registry maps actions to profiles with a default for unregistered actions.
type Registry struct {
	profiles map[string]Profile
	fallback Profile
}

// NewRegistry creates a Registry with the given default profile.
func NewRegistry(fallback Profile) *Registry {
	return &Registry{
		profiles: make(map[string]Profile),
		fallback: fallback,
	}
}

// Register sets the profile for an action, replacing any previous one.
func (r *Registry) Register(action string, profile Profile) {
	r.profiles[action] = profile
}

// Lookup returns the profile for an action, or the default profile when the
// action is unregistered.
func (r *Registry) Lookup(action string) Profile {
	if profile, ok := r.profiles[action]; ok {
		return profile
	}
	return r.fallback
}

// Decision is the outcome of a limit check.
type Decision struct {
	Allowed bool
	// RetryAfter is how long the caller must wait when denied; zero when allowed.
	RetryAfter time.Duration
}
