// Package usecase implements business logic orchestration for share tokens.
package usecase

import (
	"context"
	"time"

	sharetokenDomain "github.com/allisson/docgate/internal/sharetoken/domain"
)

// ShareTokenRepository defines persistence operations for share tokens.
// Implementations must support transaction-aware operations via context propagation.
type ShareTokenRepository interface {
	// Create stores a new share token.
	Create(ctx context.Context, token *sharetokenDomain.ShareToken) error

	// GetBySecretHash retrieves a token by its secret digest.
	// Returns ErrShareTokenNotFound if no token matches.
	GetBySecretHash(ctx context.Context, secretHash string) (*sharetokenDomain.ShareToken, error)

	// ConsumeUse atomically spends one use of a usable token matching the
	// secret, target, expiry, and budget, and returns the row after the
	// increment. Returns ErrShareTokenNotFound when no usable row matched.
	ConsumeUse(ctx context.Context, secretHash string, targetID int64, now time.Time) (*sharetokenDomain.ShareToken, error)

	// Delete removes the token with the given secret digest. Returns whether
	// a row was removed.
	Delete(ctx context.Context, secretHash string) (bool, error)

	// ListByTarget retrieves tokens issued for a target, newest first.
	ListByTarget(ctx context.Context, targetID int64, limit, offset int) ([]*sharetokenDomain.ShareToken, error)

	// DeleteDead removes tokens that are expired or have spent their budget.
	DeleteDead(ctx context.Context, now time.Time) (int64, error)

	// CountDead counts the tokens DeleteDead would remove.
	CountDead(ctx context.Context, now time.Time) (int64, error)
}

// IssueInput are the parameters for issuing a new share token.
type IssueInput struct {
	// TargetID is the document the token grants access to.
	TargetID int64
	// MaxUses caps redemptions; zero means unlimited.
	MaxUses int
	// TTL is the token lifetime; zero falls back to the configured default.
	TTL time.Duration
	// IssuedBy records who created the token.
	IssuedBy string
}

// IssueOutput carries the plain secret alongside the stored record. The plain
// secret is shown exactly once and cannot be recovered afterwards.
type IssueOutput struct {
	Secret string
	Token  *sharetokenDomain.ShareToken
}

// UseCase defines business logic operations for share token management.
type UseCase interface {
	// Issue creates a new share token for a target document.
	// Returns ErrInvalidShareTokenInput if the parameters fail validation.
	Issue(ctx context.Context, input IssueInput) (*IssueOutput, error)

	// ValidateAndConsume checks a presented secret against a target and spends
	// one use on success. Denials (unknown secret, wrong target, expired,
	// exhausted) are reported in the result, not as errors; errors are
	// reserved for storage failures.
	ValidateAndConsume(ctx context.Context, secret string, targetID int64) (*sharetokenDomain.ValidationResult, error)

	// Peek retrieves the token for a secret without consuming a use.
	// Returns ErrShareTokenNotFound if no token matches.
	Peek(ctx context.Context, secret string) (*sharetokenDomain.ShareToken, error)

	// Revoke removes the token for a secret. Returns whether a token existed.
	Revoke(ctx context.Context, secret string) (bool, error)

	// ListByTarget retrieves tokens issued for a target, newest first.
	ListByTarget(ctx context.Context, targetID int64, limit, offset int) ([]*sharetokenDomain.ShareToken, error)

	// SweepDead removes expired and exhausted tokens and returns how many
	// were removed. In dry-run mode it only counts them.
	SweepDead(ctx context.Context, dryRun bool) (int64, error)
}
