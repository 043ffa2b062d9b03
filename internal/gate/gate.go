// Package gate is the composition root request handlers call into. It answers
// "is this request allowed, and what happens if not" by combining the license
// status, the attempt limiter, and the share token store into one structured
// decision. Data flows one way: handlers call the gate, the gate calls the
// stores, nothing calls back.
package gate

import (
	"context"
	"time"

	apperrors "github.com/allisson/docgate/internal/errors"
	gateService "github.com/allisson/docgate/internal/gate/service"
	licenseDomain "github.com/allisson/docgate/internal/license/domain"
	licenseUsecase "github.com/allisson/docgate/internal/license/usecase"
	ratelimitDomain "github.com/allisson/docgate/internal/ratelimit/domain"
	ratelimitUsecase "github.com/allisson/docgate/internal/ratelimit/usecase"
	sharetokenDomain "github.com/allisson/docgate/internal/sharetoken/domain"
	sharetokenUsecase "github.com/allisson/docgate/internal/sharetoken/usecase"
)

// Denial reasons the gate adds on top of the share token store's own.
const (
	ReasonRateLimited     = "rate_limited"
	ReasonInvalidPassword = "invalid_password"
	ReasonLicenseRequired = "license_required"
)

// Decision is the structured outcome of an access check. Denials are values;
// errors are reserved for storage failures.
type Decision struct {
	Granted bool
	// Reason is the machine-readable denial reason; empty when granted.
	Reason string
	// RetryAfter is how long the caller must wait after a rate limit denial.
	RetryAfter time.Duration
	// RemainingUses is the share token budget left after this use; nil for
	// unlimited tokens or non-token decisions.
	RemainingUses *int
	// ExpiresAt is the share token expiry on granted resolutions.
	ExpiresAt time.Time
}

// granted is the plain allow decision.
func granted() *Decision {
	return &Decision{Granted: true}
}

// denied builds a denial decision for the given reason.
func denied(reason string) *Decision {
	return &Decision{Granted: false, Reason: reason}
}

// Gate is the facade request handlers use for access decisions.
type Gate interface {
	// FeatureStatus reports the current license snapshot so callers can gate
	// premium UI and warn during the grace period.
	FeatureStatus(ctx context.Context) (*licenseDomain.StatusSnapshot, error)

	// VerifyDocumentPassword checks a submitted document password against its
	// stored hash, throttled per (client, document). The stored hash is owned
	// by the caller; the gate never reads document records itself.
	VerifyDocumentPassword(ctx context.Context, documentID int64, clientAddress, password, passwordHash string) (*Decision, error)

	// ResolveShareLink validates a share link secret against a document and
	// spends one use, throttled per (client, document) and gated on a usable
	// license.
	ResolveShareLink(ctx context.Context, secret string, documentID int64, clientAddress string) (*Decision, error)

	// IssueShareLink creates a new share link. Requires a usable license;
	// returns an ErrForbidden-classed error otherwise.
	IssueShareLink(ctx context.Context, input sharetokenUsecase.IssueInput) (*sharetokenUsecase.IssueOutput, error)

	// RevokeShareLink removes a share link. Returns whether one existed.
	RevokeShareLink(ctx context.Context, secret string) (bool, error)

	// ListShareLinks retrieves share links issued for a document, newest first.
	ListShareLinks(ctx context.Context, documentID int64, limit, offset int) ([]*sharetokenDomain.ShareToken, error)
}

// accessGate implements Gate.
type accessGate struct {
	license   licenseUsecase.UseCase
	limiter   ratelimitUsecase.Limiter
	tokens    sharetokenUsecase.UseCase
	passwords gateService.PasswordService
}

// FeatureStatus reports the current license snapshot.
func (g *accessGate) FeatureStatus(ctx context.Context) (*licenseDomain.StatusSnapshot, error) {
	return g.license.Status(ctx)
}

// VerifyDocumentPassword checks a submitted password, counting failures
// against the password_verify limit profile. A correct password clears the
// client's failure record entirely.
func (g *accessGate) VerifyDocumentPassword(
	ctx context.Context,
	documentID int64,
	clientAddress, password, passwordHash string,
) (*Decision, error) {
	limit, err := g.limiter.Check(ctx, ratelimitDomain.ActionPasswordVerify, clientAddress, documentID)
	if err != nil {
		return nil, err
	}
	if !limit.Allowed {
		decision := denied(ReasonRateLimited)
		decision.RetryAfter = limit.RetryAfter
		return decision, nil
	}

	ok := g.passwords.VerifyPassword(password, passwordHash)

	err = g.limiter.RecordAttempt(ctx, ratelimitDomain.ActionPasswordVerify, clientAddress, documentID, ok)
	if err != nil {
		return nil, err
	}

	if !ok {
		return denied(ReasonInvalidPassword), nil
	}
	return granted(), nil
}

// ResolveShareLink validates a share link secret and spends one use. The
// limiter throttles resolution probing; a granted resolution clears the
// client's failure record.
func (g *accessGate) ResolveShareLink(
	ctx context.Context,
	secret string,
	documentID int64,
	clientAddress string,
) (*Decision, error) {
	snapshot, err := g.license.Status(ctx)
	if err != nil {
		return nil, err
	}
	if !snapshot.Usable {
		return denied(ReasonLicenseRequired), nil
	}

	limit, err := g.limiter.Check(ctx, ratelimitDomain.ActionShareResolve, clientAddress, documentID)
	if err != nil {
		return nil, err
	}
	if !limit.Allowed {
		decision := denied(ReasonRateLimited)
		decision.RetryAfter = limit.RetryAfter
		return decision, nil
	}

	result, err := g.tokens.ValidateAndConsume(ctx, secret, documentID)
	if err != nil {
		return nil, err
	}

	err = g.limiter.RecordAttempt(ctx, ratelimitDomain.ActionShareResolve, clientAddress, documentID, result.Granted)
	if err != nil {
		return nil, err
	}

	if !result.Granted {
		return denied(string(result.Reason)), nil
	}

	return &Decision{
		Granted:       true,
		RemainingUses: result.RemainingUses,
		ExpiresAt:     result.ExpiresAt,
	}, nil
}

// IssueShareLink creates a new share link when the license permits it.
func (g *accessGate) IssueShareLink(
	ctx context.Context,
	input sharetokenUsecase.IssueInput,
) (*sharetokenUsecase.IssueOutput, error) {
	snapshot, err := g.license.Status(ctx)
	if err != nil {
		return nil, err
	}
	if !snapshot.Usable {
		return nil, apperrors.Wrap(apperrors.ErrForbidden, "share links require a usable license")
	}

	return g.tokens.Issue(ctx, input)
}

// RevokeShareLink removes a share link.
func (g *accessGate) RevokeShareLink(ctx context.Context, secret string) (bool, error) {
	return g.tokens.Revoke(ctx, secret)
}

// ListShareLinks retrieves share links issued for a document.
func (g *accessGate) ListShareLinks(
	ctx context.Context,
	documentID int64,
	limit, offset int,
) ([]*sharetokenDomain.ShareToken, error) {
	return g.tokens.ListByTarget(ctx, documentID, limit, offset)
}

// NewAccessGate creates the access gate facade. All dependencies are
// constructed once at startup and injected; the gate holds no mutable state
// of its own.
func NewAccessGate(
	license licenseUsecase.UseCase,
	limiter ratelimitUsecase.Limiter,
	tokens sharetokenUsecase.UseCase,
	passwords gateService.PasswordService,
) Gate {
	return &accessGate{
		license:   license,
		limiter:   limiter,
		tokens:    tokens,
		passwords: passwords,
	}
}
