package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/docgate/internal/clock"
	apperrors "github.com/allisson/docgate/internal/errors"
	sharetokenDomain "github.com/allisson/docgate/internal/sharetoken/domain"
	sharetokenService "github.com/allisson/docgate/internal/sharetoken/service"
)

// maxConsumeRetries bounds the retry loop when a token's state changes between
// the conditional consume and the classifying re-read.
const maxConsumeRetries = 3

// shareTokenUseCase implements UseCase for share token management.
type shareTokenUseCase struct {
	repo       ShareTokenRepository
	secrets    sharetokenService.SecretService
	clock      clock.Clock
	defaultTTL time.Duration
}

// Issue creates a new share token. The plain secret is returned once; only the
// digest is persisted.
func (s *shareTokenUseCase) Issue(ctx context.Context, input IssueInput) (*IssueOutput, error) {
	if input.TargetID <= 0 {
		return nil, apperrors.Wrap(sharetokenDomain.ErrInvalidShareTokenInput, "target id must be positive")
	}
	if input.MaxUses < 0 {
		return nil, apperrors.Wrap(sharetokenDomain.ErrInvalidShareTokenInput, "max uses must not be negative")
	}

	ttl := input.TTL
	if ttl == 0 {
		ttl = s.defaultTTL
	}
	if ttl < 0 {
		return nil, apperrors.Wrap(sharetokenDomain.ErrInvalidShareTokenInput, "ttl must not be negative")
	}

	plainSecret, secretHash, err := s.secrets.GenerateSecret()
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	token := &sharetokenDomain.ShareToken{
		ID:         uuid.Must(uuid.NewV7()),
		SecretHash: secretHash,
		TargetID:   input.TargetID,
		MaxUses:    input.MaxUses,
		UseCount:   0,
		IssuedBy:   input.IssuedBy,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}

	if err := s.repo.Create(ctx, token); err != nil {
		return nil, err
	}

	return &IssueOutput{Secret: plainSecret, Token: token}, nil
}

// ValidateAndConsume checks a presented secret against a target and spends one
// use. The consume itself is a single conditional statement; a miss is
// classified by re-reading the row, and dead tokens found that way are removed
// lazily.
func (s *shareTokenUseCase) ValidateAndConsume(
	ctx context.Context,
	secret string,
	targetID int64,
) (*sharetokenDomain.ValidationResult, error) {
	secretHash := s.secrets.HashSecret(secret)
	now := s.clock.Now()

	for range maxConsumeRetries {
		token, err := s.repo.ConsumeUse(ctx, secretHash, targetID, now)
		if err == nil {
			return &sharetokenDomain.ValidationResult{
				Granted:       true,
				RemainingUses: token.Remaining(),
				ExpiresAt:     token.ExpiresAt,
			}, nil
		}
		if !errors.Is(err, sharetokenDomain.ErrShareTokenNotFound) {
			return nil, err
		}

		current, err := s.repo.GetBySecretHash(ctx, secretHash)
		if err != nil {
			if errors.Is(err, sharetokenDomain.ErrShareTokenNotFound) {
				return sharetokenDomain.Denied(sharetokenDomain.DenialNotFound), nil
			}
			return nil, err
		}

		// Wrong target is reported without revealing whether the token is
		// otherwise live.
		if current.TargetID != targetID {
			return sharetokenDomain.Denied(sharetokenDomain.DenialWrongTarget), nil
		}

		if current.Expired(now) {
			s.deleteLazily(ctx, secretHash)
			return sharetokenDomain.Denied(sharetokenDomain.DenialExpired), nil
		}

		if current.Exhausted() {
			s.deleteLazily(ctx, secretHash)
			return sharetokenDomain.Denied(sharetokenDomain.DenialExhausted), nil
		}

		// The re-read found a usable row, so the consume lost a race with a
		// concurrent state change. Try again.
	}

	return nil, apperrors.Wrap(apperrors.ErrUnavailable, "share token state kept changing")
}

// Peek retrieves the token for a secret without consuming a use.
func (s *shareTokenUseCase) Peek(ctx context.Context, secret string) (*sharetokenDomain.ShareToken, error) {
	return s.repo.GetBySecretHash(ctx, s.secrets.HashSecret(secret))
}

// Revoke removes the token for a secret.
func (s *shareTokenUseCase) Revoke(ctx context.Context, secret string) (bool, error) {
	return s.repo.Delete(ctx, s.secrets.HashSecret(secret))
}

// ListByTarget retrieves tokens issued for a target, newest first.
func (s *shareTokenUseCase) ListByTarget(
	ctx context.Context,
	targetID int64,
	limit, offset int,
) ([]*sharetokenDomain.ShareToken, error) {
	return s.repo.ListByTarget(ctx, targetID, limit, offset)
}

// SweepDead removes expired and exhausted tokens. In dry-run mode only the
// count of removable tokens is reported.
func (s *shareTokenUseCase) SweepDead(ctx context.Context, dryRun bool) (int64, error) {
	if dryRun {
		return s.repo.CountDead(ctx, s.clock.Now())
	}
	return s.repo.DeleteDead(ctx, s.clock.Now())
}

// deleteLazily removes a dead token best effort; the sweep command picks up
// anything left behind.
func (s *shareTokenUseCase) deleteLazily(ctx context.Context, secretHash string) {
	if _, err := s.repo.Delete(ctx, secretHash); err != nil {
		slog.WarnContext(ctx, "failed to remove dead share token", "error", err)
	}
}

// NewShareTokenUseCase creates a new share token UseCase with the provided dependencies.
func NewShareTokenUseCase(
	repo ShareTokenRepository,
	secrets sharetokenService.SecretService,
	clk clock.Clock,
	defaultTTL time.Duration,
) UseCase {
	return &shareTokenUseCase{
		repo:       repo,
		secrets:    secrets,
		clock:      clk,
		defaultTTL: defaultTTL,
	}
}
