// Package service provides document password hashing and verification for the
// access gate, using Argon2id.
package service

import (
	"github.com/allisson/go-pwdhash"

	apperrors "github.com/allisson/docgate/internal/errors"
)

// PasswordService hashes and verifies document passwords.
type PasswordService interface {
	// HashPassword hashes a plain document password for storage.
	HashPassword(plainPassword string) (string, error)

	// VerifyPassword performs a constant-time comparison between a plain
	// password and its stored hash.
	VerifyPassword(plainPassword string, hashedPassword string) bool
}

// passwordService implements PasswordService using Argon2id hashing.
type passwordService struct {
	hasher *pwdhash.PasswordHasher
}

// HashPassword hashes a plain document password using Argon2id.
func (p *passwordService) HashPassword(plainPassword string) (string, error) {
	hashedPassword, err := p.hasher.Hash([]byte(plainPassword))
	if err != nil {
		return "", apperrors.Wrap(err, "failed to hash document password")
	}
	return hashedPassword, nil
}

// VerifyPassword performs a constant-time comparison between a plain password
// and its hash.
func (p *passwordService) VerifyPassword(plainPassword string, hashedPassword string) bool {
	ok, err := p.hasher.Verify([]byte(plainPassword), hashedPassword)
	if err != nil {
		return false
	}
	return ok
}

// NewPasswordService creates a new PasswordService instance using Argon2id hashing.
// Uses the Moderate policy for a balance between security and performance.
func NewPasswordService() PasswordService {
	hasher, err := pwdhash.New(
		pwdhash.WithPolicy(pwdhash.PolicyModerate),
	)
	if err != nil {
		// This should never happen with valid policy
		panic(err)
	}

	return &passwordService{
		hasher: hasher,
	}
}
