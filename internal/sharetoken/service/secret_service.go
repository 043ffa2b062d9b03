// Package service generates and digests share link secrets.
package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"

	apperrors "github.com/allisson/docgate/internal/errors"
)

// SecretService creates share link secrets and their stored digests.
type SecretService interface {
	// GenerateSecret creates a new cryptographically secure secret.
	// Returns the plain secret, shown to the issuer exactly once, and its
	// SHA-256 digest, the only form ever persisted.
	GenerateSecret() (plainSecret string, secretHash string, err error)

	// HashSecret digests a plain secret for storage lookup.
	HashSecret(plainSecret string) string
}

// secretService implements SecretService using SHA-256 digests.
type secretService struct{}

// GenerateSecret creates a 32-byte random secret, base64 URL-encoded so it can
// travel in a link without escaping.
func (s *secretService) GenerateSecret() (string, string, error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", "", apperrors.Wrap(err, "failed to generate share secret")
	}

	plainSecret := base64.URLEncoding.EncodeToString(randomBytes)

	return plainSecret, s.HashSecret(plainSecret), nil
}

// HashSecret hashes a plain secret using SHA-256.
// Returns the digest as a hexadecimal string.
func (s *secretService) HashSecret(plainSecret string) string {
	hash := sha256.Sum256([]byte(plainSecret))
	return hex.EncodeToString(hash[:])
}

// NewSecretService creates a new SecretService instance.
func NewSecretService() SecretService {
	return &secretService{}
}
