// Package service provides the technical services behind session tokens: the signed token
// codec, correlation string generation, password hashing and KMS-backed signing key loading.
package service

import (
	"context"
	"time"

	authDomain "github.com/allisson/sessions/internal/auth/domain"
)

// TokenCodec encodes and decodes signed session tokens.
type TokenCodec interface {
	// Encode builds a signed token for subject expiring at expiresAt. Custom claims are
	// merged into the payload; the reserved sub, iat and exp claims always win.
	Encode(subject int64, expiresAt time.Time, customClaims map[string]string) (string, error)

	// Decode verifies a presented token and returns its claims. Every failure wraps
	// authDomain.ErrTokenValidation except a missing signing key.
	Decode(token string) (*authDomain.Claims, error)
}

// TokenService generates the correlation strings that bind signed tokens to their record.
type TokenService interface {
	// GenerateCorrelation returns a new unique, non-secret correlation string.
	GenerateCorrelation() (string, error)
}

// PasswordService hashes and verifies principal passwords.
type PasswordService interface {
	// Hash returns the encoded hash of a plain text password.
	Hash(plain string) (string, error)

	// Compare reports whether plain matches the encoded hash in constant time.
	Compare(plain string, hashed string) bool
}

// SigningKeyService resolves the token signing key from configuration.
type SigningKeyService interface {
	// LoadSigningKey returns rawKey unchanged when kmsKeyURI is empty, otherwise it treats
	// rawKey as base64 ciphertext and decrypts it with the KMS key.
	LoadSigningKey(ctx context.Context, rawKey, kmsKeyURI string) (string, error)

	// EncryptSigningKey encrypts a plain signing key with the KMS key and returns base64 ciphertext.
	EncryptSigningKey(ctx context.Context, plainKey []byte, kmsKeyURI string) (string, error)
}
