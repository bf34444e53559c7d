package service

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	apperrors "github.com/allisson/sessions/internal/errors"
)

const (
	correlationTimeLayout  = "20060102-150405.000000"
	correlationRandomBytes = 16
)

// tokenService implements TokenService with a timestamp prefix and a 128-bit random suffix.
type tokenService struct {
	now func() time.Time
}

// GenerateCorrelation returns "<yyyymmdd-hhmmss.micros>-<32 hex chars>". The prefix keeps
// correlation strings roughly time ordered; uniqueness comes from the random suffix.
func (t *tokenService) GenerateCorrelation() (string, error) {
	randomBytes := make([]byte, correlationRandomBytes)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", apperrors.Wrap(err, "failed to generate correlation string")
	}

	return t.now().UTC().Format(correlationTimeLayout) + "-" + hex.EncodeToString(randomBytes), nil
}

// NewTokenService creates a new TokenService instance.
func NewTokenService() TokenService {
	return &tokenService{now: time.Now}
}
