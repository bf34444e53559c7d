package domain

import (
	"time"

	"github.com/google/uuid"
)

// Token is one generation of an access/refresh pair. AccessToken and RefreshToken hold the
// correlation strings embedded in the signed tokens, never the signed tokens themselves.
type Token struct {
	ID                    uuid.UUID
	UserID                int64
	AccessToken           string
	AccessTokenExpiresAt  time.Time
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
	RevokedAt             *time.Time
	CreatedAt             time.Time
}

// IsRevoked reports whether the record was soft-deleted.
func (t *Token) IsRevoked() bool {
	return t.RevokedAt != nil
}

// IsLive reports whether the record still authenticates tokens of the given kind at now.
func (t *Token) IsLive(kind TokenKind, now time.Time) bool {
	if t.IsRevoked() {
		return false
	}
	switch kind {
	case AccessTokenKind:
		return t.AccessTokenExpiresAt.After(now)
	case RefreshTokenKind:
		return t.RefreshTokenExpiresAt.After(now)
	default:
		return false
	}
}

// TokenPair is the result of a login or refresh. TTLs are expressed in minutes.
type TokenPair struct {
	AccessToken     string
	AccessTokenTTL  int
	RefreshToken    string
	RefreshTokenTTL int
	Token           *Token
}
