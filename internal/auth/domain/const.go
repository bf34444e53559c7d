// Package domain defines the session token domain models.
//
// A login mints a token pair (a short-lived access token and a longer-lived refresh token)
// backed by one persisted Token record. The record is soft-revoked on logout and replaced on refresh.
package domain

// TokenKind tells which half of a token pair a bearer token is expected to be.
type TokenKind string

const (
	// AccessTokenKind authenticates regular API calls.
	AccessTokenKind TokenKind = "access"

	// RefreshTokenKind is only accepted by the refresh flow.
	RefreshTokenKind TokenKind = "refresh"
)

// Custom claim names that bind a signed token to its persisted record.
const (
	AccessTokenClaim  = "access_token"
	RefreshTokenClaim = "refresh_token"
)

// String returns the kind name.
func (k TokenKind) String() string {
	return string(k)
}
