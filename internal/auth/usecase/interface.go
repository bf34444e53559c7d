// Package usecase defines business logic interfaces for session token operations.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/sessions/internal/auth/domain"
	userDomain "github.com/allisson/sessions/internal/user/domain"
)

// TokenRepository defines persistence operations for token-pair records.
// Implementations must support transaction-aware operations via context propagation.
type TokenRepository interface {
	// Create stores a new token record.
	Create(ctx context.Context, token *authDomain.Token) error

	// Get retrieves a record by ID. Returns ErrTokenNotFound if not found.
	Get(ctx context.Context, tokenID uuid.UUID) (*authDomain.Token, error)

	// GetLiveByAccessToken returns the unrevoked record of userID whose access correlation
	// matches and whose access expiry is after now. Returns ErrTokenNotFound otherwise.
	GetLiveByAccessToken(
		ctx context.Context,
		userID int64,
		accessToken string,
		now time.Time,
	) (*authDomain.Token, error)

	// GetLiveByRefreshToken returns the unrevoked record of userID matching both correlations
	// whose refresh expiry is after now. Returns ErrTokenNotFound otherwise.
	GetLiveByRefreshToken(
		ctx context.Context,
		userID int64,
		accessToken, refreshToken string,
		now time.Time,
	) (*authDomain.Token, error)

	// Revoke sets revoked_at on a record that is not revoked yet. Returns ErrTokenAlreadyRevoked
	// when another caller revoked it first and ErrTokenNotFound when the record does not exist.
	Revoke(ctx context.Context, tokenID uuid.UUID, revokedAt time.Time) error

	// Rotate stores next and revokes oldID as one atomic unit. When oldID is already revoked
	// next is not stored and ErrTokenAlreadyRevoked is returned.
	Rotate(ctx context.Context, oldID uuid.UUID, revokedAt time.Time, next *authDomain.Token) error

	// RevokeAllByUserID revokes every unrevoked record of userID and returns how many changed.
	RevokeAllByUserID(ctx context.Context, userID int64, revokedAt time.Time) (int64, error)
}

// UserDirectory looks up principals. The user repositories satisfy it.
type UserDirectory interface {
	GetByID(ctx context.Context, id int64) (*userDomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userDomain.User, error)
}

// TokenUseCase mints, revokes and rotates token pairs.
type TokenUseCase interface {
	// Issue mints a new token pair for userID and persists its record.
	//
	// Returns ErrInvalidTTLConfig when a configured lifetime is not positive and
	// ErrTokenIssuanceFailed wrapping the cause when encoding or persistence fails.
	Issue(ctx context.Context, userID int64) (*authDomain.TokenPair, error)

	// Revoke soft-deletes the record. Losing against a concurrent revoke returns ErrNoPrincipal.
	Revoke(ctx context.Context, token *authDomain.Token) error

	// Rotate mints a new pair for userID and atomically replaces token with it. When the old
	// record was revoked concurrently the new pair is discarded and ErrNoPrincipal is returned.
	Rotate(ctx context.Context, token *authDomain.Token, userID int64) (*authDomain.TokenPair, error)

	// RevokeAllByUserID revokes every live pair of userID and returns the number of records changed.
	RevokeAllByUserID(ctx context.Context, userID int64) (int64, error)
}

// CredentialResolver maps a presented credential to a principal.
//
// Every failure is reported as ErrNoPrincipal so callers cannot tell an unknown
// principal from a bad secret, a tampered token or a revoked record.
type CredentialResolver interface {
	// ResolveByToken decodes a bearer token of the given kind and returns the principal
	// together with the live record the token is bound to.
	ResolveByToken(ctx context.Context, presented string, kind authDomain.TokenKind) (*authDomain.Session, error)

	// ResolveByCredentials verifies an email and password pair.
	ResolveByCredentials(ctx context.Context, identifier, secret string) (*authDomain.Principal, error)
}
