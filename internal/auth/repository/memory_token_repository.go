package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/sessions/internal/auth/domain"
	apperrors "github.com/allisson/sessions/internal/errors"
)

type accessKey struct {
	userID      int64
	accessToken string
}

// MemoryTokenRepository keeps token records in process memory. Records are copied on the
// way in and out so callers never share state with the store.
type MemoryTokenRepository struct {
	mu       sync.RWMutex
	tokens   map[uuid.UUID]*authDomain.Token
	byAccess map[accessKey]uuid.UUID
}

// Create stores a copy of token.
func (m *MemoryTokenRepository) Create(_ context.Context, token *authDomain.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.insertLocked(token)
}

// Get retrieves a record by ID.
func (m *MemoryTokenRepository) Get(_ context.Context, tokenID uuid.UUID) (*authDomain.Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	token, ok := m.tokens[tokenID]
	if !ok {
		return nil, authDomain.ErrTokenNotFound
	}
	return cloneToken(token), nil
}

// GetLiveByAccessToken returns the live record of userID bound to accessToken.
func (m *MemoryTokenRepository) GetLiveByAccessToken(
	_ context.Context,
	userID int64,
	accessToken string,
	now time.Time,
) (*authDomain.Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	token, ok := m.lookupLocked(userID, accessToken)
	if !ok || !token.IsLive(authDomain.AccessTokenKind, now) {
		return nil, authDomain.ErrTokenNotFound
	}
	return cloneToken(token), nil
}

// GetLiveByRefreshToken returns the live record of userID bound to both correlations.
func (m *MemoryTokenRepository) GetLiveByRefreshToken(
	_ context.Context,
	userID int64,
	accessToken, refreshToken string,
	now time.Time,
) (*authDomain.Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	token, ok := m.lookupLocked(userID, accessToken)
	if !ok || token.RefreshToken != refreshToken || !token.IsLive(authDomain.RefreshTokenKind, now) {
		return nil, authDomain.ErrTokenNotFound
	}
	return cloneToken(token), nil
}

// Revoke marks the record revoked unless it already is.
func (m *MemoryTokenRepository) Revoke(_ context.Context, tokenID uuid.UUID, revokedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.revokeLocked(tokenID, revokedAt)
}

// Rotate stores next and revokes oldID under one lock.
func (m *MemoryTokenRepository) Rotate(
	_ context.Context,
	oldID uuid.UUID,
	revokedAt time.Time,
	next *authDomain.Token,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.tokens[oldID]
	if !ok {
		return authDomain.ErrTokenNotFound
	}
	if old.IsRevoked() {
		return authDomain.ErrTokenAlreadyRevoked
	}

	if err := m.insertLocked(next); err != nil {
		return err
	}
	return m.revokeLocked(oldID, revokedAt)
}

// RevokeAllByUserID revokes every unrevoked record of userID.
func (m *MemoryTokenRepository) RevokeAllByUserID(
	_ context.Context,
	userID int64,
	revokedAt time.Time,
) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for _, token := range m.tokens {
		if token.UserID != userID || token.IsRevoked() {
			continue
		}
		at := revokedAt
		token.RevokedAt = &at
		count++
	}
	return count, nil
}

func (m *MemoryTokenRepository) insertLocked(token *authDomain.Token) error {
	if _, exists := m.tokens[token.ID]; exists {
		return apperrors.Wrap(apperrors.ErrConflict, "failed to create token")
	}
	key := accessKey{userID: token.UserID, accessToken: token.AccessToken}
	if _, exists := m.byAccess[key]; exists {
		return apperrors.Wrap(apperrors.ErrConflict, "failed to create token")
	}

	m.tokens[token.ID] = cloneToken(token)
	m.byAccess[key] = token.ID
	return nil
}

func (m *MemoryTokenRepository) lookupLocked(userID int64, accessToken string) (*authDomain.Token, bool) {
	id, ok := m.byAccess[accessKey{userID: userID, accessToken: accessToken}]
	if !ok {
		return nil, false
	}
	token, ok := m.tokens[id]
	return token, ok
}

func (m *MemoryTokenRepository) revokeLocked(tokenID uuid.UUID, revokedAt time.Time) error {
	token, ok := m.tokens[tokenID]
	if !ok {
		return authDomain.ErrTokenNotFound
	}
	if token.IsRevoked() {
		return authDomain.ErrTokenAlreadyRevoked
	}
	at := revokedAt
	token.RevokedAt = &at
	return nil
}

func cloneToken(token *authDomain.Token) *authDomain.Token {
	clone := *token
	if token.RevokedAt != nil {
		revokedAt := *token.RevokedAt
		clone.RevokedAt = &revokedAt
	}
	return &clone
}

// NewMemoryTokenRepository creates an empty in-memory token repository.
func NewMemoryTokenRepository() *MemoryTokenRepository {
	return &MemoryTokenRepository{
		tokens:   make(map[uuid.UUID]*authDomain.Token),
		byAccess: make(map[accessKey]uuid.UUID),
	}
}
