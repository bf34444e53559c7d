// Package usecase implements business logic orchestration for session token operations.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/sessions/internal/auth/domain"
	authService "github.com/allisson/sessions/internal/auth/service"
	"github.com/allisson/sessions/internal/config"
)

// tokenUseCase implements TokenUseCase on top of the token codec and the token store.
type tokenUseCase struct {
	config       *config.Config
	tokenRepo    TokenRepository
	tokenCodec   authService.TokenCodec
	tokenService authService.TokenService
	now          func() time.Time
}

// Issue mints a new token pair for userID and persists its record.
func (t *tokenUseCase) Issue(ctx context.Context, userID int64) (*authDomain.TokenPair, error) {
	pair, err := t.mint(userID)
	if err != nil {
		return nil, err
	}

	if err := t.tokenRepo.Create(ctx, pair.Token); err != nil {
		return nil, fmt.Errorf("%w: %w", authDomain.ErrTokenIssuanceFailed, err)
	}

	return pair, nil
}

// Revoke soft-deletes the record by setting its revocation time.
func (t *tokenUseCase) Revoke(ctx context.Context, token *authDomain.Token) error {
	revokedAt := t.now().UTC()

	if err := t.tokenRepo.Revoke(ctx, token.ID, revokedAt); err != nil {
		if errors.Is(err, authDomain.ErrTokenAlreadyRevoked) || errors.Is(err, authDomain.ErrTokenNotFound) {
			return authDomain.ErrNoPrincipal
		}
		return err
	}

	token.RevokedAt = &revokedAt
	return nil
}

// Rotate mints the replacement pair before touching the old record, so a minting failure
// leaves the old pair usable. The store then swaps both records atomically.
func (t *tokenUseCase) Rotate(
	ctx context.Context,
	token *authDomain.Token,
	userID int64,
) (*authDomain.TokenPair, error) {
	if token.UserID != userID {
		return nil, authDomain.ErrNoPrincipal
	}

	pair, err := t.mint(userID)
	if err != nil {
		return nil, err
	}

	revokedAt := t.now().UTC()
	if err := t.tokenRepo.Rotate(ctx, token.ID, revokedAt, pair.Token); err != nil {
		if errors.Is(err, authDomain.ErrTokenAlreadyRevoked) || errors.Is(err, authDomain.ErrTokenNotFound) {
			return nil, authDomain.ErrNoPrincipal
		}
		return nil, fmt.Errorf("%w: %w", authDomain.ErrTokenIssuanceFailed, err)
	}

	token.RevokedAt = &revokedAt
	return pair, nil
}

// RevokeAllByUserID revokes every unrevoked record of userID.
func (t *tokenUseCase) RevokeAllByUserID(ctx context.Context, userID int64) (int64, error) {
	return t.tokenRepo.RevokeAllByUserID(ctx, userID, t.now().UTC())
}

// mint builds a signed pair and its unsaved record. The refresh token carries the access
// correlation too, which binds it to the access token it was issued with.
func (t *tokenUseCase) mint(userID int64) (*authDomain.TokenPair, error) {
	accessTTL := t.config.AccessTokenTTL
	refreshTTL := t.config.RefreshTokenTTL
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, authDomain.ErrInvalidTTLConfig
	}

	now := t.now().UTC().Truncate(time.Microsecond)

	accessCorrelation, err := t.tokenService.GenerateCorrelation()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", authDomain.ErrTokenIssuanceFailed, err)
	}
	accessExpiresAt := now.Add(time.Duration(accessTTL) * time.Minute)
	accessToken, err := t.tokenCodec.Encode(userID, accessExpiresAt, map[string]string{
		authDomain.AccessTokenClaim: accessCorrelation,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", authDomain.ErrTokenIssuanceFailed, err)
	}

	refreshCorrelation, err := t.tokenService.GenerateCorrelation()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", authDomain.ErrTokenIssuanceFailed, err)
	}
	refreshExpiresAt := now.Add(time.Duration(refreshTTL) * time.Minute)
	refreshToken, err := t.tokenCodec.Encode(userID, refreshExpiresAt, map[string]string{
		authDomain.AccessTokenClaim:  accessCorrelation,
		authDomain.RefreshTokenClaim: refreshCorrelation,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", authDomain.ErrTokenIssuanceFailed, err)
	}

	return &authDomain.TokenPair{
		AccessToken:     accessToken,
		AccessTokenTTL:  accessTTL,
		RefreshToken:    refreshToken,
		RefreshTokenTTL: refreshTTL,
		Token: &authDomain.Token{
			ID:                    uuid.Must(uuid.NewV7()),
			UserID:                userID,
			AccessToken:           accessCorrelation,
			AccessTokenExpiresAt:  accessExpiresAt,
			RefreshToken:          refreshCorrelation,
			RefreshTokenExpiresAt: refreshExpiresAt,
			RevokedAt:             nil,
			CreatedAt:             now,
		},
	}, nil
}

// NewTokenUseCase creates a new TokenUseCase with the provided dependencies.
func NewTokenUseCase(
	config *config.Config,
	tokenRepo TokenRepository,
	tokenCodec authService.TokenCodec,
	tokenService authService.TokenService,
) TokenUseCase {
	return &tokenUseCase{
		config:       config,
		tokenRepo:    tokenRepo,
		tokenCodec:   tokenCodec,
		tokenService: tokenService,
		now:          time.Now,
	}
}
