package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	authDomain "github.com/allisson/sessions/internal/auth/domain"
	authService "github.com/allisson/sessions/internal/auth/service"
	userDomain "github.com/allisson/sessions/internal/user/domain"
)

// credentialResolver implements CredentialResolver.
type credentialResolver struct {
	tokenCodec      authService.TokenCodec
	tokenRepo       TokenRepository
	users           UserDirectory
	passwordService authService.PasswordService
	logger          *slog.Logger
	now             func() time.Time
}

// ResolveByToken maps a bearer token to the principal and the live record it is bound to.
//
// The cause of a failure is logged at debug level and never includes the token itself.
// Callers only ever see ErrNoPrincipal.
func (r *credentialResolver) ResolveByToken(
	ctx context.Context,
	presented string,
	kind authDomain.TokenKind,
) (*authDomain.Session, error) {
	claims, err := r.tokenCodec.Decode(presented)
	if err != nil {
		r.logger.Debug("token rejected",
			slog.String("kind", kind.String()),
			slog.String("reason", err.Error()))
		return nil, authDomain.ErrNoPrincipal
	}

	now := r.now().UTC()
	if !claims.ExpirationTime.After(now) {
		r.logger.Debug("token expired",
			slog.String("kind", kind.String()),
			slog.Int64("user_id", claims.Subject))
		return nil, authDomain.ErrNoPrincipal
	}

	token, err := r.lookupLiveToken(ctx, claims, kind, now)
	if err != nil {
		return nil, err
	}

	principal, err := r.principal(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}

	return &authDomain.Session{Principal: principal, Token: token}, nil
}

// ResolveByCredentials verifies an email and password. Unknown emails and wrong passwords
// produce the same error.
func (r *credentialResolver) ResolveByCredentials(
	ctx context.Context,
	identifier, secret string,
) (*authDomain.Principal, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	secret = strings.TrimSpace(secret)
	if identifier == "" {
		return nil, authDomain.ErrNoPrincipal
	}

	user, err := r.users.GetByEmail(ctx, identifier)
	if err != nil {
		if !errors.Is(err, userDomain.ErrUserNotFound) {
			r.logger.Error("failed to look up user", slog.String("error", err.Error()))
		}
		return nil, authDomain.ErrNoPrincipal
	}

	if secret == "" || !r.passwordService.Compare(secret, user.Password) {
		r.logger.Debug("credentials rejected", slog.Int64("user_id", user.ID))
		return nil, authDomain.ErrNoPrincipal
	}

	return principalFromUser(user), nil
}

func (r *credentialResolver) lookupLiveToken(
	ctx context.Context,
	claims *authDomain.Claims,
	kind authDomain.TokenKind,
	now time.Time,
) (*authDomain.Token, error) {
	accessCorrelation, ok := claims.Get(authDomain.AccessTokenClaim)
	if !ok || accessCorrelation == "" {
		r.logger.Debug("token without access correlation", slog.String("kind", kind.String()))
		return nil, authDomain.ErrNoPrincipal
	}

	var (
		token *authDomain.Token
		err   error
	)
	switch kind {
	case authDomain.AccessTokenKind:
		token, err = r.tokenRepo.GetLiveByAccessToken(ctx, claims.Subject, accessCorrelation, now)
	case authDomain.RefreshTokenKind:
		refreshCorrelation, ok := claims.Get(authDomain.RefreshTokenClaim)
		if !ok || refreshCorrelation == "" {
			r.logger.Debug("token without refresh correlation", slog.String("kind", kind.String()))
			return nil, authDomain.ErrNoPrincipal
		}
		token, err = r.tokenRepo.GetLiveByRefreshToken(
			ctx,
			claims.Subject,
			accessCorrelation,
			refreshCorrelation,
			now,
		)
	default:
		return nil, authDomain.ErrNoPrincipal
	}

	if err != nil {
		if errors.Is(err, authDomain.ErrTokenNotFound) {
			r.logger.Debug("no live token record",
				slog.String("kind", kind.String()),
				slog.Int64("user_id", claims.Subject))
		} else {
			r.logger.Error("failed to look up token record",
				slog.String("kind", kind.String()),
				slog.String("error", err.Error()))
		}
		return nil, authDomain.ErrNoPrincipal
	}

	if token.UserID != claims.Subject || !token.IsLive(kind, now) {
		return nil, authDomain.ErrNoPrincipal
	}

	return token, nil
}

func (r *credentialResolver) principal(ctx context.Context, userID int64) (*authDomain.Principal, error) {
	user, err := r.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, userDomain.ErrUserNotFound) {
			r.logger.Debug("token subject no longer exists", slog.Int64("user_id", userID))
		} else {
			r.logger.Error("failed to look up user",
				slog.Int64("user_id", userID),
				slog.String("error", err.Error()))
		}
		return nil, authDomain.ErrNoPrincipal
	}
	return principalFromUser(user), nil
}

func principalFromUser(user *userDomain.User) *authDomain.Principal {
	return &authDomain.Principal{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
	}
}

// NewCredentialResolver creates a new CredentialResolver.
func NewCredentialResolver(
	tokenCodec authService.TokenCodec,
	tokenRepo TokenRepository,
	users UserDirectory,
	passwordService authService.PasswordService,
	logger *slog.Logger,
) CredentialResolver {
	return &credentialResolver{
		tokenCodec:      tokenCodec,
		tokenRepo:       tokenRepo,
		users:           users,
		passwordService: passwordService,
		logger:          logger,
		now:             time.Now,
	}
}
