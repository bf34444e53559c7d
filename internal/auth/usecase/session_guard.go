package usecase

import (
	"context"

	authDomain "github.com/allisson/sessions/internal/auth/domain"
)

// SessionGuard caches the authenticated principal for the lifetime of one request.
// It is not safe for concurrent use; transports create one per request.
type SessionGuard struct {
	resolver    CredentialResolver
	kind        authDomain.TokenKind
	bearerToken string

	principal *authDomain.Principal
	session   *authDomain.Session
}

// NewSessionGuard creates a guard that resolves bearerToken as a token of the given kind.
// bearerToken may be empty for credential-only flows such as login.
func NewSessionGuard(resolver CredentialResolver, kind authDomain.TokenKind, bearerToken string) *SessionGuard {
	return &SessionGuard{
		resolver:    resolver,
		kind:        kind,
		bearerToken: bearerToken,
	}
}

// Attempt authenticates identifier and secret and caches the principal on success.
func (g *SessionGuard) Attempt(ctx context.Context, identifier, secret string) (*authDomain.Principal, error) {
	principal, err := g.resolver.ResolveByCredentials(ctx, identifier, secret)
	if err != nil {
		return nil, err
	}
	g.principal = principal
	return principal, nil
}

// CurrentPrincipal returns the cached principal or resolves the bearer token.
// Failures are not cached.
func (g *SessionGuard) CurrentPrincipal(ctx context.Context) (*authDomain.Principal, error) {
	if g.principal != nil {
		return g.principal, nil
	}

	session, err := g.resolver.ResolveByToken(ctx, g.bearerToken, g.kind)
	if err != nil {
		return nil, err
	}

	g.session = session
	g.principal = session.Principal
	return session.Principal, nil
}

// Session returns the principal and token record resolved from the bearer token.
func (g *SessionGuard) Session() (*authDomain.Session, bool) {
	if g.session == nil {
		return nil, false
	}
	return g.session, true
}

// Validate reports whether identifier and secret are valid without caching anything.
func (g *SessionGuard) Validate(ctx context.Context, identifier, secret string) bool {
	_, err := g.resolver.ResolveByCredentials(ctx, identifier, secret)
	return err == nil
}
