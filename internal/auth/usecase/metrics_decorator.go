package usecase

import (
	"context"
	"time"

	authDomain "github.com/allisson/sessions/internal/auth/domain"
	"github.com/allisson/sessions/internal/metrics"
)

const metricsDomain = "auth"

// tokenUseCaseWithMetrics decorates TokenUseCase with metrics instrumentation.
type tokenUseCaseWithMetrics struct {
	next    TokenUseCase
	metrics metrics.BusinessMetrics
}

// NewTokenUseCaseWithMetrics wraps a TokenUseCase with metrics recording.
func NewTokenUseCaseWithMetrics(useCase TokenUseCase, m metrics.BusinessMetrics) TokenUseCase {
	return &tokenUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (t *tokenUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	t.metrics.RecordOperation(ctx, metricsDomain, operation, time.Since(start), err)
}

// Issue records metrics for token issuance operations.
func (t *tokenUseCaseWithMetrics) Issue(ctx context.Context, userID int64) (*authDomain.TokenPair, error) {
	start := time.Now()
	pair, err := t.next.Issue(ctx, userID)
	t.record(ctx, "token_issue", start, err)
	return pair, err
}

// Revoke records metrics for token revocation operations.
func (t *tokenUseCaseWithMetrics) Revoke(ctx context.Context, token *authDomain.Token) error {
	start := time.Now()
	err := t.next.Revoke(ctx, token)
	t.record(ctx, "token_revoke", start, err)
	return err
}

// Rotate records metrics for token rotation operations.
func (t *tokenUseCaseWithMetrics) Rotate(
	ctx context.Context,
	token *authDomain.Token,
	userID int64,
) (*authDomain.TokenPair, error) {
	start := time.Now()
	pair, err := t.next.Rotate(ctx, token, userID)
	t.record(ctx, "token_rotate", start, err)
	return pair, err
}

// RevokeAllByUserID records metrics for bulk revocation operations.
func (t *tokenUseCaseWithMetrics) RevokeAllByUserID(ctx context.Context, userID int64) (int64, error) {
	start := time.Now()
	count, err := t.next.RevokeAllByUserID(ctx, userID)
	t.record(ctx, "token_revoke_all", start, err)
	return count, err
}

// credentialResolverWithMetrics decorates CredentialResolver with metrics instrumentation.
type credentialResolverWithMetrics struct {
	next    CredentialResolver
	metrics metrics.BusinessMetrics
}

// NewCredentialResolverWithMetrics wraps a CredentialResolver with metrics recording.
func NewCredentialResolverWithMetrics(resolver CredentialResolver, m metrics.BusinessMetrics) CredentialResolver {
	return &credentialResolverWithMetrics{
		next:    resolver,
		metrics: m,
	}
}

// ResolveByToken records metrics per token kind, e.g. "resolve_access_token".
func (c *credentialResolverWithMetrics) ResolveByToken(
	ctx context.Context,
	presented string,
	kind authDomain.TokenKind,
) (*authDomain.Session, error) {
	start := time.Now()
	session, err := c.next.ResolveByToken(ctx, presented, kind)

	c.metrics.RecordOperation(ctx, metricsDomain, "resolve_"+kind.String()+"_token", time.Since(start), err)

	return session, err
}

// ResolveByCredentials records metrics for login attempts.
func (c *credentialResolverWithMetrics) ResolveByCredentials(
	ctx context.Context,
	identifier, secret string,
) (*authDomain.Principal, error) {
	start := time.Now()
	principal, err := c.next.ResolveByCredentials(ctx, identifier, secret)

	c.metrics.RecordOperation(ctx, metricsDomain, "resolve_credentials", time.Since(start), err)

	return principal, err
}
