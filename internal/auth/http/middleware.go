package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	authDomain "github.com/allisson/sessions/internal/auth/domain"
	authUseCase "github.com/allisson/sessions/internal/auth/usecase"
	"github.com/allisson/sessions/internal/httputil"
)

// AuthenticationMiddleware resolves the bearer token as a token of the given kind.
//
// The middleware:
// 1. Extracts the Bearer token from the Authorization header (case-insensitive scheme)
// 2. Builds a SessionGuard for the route's token kind
// 3. Resolves the current principal through the guard
// 4. Stores the session in the request context for downstream handlers
//
// Every failure responds 401 Unauthorized with the same body, so callers cannot tell
// a malformed token from a revoked one.
//
// Usage:
//
//	router.POST("/v1/auth/refresh",
//	    AuthenticationMiddleware(resolver, authDomain.RefreshTokenKind, logger),
//	    handler.RefreshHandler)
func AuthenticationMiddleware(
	resolver authUseCase.CredentialResolver,
	kind authDomain.TokenKind,
	logger *slog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			logger.Debug("authentication failed: missing or malformed authorization header")
			httputil.HandleErrorGin(c, authDomain.ErrNoPrincipal, nil)
			c.Abort()
			return
		}

		guard := authUseCase.NewSessionGuard(resolver, kind, token)
		if _, err := guard.CurrentPrincipal(c.Request.Context()); err != nil {
			httputil.HandleErrorGin(c, err, logger)
			c.Abort()
			return
		}

		session, _ := guard.Session()
		c.Request = c.Request.WithContext(authDomain.WithSession(c.Request.Context(), session))

		logger.Debug("authentication successful",
			slog.Int64("user_id", session.Principal.ID),
			slog.String("token_id", session.Token.ID.String()),
			slog.String("kind", string(kind)))

		c.Next()
	}
}
