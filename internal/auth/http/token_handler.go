package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	authDomain "github.com/allisson/sessions/internal/auth/domain"
	"github.com/allisson/sessions/internal/auth/http/dto"
	authUseCase "github.com/allisson/sessions/internal/auth/usecase"
	"github.com/allisson/sessions/internal/httputil"
	customValidation "github.com/allisson/sessions/internal/validation"
)

// TokenHandler handles login, logout, refresh and "who am I" requests.
type TokenHandler struct {
	tokenUseCase authUseCase.TokenUseCase
	resolver     authUseCase.CredentialResolver
	logger       *slog.Logger
}

// NewTokenHandler creates a new token handler with required dependencies.
func NewTokenHandler(
	tokenUseCase authUseCase.TokenUseCase,
	resolver authUseCase.CredentialResolver,
	logger *slog.Logger,
) *TokenHandler {
	return &TokenHandler{
		tokenUseCase: tokenUseCase,
		resolver:     resolver,
		logger:       logger,
	}
}

// LoginHandler exchanges credentials for a new token pair.
// POST /v1/auth/login - No authentication required (this is the authentication endpoint).
// Returns 200 OK with the token pair, 400 for malformed JSON, 422 for invalid fields.
func (h *TokenHandler) LoginHandler(c *gin.Context) {
	var req dto.LoginRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	guard := authUseCase.NewSessionGuard(h.resolver, authDomain.AccessTokenKind, "")
	principal, err := guard.Attempt(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	pair, err := h.tokenUseCase.Issue(c.Request.Context(), principal.ID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapTokenPairToResponse(pair))
}

// LogoutHandler revokes the token pair that authenticated the request.
// POST /v1/auth/logout - Requires an access token.
// Returns 204 No Content.
func (h *TokenHandler) LogoutHandler(c *gin.Context) {
	session, ok := GetSession(c)
	if !ok {
		httputil.HandleErrorGin(c, authDomain.ErrNoPrincipal, h.logger)
		return
	}

	if err := h.tokenUseCase.Revoke(c.Request.Context(), session.Token); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

// UserHandler returns the authenticated principal.
// GET /v1/auth/user - Requires an access token.
// Returns 200 OK with id, name and email.
func (h *TokenHandler) UserHandler(c *gin.Context) {
	session, ok := GetSession(c)
	if !ok {
		httputil.HandleErrorGin(c, authDomain.ErrNoPrincipal, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapPrincipalToResponse(session.Principal))
}

// RefreshHandler replaces the presented refresh token's pair with a new one.
// POST /v1/auth/refresh - Requires a refresh token.
// Returns 200 OK with the new token pair.
func (h *TokenHandler) RefreshHandler(c *gin.Context) {
	session, ok := GetSession(c)
	if !ok {
		httputil.HandleErrorGin(c, authDomain.ErrNoPrincipal, h.logger)
		return
	}

	pair, err := h.tokenUseCase.Rotate(c.Request.Context(), session.Token, session.Principal.ID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapTokenPairToResponse(pair))
}
