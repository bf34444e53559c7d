// Package http provides HTTP handlers and middleware for session authentication.
package http

import (
	"strings"

	"github.com/gin-gonic/gin"

	authDomain "github.com/allisson/sessions/internal/auth/domain"
)

const bearerPrefix = "bearer "

// bearerToken extracts the token from an "Authorization: Bearer <token>" header.
// The scheme is matched case-insensitively.
func bearerToken(header string) (string, bool) {
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}

	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return "", false
	}
	return token, true
}

// GetSession returns the session attached by AuthenticationMiddleware.
func GetSession(c *gin.Context) (*authDomain.Session, bool) {
	return authDomain.SessionFromContext(c.Request.Context())
}
