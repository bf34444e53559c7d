package dto

import (
	authDomain "github.com/allisson/sessions/internal/auth/domain"
)

// TokenPairResponse is returned by login and refresh. TTLs are in minutes.
type TokenPairResponse struct {
	AccessToken     string `json:"access_token"` //nolint:gosec // returned to the token owner
	AccessTokenTTL  int    `json:"access_token_ttl"`
	RefreshToken    string `json:"refresh_token"` //nolint:gosec // returned to the token owner
	RefreshTokenTTL int    `json:"refresh_token_ttl"`
}

// MapTokenPairToResponse converts an issued pair to an API response.
func MapTokenPairToResponse(pair *authDomain.TokenPair) TokenPairResponse {
	return TokenPairResponse{
		AccessToken:     pair.AccessToken,
		AccessTokenTTL:  pair.AccessTokenTTL,
		RefreshToken:    pair.RefreshToken,
		RefreshTokenTTL: pair.RefreshTokenTTL,
	}
}

// UserResponse represents the authenticated principal.
type UserResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// MapPrincipalToResponse converts a principal to an API response.
func MapPrincipalToResponse(principal *authDomain.Principal) UserResponse {
	return UserResponse{
		ID:    principal.ID,
		Name:  principal.Name,
		Email: principal.Email,
	}
}
