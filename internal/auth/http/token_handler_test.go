package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	authDomain "github.com/allisson/sessions/internal/auth/domain"
	"github.com/allisson/sessions/internal/auth/http/dto"
	usecaseMocks "github.com/allisson/sessions/internal/auth/usecase/mocks"
)

// setupTokenTestHandler creates a test token handler with mocked dependencies.
func setupTokenTestHandler(
	t *testing.T,
) (*TokenHandler, *usecaseMocks.MockTokenUseCase, *usecaseMocks.MockCredentialResolver) {
	t.Helper()

	mockTokenUseCase := &usecaseMocks.MockTokenUseCase{}
	mockResolver := &usecaseMocks.MockCredentialResolver{}
	handler := NewTokenHandler(mockTokenUseCase, mockResolver, createTestLogger())

	return handler, mockTokenUseCase, mockResolver
}

// createTestContext builds a gin context with an optional JSON body and session.
func createTestContext(
	method, path string,
	body any,
	session *authDomain.Session,
) (*gin.Context, *httptest.ResponseRecorder) {
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		payload, _ := json.Marshal(v)
		reader = bytes.NewReader(payload)
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	if session != nil {
		c.Request = c.Request.WithContext(authDomain.WithSession(c.Request.Context(), session))
	}
	return c, w
}

func newTestPair(session *authDomain.Session) *authDomain.TokenPair {
	return &authDomain.TokenPair{
		AccessToken:     "header.access.signature",
		AccessTokenTTL:  3,
		RefreshToken:    "header.refresh.signature",
		RefreshTokenTTL: 7,
		Token:           session.Token,
	}
}

func TestTokenHandler_LoginHandler(t *testing.T) {
	t.Run("Success_ValidCredentials", func(t *testing.T) {
		handler, mockTokenUseCase, mockResolver := setupTokenTestHandler(t)

		session := newTestSession(42)
		pair := newTestPair(session)
		mockResolver.On("ResolveByCredentials", mock.Anything, "answer@example.com", "secret").
			Return(session.Principal, nil).
			Once()
		mockTokenUseCase.On("Issue", mock.Anything, int64(42)).Return(pair, nil).Once()

		c, w := createTestContext(http.MethodPost, "/v1/auth/login",
			dto.LoginRequest{Email: "answer@example.com", Password: "secret"}, nil)

		handler.LoginHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{
			"access_token": "header.access.signature",
			"access_token_ttl": 3,
			"refresh_token": "header.refresh.signature",
			"refresh_token_ttl": 7
		}`, w.Body.String())
		mockResolver.AssertExpectations(t)
		mockTokenUseCase.AssertExpectations(t)
	})

	t.Run("Error_InvalidCredentials", func(t *testing.T) {
		handler, mockTokenUseCase, mockResolver := setupTokenTestHandler(t)

		mockResolver.On("ResolveByCredentials", mock.Anything, "answer@example.com", "wrong").
			Return(nil, authDomain.ErrNoPrincipal).
			Once()

		c, w := createTestContext(http.MethodPost, "/v1/auth/login",
			dto.LoginRequest{Email: "answer@example.com", Password: "wrong"}, nil)

		handler.LoginHandler(c)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.NotContains(t, w.Body.String(), "wrong")
		mockTokenUseCase.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything)
	})

	t.Run("Error_InvalidJSON", func(t *testing.T) {
		handler, _, mockResolver := setupTokenTestHandler(t)

		c, w := createTestContext(http.MethodPost, "/v1/auth/login", `{"email":`, nil)

		handler.LoginHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockResolver.AssertNotCalled(t, "ResolveByCredentials", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Error_ValidationFailed", func(t *testing.T) {
		handler, _, mockResolver := setupTokenTestHandler(t)

		c, w := createTestContext(http.MethodPost, "/v1/auth/login",
			dto.LoginRequest{Email: "not-an-email", Password: ""}, nil)

		handler.LoginHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "validation_error")
		mockResolver.AssertNotCalled(t, "ResolveByCredentials", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Error_IssueFailed", func(t *testing.T) {
		handler, mockTokenUseCase, mockResolver := setupTokenTestHandler(t)

		session := newTestSession(42)
		mockResolver.On("ResolveByCredentials", mock.Anything, "answer@example.com", "secret").
			Return(session.Principal, nil).
			Once()
		mockTokenUseCase.On("Issue", mock.Anything, int64(42)).
			Return(nil, errors.New("database is down")).
			Once()

		c, w := createTestContext(http.MethodPost, "/v1/auth/login",
			dto.LoginRequest{Email: "answer@example.com", Password: "secret"}, nil)

		handler.LoginHandler(c)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "database")
	})
}

func TestTokenHandler_LogoutHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler, mockTokenUseCase, _ := setupTokenTestHandler(t)

		session := newTestSession(42)
		mockTokenUseCase.On("Revoke", mock.Anything, session.Token).Return(nil).Once()

		c, w := createTestContext(http.MethodPost, "/v1/auth/logout", nil, session)

		handler.LogoutHandler(c)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
		mockTokenUseCase.AssertExpectations(t)
	})

	t.Run("Error_AlreadyRevoked", func(t *testing.T) {
		handler, mockTokenUseCase, _ := setupTokenTestHandler(t)

		session := newTestSession(42)
		mockTokenUseCase.On("Revoke", mock.Anything, session.Token).Return(authDomain.ErrNoPrincipal).Once()

		c, w := createTestContext(http.MethodPost, "/v1/auth/logout", nil, session)

		handler.LogoutHandler(c)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Error_NoSession", func(t *testing.T) {
		handler, mockTokenUseCase, _ := setupTokenTestHandler(t)

		c, w := createTestContext(http.MethodPost, "/v1/auth/logout", nil, nil)

		handler.LogoutHandler(c)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		mockTokenUseCase.AssertNotCalled(t, "Revoke", mock.Anything, mock.Anything)
	})
}

func TestTokenHandler_UserHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler, _, _ := setupTokenTestHandler(t)

		c, w := createTestContext(http.MethodGet, "/v1/auth/user", nil, newTestSession(42))

		handler.UserHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var response dto.UserResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, dto.UserResponse{ID: 42, Name: "Answer", Email: "answer@example.com"}, response)
	})

	t.Run("Error_NoSession", func(t *testing.T) {
		handler, _, _ := setupTokenTestHandler(t)

		c, w := createTestContext(http.MethodGet, "/v1/auth/user", nil, nil)

		handler.UserHandler(c)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestTokenHandler_RefreshHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler, mockTokenUseCase, _ := setupTokenTestHandler(t)

		session := newTestSession(42)
		next := newTestSession(42)
		pair := newTestPair(next)
		mockTokenUseCase.On("Rotate", mock.Anything, session.Token, int64(42)).Return(pair, nil).Once()

		c, w := createTestContext(http.MethodPost, "/v1/auth/refresh", nil, session)

		handler.RefreshHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var response dto.TokenPairResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, dto.MapTokenPairToResponse(pair), response)
		mockTokenUseCase.AssertExpectations(t)
	})

	t.Run("Error_LostRace", func(t *testing.T) {
		handler, mockTokenUseCase, _ := setupTokenTestHandler(t)

		session := newTestSession(42)
		mockTokenUseCase.On("Rotate", mock.Anything, session.Token, int64(42)).
			Return(nil, authDomain.ErrNoPrincipal).
			Once()

		c, w := createTestContext(http.MethodPost, "/v1/auth/refresh", nil, session)

		handler.RefreshHandler(c)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Error_IssuanceFailed", func(t *testing.T) {
		handler, mockTokenUseCase, _ := setupTokenTestHandler(t)

		session := newTestSession(42)
		mockTokenUseCase.On("Rotate", mock.Anything, session.Token, int64(42)).
			Return(nil, authDomain.ErrTokenIssuanceFailed).
			Once()

		c, w := createTestContext(http.MethodPost, "/v1/auth/refresh", nil, session)

		handler.RefreshHandler(c)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
