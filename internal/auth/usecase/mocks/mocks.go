// Package mocks provides testify mock implementations of the session token use cases.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	authDomain "github.com/allisson/sessions/internal/auth/domain"
)

// MockTokenUseCase is a mock implementation of TokenUseCase for testing.
type MockTokenUseCase struct {
	mock.Mock
}

// Issue mocks the Issue method of TokenUseCase.
func (m *MockTokenUseCase) Issue(ctx context.Context, userID int64) (*authDomain.TokenPair, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authDomain.TokenPair), args.Error(1)
}

// Revoke mocks the Revoke method of TokenUseCase.
func (m *MockTokenUseCase) Revoke(ctx context.Context, token *authDomain.Token) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

// Rotate mocks the Rotate method of TokenUseCase.
func (m *MockTokenUseCase) Rotate(
	ctx context.Context,
	token *authDomain.Token,
	userID int64,
) (*authDomain.TokenPair, error) {
	args := m.Called(ctx, token, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authDomain.TokenPair), args.Error(1)
}

// RevokeAllByUserID mocks the RevokeAllByUserID method of TokenUseCase.
func (m *MockTokenUseCase) RevokeAllByUserID(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// MockCredentialResolver is a mock implementation of CredentialResolver for testing.
type MockCredentialResolver struct {
	mock.Mock
}

// ResolveByToken mocks the ResolveByToken method of CredentialResolver.
func (m *MockCredentialResolver) ResolveByToken(
	ctx context.Context,
	presented string,
	kind authDomain.TokenKind,
) (*authDomain.Session, error) {
	args := m.Called(ctx, presented, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authDomain.Session), args.Error(1)
}

// ResolveByCredentials mocks the ResolveByCredentials method of CredentialResolver.
func (m *MockCredentialResolver) ResolveByCredentials(
	ctx context.Context,
	identifier, secret string,
) (*authDomain.Principal, error) {
	args := m.Called(ctx, identifier, secret)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authDomain.Principal), args.Error(1)
}
