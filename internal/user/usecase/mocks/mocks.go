// Package mocks provides testify mock implementations of the user use case.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/allisson/sessions/internal/user/domain"
	userUseCase "github.com/allisson/sessions/internal/user/usecase"
)

// MockUserUseCase is a mock implementation of usecase.UseCase for testing.
type MockUserUseCase struct {
	mock.Mock
}

// CreateUser mocks the CreateUser method of UseCase.
func (m *MockUserUseCase) CreateUser(ctx context.Context, input userUseCase.CreateUserInput) (*domain.User, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// GetUserByEmail mocks the GetUserByEmail method of UseCase.
func (m *MockUserUseCase) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// GetUserByID mocks the GetUserByID method of UseCase.
func (m *MockUserUseCase) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
