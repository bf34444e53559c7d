package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/sessions/internal/errors"
	"github.com/allisson/sessions/internal/user/domain"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	if args.Error(0) == nil {
		// Simulate the database assigning identity and timestamps
		user.ID = 1
		user.CreatedAt = time.Now().UTC()
		user.UpdatedAt = user.CreatedAt
	}
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// MockPasswordHasher is a mock implementation of PasswordHasher
type MockPasswordHasher struct {
	mock.Mock
}

func (m *MockPasswordHasher) Hash(plain string) (string, error) {
	args := m.Called(plain)
	return args.String(0), args.Error(1)
}

func TestUserUseCase_CreateUser(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo := &MockUserRepository{}
		hasher := &MockPasswordHasher{}
		uc := NewUserUseCase(repo, hasher)

		hasher.On("Hash", "111111").Return("hashed", nil)
		repo.On("Create", ctx, mock.MatchedBy(func(u *domain.User) bool {
			return u.Name == "One" && u.Email == "1@1.com" && u.Password == "hashed"
		})).Return(nil)

		user, err := uc.CreateUser(ctx, CreateUserInput{
			Name:     "  One ",
			Email:    " 1@1.COM ",
			Password: "111111",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), user.ID)
		assert.Equal(t, "1@1.com", user.Email)
		assert.Equal(t, "hashed", user.Password)

		repo.AssertExpectations(t)
		hasher.AssertExpectations(t)
	})

	t.Run("Error_Validation", func(t *testing.T) {
		inputs := map[string]CreateUserInput{
			"MissingName":        {Email: "1@1.com", Password: "111111"},
			"BlankName":          {Name: "   ", Email: "1@1.com", Password: "111111"},
			"InvalidEmail":       {Name: "One", Email: "not-an-email", Password: "111111"},
			"ShortPassword":      {Name: "One", Email: "1@1.com", Password: "123"},
			"PasswordWhitespace": {Name: "One", Email: "1@1.com", Password: " 111111 "},
			"MissingPassword":    {Name: "One", Email: "1@1.com"},
		}

		for name, input := range inputs {
			t.Run(name, func(t *testing.T) {
				repo := &MockUserRepository{}
				hasher := &MockPasswordHasher{}
				uc := NewUserUseCase(repo, hasher)

				user, err := uc.CreateUser(ctx, input)
				assert.Nil(t, user)
				assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
				repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
				hasher.AssertNotCalled(t, "Hash", mock.Anything)
			})
		}
	})

	t.Run("Error_HashFails", func(t *testing.T) {
		repo := &MockUserRepository{}
		hasher := &MockPasswordHasher{}
		uc := NewUserUseCase(repo, hasher)

		hashErr := errors.New("hash failed")
		hasher.On("Hash", "111111").Return("", hashErr)

		_, err := uc.CreateUser(ctx, CreateUserInput{Name: "One", Email: "1@1.com", Password: "111111"})
		assert.ErrorIs(t, err, hashErr)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Error_Duplicate", func(t *testing.T) {
		repo := &MockUserRepository{}
		hasher := &MockPasswordHasher{}
		uc := NewUserUseCase(repo, hasher)

		hasher.On("Hash", "111111").Return("hashed", nil)
		repo.On("Create", ctx, mock.Anything).Return(domain.ErrUserAlreadyExists)

		_, err := uc.CreateUser(ctx, CreateUserInput{Name: "One", Email: "1@1.com", Password: "111111"})
		assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
	})
}

func TestUserUseCase_Getters(t *testing.T) {
	ctx := context.Background()
	expected := &domain.User{ID: 2, Name: "Two", Email: "2@2.com"}

	t.Run("GetUserByEmail_Normalizes", func(t *testing.T) {
		repo := &MockUserRepository{}
		uc := NewUserUseCase(repo, &MockPasswordHasher{})
		repo.On("GetByEmail", ctx, "2@2.com").Return(expected, nil)

		user, err := uc.GetUserByEmail(ctx, " 2@2.COM")
		require.NoError(t, err)
		assert.Equal(t, expected, user)
	})

	t.Run("GetUserByID_NotFound", func(t *testing.T) {
		repo := &MockUserRepository{}
		uc := NewUserUseCase(repo, &MockPasswordHasher{})
		repo.On("GetByID", ctx, int64(9)).Return(nil, domain.ErrUserNotFound)

		user, err := uc.GetUserByID(ctx, 9)
		assert.Nil(t, user)
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})
}
