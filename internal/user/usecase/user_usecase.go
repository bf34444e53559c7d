// Package usecase implements the user business logic and orchestrates user domain operations.
package usecase

import (
	"context"
	"strings"

	validation "github.com/jellydator/validation"

	"github.com/allisson/sessions/internal/user/domain"
	appValidation "github.com/allisson/sessions/internal/validation"
)

// CreateUserInput contains the input data for provisioning a user
type CreateUserInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"` //nolint:gosec // plain password only lives for the duration of the call
}

// UseCase defines the interface for user business logic operations
type UseCase interface {
	CreateUser(ctx context.Context, input CreateUserInput) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
}

// UserRepository interface defines user repository operations
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// PasswordHasher hashes plain passwords before they are stored.
type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// UserUseCase handles user-related business logic
type UserUseCase struct {
	userRepo       UserRepository
	passwordHasher PasswordHasher
}

// NewUserUseCase creates a new UserUseCase
func NewUserUseCase(userRepo UserRepository, passwordHasher PasswordHasher) UseCase {
	return &UserUseCase{
		userRepo:       userRepo,
		passwordHasher: passwordHasher,
	}
}

// validateCreateUserInput validates the provisioning input using jellydator/validation.
// Login trims the presented password, so stored passwords must not carry surrounding whitespace.
func (uc *UserUseCase) validateCreateUserInput(input CreateUserInput) error {
	err := validation.ValidateStruct(&input,
		validation.Field(&input.Name,
			validation.Required.Error("name is required"),
			appValidation.NotBlank,
			validation.Length(1, 255).Error("name must be between 1 and 255 characters"),
		),
		validation.Field(&input.Email,
			validation.Required.Error("email is required"),
			appValidation.NotBlank,
			appValidation.Email,
			validation.Length(5, 255).Error("email must be between 5 and 255 characters"),
		),
		validation.Field(&input.Password,
			validation.Required.Error("password is required"),
			appValidation.NoWhitespace,
			validation.Length(6, 128).Error("password must be between 6 and 128 characters"),
			appValidation.PasswordPolicy{MinLength: 6},
		),
	)
	return appValidation.WrapValidationError(err)
}

// CreateUser validates the input, hashes the password and stores the user.
func (uc *UserUseCase) CreateUser(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	if err := uc.validateCreateUserInput(input); err != nil {
		return nil, err
	}

	hashedPassword, err := uc.passwordHasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Name:     strings.TrimSpace(input.Name),
		Email:    normalizeEmail(input.Email),
		Password: hashedPassword,
	}

	if err := uc.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// GetUserByEmail retrieves a user by email
func (uc *UserUseCase) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return uc.userRepo.GetByEmail(ctx, normalizeEmail(email))
}

// GetUserByID retrieves a user by ID
func (uc *UserUseCase) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	return uc.userRepo.GetByID(ctx, id)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
