// Package domain holds the user entity resolved by login and by the tokens' subject.
package domain

import (
	"time"

	"github.com/allisson/sessions/internal/errors"
)

// User is a principal that logs in with email and password. Email is stored lowercased.
type User struct {
	ID        int64
	Name      string
	Email     string
	Password  string //nolint:gosec // argon2id hash, never the plain password
	CreatedAt time.Time
	UpdatedAt time.Time
}

var (
	ErrUserNotFound      = errors.Wrap(errors.ErrNotFound, "user not found")
	ErrUserAlreadyExists = errors.Wrap(errors.ErrConflict, "user already exists")
)
