// Package errors holds the error categories shared by the user and auth domains. Handlers
// translate a category into a status code; the wrapped message stays in the logs.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a user or token record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a write collided with existing state, such as a duplicate email
	// or a token that another request already revoked.
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indicates a request body or command argument failed validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates the caller could not be resolved to a principal.
	ErrUnauthorized = errors.New("unauthorized")
)

// New returns an uncategorized error.
func New(message string) error {
	return errors.New(message)
}

// Wrap prefixes err with message and keeps it reachable through errors.Is.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether err belongs to the category target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
