// Package repository stores users in PostgreSQL, MySQL or SQLite.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/allisson/sessions/internal/database"
	"github.com/allisson/sessions/internal/user/domain"

	apperrors "github.com/allisson/sessions/internal/errors"
)

const selectUser = `SELECT id, name, email, password, created_at, updated_at FROM users `

// scanUser maps a single users row, turning sql.ErrNoRows into ErrUserNotFound.
func scanUser(row *sql.Row, errMessage string) (*domain.User, error) {
	var user domain.User
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.Password, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, apperrors.Wrap(err, errMessage)
	}
	return &user, nil
}

// insertUser runs the "?" placeholder insert shared by MySQL and SQLite, which report the
// new id through LastInsertId. isDuplicate recognizes the driver's unique violation.
func insertUser(
	ctx context.Context,
	querier database.Querier,
	user *domain.User,
	isDuplicate func(error) bool,
) error {
	now := time.Now().UTC()
	result, err := querier.ExecContext(ctx,
		`INSERT INTO users (name, email, password, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		user.Name, user.Email, user.Password, now, now,
	)
	if err != nil {
		if isDuplicate(err) {
			return domain.ErrUserAlreadyExists
		}
		return apperrors.Wrap(err, "failed to create user")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return apperrors.Wrap(err, "failed to read user id")
	}

	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}
