package repository

import (
	"context"
	"database/sql"
	"errors"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/allisson/sessions/internal/database"
	"github.com/allisson/sessions/internal/user/domain"
)

type SQLiteUserRepository struct {
	db *sql.DB
}

func NewSQLiteUserRepository(db *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

func (r *SQLiteUserRepository) Create(ctx context.Context, user *domain.User) error {
	return insertUser(ctx, database.GetTx(ctx, r.db), user, func(err error) bool {
		var liteErr *sqlite.Error
		return errors.As(err, &liteErr) && liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	})
}

func (r *SQLiteUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := database.GetTx(ctx, r.db).QueryRowContext(ctx, selectUser+`WHERE id = ?`, id)
	return scanUser(row, "failed to get user by id")
}

func (r *SQLiteUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := database.GetTx(ctx, r.db).QueryRowContext(ctx, selectUser+`WHERE email = ?`, email)
	return scanUser(row, "failed to get user by email")
}
