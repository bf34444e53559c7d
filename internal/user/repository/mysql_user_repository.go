package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/allisson/sessions/internal/database"
	"github.com/allisson/sessions/internal/user/domain"
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

type MySQLUserRepository struct {
	db *sql.DB
}

func NewMySQLUserRepository(db *sql.DB) *MySQLUserRepository {
	return &MySQLUserRepository{db: db}
}

func (r *MySQLUserRepository) Create(ctx context.Context, user *domain.User) error {
	return insertUser(ctx, database.GetTx(ctx, r.db), user, func(err error) bool {
		var myErr *mysql.MySQLError
		return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
	})
}

func (r *MySQLUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := database.GetTx(ctx, r.db).QueryRowContext(ctx, selectUser+`WHERE id = ?`, id)
	return scanUser(row, "failed to get user by id")
}

func (r *MySQLUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := database.GetTx(ctx, r.db).QueryRowContext(ctx, selectUser+`WHERE email = ?`, email)
	return scanUser(row, "failed to get user by email")
}
