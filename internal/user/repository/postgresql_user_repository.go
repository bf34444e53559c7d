package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/allisson/sessions/internal/database"
	"github.com/allisson/sessions/internal/user/domain"

	apperrors "github.com/allisson/sessions/internal/errors"
)

// pqUniqueViolation is the SQLSTATE of a unique constraint violation.
const pqUniqueViolation = "23505"

type PostgreSQLUserRepository struct {
	db *sql.DB
}

func NewPostgreSQLUserRepository(db *sql.DB) *PostgreSQLUserRepository {
	return &PostgreSQLUserRepository{db: db}
}

// Create inserts user and fills in the id and timestamps chosen by the database.
func (r *PostgreSQLUserRepository) Create(ctx context.Context, user *domain.User) error {
	err := database.GetTx(ctx, r.db).QueryRowContext(ctx,
		`INSERT INTO users (name, email, password, created_at, updated_at)
		 VALUES ($1, $2, $3, NOW(), NOW())
		 RETURNING id, created_at, updated_at`,
		user.Name, user.Email, user.Password,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return domain.ErrUserAlreadyExists
		}
		return apperrors.Wrap(err, "failed to create user")
	}
	return nil
}

func (r *PostgreSQLUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := database.GetTx(ctx, r.db).QueryRowContext(ctx, selectUser+`WHERE id = $1`, id)
	return scanUser(row, "failed to get user by id")
}

func (r *PostgreSQLUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := database.GetTx(ctx, r.db).QueryRowContext(ctx, selectUser+`WHERE email = $1`, email)
	return scanUser(row, "failed to get user by email")
}
