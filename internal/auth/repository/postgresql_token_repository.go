// Package repository implements token record persistence for PostgreSQL, MySQL, SQLite,
// Redis and process memory.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/sessions/internal/auth/domain"
	"github.com/allisson/sessions/internal/database"
	apperrors "github.com/allisson/sessions/internal/errors"
)

const postgreSQLTokenColumns = `id, user_id, access_token, access_token_expires_at, refresh_token,
			  refresh_token_expires_at, revoked_at, created_at`

// PostgreSQLTokenRepository implements Token persistence for PostgreSQL.
// Uses native UUID types with transaction support via database.GetTx().
type PostgreSQLTokenRepository struct {
	db        *sql.DB
	txManager database.TxManager
}

// Create inserts a new Token into the PostgreSQL database.
func (p *PostgreSQLTokenRepository) Create(ctx context.Context, token *authDomain.Token) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO tokens (id, user_id, access_token, access_token_expires_at, refresh_token,
			  refresh_token_expires_at, revoked_at, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := querier.ExecContext(
		ctx,
		query,
		token.ID,
		token.UserID,
		token.AccessToken,
		token.AccessTokenExpiresAt,
		token.RefreshToken,
		token.RefreshTokenExpiresAt,
		token.RevokedAt,
		token.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create token")
	}
	return nil
}

// Get retrieves a Token by ID. Returns ErrTokenNotFound if the token doesn't exist.
func (p *PostgreSQLTokenRepository) Get(ctx context.Context, tokenID uuid.UUID) (*authDomain.Token, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + postgreSQLTokenColumns + ` FROM tokens WHERE id = $1`

	return scanPostgreSQLToken(querier.QueryRowContext(ctx, query, tokenID))
}

// GetLiveByAccessToken returns the unrevoked record bound to accessToken whose access
// expiry is after now.
func (p *PostgreSQLTokenRepository) GetLiveByAccessToken(
	ctx context.Context,
	userID int64,
	accessToken string,
	now time.Time,
) (*authDomain.Token, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + postgreSQLTokenColumns + ` FROM tokens
			  WHERE user_id = $1 AND access_token = $2
			  AND access_token_expires_at > $3 AND revoked_at IS NULL`

	return scanPostgreSQLToken(querier.QueryRowContext(ctx, query, userID, accessToken, now))
}

// GetLiveByRefreshToken returns the unrevoked record bound to both correlations whose
// refresh expiry is after now.
func (p *PostgreSQLTokenRepository) GetLiveByRefreshToken(
	ctx context.Context,
	userID int64,
	accessToken, refreshToken string,
	now time.Time,
) (*authDomain.Token, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + postgreSQLTokenColumns + ` FROM tokens
			  WHERE user_id = $1 AND access_token = $2 AND refresh_token = $3
			  AND refresh_token_expires_at > $4 AND revoked_at IS NULL`

	return scanPostgreSQLToken(
		querier.QueryRowContext(ctx, query, userID, accessToken, refreshToken, now),
	)
}

// Revoke sets revoked_at only while it is still NULL.
func (p *PostgreSQLTokenRepository) Revoke(ctx context.Context, tokenID uuid.UUID, revokedAt time.Time) error {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(
		ctx,
		`UPDATE tokens SET revoked_at = $1 WHERE id = $2 AND revoked_at IS NULL`,
		revokedAt,
		tokenID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to revoke token")
	}

	return checkRevoked(ctx, result, func(ctx context.Context) error {
		_, err := p.Get(ctx, tokenID)
		return err
	})
}

// Rotate revokes oldID and inserts next in one transaction.
func (p *PostgreSQLTokenRepository) Rotate(
	ctx context.Context,
	oldID uuid.UUID,
	revokedAt time.Time,
	next *authDomain.Token,
) error {
	return p.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := p.Revoke(ctx, oldID, revokedAt); err != nil {
			return err
		}
		return p.Create(ctx, next)
	})
}

// RevokeAllByUserID revokes every unrevoked record of userID.
func (p *PostgreSQLTokenRepository) RevokeAllByUserID(
	ctx context.Context,
	userID int64,
	revokedAt time.Time,
) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(
		ctx,
		`UPDATE tokens SET revoked_at = $1 WHERE user_id = $2 AND revoked_at IS NULL`,
		revokedAt,
		userID,
	)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to revoke user tokens")
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get rows affected")
	}
	return count, nil
}

func scanPostgreSQLToken(row *sql.Row) (*authDomain.Token, error) {
	var token authDomain.Token

	err := row.Scan(
		&token.ID,
		&token.UserID,
		&token.AccessToken,
		&token.AccessTokenExpiresAt,
		&token.RefreshToken,
		&token.RefreshTokenExpiresAt,
		&token.RevokedAt,
		&token.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, authDomain.ErrTokenNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get token")
	}

	normalizeTokenTimes(&token)
	return &token, nil
}

// checkRevoked turns a conditional revoke that touched no row into ErrTokenAlreadyRevoked
// or, when exists reports the record missing, ErrTokenNotFound.
func checkRevoked(ctx context.Context, result sql.Result, exists func(ctx context.Context) error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get rows affected")
	}
	if rows > 0 {
		return nil
	}

	if err := exists(ctx); err != nil {
		return err
	}
	return authDomain.ErrTokenAlreadyRevoked
}

func normalizeTokenTimes(token *authDomain.Token) {
	token.AccessTokenExpiresAt = token.AccessTokenExpiresAt.UTC()
	token.RefreshTokenExpiresAt = token.RefreshTokenExpiresAt.UTC()
	token.CreatedAt = token.CreatedAt.UTC()
	if token.RevokedAt != nil {
		revokedAt := token.RevokedAt.UTC()
		token.RevokedAt = &revokedAt
	}
}

// NewPostgreSQLTokenRepository creates a new PostgreSQL Token repository.
func NewPostgreSQLTokenRepository(db *sql.DB) *PostgreSQLTokenRepository {
	return &PostgreSQLTokenRepository{db: db, txManager: database.NewTxManager(db)}
}
