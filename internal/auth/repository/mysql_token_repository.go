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

const mySQLTokenColumns = `id, user_id, access_token, access_token_expires_at, refresh_token,
			  refresh_token_expires_at, revoked_at, created_at`

// MySQLTokenRepository implements Token persistence for MySQL.
// Uses BINARY(16) for UUIDs with transaction support via database.GetTx().
type MySQLTokenRepository struct {
	db        *sql.DB
	txManager database.TxManager
}

// Create inserts a new Token using BINARY(16) for the UUID.
func (m *MySQLTokenRepository) Create(ctx context.Context, token *authDomain.Token) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO tokens (id, user_id, access_token, access_token_expires_at, refresh_token,
			  refresh_token_expires_at, revoked_at, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	id, err := token.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal token id")
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
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
func (m *MySQLTokenRepository) Get(ctx context.Context, tokenID uuid.UUID) (*authDomain.Token, error) {
	querier := database.GetTx(ctx, m.db)

	id, err := tokenID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal token id")
	}

	query := `SELECT ` + mySQLTokenColumns + ` FROM tokens WHERE id = ?`

	return scanMySQLToken(querier.QueryRowContext(ctx, query, id))
}

// GetLiveByAccessToken returns the unrevoked record bound to accessToken whose access
// expiry is after now.
func (m *MySQLTokenRepository) GetLiveByAccessToken(
	ctx context.Context,
	userID int64,
	accessToken string,
	now time.Time,
) (*authDomain.Token, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mySQLTokenColumns + ` FROM tokens
			  WHERE user_id = ? AND access_token = ?
			  AND access_token_expires_at > ? AND revoked_at IS NULL`

	return scanMySQLToken(querier.QueryRowContext(ctx, query, userID, accessToken, now))
}

// GetLiveByRefreshToken returns the unrevoked record bound to both correlations whose
// refresh expiry is after now.
func (m *MySQLTokenRepository) GetLiveByRefreshToken(
	ctx context.Context,
	userID int64,
	accessToken, refreshToken string,
	now time.Time,
) (*authDomain.Token, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mySQLTokenColumns + ` FROM tokens
			  WHERE user_id = ? AND access_token = ? AND refresh_token = ?
			  AND refresh_token_expires_at > ? AND revoked_at IS NULL`

	return scanMySQLToken(querier.QueryRowContext(ctx, query, userID, accessToken, refreshToken, now))
}

// Revoke sets revoked_at only while it is still NULL.
func (m *MySQLTokenRepository) Revoke(ctx context.Context, tokenID uuid.UUID, revokedAt time.Time) error {
	querier := database.GetTx(ctx, m.db)

	id, err := tokenID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal token id")
	}

	result, err := querier.ExecContext(
		ctx,
		`UPDATE tokens SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL`,
		revokedAt,
		id,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to revoke token")
	}

	return checkRevoked(ctx, result, func(ctx context.Context) error {
		_, err := m.Get(ctx, tokenID)
		return err
	})
}

// Rotate revokes oldID and inserts next in one transaction.
func (m *MySQLTokenRepository) Rotate(
	ctx context.Context,
	oldID uuid.UUID,
	revokedAt time.Time,
	next *authDomain.Token,
) error {
	return m.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := m.Revoke(ctx, oldID, revokedAt); err != nil {
			return err
		}
		return m.Create(ctx, next)
	})
}

// RevokeAllByUserID revokes every unrevoked record of userID.
func (m *MySQLTokenRepository) RevokeAllByUserID(
	ctx context.Context,
	userID int64,
	revokedAt time.Time,
) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	result, err := querier.ExecContext(
		ctx,
		`UPDATE tokens SET revoked_at = ? WHERE user_id = ? AND revoked_at IS NULL`,
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

func scanMySQLToken(row *sql.Row) (*authDomain.Token, error) {
	var (
		token authDomain.Token
		id    []byte
	)

	err := row.Scan(
		&id,
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

	if err := token.ID.UnmarshalBinary(id); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal token id")
	}

	normalizeTokenTimes(&token)
	return &token, nil
}

// NewMySQLTokenRepository creates a new MySQL Token repository.
func NewMySQLTokenRepository(db *sql.DB) *MySQLTokenRepository {
	return &MySQLTokenRepository{db: db, txManager: database.NewTxManager(db)}
}
