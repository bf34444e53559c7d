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

const sqliteTokenColumns = `id, user_id, access_token, access_token_expires_at, refresh_token,
			  refresh_token_expires_at, revoked_at, created_at`

// SQLiteTokenRepository implements Token persistence for SQLite.
// UUIDs are stored as TEXT and instants as INTEGER unix microseconds.
type SQLiteTokenRepository struct {
	db        *sql.DB
	txManager database.TxManager
}

// Create inserts a new Token into the SQLite database.
func (s *SQLiteTokenRepository) Create(ctx context.Context, token *authDomain.Token) error {
	querier := database.GetTx(ctx, s.db)

	query := `INSERT INTO tokens (id, user_id, access_token, access_token_expires_at, refresh_token,
			  refresh_token_expires_at, revoked_at, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	var revokedAt sql.NullInt64
	if token.RevokedAt != nil {
		revokedAt = sql.NullInt64{Int64: token.RevokedAt.UnixMicro(), Valid: true}
	}

	_, err := querier.ExecContext(
		ctx,
		query,
		token.ID.String(),
		token.UserID,
		token.AccessToken,
		token.AccessTokenExpiresAt.UnixMicro(),
		token.RefreshToken,
		token.RefreshTokenExpiresAt.UnixMicro(),
		revokedAt,
		token.CreatedAt.UnixMicro(),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create token")
	}
	return nil
}

// Get retrieves a Token by ID. Returns ErrTokenNotFound if the token doesn't exist.
func (s *SQLiteTokenRepository) Get(ctx context.Context, tokenID uuid.UUID) (*authDomain.Token, error) {
	querier := database.GetTx(ctx, s.db)

	query := `SELECT ` + sqliteTokenColumns + ` FROM tokens WHERE id = ?`

	return scanSQLiteToken(querier.QueryRowContext(ctx, query, tokenID.String()))
}

// GetLiveByAccessToken returns the unrevoked record bound to accessToken whose access
// expiry is after now.
func (s *SQLiteTokenRepository) GetLiveByAccessToken(
	ctx context.Context,
	userID int64,
	accessToken string,
	now time.Time,
) (*authDomain.Token, error) {
	querier := database.GetTx(ctx, s.db)

	query := `SELECT ` + sqliteTokenColumns + ` FROM tokens
			  WHERE user_id = ? AND access_token = ?
			  AND access_token_expires_at > ? AND revoked_at IS NULL`

	return scanSQLiteToken(querier.QueryRowContext(ctx, query, userID, accessToken, now.UnixMicro()))
}

// GetLiveByRefreshToken returns the unrevoked record bound to both correlations whose
// refresh expiry is after now.
func (s *SQLiteTokenRepository) GetLiveByRefreshToken(
	ctx context.Context,
	userID int64,
	accessToken, refreshToken string,
	now time.Time,
) (*authDomain.Token, error) {
	querier := database.GetTx(ctx, s.db)

	query := `SELECT ` + sqliteTokenColumns + ` FROM tokens
			  WHERE user_id = ? AND access_token = ? AND refresh_token = ?
			  AND refresh_token_expires_at > ? AND revoked_at IS NULL`

	return scanSQLiteToken(
		querier.QueryRowContext(ctx, query, userID, accessToken, refreshToken, now.UnixMicro()),
	)
}

// Revoke sets revoked_at only while it is still NULL.
func (s *SQLiteTokenRepository) Revoke(ctx context.Context, tokenID uuid.UUID, revokedAt time.Time) error {
	querier := database.GetTx(ctx, s.db)

	result, err := querier.ExecContext(
		ctx,
		`UPDATE tokens SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL`,
		revokedAt.UnixMicro(),
		tokenID.String(),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to revoke token")
	}

	return checkRevoked(ctx, result, func(ctx context.Context) error {
		_, err := s.Get(ctx, tokenID)
		return err
	})
}

// Rotate revokes oldID and inserts next in one transaction.
func (s *SQLiteTokenRepository) Rotate(
	ctx context.Context,
	oldID uuid.UUID,
	revokedAt time.Time,
	next *authDomain.Token,
) error {
	return s.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := s.Revoke(ctx, oldID, revokedAt); err != nil {
			return err
		}
		return s.Create(ctx, next)
	})
}

// RevokeAllByUserID revokes every unrevoked record of userID.
func (s *SQLiteTokenRepository) RevokeAllByUserID(
	ctx context.Context,
	userID int64,
	revokedAt time.Time,
) (int64, error) {
	querier := database.GetTx(ctx, s.db)

	result, err := querier.ExecContext(
		ctx,
		`UPDATE tokens SET revoked_at = ? WHERE user_id = ? AND revoked_at IS NULL`,
		revokedAt.UnixMicro(),
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

func scanSQLiteToken(row *sql.Row) (*authDomain.Token, error) {
	var (
		token                 authDomain.Token
		id                    string
		accessTokenExpiresAt  int64
		refreshTokenExpiresAt int64
		revokedAt             sql.NullInt64
		createdAt             int64
	)

	err := row.Scan(
		&id,
		&token.UserID,
		&token.AccessToken,
		&accessTokenExpiresAt,
		&token.RefreshToken,
		&refreshTokenExpiresAt,
		&revokedAt,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, authDomain.ErrTokenNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get token")
	}

	token.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to parse token id")
	}
	token.AccessTokenExpiresAt = time.UnixMicro(accessTokenExpiresAt).UTC()
	token.RefreshTokenExpiresAt = time.UnixMicro(refreshTokenExpiresAt).UTC()
	token.CreatedAt = time.UnixMicro(createdAt).UTC()
	if revokedAt.Valid {
		at := time.UnixMicro(revokedAt.Int64).UTC()
		token.RevokedAt = &at
	}

	return &token, nil
}

// NewSQLiteTokenRepository creates a new SQLite Token repository.
func NewSQLiteTokenRepository(db *sql.DB) *SQLiteTokenRepository {
	return &SQLiteTokenRepository{db: db, txManager: database.NewTxManager(db)}
}
