package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	authDomain "github.com/allisson/sessions/internal/auth/domain"
	apperrors "github.com/allisson/sessions/internal/errors"
)

const (
	revokeStatusNotFound       int64 = 0
	revokeStatusAlreadyRevoked int64 = 1
	revokeStatusRevoked        int64 = 2
)

const (
	fieldID                    = "id"
	fieldUserID                = "user_id"
	fieldAccessToken           = "access_token"
	fieldAccessTokenExpiresAt  = "access_token_expires_at"
	fieldRefreshToken          = "refresh_token"
	fieldRefreshTokenExpiresAt = "refresh_token_expires_at"
	fieldRevokedAt             = "revoked_at"
	fieldCreatedAt             = "created_at"
)

// KEYS[1] token hash; ARGV[1] revoked_at.
const revokeTokenScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
local revoked = redis.call("HGET", KEYS[1], "revoked_at")
if revoked and revoked ~= "" then
  return 1
end
redis.call("HSET", KEYS[1], "revoked_at", ARGV[1])
return 2
`

var revokeTokenLua = redis.NewScript(revokeTokenScript)

// KEYS[1] old token hash, KEYS[2] next token hash, KEYS[3] next access index, KEYS[4] user set.
// ARGV[1] revoked_at, ARGV[2] next id, ARGV[3..] next hash field/value pairs.
const rotateTokenScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
local revoked = redis.call("HGET", KEYS[1], "revoked_at")
if revoked and revoked ~= "" then
  return 1
end
redis.call("HSET", KEYS[2], unpack(ARGV, 3))
redis.call("SET", KEYS[3], ARGV[2])
redis.call("SADD", KEYS[4], ARGV[2])
redis.call("HSET", KEYS[1], "revoked_at", ARGV[1])
return 2
`

var rotateTokenLua = redis.NewScript(rotateTokenScript)

// RedisTokenRepository stores each record as a hash with an index key per access
// correlation and a set of record ids per user. Conditional revokes run as Lua scripts.
type RedisTokenRepository struct {
	client redis.UniversalClient
	prefix string
}

func (r *RedisTokenRepository) tokenKey(tokenID uuid.UUID) string {
	return r.prefix + ":token:" + tokenID.String()
}

func (r *RedisTokenRepository) accessKey(userID int64, accessToken string) string {
	return r.prefix + ":access:" + strconv.FormatInt(userID, 10) + ":" + accessToken
}

func (r *RedisTokenRepository) userKey(userID int64) string {
	return r.prefix + ":user:" + strconv.FormatInt(userID, 10)
}

// Create stores the record hash and its indexes in one MULTI/EXEC block.
func (r *RedisTokenRepository) Create(ctx context.Context, token *authDomain.Token) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.tokenKey(token.ID), tokenFields(token)...)
		pipe.Set(ctx, r.accessKey(token.UserID, token.AccessToken), token.ID.String(), 0)
		pipe.SAdd(ctx, r.userKey(token.UserID), token.ID.String())
		return nil
	})
	if err != nil {
		return apperrors.Wrap(err, "failed to create token")
	}
	return nil
}

// Get retrieves a record by ID. Returns ErrTokenNotFound if the hash doesn't exist.
func (r *RedisTokenRepository) Get(ctx context.Context, tokenID uuid.UUID) (*authDomain.Token, error) {
	values, err := r.client.HGetAll(ctx, r.tokenKey(tokenID)).Result()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get token")
	}
	if len(values) == 0 {
		return nil, authDomain.ErrTokenNotFound
	}
	return parseTokenFields(values)
}

// GetLiveByAccessToken returns the live record of userID bound to accessToken.
func (r *RedisTokenRepository) GetLiveByAccessToken(
	ctx context.Context,
	userID int64,
	accessToken string,
	now time.Time,
) (*authDomain.Token, error) {
	token, err := r.getByAccessToken(ctx, userID, accessToken)
	if err != nil {
		return nil, err
	}
	if !token.IsLive(authDomain.AccessTokenKind, now) {
		return nil, authDomain.ErrTokenNotFound
	}
	return token, nil
}

// GetLiveByRefreshToken returns the live record of userID bound to both correlations.
func (r *RedisTokenRepository) GetLiveByRefreshToken(
	ctx context.Context,
	userID int64,
	accessToken, refreshToken string,
	now time.Time,
) (*authDomain.Token, error) {
	token, err := r.getByAccessToken(ctx, userID, accessToken)
	if err != nil {
		return nil, err
	}
	if token.RefreshToken != refreshToken || !token.IsLive(authDomain.RefreshTokenKind, now) {
		return nil, authDomain.ErrTokenNotFound
	}
	return token, nil
}

// Revoke sets revoked_at only while it is still empty.
func (r *RedisTokenRepository) Revoke(ctx context.Context, tokenID uuid.UUID, revokedAt time.Time) error {
	status, err := revokeTokenLua.Run(
		ctx,
		r.client,
		[]string{r.tokenKey(tokenID)},
		formatMicros(revokedAt),
	).Int64()
	if err != nil {
		return apperrors.Wrap(err, "failed to revoke token")
	}
	return revokeStatusError(status)
}

// Rotate stores next and revokes oldID in a single script execution.
func (r *RedisTokenRepository) Rotate(
	ctx context.Context,
	oldID uuid.UUID,
	revokedAt time.Time,
	next *authDomain.Token,
) error {
	keys := []string{
		r.tokenKey(oldID),
		r.tokenKey(next.ID),
		r.accessKey(next.UserID, next.AccessToken),
		r.userKey(next.UserID),
	}
	args := append([]any{formatMicros(revokedAt), next.ID.String()}, tokenFields(next)...)

	status, err := rotateTokenLua.Run(ctx, r.client, keys, args...).Int64()
	if err != nil {
		return apperrors.Wrap(err, "failed to rotate token")
	}
	return revokeStatusError(status)
}

// RevokeAllByUserID revokes every unrevoked record of userID. Each record is revoked
// atomically; a record created while this runs may be missed.
func (r *RedisTokenRepository) RevokeAllByUserID(
	ctx context.Context,
	userID int64,
	revokedAt time.Time,
) (int64, error) {
	ids, err := r.client.SMembers(ctx, r.userKey(userID)).Result()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to list user tokens")
	}

	var count int64
	for _, id := range ids {
		status, err := revokeTokenLua.Run(
			ctx,
			r.client,
			[]string{r.prefix + ":token:" + id},
			formatMicros(revokedAt),
		).Int64()
		if err != nil {
			return count, apperrors.Wrap(err, "failed to revoke user tokens")
		}
		if status == revokeStatusRevoked {
			count++
		}
	}
	return count, nil
}

func (r *RedisTokenRepository) getByAccessToken(
	ctx context.Context,
	userID int64,
	accessToken string,
) (*authDomain.Token, error) {
	id, err := r.client.Get(ctx, r.accessKey(userID, accessToken)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, authDomain.ErrTokenNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get token")
	}

	tokenID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to parse token id")
	}

	token, err := r.Get(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if token.UserID != userID || token.AccessToken != accessToken {
		return nil, authDomain.ErrTokenNotFound
	}
	return token, nil
}

func revokeStatusError(status int64) error {
	switch status {
	case revokeStatusRevoked:
		return nil
	case revokeStatusAlreadyRevoked:
		return authDomain.ErrTokenAlreadyRevoked
	case revokeStatusNotFound:
		return authDomain.ErrTokenNotFound
	default:
		return apperrors.New("unexpected revoke status " + strconv.FormatInt(status, 10))
	}
}

func tokenFields(token *authDomain.Token) []any {
	revokedAt := ""
	if token.RevokedAt != nil {
		revokedAt = formatMicros(*token.RevokedAt)
	}
	return []any{
		fieldID, token.ID.String(),
		fieldUserID, strconv.FormatInt(token.UserID, 10),
		fieldAccessToken, token.AccessToken,
		fieldAccessTokenExpiresAt, formatMicros(token.AccessTokenExpiresAt),
		fieldRefreshToken, token.RefreshToken,
		fieldRefreshTokenExpiresAt, formatMicros(token.RefreshTokenExpiresAt),
		fieldRevokedAt, revokedAt,
		fieldCreatedAt, formatMicros(token.CreatedAt),
	}
}

func parseTokenFields(values map[string]string) (*authDomain.Token, error) {
	var (
		token authDomain.Token
		err   error
	)

	if token.ID, err = uuid.Parse(values[fieldID]); err != nil {
		return nil, apperrors.Wrap(err, "failed to parse token id")
	}
	if token.UserID, err = strconv.ParseInt(values[fieldUserID], 10, 64); err != nil {
		return nil, apperrors.Wrap(err, "failed to parse token user id")
	}
	token.AccessToken = values[fieldAccessToken]
	token.RefreshToken = values[fieldRefreshToken]

	if token.AccessTokenExpiresAt, err = parseMicros(values[fieldAccessTokenExpiresAt]); err != nil {
		return nil, err
	}
	if token.RefreshTokenExpiresAt, err = parseMicros(values[fieldRefreshTokenExpiresAt]); err != nil {
		return nil, err
	}
	if token.CreatedAt, err = parseMicros(values[fieldCreatedAt]); err != nil {
		return nil, err
	}
	if raw := values[fieldRevokedAt]; raw != "" {
		revokedAt, err := parseMicros(raw)
		if err != nil {
			return nil, err
		}
		token.RevokedAt = &revokedAt
	}

	return &token, nil
}

func formatMicros(t time.Time) string {
	return strconv.FormatInt(t.UnixMicro(), 10)
}

func parseMicros(raw string) (time.Time, error) {
	micros, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, apperrors.Wrap(err, "failed to parse token time")
	}
	return time.UnixMicro(micros).UTC(), nil
}

// NewRedisTokenRepository creates a Redis token repository namespacing every key with prefix.
func NewRedisTokenRepository(client redis.UniversalClient, prefix string) *RedisTokenRepository {
	return &RedisTokenRepository{client: client, prefix: prefix}
}
