package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	authDomain "github.com/allisson/sessions/internal/auth/domain"
	userDomain "github.com/allisson/sessions/internal/user/domain"
)

// mockTokenRepository is a mock implementation of TokenRepository for testing.
type mockTokenRepository struct {
	mock.Mock
}

func (m *mockTokenRepository) Create(ctx context.Context, token *authDomain.Token) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *mockTokenRepository) Get(ctx context.Context, tokenID uuid.UUID) (*authDomain.Token, error) {
	args := m.Called(ctx, tokenID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authDomain.Token), args.Error(1)
}

func (m *mockTokenRepository) GetLiveByAccessToken(
	ctx context.Context,
	userID int64,
	accessToken string,
	now time.Time,
) (*authDomain.Token, error) {
	args := m.Called(ctx, userID, accessToken, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authDomain.Token), args.Error(1)
}

func (m *mockTokenRepository) GetLiveByRefreshToken(
	ctx context.Context,
	userID int64,
	accessToken, refreshToken string,
	now time.Time,
) (*authDomain.Token, error) {
	args := m.Called(ctx, userID, accessToken, refreshToken, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authDomain.Token), args.Error(1)
}

func (m *mockTokenRepository) Revoke(ctx context.Context, tokenID uuid.UUID, revokedAt time.Time) error {
	args := m.Called(ctx, tokenID, revokedAt)
	return args.Error(0)
}

func (m *mockTokenRepository) Rotate(
	ctx context.Context,
	oldID uuid.UUID,
	revokedAt time.Time,
	next *authDomain.Token,
) error {
	args := m.Called(ctx, oldID, revokedAt, next)
	return args.Error(0)
}

func (m *mockTokenRepository) RevokeAllByUserID(
	ctx context.Context,
	userID int64,
	revokedAt time.Time,
) (int64, error) {
	args := m.Called(ctx, userID, revokedAt)
	return args.Get(0).(int64), args.Error(1)
}

// mockTokenCodec is a mock implementation of TokenCodec for testing.
type mockTokenCodec struct {
	mock.Mock
}

func (m *mockTokenCodec) Encode(
	subject int64,
	expiresAt time.Time,
	customClaims map[string]string,
) (string, error) {
	args := m.Called(subject, expiresAt, customClaims)
	return args.String(0), args.Error(1)
}

func (m *mockTokenCodec) Decode(token string) (*authDomain.Claims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authDomain.Claims), args.Error(1)
}

// mockTokenService is a mock implementation of TokenService for testing.
type mockTokenService struct {
	mock.Mock
}

func (m *mockTokenService) GenerateCorrelation() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

// mockPasswordService is a mock implementation of PasswordService for testing.
type mockPasswordService struct {
	mock.Mock
}

func (m *mockPasswordService) Hash(plain string) (string, error) {
	args := m.Called(plain)
	return args.String(0), args.Error(1)
}

func (m *mockPasswordService) Compare(plain string, hashed string) bool {
	args := m.Called(plain, hashed)
	return args.Bool(0)
}

// mockUserDirectory is a mock implementation of UserDirectory for testing.
type mockUserDirectory struct {
	mock.Mock
}

func (m *mockUserDirectory) GetByID(ctx context.Context, id int64) (*userDomain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userDomain.User), args.Error(1)
}

func (m *mockUserDirectory) GetByEmail(ctx context.Context, email string) (*userDomain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*userDomain.User), args.Error(1)
}

// testClock is a manually advanced clock shared by the codec and the use cases.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(now time.Time) *testClock {
	return &testClock{now: now}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
