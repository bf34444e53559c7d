// Package integration provides end-to-end integration tests for the session token API.
// Tests every endpoint against PostgreSQL, MySQL and SQLite, with both the database and the
// Redis token store.
package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/sessions/internal/app"
	authDTO "github.com/allisson/sessions/internal/auth/http/dto"
	"github.com/allisson/sessions/internal/config"
	"github.com/allisson/sessions/internal/testutil"
	userUseCase "github.com/allisson/sessions/internal/user/usecase"
)

const (
	testUserName     = "Integration User"
	testUserEmail    = "integration@example.com"
	testUserPassword = "Sup3r$ecret"
)

// integrationTestContext holds all dependencies and state for integration testing.
type integrationTestContext struct {
	container *app.Container
	db        *sql.DB
	server    *httptest.Server
	userID    int64
	dbDriver  string
}

// makeRequest performs an HTTP request and returns the response and body.
func (ctx *integrationTestContext) makeRequest(
	t *testing.T,
	method, path string,
	body any,
	bearer string,
) (*http.Response, []byte) {
	t.Helper()

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		require.NoError(t, err, "failed to marshal request body")
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, ctx.server.URL+path, bodyReader)
	require.NoError(t, err, "failed to create request")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	//nolint:gosec // controlled test environment with localhost URLs
	resp, err := client.Do(req)
	require.NoError(t, err, "failed to perform request")

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")
	if closeErr := resp.Body.Close(); closeErr != nil {
		t.Logf("Warning: failed to close response body: %v", closeErr)
	}

	return resp, respBody
}

// login exchanges the test user's credentials for a token pair.
func (ctx *integrationTestContext) login(t *testing.T) authDTO.TokenPairResponse {
	t.Helper()

	resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/auth/login",
		authDTO.LoginRequest{Email: testUserEmail, Password: testUserPassword}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var pair authDTO.TokenPairResponse
	require.NoError(t, json.Unmarshal(body, &pair))
	return pair
}

// setupDatabase returns a migrated database for dbDriver and the DSN the container should use.
func setupDatabase(t *testing.T, dbDriver string) (*sql.DB, string) {
	t.Helper()

	switch dbDriver {
	case config.DriverPostgres:
		return testutil.SetupPostgresDB(t), testutil.GetPostgresTestDSN()
	case config.DriverMySQL:
		return testutil.SetupMySQLDB(t), testutil.GetMySQLTestDSN()
	default:
		path := filepath.Join(t.TempDir(), "sessions.db")
		return testutil.SetupSQLiteDBAt(t, path), testutil.SQLiteDSN(path)
	}
}

// setupIntegrationTest initializes all components for integration testing.
func setupIntegrationTest(t *testing.T, dbDriver, tokenStore string) *integrationTestContext {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db, dsn := setupDatabase(t, dbDriver)

	cfg := &config.Config{
		DBDriver:             dbDriver,
		DBConnectionString:   dsn,
		DBMaxOpenConnections: 10,
		DBMaxIdleConnections: 5,
		DBConnMaxLifetime:    time.Hour,
		ServerHost:           "localhost",
		ServerPort:           8080,
		LogLevel:             "error",
		TokenStore:           tokenStore,
		JWTSigningKey:        "integration-test-signing-key",
		AccessTokenTTL:       3,
		RefreshTokenTTL:      7,
		MetricsNamespace:     "sessions",
	}

	if tokenStore == config.TokenStoreRedis {
		mr := miniredis.RunT(t)
		cfg.RedisURL = "redis://" + mr.Addr()
		cfg.RedisKeyPrefix = "sessions"
	}

	container := app.NewContainer(cfg)

	users, err := container.UserUseCase()
	require.NoError(t, err, "failed to get user use case")

	user, err := users.CreateUser(context.Background(), userUseCase.CreateUserInput{
		Name:     testUserName,
		Email:    testUserEmail,
		Password: testUserPassword,
	})
	require.NoError(t, err, "failed to create test user")

	httpSrv, err := container.HTTPServer()
	require.NoError(t, err, "failed to get HTTP server")

	testServer := httptest.NewServer(httpSrv.Handler())

	t.Logf("Integration test setup complete for %s/%s (user_id=%d)", dbDriver, tokenStore, user.ID)

	return &integrationTestContext{
		container: container,
		db:        db,
		server:    testServer,
		userID:    user.ID,
		dbDriver:  dbDriver,
	}
}

// teardownIntegrationTest cleans up all resources.
func teardownIntegrationTest(t *testing.T, ctx *integrationTestContext) {
	t.Helper()

	if ctx.server != nil {
		ctx.server.Close()
	}

	if ctx.container != nil {
		err := ctx.container.Shutdown(context.Background())
		if err != nil {
			t.Logf("Warning: container shutdown error: %v", err)
		}
	}

	if ctx.db != nil {
		testutil.TeardownDB(t, ctx.db)
	}

	t.Logf("Integration test teardown complete for %s", ctx.dbDriver)
}

type integrationCase struct {
	name       string
	dbDriver   string
	tokenStore string
}

func integrationCases() []integrationCase {
	return []integrationCase{
		{"PostgreSQL", config.DriverPostgres, config.TokenStoreDatabase},
		{"MySQL", config.DriverMySQL, config.TokenStoreDatabase},
		{"SQLite", config.DriverSQLite, config.TokenStoreDatabase},
		{"SQLite_Redis", config.DriverSQLite, config.TokenStoreRedis},
	}
}

// TestIntegration_Health_BasicChecks validates health and readiness endpoints.
func TestIntegration_Health_BasicChecks(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	for _, tc := range integrationCases() {
		t.Run(tc.name, func(t *testing.T) {
			ctx := setupIntegrationTest(t, tc.dbDriver, tc.tokenStore)
			defer teardownIntegrationTest(t, ctx)

			t.Run("01_HealthCheck", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodGet, "/health", nil, "")
				assert.Equal(t, http.StatusOK, resp.StatusCode)
				assert.JSONEq(t, `{"status":"healthy"}`, string(body))
			})

			t.Run("02_ReadinessCheck", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodGet, "/ready", nil, "")
				assert.Equal(t, http.StatusOK, resp.StatusCode)

				var response struct {
					Status     string            `json:"status"`
					Components map[string]string `json:"components"`
				}
				require.NoError(t, json.Unmarshal(body, &response))
				assert.Equal(t, "ready", response.Status)
				assert.Equal(t, "ok", response.Components["database"])
				if tc.tokenStore == config.TokenStoreRedis {
					assert.Equal(t, "ok", response.Components["redis"])
				}
			})
		})
	}
}

// TestIntegration_Sessions_CompleteFlow walks a token pair through login, use, refresh and logout.
func TestIntegration_Sessions_CompleteFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	for _, tc := range integrationCases() {
		t.Run(tc.name, func(t *testing.T) {
			ctx := setupIntegrationTest(t, tc.dbDriver, tc.tokenStore)
			defer teardownIntegrationTest(t, ctx)

			var pair, rotated authDTO.TokenPairResponse

			t.Run("01_Login", func(t *testing.T) {
				pair = ctx.login(t)
				assert.NotEmpty(t, pair.AccessToken)
				assert.NotEmpty(t, pair.RefreshToken)
				assert.Equal(t, 3, pair.AccessTokenTTL)
				assert.Equal(t, 7, pair.RefreshTokenTTL)
			})

			t.Run("02_LoginWrongPassword", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/auth/login",
					authDTO.LoginRequest{Email: testUserEmail, Password: "Wr0ng$ecret"}, "")
				assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
				assert.JSONEq(t, `{"error":"unauthorized","message":"Authentication is required"}`, string(body))
			})

			t.Run("03_User", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodGet, "/v1/auth/user", nil, pair.AccessToken)
				require.Equal(t, http.StatusOK, resp.StatusCode)

				var user authDTO.UserResponse
				require.NoError(t, json.Unmarshal(body, &user))
				assert.Equal(t, authDTO.UserResponse{
					ID:    ctx.userID,
					Name:  testUserName,
					Email: testUserEmail,
				}, user)
			})

			t.Run("04_UserWithoutToken", func(t *testing.T) {
				resp, _ := ctx.makeRequest(t, http.MethodGet, "/v1/auth/user", nil, "")
				assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			})

			t.Run("05_RefreshWithAccessToken", func(t *testing.T) {
				resp, _ := ctx.makeRequest(t, http.MethodPost, "/v1/auth/refresh", nil, pair.AccessToken)
				assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			})

			t.Run("06_Refresh", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/auth/refresh", nil, pair.RefreshToken)
				require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
				require.NoError(t, json.Unmarshal(body, &rotated))
				assert.NotEqual(t, pair.AccessToken, rotated.AccessToken)
				assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)
			})

			t.Run("07_OldPairRejected", func(t *testing.T) {
				resp, _ := ctx.makeRequest(t, http.MethodGet, "/v1/auth/user", nil, pair.AccessToken)
				assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

				resp, _ = ctx.makeRequest(t, http.MethodPost, "/v1/auth/refresh", nil, pair.RefreshToken)
				assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			})

			t.Run("08_Logout", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/auth/logout", nil, rotated.AccessToken)
				assert.Equal(t, http.StatusNoContent, resp.StatusCode)
				assert.Empty(t, body)
			})

			t.Run("09_LoggedOutPairRejected", func(t *testing.T) {
				resp, _ := ctx.makeRequest(t, http.MethodGet, "/v1/auth/user", nil, rotated.AccessToken)
				assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

				resp, _ = ctx.makeRequest(t, http.MethodPost, "/v1/auth/refresh", nil, rotated.RefreshToken)
				assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

				resp, _ = ctx.makeRequest(t, http.MethodPost, "/v1/auth/logout", nil, rotated.AccessToken)
				assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			})
		})
	}
}

// TestIntegration_Sessions_ConcurrentRefresh checks that one refresh token rotates at most once.
func TestIntegration_Sessions_ConcurrentRefresh(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	const attempts = 8

	for _, tc := range integrationCases() {
		t.Run(tc.name, func(t *testing.T) {
			ctx := setupIntegrationTest(t, tc.dbDriver, tc.tokenStore)
			defer teardownIntegrationTest(t, ctx)

			pair := ctx.login(t)

			var (
				wg       sync.WaitGroup
				mu       sync.Mutex
				statuses = map[int]int{}
			)
			for i := 0; i < attempts; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					resp, _ := ctx.makeRequest(t, http.MethodPost, "/v1/auth/refresh", nil, pair.RefreshToken)
					mu.Lock()
					statuses[resp.StatusCode]++
					mu.Unlock()
				}()
			}
			wg.Wait()

			assert.Equal(t, 1, statuses[http.StatusOK])
			assert.Equal(t, attempts-1, statuses[http.StatusUnauthorized])
		})
	}
}

// TestIntegration_Sessions_RevokeAllByUserID signs a user out of every session at once.
func TestIntegration_Sessions_RevokeAllByUserID(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	for _, tc := range integrationCases() {
		t.Run(tc.name, func(t *testing.T) {
			ctx := setupIntegrationTest(t, tc.dbDriver, tc.tokenStore)
			defer teardownIntegrationTest(t, ctx)

			first := ctx.login(t)
			second := ctx.login(t)

			tokens, err := ctx.container.TokenUseCase()
			require.NoError(t, err)

			count, err := tokens.RevokeAllByUserID(context.Background(), ctx.userID)
			require.NoError(t, err)
			assert.Equal(t, int64(2), count)

			for _, pair := range []authDTO.TokenPairResponse{first, second} {
				resp, _ := ctx.makeRequest(t, http.MethodGet, "/v1/auth/user", nil, pair.AccessToken)
				assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			}

			// A new login still works
			third := ctx.login(t)
			resp, _ := ctx.makeRequest(t, http.MethodGet, "/v1/auth/user", nil, third.AccessToken)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
		})
	}
}
