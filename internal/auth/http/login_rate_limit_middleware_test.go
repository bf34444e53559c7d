package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newLoginRouter(t *testing.T, rps float64, burst int) *gin.Engine {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	router := gin.New()
	router.Use(LoginRateLimitMiddleware(ctx, rps, burst, createTestLogger()))
	router.POST("/v1/auth/login", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func postLogin(router *gin.Engine, configure func(*http.Request)) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil)
	if configure != nil {
		configure(req)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestLoginRateLimitMiddleware_AllowsRequestsWithinLimit(t *testing.T) {
	router := newLoginRouter(t, 10.0, 20)

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, postLogin(router, nil).Code)
	}
}

func TestLoginRateLimitMiddleware_Returns429WithRetryAfterHeader(t *testing.T) {
	router := newLoginRouter(t, 0.5, 1)

	assert.Equal(t, http.StatusOK, postLogin(router, nil).Code)

	w := postLogin(router, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate_limit_exceeded")
	assert.Contains(t, w.Body.String(), "Too many login attempts from this IP")
}

func TestLoginRateLimitMiddleware_IndependentLimitsPerIP(t *testing.T) {
	router := newLoginRouter(t, 1.0, 1)

	fromAddr := func(addr string) func(*http.Request) {
		return func(req *http.Request) { req.RemoteAddr = addr }
	}

	assert.Equal(t, http.StatusOK, postLogin(router, fromAddr("192.168.1.100:12345")).Code)
	// Different port, same IP
	assert.Equal(t, http.StatusTooManyRequests, postLogin(router, fromAddr("192.168.1.100:12346")).Code)
	assert.Equal(t, http.StatusOK, postLogin(router, fromAddr("192.168.1.101:12345")).Code)
}

func TestLoginRateLimitMiddleware_HandlesXForwardedFor(t *testing.T) {
	router := newLoginRouter(t, 1.0, 1)

	forwardedFor := func(ip string) func(*http.Request) {
		return func(req *http.Request) { req.Header.Set("X-Forwarded-For", ip) }
	}

	assert.Equal(t, http.StatusOK, postLogin(router, forwardedFor("203.0.113.1")).Code)
	assert.Equal(t, http.StatusTooManyRequests, postLogin(router, forwardedFor("203.0.113.1")).Code)
	assert.Equal(t, http.StatusOK, postLogin(router, forwardedFor("203.0.113.2")).Code)
}

func TestLoginRateLimitMiddleware_RespectsConfiguredLimits(t *testing.T) {
	tests := []struct {
		name              string
		rps               float64
		burst             int
		requestsToSend    int
		expectedSuccesses int
	}{
		{name: "Conservative limits", rps: 3.0, burst: 5, requestsToSend: 10, expectedSuccesses: 5},
		{name: "Default login limits", rps: 5.0, burst: 10, requestsToSend: 15, expectedSuccesses: 10},
		{name: "Permissive limits", rps: 10.0, burst: 20, requestsToSend: 25, expectedSuccesses: 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newLoginRouter(t, tt.rps, tt.burst)

			successes := 0
			for i := 0; i < tt.requestsToSend; i++ {
				w := postLogin(router, func(req *http.Request) { req.RemoteAddr = "192.168.1.50:12345" })
				if w.Code == http.StatusOK {
					successes++
				}
			}

			assert.Equal(t, tt.expectedSuccesses, successes)
		})
	}
}
