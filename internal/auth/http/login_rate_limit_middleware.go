package http

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"
)

// LoginRateLimitMiddleware enforces per-IP rate limiting on the login endpoint.
//
// Login is unauthenticated, so the bucket is keyed by c.ClientIP(), which honours
// X-Forwarded-For and X-Real-IP according to the engine's trusted proxies. This slows
// down credential stuffing against a single account or across many.
//
// Returns:
//   - 429 Too Many Requests: Rate limit exceeded (includes Retry-After header)
//   - Continues: Request allowed within rate limit
func LoginRateLimitMiddleware(ctx context.Context, rps float64, burst int, logger *slog.Logger) gin.HandlerFunc {
	store := newRateLimiterStore[string](rps, burst)
	go store.cleanupStale(ctx, limiterCleanupInterval)

	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		if allowed, delay := store.allow(clientIP); !allowed {
			logger.Debug("login rate limit exceeded",
				slog.String("client_ip", clientIP),
				slog.Duration("retry_after", delay))
			abortTooManyRequests(c, delay,
				"Too many login attempts from this IP. Please retry after the specified delay.")
			return
		}

		c.Next()
	}
}
