package http

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	authDomain "github.com/allisson/sessions/internal/auth/domain"
	"github.com/allisson/sessions/internal/httputil"
)

const (
	limiterCleanupInterval = 5 * time.Minute
	limiterIdleTimeout     = time.Hour
)

// rateLimiterStore holds one token bucket per key with periodic cleanup.
type rateLimiterStore[K comparable] struct {
	limiters sync.Map // map[K]*rateLimiterEntry
	rps      float64
	burst    int
}

// rateLimiterEntry holds a rate limiter and last access time for cleanup.
type rateLimiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
	mu         sync.Mutex
}

func newRateLimiterStore[K comparable](rps float64, burst int) *rateLimiterStore[K] {
	return &rateLimiterStore[K]{rps: rps, burst: burst}
}

// allow consumes one token for key and returns the delay before the next one when refused.
func (s *rateLimiterStore[K]) allow(key K) (bool, time.Duration) {
	limiter := s.getLimiter(key)
	if limiter.Allow() {
		return true, 0
	}

	reservation := limiter.Reserve()
	delay := reservation.Delay()
	reservation.Cancel()
	return false, delay
}

// getLimiter retrieves or creates the rate limiter for key.
func (s *rateLimiterStore[K]) getLimiter(key K) *rate.Limiter {
	now := time.Now()
	entry := &rateLimiterEntry{
		limiter:    rate.NewLimiter(rate.Limit(s.rps), s.burst),
		lastAccess: now,
	}

	val, loaded := s.limiters.LoadOrStore(key, entry)
	if loaded {
		entry = val.(*rateLimiterEntry)
		entry.mu.Lock()
		entry.lastAccess = now
		entry.mu.Unlock()
	}
	return entry.limiter
}

// removeStale drops limiters not accessed since threshold.
func (s *rateLimiterStore[K]) removeStale(threshold time.Time) {
	s.limiters.Range(func(key, value any) bool {
		entry := value.(*rateLimiterEntry)
		entry.mu.Lock()
		stale := entry.lastAccess.Before(threshold)
		entry.mu.Unlock()

		if stale {
			s.limiters.Delete(key)
		}
		return true
	})
}

// cleanupStale runs removeStale every interval until ctx is done.
func (s *rateLimiterStore[K]) cleanupStale(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.removeStale(time.Now().Add(-limiterIdleTimeout))
		}
	}
}

// abortTooManyRequests rounds delay up to whole seconds, never below one.
func abortTooManyRequests(c *gin.Context, delay time.Duration, message string) {
	c.Header("Retry-After", strconv.Itoa(max(1, int(math.Ceil(delay.Seconds())))))
	c.JSON(http.StatusTooManyRequests, httputil.ErrorResponse{
		Error:   "rate_limit_exceeded",
		Message: message,
	})
	c.Abort()
}

// RateLimitMiddleware enforces per-principal rate limiting on authenticated requests.
//
// MUST be used after AuthenticationMiddleware (requires a session in context). Each
// principal gets an independent token bucket keyed by user id. The cleanup goroutine
// stops when ctx is cancelled.
//
// Returns:
//   - 429 Too Many Requests: Rate limit exceeded (includes Retry-After header)
//   - Continues: Request allowed within rate limit
func RateLimitMiddleware(ctx context.Context, rps float64, burst int, logger *slog.Logger) gin.HandlerFunc {
	store := newRateLimiterStore[int64](rps, burst)
	go store.cleanupStale(ctx, limiterCleanupInterval)

	return func(c *gin.Context) {
		session, ok := GetSession(c)
		if !ok {
			logger.Error("rate limit middleware: no session in context")
			httputil.HandleErrorGin(c, authDomain.ErrNoPrincipal, nil)
			c.Abort()
			return
		}

		if allowed, delay := store.allow(session.Principal.ID); !allowed {
			logger.Debug("rate limit exceeded",
				slog.Int64("user_id", session.Principal.ID),
				slog.Duration("retry_after", delay))
			abortTooManyRequests(c, delay, "Too many requests. Please retry after the specified delay.")
			return
		}

		c.Next()
	}
}
