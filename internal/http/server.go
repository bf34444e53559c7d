// Package http provides the HTTP server, router and shared middleware.
package http

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	authDomain "github.com/allisson/sessions/internal/auth/domain"
	authHTTP "github.com/allisson/sessions/internal/auth/http"
	authUseCase "github.com/allisson/sessions/internal/auth/usecase"
	"github.com/allisson/sessions/internal/config"
	"github.com/allisson/sessions/internal/metrics"
)

// ReadinessCheck reports whether a dependency can serve requests.
type ReadinessCheck func(ctx context.Context) error

// Server represents the HTTP server.
type Server struct {
	db     *sql.DB
	server *http.Server
	logger *slog.Logger
	router *gin.Engine
	checks map[string]ReadinessCheck
}

// NewServer creates a new HTTP server. db backs the "database" readiness component.
func NewServer(
	db *sql.DB,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		db:     db,
		logger: logger,
		server: newHTTPServer(host, port, nil),
		checks: make(map[string]ReadinessCheck),
	}
}

// AddReadinessCheck registers an extra component reported by /ready.
func (s *Server) AddReadinessCheck(name string, check ReadinessCheck) {
	s.checks[name] = check
}

// SetupRouter builds the gin engine with every route and middleware.
// ctx bounds the lifetime of the rate limiter cleanup goroutines.
func (s *Server) SetupRouter(
	ctx context.Context,
	cfg *config.Config,
	tokenHandler *authHTTP.TokenHandler,
	resolver authUseCase.CredentialResolver,
	metricsProvider *metrics.Provider,
) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	if metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	auth := router.Group("/v1/auth")

	loginHandlers := []gin.HandlerFunc{}
	if cfg.RateLimitLoginEnabled {
		loginHandlers = append(loginHandlers, authHTTP.LoginRateLimitMiddleware(
			ctx, cfg.RateLimitLoginRequestsPerSec, cfg.RateLimitLoginBurst, s.logger))
	}
	loginHandlers = append(loginHandlers, tokenHandler.LoginHandler)
	auth.POST("/login", loginHandlers...)

	authenticated := func(kind authDomain.TokenKind) *gin.RouterGroup {
		group := auth.Group("", authHTTP.AuthenticationMiddleware(resolver, kind, s.logger))
		if cfg.RateLimitEnabled {
			group.Use(authHTTP.RateLimitMiddleware(ctx, cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, s.logger))
		}
		return group
	}

	access := authenticated(authDomain.AccessTokenKind)
	access.POST("/logout", tokenHandler.LogoutHandler)
	access.GET("/user", tokenHandler.UserHandler)

	refresh := authenticated(authDomain.RefreshTokenKind)
	refresh.POST("/refresh", tokenHandler.RefreshHandler)

	s.router = router
}

// Handler returns the configured router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server. SetupRouter must be called first.
func (s *Server) Start(ctx context.Context) error {
	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	components := gin.H{}
	ready := true

	report := func(name string, err error) {
		if err != nil {
			s.logger.Warn("readiness check failed", slog.String("component", name), slog.Any("error", err))
			components[name] = "error"
			ready = false
			return
		}
		components[name] = "ok"
	}

	if s.db == nil {
		report("database", fmt.Errorf("database not configured"))
	} else {
		report("database", s.db.PingContext(ctx))
	}

	for name, check := range s.checks {
		report(name, check(ctx))
	}

	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "components": components})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "components": components})
}
