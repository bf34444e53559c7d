// Package app wires configuration, storage, use cases and servers into a Container.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"

	authGRPC "github.com/allisson/sessions/internal/auth/grpc"
	authHTTP "github.com/allisson/sessions/internal/auth/http"
	authService "github.com/allisson/sessions/internal/auth/service"
	authUseCase "github.com/allisson/sessions/internal/auth/usecase"
	"github.com/allisson/sessions/internal/config"
	"github.com/allisson/sessions/internal/database"
	"github.com/allisson/sessions/internal/http"
	"github.com/allisson/sessions/internal/metrics"
	userUseCase "github.com/allisson/sessions/internal/user/usecase"
)

// Container builds each dependency on first access and memoizes it. A failed build is
// remembered in initErrors and returned by every later call.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	db              *sql.DB
	redisClient     *redis.Client
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics

	// Background context for goroutines owned by the container (rate limiter cleanup).
	bgCtx    context.Context
	bgCancel context.CancelFunc

	// Auth services
	signingKey      string
	tokenCodec      authService.TokenCodec
	tokenService    authService.TokenService
	passwordService authService.PasswordService

	// Repositories
	userRepo        userUseCase.UserRepository
	tokenRepository authUseCase.TokenRepository

	// Use Cases
	userUseCase        userUseCase.UseCase
	tokenUseCase       authUseCase.TokenUseCase
	credentialResolver authUseCase.CredentialResolver

	// Handlers
	tokenHandler *authHTTP.TokenHandler

	// Servers
	httpServer    *http.Server
	metricsServer *http.MetricsServer
	grpcServer    *grpc.Server
	grpcHealth    *health.Server

	mu                     sync.Mutex
	loggerInit             sync.Once
	dbInit                 sync.Once
	redisClientInit        sync.Once
	metricsProviderInit    sync.Once
	businessMetricsInit    sync.Once
	signingKeyInit         sync.Once
	tokenCodecInit         sync.Once
	tokenServiceInit       sync.Once
	passwordServiceInit    sync.Once
	userRepoInit           sync.Once
	tokenRepositoryInit    sync.Once
	userUseCaseInit        sync.Once
	tokenUseCaseInit       sync.Once
	credentialResolverInit sync.Once
	tokenHandlerInit       sync.Once
	httpServerInit         sync.Once
	metricsServerInit      sync.Once
	grpcServerInit         sync.Once
	initErrors             map[string]error
}

// NewContainer returns an empty container. Nothing is connected until an accessor runs.
func NewContainer(cfg *config.Config) *Container {
	bgCtx, bgCancel := context.WithCancel(context.Background())
	return &Container{
		config:     cfg,
		bgCtx:      bgCtx,
		bgCancel:   bgCancel,
		initErrors: make(map[string]error),
	}
}

func (c *Container) Config() *config.Config {
	return c.config
}

// Logger writes JSON to stdout at LOG_LEVEL (info when unset or unknown).
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB opens the pool for DB_DRIVER and pings it.
func (c *Container) DB() (*sql.DB, error) {
	var err error
	c.dbInit.Do(func() {
		c.db, err = c.initDB()
		if err != nil {
			c.initErrors["db"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["db"]; exists {
		return nil, storedErr
	}
	return c.db, nil
}

// RedisClient returns the redis client used by the redis token store.
func (c *Container) RedisClient() (*redis.Client, error) {
	var err error
	c.redisClientInit.Do(func() {
		c.redisClient, err = c.initRedisClient()
		if err != nil {
			c.initErrors["redisClient"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["redisClient"]; exists {
		return nil, storedErr
	}
	return c.redisClient, nil
}

// MetricsProvider returns the Prometheus-backed meter provider, or nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	var err error
	c.metricsProviderInit.Do(func() {
		c.metricsProvider, err = c.initMetricsProvider()
		if err != nil {
			c.initErrors["metricsProvider"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder (no-op when metrics are disabled).
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	var err error
	c.businessMetricsInit.Do(func() {
		c.businessMetrics, err = c.initBusinessMetrics()
		if err != nil {
			c.initErrors["businessMetrics"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// HTTPServer returns the HTTP API server with its router configured.
func (c *Container) HTTPServer() (*http.Server, error) {
	var err error
	c.httpServerInit.Do(func() {
		c.httpServer, err = c.initHTTPServer()
		if err != nil {
			c.initErrors["httpServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// MetricsServer returns the Prometheus metrics server, or nil when metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	var err error
	c.metricsServerInit.Do(func() {
		c.metricsServer, err = c.initMetricsServer()
		if err != nil {
			c.initErrors["metricsServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// GRPCServer returns the gRPC server with authentication and health service registered.
func (c *Container) GRPCServer() (*grpc.Server, error) {
	var err error
	c.grpcServerInit.Do(func() {
		c.grpcServer, c.grpcHealth, err = c.initGRPCServer()
		if err != nil {
			c.initErrors["grpcServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["grpcServer"]; exists {
		return nil, storedErr
	}
	return c.grpcServer, nil
}

// Shutdown stops servers first, then releases stores, skipping whatever was never built.
// Every failure is collected and returned joined.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	c.bgCancel()

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.grpcServer != nil {
		c.grpcHealth.Shutdown()
		c.grpcServer.GracefulStop()
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("redis close: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(shutdownErrors...))
	}

	return nil
}

func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(c.bgCtx, database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// initRedisClient parses REDIS_URL and pings the server.
func (c *Container) initRedisClient() (*redis.Client, error) {
	opts, err := redis.ParseURL(c.config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(c.bgCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func (c *Container) initMetricsProvider() (*metrics.Provider, error) {
	if !c.config.MetricsEnabled {
		return nil, nil
	}

	provider, err := metrics.NewProvider(c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics provider: %w", err)
	}
	return provider, nil
}

func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for business metrics: %w", err)
	}
	if provider == nil {
		return metrics.NewNoOpBusinessMetrics(), nil
	}

	businessMetrics, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}
	return businessMetrics, nil
}

// initHTTPServer creates the HTTP server and mounts every route.
func (c *Container) initHTTPServer() (*http.Server, error) {
	logger := c.Logger()

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for http server: %w", err)
	}

	tokenHandler, err := c.TokenHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get token handler for http server: %w", err)
	}

	resolver, err := c.CredentialResolver()
	if err != nil {
		return nil, fmt.Errorf("failed to get credential resolver for http server: %w", err)
	}

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
	}

	server := http.NewServer(db, c.config.ServerHost, c.config.ServerPort, logger)

	if c.config.TokenStore == config.TokenStoreRedis {
		client, err := c.RedisClient()
		if err != nil {
			return nil, fmt.Errorf("failed to get redis client for http server: %w", err)
		}
		server.AddReadinessCheck("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
	}

	server.SetupRouter(c.bgCtx, c.config, tokenHandler, resolver, provider)

	return server, nil
}

func (c *Container) initMetricsServer() (*http.MetricsServer, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for metrics server: %w", err)
	}
	if provider == nil {
		return nil, nil
	}

	return http.NewMetricsServer(c.config.ServerHost, c.config.MetricsPort, c.Logger(), provider), nil
}

// initGRPCServer creates the gRPC server guarded by the access token interceptors.
func (c *Container) initGRPCServer() (*grpc.Server, *health.Server, error) {
	resolver, err := c.CredentialResolver()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get credential resolver for grpc server: %w", err)
	}

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get metrics provider for grpc server: %w", err)
	}

	var opts []grpc.ServerOption
	if provider != nil {
		opts = append(opts, grpc.ChainUnaryInterceptor(
			metrics.GRPCMetricsUnaryInterceptor(provider.MeterProvider(), c.config.MetricsNamespace),
		))
	}

	authenticator := authGRPC.NewAuthenticator(resolver, authGRPC.DefaultPublicMethods, c.Logger())
	server, healthServer := authGRPC.NewServer(authenticator, opts...)
	return server, healthServer, nil
}
