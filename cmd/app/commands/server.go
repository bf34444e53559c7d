package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/allisson/sessions/internal/app"
	"github.com/allisson/sessions/internal/config"
	"github.com/allisson/sessions/internal/http"
)

const shutdownTimeout = 30 * time.Second

// RunServer starts the HTTP API, the metrics server and the optional gRPC server with
// graceful shutdown support. Blocks until receiving SIGINT/SIGTERM or until one of the
// servers fails, then stops all of them within shutdownTimeout.
func RunServer(ctx context.Context, version string) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	gin.SetMode(cfg.GetGinMode())

	container := app.NewContainer(cfg)

	logger := container.Logger()
	logger.Info("starting server", slog.String("version", version))

	defer closeContainer(container, logger)

	// Initializes every dependency of the API
	server, err := container.HTTPServer()
	if err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	metricsServer, err := container.MetricsServer()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics server: %w", err)
	}

	var grpcServer *grpc.Server
	var grpcListener net.Listener
	grpcAddr := fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.GRPCPort)
	if cfg.GRPCEnabled {
		grpcServer, err = container.GRPCServer()
		if err != nil {
			return fmt.Errorf("failed to initialize gRPC server: %w", err)
		}

		grpcListener, err = net.Listen("tcp", grpcAddr)
		if err != nil {
			return fmt.Errorf("failed to listen for gRPC: %w", err)
		}
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := server.Start(gCtx); err != nil {
			return fmt.Errorf("api server error: %w", err)
		}
		return nil
	})

	if metricsServer != nil {
		g.Go(func() error {
			if err := metricsServer.Start(gCtx); err != nil {
				return fmt.Errorf("metrics server error: %w", err)
			}
			return nil
		})
	}

	if grpcServer != nil {
		g.Go(func() error {
			logger.Info("starting grpc server", slog.String("addr", grpcAddr))
			if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("grpc server error: %w", err)
			}
			return nil
		})
	}

	// Stops every server once a signal arrives or any server fails
	g.Go(func() error {
		<-gCtx.Done()
		if ctx.Err() != nil {
			logger.Info("shutdown signal received")
		} else {
			logger.Error("server error, initiating shutdown")
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		return shutdownServers(shutdownCtx, server, metricsServer, grpcServer)
	})

	return g.Wait()
}

func shutdownServers(
	ctx context.Context,
	server *http.Server,
	metricsServer *http.MetricsServer,
	grpcServer *grpc.Server,
) error {
	var shutdownErrors []error

	if err := server.Shutdown(ctx); err != nil {
		shutdownErrors = append(shutdownErrors, fmt.Errorf("api server shutdown: %w", err))
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if grpcServer != nil {
		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-ctx.Done():
			grpcServer.Stop()
		}
	}

	return errors.Join(shutdownErrors...)
}
