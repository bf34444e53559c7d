package grpc

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// NewServer creates a gRPC server guarded by authenticator with the standard
// health service registered. Callers flip the returned health server to
// NOT_SERVING during shutdown.
func NewServer(authenticator *Authenticator, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	opts = append(opts,
		grpc.ChainUnaryInterceptor(authenticator.UnaryServerInterceptor()),
		grpc.ChainStreamInterceptor(authenticator.StreamServerInterceptor()),
	)

	server := grpc.NewServer(opts...)
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)

	return server, healthServer
}
