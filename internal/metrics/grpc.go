package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// GRPCMetricsUnaryInterceptor counts and times unary calls by full method and status code.
// Install it ahead of the authentication interceptor so rejected calls are counted too.
func GRPCMetricsUnaryInterceptor(meterProvider metric.MeterProvider, namespace string) grpc.UnaryServerInterceptor {
	calls, err := newInstruments(
		meterProvider.Meter(namespace),
		namespace+"_grpc_requests_total",
		namespace+"_grpc_request_duration_seconds",
		"gRPC request",
		"{request}",
	)
	if err != nil {
		return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
			return handler(ctx, req)
		}
	}

	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		calls.record(ctx, time.Since(start),
			attribute.String("method", info.FullMethod),
			attribute.String("code", status.Code(err).String()),
		)
		return resp, err
	}
}
