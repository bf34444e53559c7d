// Package grpc provides gRPC server interceptors for session authentication.
package grpc

import (
	"context"
	"log/slog"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	authDomain "github.com/allisson/sessions/internal/auth/domain"
	authUseCase "github.com/allisson/sessions/internal/auth/usecase"
)

const (
	authorizationMetadataKey = "authorization"
	bearerPrefix             = "bearer "
)

// DefaultPublicMethods lists the methods served without authentication.
var DefaultPublicMethods = []string{
	grpc_health_v1.Health_Check_FullMethodName,
	grpc_health_v1.Health_Watch_FullMethodName,
}

var errUnauthenticated = status.Error(codes.Unauthenticated, "unauthenticated")

// Authenticator resolves the access token carried in the "authorization" metadata.
type Authenticator struct {
	resolver      authUseCase.CredentialResolver
	publicMethods map[string]struct{}
	logger        *slog.Logger
}

// NewAuthenticator creates an authenticator. Methods in publicMethods bypass authentication.
func NewAuthenticator(
	resolver authUseCase.CredentialResolver,
	publicMethods []string,
	logger *slog.Logger,
) *Authenticator {
	public := make(map[string]struct{}, len(publicMethods))
	for _, method := range publicMethods {
		public[method] = struct{}{}
	}
	return &Authenticator{
		resolver:      resolver,
		publicMethods: public,
		logger:        logger,
	}
}

// authenticate returns ctx with the resolved session attached.
func (a *Authenticator) authenticate(ctx context.Context, fullMethod string) (context.Context, error) {
	if _, ok := a.publicMethods[fullMethod]; ok {
		return ctx, nil
	}

	token, ok := tokenFromMetadata(ctx)
	if !ok {
		a.logger.Debug("authentication failed: missing or malformed authorization metadata",
			slog.String("method", fullMethod))
		return nil, errUnauthenticated
	}

	guard := authUseCase.NewSessionGuard(a.resolver, authDomain.AccessTokenKind, token)
	if _, err := guard.CurrentPrincipal(ctx); err != nil {
		a.logger.Debug("authentication failed", slog.String("method", fullMethod))
		return nil, errUnauthenticated
	}

	session, _ := guard.Session()
	return authDomain.WithSession(ctx, session), nil
}

// UnaryServerInterceptor authenticates unary calls.
func (a *Authenticator) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		ctx, err := a.authenticate(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamServerInterceptor authenticates streaming calls.
func (a *Authenticator) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		ctx, err := a.authenticate(ss.Context(), info.FullMethod)
		if err != nil {
			return err
		}
		return handler(srv, &authenticatedStream{ServerStream: ss, ctx: ctx})
	}
}

// authenticatedStream overrides the stream context with the authenticated one.
type authenticatedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *authenticatedStream) Context() context.Context {
	return s.ctx
}

func tokenFromMetadata(ctx context.Context) (string, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", false
	}

	values := md.Get(authorizationMetadataKey)
	if len(values) == 0 {
		return "", false
	}

	header := values[0]
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}

	token := strings.TrimSpace(header[len(bearerPrefix):])
	return token, token != ""
}
