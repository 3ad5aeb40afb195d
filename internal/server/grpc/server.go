// Package grpc serves the health service and the session introspection
// service. Every call passes through the auth interceptors.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/cropauth/internal/logging"
	"github.com/dmitrijs2005/cropauth/internal/server/gateway"
	"github.com/dmitrijs2005/cropauth/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type GRPCServer struct {
	address  string
	gateway  *gateway.Gateway
	sessions *services.SessionService
	health   *health.Server
	logger   logging.Logger
}

func NewGRPCServer(address string, gw *gateway.Gateway, sessions *services.SessionService, l logging.Logger) *GRPCServer {
	return &GRPCServer{
		address:  address,
		gateway:  gw,
		sessions: sessions,
		health:   health.NewServer(),
		logger:   l.With("module", "grpc_server"),
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.authUnaryInterceptor),
		grpc.ChainStreamInterceptor(s.authStreamInterceptor),
	)

	healthpb.RegisterHealthServer(srv, s.health)
	RegisterAuthService(srv, &authService{sessions: s.sessions})

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(AuthServiceName, healthpb.HealthCheckResponse_SERVING)
	return srv
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve serves on lis until ctx is done, then reports NOT_SERVING and stops
// gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}
