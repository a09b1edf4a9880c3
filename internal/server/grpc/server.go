// Package grpc exposes the account service over gRPC. The service is
// described by hand with protobuf well-known types, so no generated code
// is needed.
package grpc

import (
	"context"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dmitrijs2005/elnafo/internal/logging"
	"github.com/dmitrijs2005/elnafo/internal/server/metrics"
	"github.com/dmitrijs2005/elnafo/internal/server/services"
	"github.com/dmitrijs2005/elnafo/internal/server/session"
)

type GRPCServer struct {
	address  string
	users    *services.UserService
	sessions *session.Authenticator
	metrics  *metrics.Metrics
	logger   logging.Logger
}

func NewGRPCServer(address string, l logging.Logger, us *services.UserService, sessions *session.Authenticator, m *metrics.Metrics) *GRPCServer {
	return &GRPCServer{
		address:  address,
		users:    us,
		sessions: sessions,
		metrics:  m,
		logger:   l.With("module", "grpc_server"),
	}
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.serve(ctx, listen)
}

func (s *GRPCServer) serve(ctx context.Context, listen net.Listener) error {
	srv, hs := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		hs.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	return srv.Serve(listen)
}

// newServer builds the grpc.Server with the account and health services.
func (s *GRPCServer) newServer() (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.sessionInterceptor))

	srv.RegisterService(&userServiceDesc, s)

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	return srv, hs
}
