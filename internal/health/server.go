// Package health exposes the standard gRPC health service for long-running
// contest processes.
package health

import (
	"context"
	"net"

	"github.com/juSt-jeLLy/clashofclouthosting/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Service is the name the reconciler reports under, in addition to the
// overall "" status.
const Service = "contest.Reconciler"

type Server struct {
	address string
	status  *health.Server
	logger  logging.Logger
}

func NewServer(address string, l logging.Logger) *Server {
	return &Server{
		address: address,
		status:  health.NewServer(),
		logger:  l.With("module", "health_server"),
	}
}

// SetServing flips both the overall and the reconciler status.
func (s *Server) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.status.SetServingStatus("", st)
	s.status.SetServingStatus(Service, st)
}

// Run serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.serve(ctx, listen)
}

func (s *Server) serve(ctx context.Context, listen net.Listener) error {
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, s.status)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping health server...")
		s.status.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting health server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil {
		return err
	}
	return nil
}
