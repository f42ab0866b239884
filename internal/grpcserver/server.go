// Package grpcserver exposes the standard gRPC health service for
// orchestration probes.
package grpcserver

import (
	"context"
	"net"
	"sync"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"social-service/internal/observability"
)

// Check probes one dependency. A non-nil error marks the service not serving.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

type Server struct {
	srv     *grpc.Server
	health  *health.Server
	service string
	checks  []Check

	mu      sync.Mutex
	serving bool
}

func New(service string, checks ...Check) *Server {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.UnaryInterceptor(observability.GRPCServerMetricsUnaryInterceptor()),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	s := &Server{srv: srv, health: hs, service: service, checks: checks}
	s.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// Refresh runs every check and publishes the combined status for both the
// empty service name and the named service.
func (s *Server) Refresh(ctx context.Context) bool {
	ok := true
	for _, c := range s.checks {
		if err := c.Probe(ctx); err != nil {
			zap.L().Warn("health_check_failed", zap.String("check", c.Name), zap.Error(err))
			ok = false
		}
	}

	s.mu.Lock()
	changed := ok != s.serving
	s.serving = ok
	s.mu.Unlock()

	if ok {
		s.set(healthpb.HealthCheckResponse_SERVING)
	} else {
		s.set(healthpb.HealthCheckResponse_NOT_SERVING)
	}
	if changed {
		zap.L().Info("health_status_changed", zap.Bool("serving", ok))
	}
	return ok
}

func (s *Server) set(status healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(s.service, status)
}

// Serve blocks until the listener fails or Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	zap.L().Info("grpc_health_listening", zap.String("addr", lis.Addr().String()))
	return s.srv.Serve(lis)
}

func (s *Server) Stop() {
	s.health.Shutdown()
	s.srv.GracefulStop()
}
