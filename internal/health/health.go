// Package health exposes the grpc.health.v1 service so supervisors can
// probe whether the mail poller is keeping up.
package health

import (
	"fmt"
	"net"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// PollerService is the service name whose status follows the mail poller.
const PollerService = "orderprint.poller"

// Config holds gRPC health server configuration.
type Config struct {
	Port int
	// FailureThreshold is how many consecutive failed mail checks flip the
	// poller to NOT_SERVING. Zero means 3.
	FailureThreshold int
}

// Server serves grpc.health.v1 and tracks poller status.
type Server struct {
	mu       sync.Mutex
	failures int
	cfg      Config

	health     *health.Server
	grpcServer *grpc.Server
}

// New creates a health server. Both the overall status and the poller
// status start as SERVING.
func New(cfg Config) *Server {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	s := &Server{
		cfg:        cfg,
		health:     health.NewServer(),
		grpcServer: grpc.NewServer(),
	}
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(PollerService, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	return s
}

// Serve starts the gRPC server on the configured port. Blocks until stopped.
func (s *Server) Serve() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.cfg.Port, err)
	}
	return s.grpcServer.Serve(lis)
}

// ServeOn starts the gRPC server on the given listener.
func (s *Server) ServeOn(lis net.Listener) error {
	return s.grpcServer.Serve(lis)
}

// GracefulStop marks every service NOT_SERVING and drains the server.
func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}

// ReportCheck records the outcome of one mail check. A success resets the
// failure count; FailureThreshold consecutive failures mark the poller
// NOT_SERVING until the next success.
func (s *Server) ReportCheck(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err == nil {
		s.failures = 0
		s.health.SetServingStatus(PollerService, healthpb.HealthCheckResponse_SERVING)
		return
	}
	s.failures++
	if s.failures >= s.cfg.FailureThreshold {
		s.health.SetServingStatus(PollerService, healthpb.HealthCheckResponse_NOT_SERVING)
	}
}

// Failures returns the current run of consecutive failed checks.
func (s *Server) Failures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures
}
