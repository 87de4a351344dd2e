// Package handler exposes backend readiness over the standard grpc.health.v1 protocol.
package handler

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"authledger/internal/health"
)

// Server publishes the Checker's verdict for the overall server ("") and for each named service.
type Server struct {
	*grpchealth.Server
	checker  *health.Checker
	services []string
	logger   *zap.Logger
}

// NewServer returns a health server for checker. Status starts as NOT_SERVING until the
// first Refresh.
func NewServer(checker *health.Checker, logger *zap.Logger, services ...string) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		Server:   grpchealth.NewServer(),
		checker:  checker,
		services: services,
		logger:   logger,
	}
	s.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// Refresh runs one readiness check and updates the serving status.
func (s *Server) Refresh(ctx context.Context) health.Report {
	report := s.checker.Check(ctx)
	if report.Healthy() {
		s.set(healthpb.HealthCheckResponse_SERVING)
	} else {
		s.logger.Warn("readiness check failed", zap.Any("components", report.Components))
		s.set(healthpb.HealthCheckResponse_NOT_SERVING)
	}
	return report
}

// Monitor refreshes the status every interval until ctx is done, then marks everything
// NOT_SERVING so load balancers drain the instance.
func (s *Server) Monitor(ctx context.Context, interval time.Duration) {
	s.Refresh(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.Shutdown()
			return
		case <-ticker.C:
			s.Refresh(ctx)
		}
	}
}

func (s *Server) set(status healthpb.HealthCheckResponse_ServingStatus) {
	s.SetServingStatus("", status)
	for _, name := range s.services {
		s.SetServingStatus(name, status)
	}
}

// Register registers s as the grpc.health.v1.Health service.
func Register(r grpc.ServiceRegistrar, s *Server) {
	healthpb.RegisterHealthServer(r, s)
}
