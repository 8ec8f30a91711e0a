package httpapi

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"gearguard.io/internal/obs"
)

// HealthServer answers grpc.health.v1 checks from the readiness probe.
// Only the overall service ("") and serviceName are known.
type HealthServer struct {
	healthpb.UnimplementedHealthServer

	readiness readinessChecker
	timeout   time.Duration
}

func NewHealthServer(r readinessChecker) *HealthServer {
	return &HealthServer{readiness: r, timeout: 2 * time.Second}
}

// RegisterGRPC attaches the health service to srv.
func RegisterGRPC(srv *grpc.Server, h *HealthServer) {
	healthpb.RegisterHealthServer(srv, h)
}

func (s *HealthServer) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	if name := req.GetService(); name != "" && name != serviceName {
		return nil, status.Errorf(codes.NotFound, "unknown service %q", name)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.readiness.Check(ctx); err != nil {
		obs.SetReady(false)
		return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}, nil
	}
	obs.SetReady(true)
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil
}
