package server

import (
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// NewGRPCServer registers the intelligence and health services on a new server.
// The health server starts SERVING; callers flip it during shutdown.
func NewGRPCServer(svc IntelligenceServer, maxRecvBytes int, logger *slog.Logger) (*grpc.Server, *health.Server) {
	opts := []grpc.ServerOption{grpc.ChainUnaryInterceptor(UnaryInterceptor(logger))}
	if maxRecvBytes > 0 {
		opts = append(opts, grpc.MaxRecvMsgSize(maxRecvBytes))
	}
	s := grpc.NewServer(opts...)
	RegisterIntelligenceServer(s, svc)

	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(s, hs)
	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	hs.SetServingStatus(IntelligenceServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	return s, hs
}
