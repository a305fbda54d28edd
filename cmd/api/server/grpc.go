package server

import (
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	grpcadapter "user-management-service/internal/adapter/grpc"
	"user-management-service/internal/adapter/grpc/middleware"
	"user-management-service/pkg/logger"
)

// SetupGRPC creates and configures the gRPC server
func SetupGRPC(svc grpcadapter.UserServiceServer, l *zap.Logger) (*grpc.Server, *health.Server) {
	// Request ID runs first so the logging and recovery entries carry it
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			logger.RequestIDInterceptor(),
			middleware.LoggingInterceptor(l),
			middleware.RecoveryInterceptor(l),
		),
	)
	grpcadapter.RegisterUserServiceServer(grpcServer, svc)

	healthServer := health.NewServer()
	healthServer.SetServingStatus(grpcadapter.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	return grpcServer, healthServer
}
