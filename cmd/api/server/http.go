package server

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"user-management-service/internal/adapter/gateway"
	grpcadapter "user-management-service/internal/adapter/grpc"
)

// SetupHTTPGateway creates and configures the HTTP gateway server.
// The returned connection is owned by the caller and must be closed on shutdown.
func SetupHTTPGateway(grpcAddr string, httpAddr string, l *zap.Logger) (*http.Server, *grpc.ClientConn, error) {
	conn, err := grpc.NewClient(grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create gateway client: %w", err)
	}

	handler, err := gateway.New(grpcadapter.NewUserServiceClient(conn), l)
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("failed to register gateway: %w", err)
	}

	l.Info("REST gateway configured", zap.String("address", httpAddr))
	l.Info("Swagger UI available at", zap.String("url", "http://localhost"+httpAddr+gateway.SwaggerPath))

	return &http.Server{
		Addr:              httpAddr,
		Handler:           handler,
		ReadHeaderTimeout: 2 * time.Second,
	}, conn, nil
}
