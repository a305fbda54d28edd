package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"

	ginhandler "user-management-service/internal/adapter/gin/handler"
	grpcadapter "user-management-service/internal/adapter/grpc"
	"user-management-service/internal/config"
)

// Server struct holds all server dependencies
type Server struct {
	Config *config.Config
	Logger *zap.Logger
	GRPC   *grpc.Server
	Health *health.Server
	HTTP   *http.Server
	Gin    *http.Server

	gatewayConn      *grpc.ClientConn
	gatewayCloseOnce sync.Once
	gatewayCloseErr  error
}

// New creates a new server instance
func New(cfg *config.Config, l *zap.Logger, svc grpcadapter.UserServiceServer, ginHandler *ginhandler.UserHandler) (*Server, error) {
	s := &Server{
		Config: cfg,
		Logger: l,
	}

	s.GRPC, s.Health = SetupGRPC(svc, l)

	httpServer, conn, err := SetupHTTPGateway(s.gatewayTarget(), s.httpAddress(), l)
	if err != nil {
		return nil, err
	}
	s.HTTP = httpServer
	s.gatewayConn = conn

	s.Gin = SetupGinServer(ginHandler, s.ginAddress(), l)

	return s, nil
}

// Start listens on all three ports and serves until ctx is canceled or a server fails.
// Either way every server is shut down before Start returns. When a port cannot
// be bound nothing is served and the gateway connection is closed.
func (s *Server) Start(ctx context.Context) error {
	lc := net.ListenConfig{}

	grpcLis, err := lc.Listen(ctx, "tcp", s.grpcAddress())
	if err != nil {
		return s.abortStart(fmt.Errorf("failed to listen on gRPC address: %w", err))
	}
	httpLis, err := lc.Listen(ctx, "tcp", s.httpAddress())
	if err != nil {
		_ = grpcLis.Close()
		return s.abortStart(fmt.Errorf("failed to listen on HTTP address: %w", err))
	}
	ginLis, err := lc.Listen(ctx, "tcp", s.ginAddress())
	if err != nil {
		_ = grpcLis.Close()
		_ = httpLis.Close()
		return s.abortStart(fmt.Errorf("failed to listen on Gin address: %w", err))
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.Logger.Info("gRPC server running", zap.String("address", grpcLis.Addr().String()))
		if err := s.GRPC.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("gRPC server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		s.Logger.Info("REST gateway running", zap.String("address", httpLis.Addr().String()))
		if err := s.HTTP.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP gateway: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		s.Logger.Info("Gin REST API running", zap.String("address", ginLis.Addr().String()))
		if err := s.Gin.Serve(ginLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("gin server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout())
		defer cancel()
		return s.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Shutdown stops the REST servers first, then drains gRPC.
// gRPC is stopped hard when ctx expires before in-flight calls finish.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("starting graceful shutdown", zap.Duration("timeout", s.shutdownTimeout()))

	var errs []error

	if s.HTTP != nil {
		s.Logger.Info("shutting down HTTP server...")
		if err := s.HTTP.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
		}
	}

	if s.Gin != nil {
		s.Logger.Info("shutting down Gin server...")
		if err := s.Gin.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("gin shutdown: %w", err))
		}
	}

	if s.GRPC != nil {
		s.Logger.Info("shutting down gRPC server...")
		if s.Health != nil {
			s.Health.Shutdown()
		}

		stopped := make(chan struct{})
		go func() {
			s.GRPC.GracefulStop()
			close(stopped)
		}()

		select {
		case <-stopped:
		case <-ctx.Done():
			s.Logger.Warn("gRPC graceful stop timed out, forcing stop")
			s.GRPC.Stop()
			<-stopped
		}
	}

	if err := s.closeGatewayConn(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (s *Server) abortStart(err error) error {
	if cerr := s.closeGatewayConn(); cerr != nil {
		s.Logger.Warn("failed to close gateway connection", zap.Error(cerr))
	}
	return err
}

// closeGatewayConn closes the gateway's gRPC client connection once.
func (s *Server) closeGatewayConn() error {
	s.gatewayCloseOnce.Do(func() {
		if s.gatewayConn == nil {
			return
		}
		if err := s.gatewayConn.Close(); err != nil {
			s.gatewayCloseErr = fmt.Errorf("gateway connection close: %w", err)
		}
	})
	return s.gatewayCloseErr
}

// grpcAddress returns the gRPC server address
func (s *Server) grpcAddress() string {
	return ":" + s.Config.App.GRPCPort
}

// gatewayTarget is the address the gateway dials to reach the gRPC server
func (s *Server) gatewayTarget() string {
	return "localhost:" + s.Config.App.GRPCPort
}

// httpAddress returns the HTTP server address
func (s *Server) httpAddress() string {
	return ":" + s.Config.App.HTTPPort
}

// ginAddress returns the Gin server address
func (s *Server) ginAddress() string {
	return ":" + s.Config.App.GinPort
}

func (s *Server) shutdownTimeout() time.Duration {
	if s.Config.App.ShutdownTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(s.Config.App.ShutdownTimeoutSeconds) * time.Second
}
