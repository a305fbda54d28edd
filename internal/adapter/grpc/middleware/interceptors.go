package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"user-management-service/pkg/logger"
)

// LoggingInterceptor logs every unary call with its status code and latency.
// Client errors are logged at warn level, everything else that failed at error level.
func LoggingInterceptor(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		code := status.Code(err)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", code.String()),
			zap.Duration("latency", time.Since(start)),
		}

		entry := logger.WithContext(ctx, log)
		switch code {
		case codes.OK:
			entry.Info("gRPC request", fields...)
		case codes.InvalidArgument, codes.AlreadyExists, codes.NotFound, codes.Canceled:
			entry.Warn("gRPC request", append(fields, zap.Error(err))...)
		default:
			entry.Error("gRPC request", append(fields, zap.Error(err))...)
		}

		return resp, err
	}
}

// RecoveryInterceptor converts a panic in a handler into an Internal status.
func RecoveryInterceptor(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.WithContext(ctx, log).Error("panic recovered",
					zap.String("method", info.FullMethod),
					zap.Any("panic", r),
					zap.Stack("stack"),
				)
				resp = nil
				err = status.Error(codes.Internal, "internal server error")
			}
		}()

		return handler(ctx, req)
	}
}
