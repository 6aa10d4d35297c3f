package grpc

import (
	"context"
	"strings"
	"time"

	"github.com/architeacher/devicely/internal/config"
	"github.com/architeacher/devicely/pkg/logger"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	MetadataKeyRequestID = "x-request-id"

	healthServicePrefix = "/grpc.health.v1.Health/"
)

// RequestIDInterceptor stores the caller's request id, or a fresh one, on the context.
func RequestIDInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		_ *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		var requestID string

		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if ids := md.Get(MetadataKeyRequestID); len(ids) > 0 {
				requestID = ids[0]
			}
		}

		if requestID == "" {
			requestID = uuid.NewString()
		}

		return handler(logger.ContextWithRequestID(ctx, requestID), req)
	}
}

func AccessLogInterceptor(log logger.Logger, cfg config.AccessLog) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if !cfg.Enabled {
			return handler(ctx, req)
		}

		if !cfg.LogHealthChecks && isHealthCheck(info.FullMethod) {
			return handler(ctx, req)
		}

		start := time.Now()
		resp, err := handler(ctx, req)

		logEvent := log.Info().
			Str("component", "grpc").
			Str("method", info.FullMethod).
			Str("request_id", logger.RequestIDFromContext(ctx)).
			Dur("duration", time.Since(start))

		if err != nil {
			st, _ := status.FromError(err)
			logEvent.Str("grpc_code", st.Code().String()).
				Str("error", st.Message()).
				Msg("gRPC request failed")
		} else {
			logEvent.Msg("gRPC request completed")
		}

		return resp, err
	}
}

func isHealthCheck(fullMethod string) bool {
	return strings.HasPrefix(fullMethod, healthServicePrefix)
}
