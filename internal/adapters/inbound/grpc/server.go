package grpc

import (
	"github.com/architeacher/devicely/internal/config"
	"github.com/architeacher/devicely/pkg/logger"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	otelTrace "go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
)

type ServerConfig struct {
	Config         *config.ServiceConfig
	HealthHandler  *HealthHandler
	TracerProvider otelTrace.TracerProvider
	Logger         logger.Logger
}

// NewServer builds the gRPC server hosting the health service.
func NewServer(cfg ServerConfig) *grpc.Server {
	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			RequestIDInterceptor(),
			AccessLogInterceptor(cfg.Logger, cfg.Config.Logging.AccessLog),
		),
	}

	if cfg.Config.Telemetry.Traces.Enabled && cfg.TracerProvider != nil {
		opts = append(opts, grpc.StatsHandler(otelgrpc.NewServerHandler(
			otelgrpc.WithTracerProvider(cfg.TracerProvider),
		)))
	}

	server := grpc.NewServer(opts...)
	cfg.HealthHandler.Register(server)

	if cfg.Config.GRPCServer.Reflection {
		reflection.Register(server)
	}

	return server
}
