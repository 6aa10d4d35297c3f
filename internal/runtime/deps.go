package runtime

import (
	"context"
	"fmt"
	"net/http"

	inboundgrpc "github.com/architeacher/devicely/internal/adapters/inbound/grpc"
	"github.com/architeacher/devicely/internal/adapters/repos"
	"github.com/architeacher/devicely/internal/config"
	"github.com/architeacher/devicely/internal/infrastructure"
	"github.com/architeacher/devicely/internal/ports"
	"github.com/architeacher/devicely/internal/usecases"
	"github.com/architeacher/devicely/pkg/logger"
	"github.com/architeacher/devicely/pkg/metrics"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/throttled/throttled/v2"
	otelTrace "go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
)

type (
	infrastructureDep struct {
		httpServer     *http.Server
		grpcServer     *grpc.Server
		grpcHealth     *inboundgrpc.HealthHandler
		cacheClient    *infrastructure.KeydbClient
		dbPool         *pgxpool.Pool
		logger         logger.Logger
		metricsClient  metrics.Client
		tracerProvider otelTrace.TracerProvider
	}

	repositories struct {
		secretsRepo      ports.SecretsRepository
		deviceRepo       *repos.DevicesRepository
		rateLimitStore   throttled.GCRAStoreCtx
		idempotencyStore ports.IdempotencyStore
	}

	servicesDep struct {
		devices       ports.DevicesService
		healthChecker ports.HealthChecker
	}

	// cleanups run on shutdown in reverse registration order, so servers
	// drain before the stores they use are closed.
	cleanup struct {
		resource string
		fn       func(ctx context.Context) error
	}

	dependencies struct {
		config       *config.ServiceConfig
		configLoader *config.Loader

		infra infrastructureDep

		repos repositories

		services servicesDep

		app *usecases.Application

		cleanups []cleanup
	}

	DependencyOption func(*dependencies) error
)

func initializeDependencies(ctx context.Context, opts ...DependencyOption) (*dependencies, error) {
	deps := &dependencies{}

	allOpts := append(defaultOptions(ctx), opts...)

	for _, opt := range allOpts {
		if err := opt(deps); err != nil {
			return nil, fmt.Errorf("failed to apply dependency option: %w", err)
		}
	}

	return deps, nil
}

func (d *dependencies) onShutdown(resource string, fn func(ctx context.Context) error) {
	d.cleanups = append(d.cleanups, cleanup{resource: resource, fn: fn})
}

// keydb returns the shared KeyDB client, connecting on first use.
func (d *dependencies) keydb(ctx context.Context) (*infrastructure.KeydbClient, error) {
	if d.infra.cacheClient != nil {
		return d.infra.cacheClient, nil
	}

	client := infrastructure.NewKeyDBClient(d.config.Cache, d.infra.logger)

	if err := client.Ping(ctx); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("connecting to keydb at %s: %w", d.config.Cache.Address, err)
	}

	d.infra.cacheClient = client
	d.onShutdown("keydb", func(context.Context) error {
		return client.Close()
	})

	return client, nil
}
