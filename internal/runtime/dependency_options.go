package runtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	inboundgrpc "github.com/architeacher/devicely/internal/adapters/inbound/grpc"
	inboundhttp "github.com/architeacher/devicely/internal/adapters/inbound/http"
	"github.com/architeacher/devicely/internal/adapters/repos"
	"github.com/architeacher/devicely/internal/config"
	infraPostgres "github.com/architeacher/devicely/internal/infrastructure/postgres"
	"github.com/architeacher/devicely/internal/infrastructure/telemetry"
	"github.com/architeacher/devicely/internal/services"
	"github.com/architeacher/devicely/internal/usecases"
	"github.com/architeacher/devicely/migrations"
	"github.com/architeacher/devicely/pkg/circuitbreaker"
	"github.com/architeacher/devicely/pkg/logger"
	"github.com/architeacher/devicely/pkg/metrics/noop"
	"github.com/architeacher/devicely/pkg/metrics/prometheus"
	"github.com/throttled/throttled/v2/store/memstore"
)

func defaultOptions(ctx context.Context) []DependencyOption {
	return []DependencyOption{
		WithConfig(),
		WithLogger(),
		WithSecretsRepository(),
		WithConfigLoader(ctx),
		WithTracing(ctx),
		WithMetrics(),
		WithDatabase(ctx),
		WithMigrations(ctx),
		WithDevicesRepository(),
		WithRateLimitStore(ctx),
		WithIdempotencyStore(ctx),
		WithServices(),
		WithApplication(),
		WithHTTPServer(),
		WithGRPCServer(),
	}
}

func WithConfig() DependencyOption {
	return func(d *dependencies) error {
		cfg, err := config.Init()
		if err != nil {
			return fmt.Errorf("initializing configuration: %w", err)
		}

		d.config = cfg

		return nil
	}
}

func WithLogger() DependencyOption {
	return func(d *dependencies) error {
		d.infra.logger = logger.New(d.config.Logging.Level, d.config.Logging.Format)

		return nil
	}
}

func WithSecretsRepository() DependencyOption {
	return func(d *dependencies) error {
		if !d.config.SecretsStorage.Enabled {
			return nil
		}

		client, err := repos.NewVaultClient(d.config.SecretsStorage.Address, d.config.SecretsStorage.TLSSkipVerify)
		if err != nil {
			return fmt.Errorf("creating Vault client: %w", err)
		}

		client.SetClientTimeout(d.config.SecretsStorage.Timeout)

		d.repos.secretsRepo = repos.NewVaultRepository(client)

		return nil
	}
}

// WithConfigLoader applies the Vault secrets before anything connects with them.
func WithConfigLoader(ctx context.Context) DependencyOption {
	return func(d *dependencies) error {
		if d.repos.secretsRepo == nil {
			return nil
		}

		loader := config.NewLoader(d.config, d.repos.secretsRepo, d.infra.logger)

		version, err := loader.Load(ctx)
		if err != nil {
			return fmt.Errorf("loading secrets from Vault: %w", err)
		}

		d.infra.logger.Info().Uint("version", version).Msg("secrets loaded from Vault")
		d.configLoader = loader

		return nil
	}
}

func WithTracing(ctx context.Context) DependencyOption {
	return func(d *dependencies) error {
		if !d.config.Telemetry.Enabled || !d.config.Telemetry.Traces.Enabled {
			d.infra.tracerProvider = telemetry.NewNoopTracerProvider()

			return nil
		}

		tp, shutdown, err := telemetry.NewTracerProvider(ctx, d.config.App, d.config.Telemetry, os.Stdout)
		if err != nil {
			return fmt.Errorf("initializing tracer: %w", err)
		}

		d.infra.tracerProvider = tp
		d.onShutdown("tracer", shutdown)

		return nil
	}
}

func WithMetrics() DependencyOption {
	return func(d *dependencies) error {
		if !d.config.Telemetry.Metrics.Enabled {
			d.infra.metricsClient = noop.NewMetricsClient()

			return nil
		}

		client := prometheus.NewMetricsClient(d.config.Telemetry.Metrics.Namespace)
		d.infra.metricsClient = client
		d.onShutdown("metrics", client.Shutdown)

		return nil
	}
}

func WithDatabase(ctx context.Context) DependencyOption {
	return func(d *dependencies) error {
		pool, err := infraPostgres.NewPool(ctx, d.config.Database, d.infra.logger)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}

		d.infra.dbPool = pool
		d.onShutdown("database", func(context.Context) error {
			pool.Close()

			return nil
		})

		return nil
	}
}

func WithMigrations(ctx context.Context) DependencyOption {
	return func(d *dependencies) error {
		if !d.config.Database.AutoMigrate {
			return nil
		}

		if err := migrations.Apply(ctx, d.infra.dbPool, migrations.FS); err != nil {
			return fmt.Errorf("applying migrations: %w", err)
		}

		d.infra.logger.Info().Msg("database schema is up to date")

		return nil
	}
}

func WithDevicesRepository() DependencyOption {
	return func(d *dependencies) error {
		d.repos.deviceRepo = repos.NewDevicesRepository(
			d.infra.dbPool,
			repos.NewPgxScanner(),
			repos.NewCriteriaTranslator(d.infra.logger),
		)

		return nil
	}
}

// WithRateLimitStore picks the GCRA store. The KeyDB store shares budgets
// between replicas; the memory store is per process.
func WithRateLimitStore(ctx context.Context) DependencyOption {
	return func(d *dependencies) error {
		cfg := d.config.RateLimiting
		if !cfg.Enabled {
			return nil
		}

		switch cfg.Store {
		case config.RateLimitStoreKeyDB:
			client, err := d.keydb(ctx)
			if err != nil {
				return err
			}

			d.repos.rateLimitStore = repos.NewRateLimitStore(client, cfg.KeyPrefix, keydbBreakerConfig(d, "keydb-ratelimit"))

		case config.RateLimitStoreMemory:
			store, err := memstore.NewCtx(cfg.MaxKeys)
			if err != nil {
				return fmt.Errorf("creating in-memory rate limit store: %w", err)
			}

			d.repos.rateLimitStore = store

		default:
			return fmt.Errorf("unsupported rate limit store %q", cfg.Store)
		}

		return nil
	}
}

// WithIdempotencyStore keeps replayable responses in KeyDB, sharing the
// client with the rate limiter.
func WithIdempotencyStore(ctx context.Context) DependencyOption {
	return func(d *dependencies) error {
		if !d.config.Idempotency.Enabled {
			return nil
		}

		client, err := d.keydb(ctx)
		if err != nil {
			return err
		}

		d.repos.idempotencyStore = repos.NewIdempotencyRepository(client, keydbBreakerConfig(d, "keydb-idempotency"))

		return nil
	}
}

func keydbBreakerConfig(d *dependencies, name string) circuitbreaker.Config {
	cfg := d.config.CacheBreaker
	log := d.infra.logger.Component("circuitbreaker")

	return circuitbreaker.Config{
		Name:             name,
		Enabled:          cfg.Enabled,
		MaxRequests:      cfg.MaxRequests,
		Interval:         cfg.Interval,
		Timeout:          cfg.Timeout,
		FailureThreshold: cfg.FailureThreshold,
		OnStateChange: func(name string, from, to circuitbreaker.State) {
			event := log.Info()
			if to == circuitbreaker.StateOpen {
				event = log.Warn()
			}

			event.
				Str("breaker", name).
				Str("from", string(from)).
				Str("to", string(to)).
				Msg("circuit breaker state changed")
		},
	}
}

func WithServices() DependencyOption {
	return func(d *dependencies) error {
		d.services.devices = services.NewDevicesService(
			d.repos.deviceRepo,
			services.WithMaxPageSize(d.config.Pagination.MaxPageSize),
		)
		d.services.healthChecker = services.NewHealthService(
			d.repos.deviceRepo,
			d.config.App.ServiceVersion,
			time.Now().UTC(),
		)

		return nil
	}
}

func WithApplication() DependencyOption {
	return func(d *dependencies) error {
		d.app = usecases.NewApplication(
			d.services.devices,
			d.services.healthChecker,
			d.infra.logger,
			d.infra.metricsClient,
			d.infra.tracerProvider,
		)

		return nil
	}
}

func WithHTTPServer() DependencyOption {
	return func(d *dependencies) error {
		router, err := inboundhttp.NewRouter(inboundhttp.RouterConfig{
			App:              d.app,
			Logger:           d.infra.logger,
			MetricsClient:    d.infra.metricsClient,
			RateLimitStore:   d.repos.rateLimitStore,
			IdempotencyStore: d.repos.idempotencyStore,
			TracerProvider:   d.infra.tracerProvider,
			Config:           d.config,
		})
		if err != nil {
			return fmt.Errorf("building router: %w", err)
		}

		server := &http.Server{
			Addr:         d.config.HTTPServer.Address(),
			Handler:      router,
			ReadTimeout:  d.config.HTTPServer.ReadTimeout,
			WriteTimeout: d.config.HTTPServer.WriteTimeout,
			IdleTimeout:  d.config.HTTPServer.IdleTimeout,
		}

		d.infra.httpServer = server
		d.onShutdown("http server", func(ctx context.Context) error {
			if err := server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}

			return nil
		})

		return nil
	}
}

func WithGRPCServer() DependencyOption {
	return func(d *dependencies) error {
		if !d.config.GRPCServer.Enabled {
			return nil
		}

		healthHandler := inboundgrpc.NewHealthHandler(d.repos.deviceRepo, d.config.GRPCServer.HealthInterval, d.infra.logger)
		server := inboundgrpc.NewServer(inboundgrpc.ServerConfig{
			Config:         d.config,
			HealthHandler:  healthHandler,
			TracerProvider: d.infra.tracerProvider,
			Logger:         d.infra.logger,
		})

		d.infra.grpcHealth = healthHandler
		d.infra.grpcServer = server
		d.onShutdown("grpc server", func(ctx context.Context) error {
			healthHandler.Shutdown()

			stopped := make(chan struct{})
			go func() {
				server.GracefulStop()
				close(stopped)
			}()

			select {
			case <-stopped:
				return nil
			case <-ctx.Done():
				server.Stop()

				return ctx.Err()
			}
		})

		return nil
	}
}
