package http

import (
	"fmt"
	"net/http"

	"github.com/architeacher/devicely/internal/adapters/inbound/http/handlers"
	"github.com/architeacher/devicely/internal/adapters/inbound/http/middleware"
	"github.com/architeacher/devicely/internal/config"
	"github.com/architeacher/devicely/internal/ports"
	"github.com/architeacher/devicely/internal/usecases"
	"github.com/architeacher/devicely/pkg/logger"
	"github.com/architeacher/devicely/pkg/metrics"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/throttled/throttled/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	otelTrace "go.opentelemetry.io/otel/trace"
)

const MetricsPath = "/metrics"

type RouterConfig struct {
	App              *usecases.Application
	Logger           logger.Logger
	MetricsClient    metrics.Client
	RateLimitStore   throttled.GCRAStoreCtx
	IdempotencyStore ports.IdempotencyStore
	TracerProvider   otelTrace.TracerProvider
	Config           *config.ServiceConfig
}

func NewRouter(cfg RouterConfig) (http.Handler, error) {
	router := chi.NewRouter()

	// Core middlewares - always applied
	router.Use(middleware.RequestID())

	if cfg.Config.HTTPServer.TrustProxyHeaders {
		router.Use(chimiddleware.RealIP)
	}

	router.Use(middleware.Recovery(cfg.Logger))

	// Access logging with health check filtering
	if cfg.Config.Logging.AccessLog.Enabled {
		healthFilter := middleware.NewHealthCheckFilter(cfg.Config.Logging.AccessLog.LogHealthChecks)

		router.Use(healthFilter.Middleware)
		router.Use(middleware.AccessLogger(cfg.Logger, cfg.Config.Logging.AccessLog.IncludeQueryParams))
		cfg.Logger.Info().
			Bool("log_health_checks", cfg.Config.Logging.AccessLog.LogHealthChecks).
			Msg("structured access logging enabled")
	}

	if cfg.Config.Telemetry.Metrics.Enabled {
		router.Use(middleware.HTTPMetrics(cfg.MetricsClient))
		cfg.Logger.Info().Msg("HTTP metrics collection enabled")
	}

	if cfg.Config.RateLimiting.Enabled && cfg.RateLimitStore != nil {
		rateLimiter, err := middleware.RateLimiting(cfg.Config.RateLimiting, cfg.RateLimitStore, cfg.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create rate limiter: %w", err)
		}

		router.Use(rateLimiter)
		cfg.Logger.Info().
			Uint("requests_per_minute", cfg.Config.RateLimiting.RequestsPerMinute).
			Str("store", cfg.Config.RateLimiting.Store).
			Msg("rate limiting enabled")
	}

	router.Use(middleware.Compression(cfg.Config.Compression))

	handlers.NewHealthHandler(cfg.App).Routes(router)

	if cfg.Config.Telemetry.Metrics.Enabled {
		router.Method(http.MethodGet, MetricsPath, cfg.MetricsClient.Handler())
	}

	idempotencyEnabled := cfg.Config.Idempotency.Enabled && cfg.IdempotencyStore != nil
	if idempotencyEnabled {
		cfg.Logger.Info().
			Strs("methods", cfg.Config.Idempotency.Methods).
			Msg("idempotency keys enabled")
	}

	devicesHandler := handlers.NewDevicesHandler(cfg.App, cfg.Config.Pagination)
	router.Route(handlers.DevicesPath, func(r chi.Router) {
		r.Use(middleware.ConditionalGET())

		if idempotencyEnabled {
			r.Use(middleware.Idempotency(cfg.IdempotencyStore, cfg.Config.Idempotency, cfg.Logger))
		}

		devicesHandler.Routes(r)
	})

	if !cfg.Config.Telemetry.Traces.Enabled || cfg.TracerProvider == nil {
		return router, nil
	}

	cfg.Logger.Info().Msg("distributed tracing enabled")

	return otelhttp.NewHandler(router, cfg.Config.App.ServiceName,
		otelhttp.WithTracerProvider(cfg.TracerProvider),
		otelhttp.WithFilter(func(r *http.Request) bool {
			return !middleware.IsHealthCheckPath(r.URL.Path)
		}),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	), nil
}
