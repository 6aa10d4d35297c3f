package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/architeacher/devicely/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.32.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	ExporterTypeGRPC   = "grpc"
	ExporterTypeStdOut = "stdout"
)

type ShutdownFunc func(ctx context.Context) error

// NewTracerProvider creates the SDK tracer provider and installs it, together
// with the W3C propagators, as the global provider.
func NewTracerProvider(ctx context.Context, app config.App, cfg config.Telemetry, stdout io.Writer) (trace.TracerProvider, ShutdownFunc, error) {
	exporter, err := createExporter(ctx, cfg, stdout)
	if err != nil {
		return nil, nil, err
	}

	hostName, err := os.Hostname()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get host name: %w", err)
	}

	res, err := resource.New(
		ctx,
		resource.WithAttributes(
			semconv.ServiceName(app.ServiceName),
			semconv.ServiceVersion(app.ServiceVersion),
			attribute.String("env", app.Env.Name),
			attribute.String("host", hostName),
			attribute.String("commit_sha", app.CommitSHA),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("creating resource: %w", err)
	}

	sampler := sdktrace.TraceIDRatioBased(cfg.Traces.SamplerRatio)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(
			sampler,
			sdktrace.WithRemoteParentSampled(sampler),
		)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp, tp.Shutdown, nil
}

// NewNoopTracerProvider creates a no-op tracer provider for when tracing is disabled.
func NewNoopTracerProvider() trace.TracerProvider {
	return noop.NewTracerProvider()
}

func createExporter(ctx context.Context, cfg config.Telemetry, stdout io.Writer) (sdktrace.SpanExporter, error) {
	switch strings.ToLower(cfg.ExporterType) {
	case ExporterTypeGRPC:
		opts := []otlptracegrpc.Option{otlptracegrpc.WithInsecure()}
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint))
		}

		exporter, err := otlptracegrpc.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create gRPC exporter: %w", err)
		}

		return exporter, nil

	case ExporterTypeStdOut:
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(stdout), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create StdOut exporter: %w", err)
		}

		return exporter, nil

	default:
		return nil, fmt.Errorf("unsupported exporter type %q", cfg.ExporterType)
	}
}
