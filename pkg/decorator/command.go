package decorator

import (
	"context"
	"fmt"
	"strings"

	"github.com/architeacher/devicely/pkg/logger"
	"github.com/architeacher/devicely/pkg/metrics"
	otelTrace "go.opentelemetry.io/otel/trace"
)

type (
	Command any

	CommandHandler[C Command, R any] interface {
		Handle(context.Context, C) (R, error)
	}
)

// ApplyCommandDecorators wraps handler so that every call is logged, measured
// and traced, in that order from the outside in.
func ApplyCommandDecorators[C Command, R any](
	handler CommandHandler[C, R],
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) CommandHandler[C, R] {
	return commandLoggingDecorator[C, R]{
		base: commandMetricsDecorator[C, R]{
			base: commandTracingDecorator[C, R]{
				base:           handler,
				tracerProvider: tracerProvider,
			},
			client: metricsClient,
		},
		logger: log,
	}
}

// generateActionName returns the unqualified type name of v.
func generateActionName(v any) string {
	name := fmt.Sprintf("%T", v)

	if idx := strings.LastIndex(name, "."); idx >= 0 {
		return name[idx+1:]
	}

	return strings.TrimPrefix(name, "*")
}
