package queries

import (
	"context"

	"github.com/architeacher/devicely/internal/domain/model"
	"github.com/architeacher/devicely/internal/ports"
	"github.com/architeacher/devicely/pkg/decorator"
	"github.com/architeacher/devicely/pkg/logger"
	"github.com/architeacher/devicely/pkg/metrics"
	otelTrace "go.opentelemetry.io/otel/trace"
)

type (
	FetchLivenessQuery     struct{}
	FetchReadinessQuery    struct{}
	FetchHealthReportQuery struct{}

	FetchLivenessQueryHandler     = decorator.QueryHandler[FetchLivenessQuery, *model.LivenessReport]
	FetchReadinessQueryHandler    = decorator.QueryHandler[FetchReadinessQuery, *model.ReadinessReport]
	FetchHealthReportQueryHandler = decorator.QueryHandler[FetchHealthReportQuery, *model.HealthReport]

	fetchLivenessQueryHandler struct {
		checker ports.HealthChecker
	}

	fetchReadinessQueryHandler struct {
		checker ports.HealthChecker
	}

	fetchHealthReportQueryHandler struct {
		checker ports.HealthChecker
	}
)

func NewFetchLivenessQueryHandler(
	checker ports.HealthChecker,
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) FetchLivenessQueryHandler {
	return decorator.ApplyQueryDecorators[FetchLivenessQuery, *model.LivenessReport](
		fetchLivenessQueryHandler{checker: checker},
		log,
		metricsClient,
		tracerProvider,
	)
}

func NewFetchReadinessQueryHandler(
	checker ports.HealthChecker,
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) FetchReadinessQueryHandler {
	return decorator.ApplyQueryDecorators[FetchReadinessQuery, *model.ReadinessReport](
		fetchReadinessQueryHandler{checker: checker},
		log,
		metricsClient,
		tracerProvider,
	)
}

func NewFetchHealthReportQueryHandler(
	checker ports.HealthChecker,
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) FetchHealthReportQueryHandler {
	return decorator.ApplyQueryDecorators[FetchHealthReportQuery, *model.HealthReport](
		fetchHealthReportQueryHandler{checker: checker},
		log,
		metricsClient,
		tracerProvider,
	)
}

func (h fetchLivenessQueryHandler) Execute(ctx context.Context, _ FetchLivenessQuery) (*model.LivenessReport, error) {
	return h.checker.Liveness(ctx), nil
}

func (h fetchReadinessQueryHandler) Execute(ctx context.Context, _ FetchReadinessQuery) (*model.ReadinessReport, error) {
	return h.checker.Readiness(ctx), nil
}

func (h fetchHealthReportQueryHandler) Execute(ctx context.Context, _ FetchHealthReportQuery) (*model.HealthReport, error) {
	return h.checker.Health(ctx), nil
}
