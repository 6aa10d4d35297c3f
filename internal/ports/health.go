package ports

import (
	"context"

	"github.com/architeacher/devicely/internal/domain/model"
)

// DatabaseHealthChecker defines the interface for database health checks.
type DatabaseHealthChecker interface {
	// Ping checks if the database connection is alive.
	Ping(ctx context.Context) error
}

// HealthChecker aggregates dependency checks into reports.
type HealthChecker interface {
	Liveness(ctx context.Context) *model.LivenessReport
	Readiness(ctx context.Context) *model.ReadinessReport
	Health(ctx context.Context) *model.HealthReport
}
