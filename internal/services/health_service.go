package services

import (
	"context"
	"time"

	"github.com/architeacher/devicely/internal/domain/model"
	"github.com/architeacher/devicely/internal/ports"
)

const DependencyPostgres = "postgres"

type HealthService struct {
	db        ports.DatabaseHealthChecker
	version   string
	startedAt time.Time
	now       func() time.Time
}

func NewHealthService(db ports.DatabaseHealthChecker, version string, startedAt time.Time) *HealthService {
	return &HealthService{
		db:        db,
		version:   version,
		startedAt: startedAt,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *HealthService) Liveness(_ context.Context) *model.LivenessReport {
	return &model.LivenessReport{
		Status:    model.HealthStatusOK,
		Timestamp: s.now(),
		Version:   s.version,
	}
}

func (s *HealthService) Readiness(ctx context.Context) *model.ReadinessReport {
	checks := s.checkDependencies(ctx)

	return &model.ReadinessReport{
		Status:    model.OverallStatus(checks),
		Timestamp: s.now(),
		Version:   s.version,
		Checks:    checks,
	}
}

func (s *HealthService) Health(ctx context.Context) *model.HealthReport {
	checks := s.checkDependencies(ctx)
	now := s.now()
	uptime := now.Sub(s.startedAt)

	return &model.HealthReport{
		Status:    model.OverallStatus(checks),
		Timestamp: now,
		Version:   s.version,
		Uptime: model.UptimeInfo{
			StartedAt:       s.startedAt,
			Duration:        uptime.Round(time.Second).String(),
			DurationSeconds: uint64(uptime.Seconds()),
		},
		Checks: checks,
	}
}

func (s *HealthService) checkDependencies(ctx context.Context) map[string]model.DependencyCheck {
	start := time.Now()
	err := s.db.Ping(ctx)

	check := model.DependencyCheck{
		Status:      model.DependencyStatusUp,
		LatencyMs:   uint64(time.Since(start).Milliseconds()),
		LastChecked: s.now(),
	}

	if err != nil {
		check.Status = model.DependencyStatusDown
		check.Message = "database unreachable"
		check.Error = err.Error()
	}

	return map[string]model.DependencyCheck{DependencyPostgres: check}
}
