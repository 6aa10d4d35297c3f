package grpc

import (
	"context"
	"time"

	"github.com/architeacher/devicely/internal/ports"
	"github.com/architeacher/devicely/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	// ServiceName is the name probes use to ask about the device API specifically.
	ServiceName = "devicely.v1.DevicesService"

	pingTimeout = 3 * time.Second
)

// HealthHandler publishes the database reachability through the standard
// grpc.health.v1 service.
type HealthHandler struct {
	server          *health.Server
	dbHealthChecker ports.DatabaseHealthChecker
	interval        time.Duration
	logger          logger.Logger
	lastStatus      healthpb.HealthCheckResponse_ServingStatus
}

func NewHealthHandler(dbHealthChecker ports.DatabaseHealthChecker, interval time.Duration, log logger.Logger) *HealthHandler {
	srv := health.NewServer()
	srv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	srv.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	return &HealthHandler{
		server:          srv,
		dbHealthChecker: dbHealthChecker,
		interval:        interval,
		logger:          log,
		lastStatus:      healthpb.HealthCheckResponse_NOT_SERVING,
	}
}

func (h *HealthHandler) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.server)
}

// Refresh pings the database once and updates the serving status.
func (h *HealthHandler) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := h.dbHealthChecker.Ping(ctx); err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING

		if h.lastStatus != status {
			h.logger.Warn().Err(err).Msg("database unreachable, reporting NOT_SERVING")
		}
	}

	if h.lastStatus != status && status == healthpb.HealthCheckResponse_SERVING {
		h.logger.Info().Msg("database reachable, reporting SERVING")
	}

	h.lastStatus = status
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(ServiceName, status)

	return status
}

// Run refreshes the status on every interval tick until ctx is done.
func (h *HealthHandler) Run(ctx context.Context) {
	h.Refresh(ctx)

	if h.interval <= 0 {
		return
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Refresh(ctx)
		}
	}
}

// Shutdown flips every service to NOT_SERVING and ignores later updates.
func (h *HealthHandler) Shutdown() {
	h.server.Shutdown()
}
