package commands

import (
	"context"

	"github.com/architeacher/devicely/internal/domain/model"
	"github.com/architeacher/devicely/internal/ports"
	"github.com/architeacher/devicely/pkg/decorator"
	"github.com/architeacher/devicely/pkg/logger"
	"github.com/architeacher/devicely/pkg/metrics"
	"go.opentelemetry.io/otel/attribute"
	otelTrace "go.opentelemetry.io/otel/trace"
)

type (
	CreateDeviceCommand struct {
		Name  string
		Brand string
		State model.State
	}

	CreateDeviceCommandHandler = decorator.CommandHandler[CreateDeviceCommand, *model.Device]

	createDeviceCommandHandler struct {
		devicesService ports.DevicesService
	}
)

func (c CreateDeviceCommand) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("device.brand", c.Brand),
		attribute.String("device.state", c.State.String()),
	}
}

func NewCreateDeviceCommandHandler(
	svc ports.DevicesService,
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) CreateDeviceCommandHandler {
	return decorator.ApplyCommandDecorators[CreateDeviceCommand, *model.Device](
		createDeviceCommandHandler{devicesService: svc},
		log,
		metricsClient,
		tracerProvider,
	)
}

func (h createDeviceCommandHandler) Handle(ctx context.Context, cmd CreateDeviceCommand) (*model.Device, error) {
	return h.devicesService.CreateDevice(ctx, cmd.Name, cmd.Brand, cmd.State)
}
