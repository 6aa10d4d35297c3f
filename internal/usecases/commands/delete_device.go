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
	DeleteDeviceCommand struct {
		ID model.DeviceID
	}

	DeleteDeviceCommandHandler = decorator.CommandHandler[DeleteDeviceCommand, *model.Device]

	deleteDeviceCommandHandler struct {
		devicesService ports.DevicesService
	}
)

func (c DeleteDeviceCommand) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{attribute.Int64("device.id", int64(c.ID))}
}

func NewDeleteDeviceCommandHandler(
	svc ports.DevicesService,
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) DeleteDeviceCommandHandler {
	return decorator.ApplyCommandDecorators[DeleteDeviceCommand, *model.Device](
		deleteDeviceCommandHandler{devicesService: svc},
		log,
		metricsClient,
		tracerProvider,
	)
}

func (h deleteDeviceCommandHandler) Handle(ctx context.Context, cmd DeleteDeviceCommand) (*model.Device, error) {
	return h.devicesService.DeleteDevice(ctx, cmd.ID)
}
