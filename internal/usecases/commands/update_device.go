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
	// UpdateDeviceCommand carries a partial update. Unset fields keep their
	// current value.
	UpdateDeviceCommand struct {
		ID     model.DeviceID
		Update model.DeviceUpdate
	}

	UpdateDeviceCommandHandler = decorator.CommandHandler[UpdateDeviceCommand, *model.Device]

	updateDeviceCommandHandler struct {
		devicesService ports.DevicesService
	}
)

func (c UpdateDeviceCommand) Attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.Int64("device.id", int64(c.ID))}

	if state, ok := c.Update.State.Get(); ok {
		attrs = append(attrs, attribute.String("device.state", state.String()))
	}

	return attrs
}

func NewUpdateDeviceCommandHandler(
	svc ports.DevicesService,
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) UpdateDeviceCommandHandler {
	return decorator.ApplyCommandDecorators[UpdateDeviceCommand, *model.Device](
		updateDeviceCommandHandler{devicesService: svc},
		log,
		metricsClient,
		tracerProvider,
	)
}

func (h updateDeviceCommandHandler) Handle(ctx context.Context, cmd UpdateDeviceCommand) (*model.Device, error) {
	return h.devicesService.UpdateDevice(ctx, cmd.ID, cmd.Update)
}
