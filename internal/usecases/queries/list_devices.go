package queries

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
	ListDevicesQuery struct {
		Filter model.DeviceFilter
	}

	ListDevicesQueryHandler = decorator.QueryHandler[ListDevicesQuery, *model.DeviceList]

	listDevicesQueryHandler struct {
		devicesService ports.DevicesService
	}
)

func (q ListDevicesQuery) Attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Int64("page.number", int64(q.Filter.Page)),
		attribute.Int64("page.size", int64(q.Filter.Size)),
	}

	if brand, ok := q.Filter.Brand.Get(); ok {
		attrs = append(attrs, attribute.String("device.brand", brand))
	}

	if state, ok := q.Filter.State.Get(); ok {
		attrs = append(attrs, attribute.String("device.state", state.String()))
	}

	return attrs
}

func NewListDevicesQueryHandler(
	svc ports.DevicesService,
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) ListDevicesQueryHandler {
	return decorator.ApplyQueryDecorators[ListDevicesQuery, *model.DeviceList](
		listDevicesQueryHandler{devicesService: svc},
		log,
		metricsClient,
		tracerProvider,
	)
}

func (h listDevicesQueryHandler) Execute(ctx context.Context, query ListDevicesQuery) (*model.DeviceList, error) {
	return h.devicesService.ListDevices(ctx, query.Filter)
}
