package ports

import (
	"context"

	"github.com/architeacher/devicely/internal/domain/model"
)

// DevicesService defines the device lifecycle operations.
type DevicesService interface {
	// CreateDevice creates a new device with the given parameters.
	CreateDevice(ctx context.Context, name, brand string, state model.State) (*model.Device, error)

	// GetDevice retrieves a non-deleted device by its ID.
	GetDevice(ctx context.Context, id model.DeviceID) (*model.Device, error)

	// ListDevices retrieves a page of devices matching the filter.
	ListDevices(ctx context.Context, filter model.DeviceFilter) (*model.DeviceList, error)

	// UpdateDevice applies a partial update to a device.
	UpdateDevice(ctx context.Context, id model.DeviceID, update model.DeviceUpdate) (*model.Device, error)

	// DeleteDevice soft-deletes a device and returns its final state.
	DeleteDevice(ctx context.Context, id model.DeviceID) (*model.Device, error)
}
