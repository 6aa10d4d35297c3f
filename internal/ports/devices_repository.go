package ports

import (
	"context"
	"time"

	"github.com/architeacher/devicely/internal/domain/model"
)

type (
	Saver interface {
		// Create inserts a new device and sets its store-assigned ID.
		Create(ctx context.Context, device *model.Device) error
	}

	Fetcher interface {
		// FetchByID retrieves a non-deleted device by its ID.
		FetchByID(ctx context.Context, id model.DeviceID) (*model.Device, error)
	}

	Finder interface {
		// List returns the requested page of non-deleted devices matching the
		// filter, together with the total number of matches.
		List(ctx context.Context, filter model.DeviceFilter) (*model.DeviceList, error)
	}

	Updater interface {
		// Update overwrites name, brand, state and updated_at of a non-deleted device.
		Update(ctx context.Context, device *model.Device) error
	}

	SoftDeleter interface {
		// SoftDelete flags a non-deleted device as deleted.
		SoftDelete(ctx context.Context, id model.DeviceID, at time.Time) error
	}

	// DeviceRepository defines the persistence operations the devices service relies on.
	DeviceRepository interface {
		Saver
		Fetcher
		Finder
		Updater
		SoftDeleter
	}
)
