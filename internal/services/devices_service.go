package services

import (
	"context"
	"time"

	"github.com/architeacher/devicely/internal/domain/model"
	"github.com/architeacher/devicely/internal/ports"
)

type (
	DevicesService struct {
		repo        ports.DeviceRepository
		now         func() time.Time
		maxPageSize uint
	}

	DevicesServiceOption func(*DevicesService)
)

// WithClock replaces the clock used to stamp createdAt and updatedAt.
func WithClock(now func() time.Time) DevicesServiceOption {
	return func(s *DevicesService) {
		s.now = now
	}
}

// WithMaxPageSize bounds the page size accepted by ListDevices. Zero disables the bound.
func WithMaxPageSize(size uint) DevicesServiceOption {
	return func(s *DevicesService) {
		s.maxPageSize = size
	}
}

func NewDevicesService(repo ports.DeviceRepository, opts ...DevicesServiceOption) *DevicesService {
	s := &DevicesService{
		repo:        repo,
		now:         func() time.Time { return time.Now().UTC() },
		maxPageSize: model.MaxPageSize,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *DevicesService) CreateDevice(ctx context.Context, name, brand string, state model.State) (*model.Device, error) {
	device, err := model.NewDevice(name, brand, state, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, device); err != nil {
		return nil, err
	}

	return device, nil
}

func (s *DevicesService) GetDevice(ctx context.Context, id model.DeviceID) (*model.Device, error) {
	return s.repo.FetchByID(ctx, id)
}

func (s *DevicesService) ListDevices(ctx context.Context, filter model.DeviceFilter) (*model.DeviceList, error) {
	if err := filter.Validate(s.maxPageSize); err != nil {
		return nil, err
	}

	return s.repo.List(ctx, filter)
}

// UpdateDevice applies update to a non-deleted device. Nothing is written when
// the update changes no field.
func (s *DevicesService) UpdateDevice(ctx context.Context, id model.DeviceID, update model.DeviceUpdate) (*model.Device, error) {
	device, err := s.repo.FetchByID(ctx, id)
	if err != nil {
		return nil, err
	}

	changed, err := device.Apply(update, s.now())
	if err != nil {
		return nil, err
	}

	if !changed {
		return device, nil
	}

	if err := s.repo.Update(ctx, device); err != nil {
		return nil, err
	}

	return device, nil
}

func (s *DevicesService) DeleteDevice(ctx context.Context, id model.DeviceID) (*model.Device, error) {
	device, err := s.repo.FetchByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := device.MarkDeleted(s.now()); err != nil {
		return nil, err
	}

	if err := s.repo.SoftDelete(ctx, id, device.UpdatedAt); err != nil {
		return nil, err
	}

	return device, nil
}
