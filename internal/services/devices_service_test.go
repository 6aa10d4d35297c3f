package services_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/architeacher/devicely/internal/domain/model"
	"github.com/architeacher/devicely/internal/services"
	"github.com/stretchr/testify/require"
)

var errStoreDown = errors.New("store down")

// memoryRepository honours the repository contract: every read and write skips
// soft-deleted rows.
type memoryRepository struct {
	mu      sync.Mutex
	nextID  model.DeviceID
	devices map[model.DeviceID]model.Device
	writes  int
	failErr error
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		nextID:  1,
		devices: make(map[model.DeviceID]model.Device),
	}
}

func (r *memoryRepository) seed(device model.Device) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.devices[device.ID] = device
	if device.ID >= r.nextID {
		r.nextID = device.ID + 1
	}
}

func (r *memoryRepository) Create(_ context.Context, device *model.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failErr != nil {
		return r.failErr
	}

	device.ID = r.nextID
	r.nextID++
	r.devices[device.ID] = *device
	r.writes++

	return nil
}

func (r *memoryRepository) FetchByID(_ context.Context, id model.DeviceID) (*model.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failErr != nil {
		return nil, r.failErr
	}

	device, ok := r.devices[id]
	if !ok || device.IsDeleted {
		return nil, model.ErrDeviceNotFound
	}

	return &device, nil
}

func (r *memoryRepository) List(_ context.Context, filter model.DeviceFilter) (*model.DeviceList, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failErr != nil {
		return nil, r.failErr
	}

	matches := make([]*model.Device, 0)

	for _, d := range r.devices {
		if d.IsDeleted {
			continue
		}

		if brand, ok := filter.Brand.Get(); ok && brand != "" && d.Brand != brand {
			continue
		}

		if state, ok := filter.State.Get(); ok && d.State != state {
			continue
		}

		device := d
		matches = append(matches, &device)
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })

	total := uint(len(matches))
	offset := (filter.Page - 1) * filter.Size
	page := make([]*model.Device, 0)

	if offset < total {
		end := min(offset+filter.Size, total)
		page = matches[offset:end]
	}

	return &model.DeviceList{
		Devices:    page,
		Pagination: model.NewPagination(filter.Page, filter.Size, total),
		Filters:    filter,
	}, nil
}

func (r *memoryRepository) Update(_ context.Context, device *model.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.devices[device.ID]
	if !ok || current.IsDeleted {
		return model.ErrDeviceNotFound
	}

	current.Name, current.Brand, current.State, current.UpdatedAt = device.Name, device.Brand, device.State, device.UpdatedAt
	r.devices[device.ID] = current
	r.writes++

	return nil
}

func (r *memoryRepository) SoftDelete(_ context.Context, id model.DeviceID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.devices[id]
	if !ok || current.IsDeleted {
		return model.ErrDeviceNotFound
	}

	current.IsDeleted = true
	current.UpdatedAt = at
	r.devices[id] = current
	r.writes++

	return nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

func newService(t *testing.T) (*services.DevicesService, *memoryRepository, *fakeClock) {
	t.Helper()

	repo := newMemoryRepository()
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}

	return services.NewDevicesService(repo, services.WithClock(clock.Now)), repo, clock
}

// seedTenDevices stores ids 1-10 with brands A/B/C cyclically, states cycling
// through in-use/available/inactive, and id 3 deleted.
func seedTenDevices(repo *memoryRepository) {
	brands := []string{"Brand A", "Brand B", "Brand C"}
	states := []model.State{model.StateInUse, model.StateAvailable, model.StateInactive}
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 1; i <= 10; i++ {
		repo.seed(model.Device{
			ID:        model.DeviceID(i),
			Name:      fmt.Sprintf("Device %d", i),
			Brand:     brands[(i-1)%3],
			State:     states[(i-1)%3],
			CreatedAt: created,
			UpdatedAt: created,
			IsDeleted: i == 3,
		})
	}
}

func ids(list *model.DeviceList) []model.DeviceID {
	out := make([]model.DeviceID, 0, len(list.Devices))
	for _, d := range list.Devices {
		out = append(out, d.ID)
	}

	return out
}

func TestDevicesService_ListDevices_SeededScenario(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		filter      model.DeviceFilter
		expectIDs   []model.DeviceID
		expectTotal uint
	}{
		{
			name:        "all non-deleted devices ordered by id",
			filter:      model.DeviceFilter{Page: 1, Size: 20},
			expectIDs:   []model.DeviceID{1, 2, 4, 5, 6, 7, 8, 9, 10},
			expectTotal: 9,
		},
		{
			name:        "brand filter",
			filter:      model.DeviceFilter{Brand: model.Some("Brand A"), Page: 1, Size: 10},
			expectIDs:   []model.DeviceID{1, 4, 7, 10},
			expectTotal: 4,
		},
		{
			name:        "brand filter skips the deleted device",
			filter:      model.DeviceFilter{Brand: model.Some("Brand C"), Page: 1, Size: 10},
			expectIDs:   []model.DeviceID{6, 9},
			expectTotal: 2,
		},
		{
			name:        "state filter",
			filter:      model.DeviceFilter{State: model.Some(model.StateInUse), Page: 1, Size: 10},
			expectIDs:   []model.DeviceID{1, 4, 7, 10},
			expectTotal: 4,
		},
		{
			name:        "state filter excluding deleted inactive device",
			filter:      model.DeviceFilter{State: model.Some(model.StateInactive), Page: 1, Size: 10},
			expectIDs:   []model.DeviceID{6, 9},
			expectTotal: 2,
		},
		{
			name:        "single item page",
			filter:      model.DeviceFilter{Page: 1, Size: 1},
			expectIDs:   []model.DeviceID{1},
			expectTotal: 9,
		},
		{
			name:        "second page",
			filter:      model.DeviceFilter{Page: 2, Size: 4},
			expectIDs:   []model.DeviceID{6, 7, 8, 9},
			expectTotal: 9,
		},
		{
			name:        "page beyond the end is empty",
			filter:      model.DeviceFilter{Page: 5, Size: 4},
			expectIDs:   []model.DeviceID{},
			expectTotal: 9,
		},
		{
			name:        "no match is empty, not an error",
			filter:      model.DeviceFilter{Brand: model.Some("Brand Z"), Page: 1, Size: 10},
			expectIDs:   []model.DeviceID{},
			expectTotal: 0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc, repo, _ := newService(t)
			seedTenDevices(repo)

			list, err := svc.ListDevices(context.Background(), tc.filter)
			require.NoError(t, err)
			require.Equal(t, tc.expectIDs, ids(list))
			require.Equal(t, tc.expectTotal, list.Pagination.TotalItems)

			for _, d := range list.Devices {
				require.False(t, d.IsDeleted)
			}
		})
	}
}

func TestDevicesService_ListDevices_Validation(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t)

	_, err := svc.ListDevices(context.Background(), model.DeviceFilter{Page: 0, Size: 10})
	require.ErrorIs(t, err, model.ErrValidation)

	_, err = svc.ListDevices(context.Background(), model.DeviceFilter{Page: 1, Size: 0})
	require.ErrorIs(t, err, model.ErrInvalidPagination)

	bounded := services.NewDevicesService(newMemoryRepository(), services.WithMaxPageSize(5))
	_, err = bounded.ListDevices(context.Background(), model.DeviceFilter{Page: 1, Size: 6})
	require.ErrorIs(t, err, model.ErrValidation)
}

func TestDevicesService_CreateDevice(t *testing.T) {
	t.Parallel()

	svc, repo, clock := newService(t)

	device, err := svc.CreateDevice(context.Background(), "Pixel 9", "Google", model.StateAvailable)
	require.NoError(t, err)
	require.Equal(t, model.DeviceID(1), device.ID)
	require.Equal(t, clock.Now(), device.CreatedAt)
	require.Equal(t, device.CreatedAt, device.UpdatedAt)
	require.False(t, device.IsDeleted)

	stored, err := repo.FetchByID(context.Background(), device.ID)
	require.NoError(t, err)
	require.Equal(t, *device, *stored)

	_, err = svc.CreateDevice(context.Background(), "", "Google", model.StateAvailable)
	require.ErrorIs(t, err, model.ErrValidation)
	require.Equal(t, 1, repo.writes)
}

func TestDevicesService_GetDevice(t *testing.T) {
	t.Parallel()

	svc, repo, _ := newService(t)
	seedTenDevices(repo)

	device, err := svc.GetDevice(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, "Brand B", device.Brand)

	_, err = svc.GetDevice(context.Background(), 3)
	require.ErrorIs(t, err, model.ErrDeviceNotFound)

	_, err = svc.GetDevice(context.Background(), 99)
	require.ErrorIs(t, err, model.ErrDeviceNotFound)
}

func TestDevicesService_UpdateDevice(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name          string
		id            model.DeviceID
		update        model.DeviceUpdate
		expectErr     error
		expectUpdated bool
		expectName    string
		expectState   model.State
	}{
		{
			name:      "in-use device rejects a name change",
			id:        1,
			update:    model.DeviceUpdate{Name: model.Some("Renamed")},
			expectErr: model.ErrCannotUpdateInUseDevice,
		},
		{
			name:      "in-use device rejects a brand change",
			id:        1,
			update:    model.DeviceUpdate{Brand: model.Some("Brand Z")},
			expectErr: model.ErrValidation,
		},
		{
			name:          "in-use device accepts a state-only change",
			id:            1,
			update:        model.DeviceUpdate{State: model.Some(model.StateAvailable)},
			expectUpdated: true,
			expectName:    "Device 1",
			expectState:   model.StateAvailable,
		},
		{
			name:          "available device is renamed",
			id:            2,
			update:        model.DeviceUpdate{Name: model.Some("Renamed")},
			expectUpdated: true,
			expectName:    "Renamed",
			expectState:   model.StateAvailable,
		},
		{
			name:          "no change leaves the record untouched",
			id:            2,
			update:        model.DeviceUpdate{Name: model.Some("Device 2"), State: model.Some(model.StateAvailable)},
			expectUpdated: false,
			expectName:    "Device 2",
			expectState:   model.StateAvailable,
		},
		{
			name:          "omitted state is not applied",
			id:            6,
			update:        model.DeviceUpdate{Name: model.Some("")},
			expectUpdated: false,
			expectName:    "Device 6",
			expectState:   model.StateInactive,
		},
		{
			name:      "deleted device is not found",
			id:        3,
			update:    model.DeviceUpdate{Name: model.Some("Renamed")},
			expectErr: model.ErrDeviceNotFound,
		},
		{
			name:      "absent device is not found",
			id:        42,
			update:    model.DeviceUpdate{Name: model.Some("Renamed")},
			expectErr: model.ErrDeviceNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc, repo, clock := newService(t)
			seedTenDevices(repo)
			clock.Advance(time.Minute)

			device, err := svc.UpdateDevice(context.Background(), tc.id, tc.update)

			if tc.expectErr != nil {
				require.ErrorIs(t, err, tc.expectErr)
				require.Nil(t, device)
				require.Zero(t, repo.writes)

				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.expectName, device.Name)
			require.Equal(t, tc.expectState, device.State)

			if tc.expectUpdated {
				require.Equal(t, clock.Now(), device.UpdatedAt)
				require.NotEqual(t, device.CreatedAt, device.UpdatedAt)
				require.Equal(t, 1, repo.writes)
			} else {
				require.Equal(t, device.CreatedAt, device.UpdatedAt)
				require.Zero(t, repo.writes)
			}

			stored, err := repo.FetchByID(context.Background(), tc.id)
			require.NoError(t, err)
			require.Equal(t, *device, *stored)
		})
	}
}

func TestDevicesService_DeleteDevice(t *testing.T) {
	t.Parallel()

	svc, repo, clock := newService(t)
	seedTenDevices(repo)
	clock.Advance(time.Hour)

	device, err := svc.DeleteDevice(context.Background(), 2)
	require.NoError(t, err)
	require.True(t, device.IsDeleted)
	require.Equal(t, clock.Now(), device.UpdatedAt)

	_, err = svc.GetDevice(context.Background(), 2)
	require.ErrorIs(t, err, model.ErrDeviceNotFound)

	_, err = svc.DeleteDevice(context.Background(), 2)
	require.ErrorIs(t, err, model.ErrDeviceNotFound, "second delete is not found")

	_, err = svc.DeleteDevice(context.Background(), 3)
	require.ErrorIs(t, err, model.ErrDeviceNotFound, "pre-deleted device is not found")

	_, err = svc.DeleteDevice(context.Background(), 77)
	require.ErrorIs(t, err, model.ErrDeviceNotFound)

	_, err = svc.DeleteDevice(context.Background(), 1)
	require.ErrorIs(t, err, model.ErrCannotDeleteInUseDevice)
	require.ErrorIs(t, err, model.ErrValidation)

	list, err := svc.ListDevices(context.Background(), model.DeviceFilter{Page: 1, Size: 20})
	require.NoError(t, err)
	require.NotContains(t, ids(list), model.DeviceID(2))
}

func TestDevicesService_StoreFailurePropagates(t *testing.T) {
	t.Parallel()

	svc, repo, _ := newService(t)
	repo.failErr = fmt.Errorf("%w: %v", model.ErrDatabaseQuery, errStoreDown)

	_, err := svc.GetDevice(context.Background(), 1)
	require.ErrorIs(t, err, model.ErrDatabaseQuery)

	_, err = svc.CreateDevice(context.Background(), "Pixel", "Google", model.StateAvailable)
	require.ErrorIs(t, err, model.ErrDatabaseQuery)

	_, err = svc.ListDevices(context.Background(), model.DefaultDeviceFilter())
	require.ErrorIs(t, err, model.ErrDatabaseQuery)
}
