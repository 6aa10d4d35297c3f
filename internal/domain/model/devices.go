package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type DeviceID int64

func ParseDeviceID(s string) (DeviceID, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDeviceID, s)
	}

	return DeviceID(id), nil
}

func (d DeviceID) String() string {
	return strconv.FormatInt(int64(d), 10)
}

func (d DeviceID) IsZero() bool {
	return d == 0
}

type Device struct {
	ID        DeviceID
	Name      string
	Brand     string
	State     State
	CreatedAt time.Time
	UpdatedAt time.Time
	IsDeleted bool
}

// NewDevice validates the input and returns an unsaved device. The identity
// is assigned by the store.
func NewDevice(name, brand string, state State, now time.Time) (*Device, error) {
	name = strings.TrimSpace(name)
	brand = strings.TrimSpace(brand)

	verr := NewValidationErrors()

	if name == "" {
		verr.Add("name", "name is required", CodeRequired)
	}

	if brand == "" {
		verr.Add("brand", "brand is required", CodeRequired)
	}

	if !state.IsValid() {
		verr.AddCause("state", fmt.Sprintf("state %d is not one of 1, 2, 3", int(state)), CodeInvalidState, ErrInvalidState)
	}

	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	return &Device{
		Name:      name,
		Brand:     brand,
		State:     state,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (d *Device) CanUpdateNameAndBrand() bool {
	return d.State != StateInUse
}

func (d *Device) CanDelete() bool {
	return d.State != StateInUse
}

// DeviceUpdate carries the fields of a partial update. Name and Brand only
// take effect when non-empty; State only when set.
type DeviceUpdate struct {
	Name  Optional[string]
	Brand Optional[string]
	State Optional[State]
}

func (u DeviceUpdate) name() string {
	return strings.TrimSpace(u.Name.OrElse(""))
}

func (u DeviceUpdate) brand() string {
	return strings.TrimSpace(u.Brand.OrElse(""))
}

// Apply mutates d according to u. It reports whether any field changed;
// UpdatedAt is only refreshed when something did.
func (d *Device) Apply(u DeviceUpdate, now time.Time) (bool, error) {
	name, brand := u.name(), u.brand()

	if !d.CanUpdateNameAndBrand() && (name != "" || brand != "") {
		return false, NewValidationError(
			"state",
			"name and brand cannot be changed while the device is in use",
			CodeDeviceInUse,
			ErrCannotUpdateInUseDevice,
		)
	}

	state, applyState := u.State.Get()
	if applyState && !state.IsValid() {
		return false, NewValidationError(
			"state",
			fmt.Sprintf("state %d is not one of 1, 2, 3", int(state)),
			CodeInvalidState,
			ErrInvalidState,
		)
	}

	changed := false

	if name != "" && name != d.Name {
		d.Name = name
		changed = true
	}

	if brand != "" && brand != d.Brand {
		d.Brand = brand
		changed = true
	}

	if applyState && state != d.State {
		d.State = state
		changed = true
	}

	if changed {
		d.UpdatedAt = now
	}

	return changed, nil
}

// MarkDeleted flags the device as soft-deleted.
func (d *Device) MarkDeleted(now time.Time) error {
	if d.IsDeleted {
		return ErrDeviceNotFound
	}

	if !d.CanDelete() {
		return NewValidationError(
			"state",
			"an in-use device cannot be deleted",
			CodeDeviceInUse,
			ErrCannotDeleteInUseDevice,
		)
	}

	d.IsDeleted = true
	d.UpdatedAt = now

	return nil
}

type DeviceFilter struct {
	Brand Optional[string]
	State Optional[State]
	Page  uint
	Size  uint
}

const (
	DefaultPage     uint = 1
	DefaultPageSize uint = 10
	MaxPageSize     uint = 100
)

func DefaultDeviceFilter() DeviceFilter {
	return DeviceFilter{
		Page: DefaultPage,
		Size: DefaultPageSize,
	}
}

// Validate checks paging bounds and the state filter. maxSize of zero disables
// the upper bound.
func (f DeviceFilter) Validate(maxSize uint) error {
	verr := NewValidationErrors()

	if f.Page < 1 {
		verr.AddCause("pageNumber", "page number must be at least 1", CodeInvalidPagination, ErrInvalidPagination)
	}

	if f.Size < 1 {
		verr.AddCause("pageSize", "page size must be at least 1", CodeInvalidPagination, ErrInvalidPagination)
	} else if maxSize > 0 && f.Size > maxSize {
		verr.AddCause("pageSize", fmt.Sprintf("page size must not exceed %d", maxSize), CodeInvalidPagination, ErrInvalidPagination)
	}

	if state, ok := f.State.Get(); ok && !state.IsValid() {
		verr.AddCause("state", fmt.Sprintf("state %d is not one of 1, 2, 3", int(state)), CodeInvalidState, ErrInvalidState)
	}

	return verr.OrNil()
}

type Pagination struct {
	Page        uint
	Size        uint
	TotalItems  uint
	TotalPages  uint
	HasNext     bool
	HasPrevious bool
}

func NewPagination(page, size, totalItems uint) Pagination {
	var totalPages uint
	if size > 0 {
		totalPages = (totalItems + size - 1) / size
	}

	return Pagination{
		Page:        page,
		Size:        size,
		TotalItems:  totalItems,
		TotalPages:  totalPages,
		HasNext:     page < totalPages,
		HasPrevious: page > 1,
	}
}

type DeviceList struct {
	Devices    []*Device
	Pagination Pagination
	Filters    DeviceFilter
}
