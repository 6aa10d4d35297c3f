package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/architeacher/devicely/internal/adapters/inbound/http/handlers/shared"
	"github.com/architeacher/devicely/internal/config"
	"github.com/architeacher/devicely/internal/domain/model"
	"github.com/architeacher/devicely/internal/usecases"
	"github.com/architeacher/devicely/internal/usecases/commands"
	"github.com/architeacher/devicely/internal/usecases/queries"
	"github.com/go-chi/chi/v5"
)

const (
	DevicesPath = "/api/devices"

	paramID = "id"

	queryBrand      = "brand"
	queryState      = "state"
	queryPageSize   = "pageSize"
	queryPageNumber = "pageNumber"

	maxBodyBytes = 1 << 20
)

type (
	deviceData struct {
		ID        model.DeviceID `json:"id"`
		Name      string         `json:"name"`
		Brand     string         `json:"brand"`
		State     model.State    `json:"state"`
		CreatedAt time.Time      `json:"createdAt"`
		UpdatedAt time.Time      `json:"updatedAt"`
	}

	deviceResponse struct {
		Data deviceData `json:"data"`
	}

	paginationData struct {
		Page        uint `json:"page"`
		Size        uint `json:"size"`
		TotalItems  uint `json:"totalItems"`
		TotalPages  uint `json:"totalPages"`
		HasNext     bool `json:"hasNext"`
		HasPrevious bool `json:"hasPrevious"`
	}

	filtersData struct {
		Brand *string      `json:"brand,omitempty"`
		State *model.State `json:"state,omitempty"`
	}

	deviceListResponse struct {
		Data       []deviceData   `json:"data"`
		Pagination paginationData `json:"pagination"`
		Filters    filtersData    `json:"filters"`
	}

	createDeviceRequest struct {
		Name  string                      `json:"name"`
		Brand string                      `json:"brand"`
		State model.Optional[model.State] `json:"state"`
	}

	// updateDeviceRequest leaves absent fields untouched. Empty name or brand
	// values are ignored as well.
	updateDeviceRequest struct {
		Name  model.Optional[string]      `json:"name"`
		Brand model.Optional[string]      `json:"brand"`
		State model.Optional[model.State] `json:"state"`
	}

	DevicesHandler struct {
		app        *usecases.Application
		pagination config.Pagination
	}
)

func NewDevicesHandler(app *usecases.Application, pagination config.Pagination) *DevicesHandler {
	return &DevicesHandler{
		app:        app,
		pagination: pagination,
	}
}

// Routes mounts the device endpoints on r.
func (h *DevicesHandler) Routes(r chi.Router) {
	r.Get("/", h.ListDevices)
	r.Post("/", h.CreateDevice)
	r.Get("/{id}", h.GetDevice)
	r.Put("/{id}", h.UpdateDevice)
	r.Delete("/{id}", h.DeleteDevice)
}

func (h *DevicesHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	filter, err := h.parseFilter(r.URL.Query())
	if err != nil {
		writeDomainError(w, err)

		return
	}

	result, err := h.app.Queries.ListDevices.Execute(r.Context(), queries.ListDevicesQuery{Filter: filter})
	if err != nil {
		writeDomainError(w, err)

		return
	}

	shared.WriteJSON(w, http.StatusOK, toDeviceListResponse(result))
}

func (h *DevicesHandler) GetDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceIDParam(w, r)
	if !ok {
		return
	}

	device, err := h.app.Queries.GetDevice.Execute(r.Context(), queries.GetDeviceQuery{ID: id})
	if err != nil {
		writeDomainError(w, err)

		return
	}

	shared.WriteJSON(w, http.StatusOK, deviceResponse{Data: toDeviceData(device)})
}

func (h *DevicesHandler) CreateDevice(w http.ResponseWriter, r *http.Request) {
	var req createDeviceRequest
	if !decodeBody(w, r, &req) {
		return
	}

	state, ok := req.State.Get()
	if !ok {
		writeDomainError(w, model.NewValidationError("state", "state is required", model.CodeRequired, nil))

		return
	}

	device, err := h.app.Commands.CreateDevice.Handle(r.Context(), commands.CreateDeviceCommand{
		Name:  req.Name,
		Brand: req.Brand,
		State: state,
	})
	if err != nil {
		writeDomainError(w, err)

		return
	}

	w.Header().Set(shared.HeaderLocation, fmt.Sprintf("%s/%s", DevicesPath, device.ID))
	shared.WriteJSON(w, http.StatusCreated, deviceResponse{Data: toDeviceData(device)})
}

func (h *DevicesHandler) UpdateDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceIDParam(w, r)
	if !ok {
		return
	}

	var req updateDeviceRequest
	if !decodeBody(w, r, &req) {
		return
	}

	device, err := h.app.Commands.UpdateDevice.Handle(r.Context(), commands.UpdateDeviceCommand{
		ID: id,
		Update: model.DeviceUpdate{
			Name:  req.Name,
			Brand: req.Brand,
			State: req.State,
		},
	})
	if err != nil {
		writeDomainError(w, err)

		return
	}

	shared.WriteJSON(w, http.StatusOK, deviceResponse{Data: toDeviceData(device)})
}

func (h *DevicesHandler) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceIDParam(w, r)
	if !ok {
		return
	}

	if _, err := h.app.Commands.DeleteDevice.Handle(r.Context(), commands.DeleteDeviceCommand{ID: id}); err != nil {
		writeDomainError(w, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *DevicesHandler) parseFilter(query url.Values) (model.DeviceFilter, error) {
	filter := model.DeviceFilter{
		Page: h.pagination.DefaultPageNumber,
		Size: h.pagination.DefaultPageSize,
	}

	verr := model.NewValidationErrors()

	if brand := strings.TrimSpace(query.Get(queryBrand)); brand != "" {
		filter.Brand = model.Some(brand)
	}

	if raw := query.Get(queryState); raw != "" {
		state, err := model.ParseState(raw)
		if err != nil {
			verr.AddCause(queryState, fmt.Sprintf("unknown state %q", raw), model.CodeInvalidState, model.ErrInvalidState)
		} else {
			filter.State = model.Some(state)
		}
	}

	parseUintParam(query, queryPageSize, &filter.Size, verr)
	parseUintParam(query, queryPageNumber, &filter.Page, verr)

	return filter, verr.OrNil()
}

func parseUintParam(query url.Values, name string, dst *uint, verr *model.ValidationErrors) {
	raw := query.Get(name)
	if raw == "" {
		return
	}

	value, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		verr.AddCause(name, name+" must be a positive integer", model.CodeInvalidPagination, model.ErrInvalidPagination)

		return
	}

	*dst = uint(value)
}

func deviceIDParam(w http.ResponseWriter, r *http.Request) (model.DeviceID, bool) {
	id, err := model.ParseDeviceID(chi.URLParam(r, paramID))
	if err != nil {
		writeDomainError(w, err)

		return 0, false
	}

	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))

	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, model.ErrInvalidState) {
			writeDomainError(w, model.NewValidationError(queryState, err.Error(), model.CodeInvalidState, model.ErrInvalidState))

			return false
		}

		shared.WriteError(w, http.StatusBadRequest, shared.CodeInvalidJSON, msgInvalidRequestBody)

		return false
	}

	return true
}

func toDeviceData(device *model.Device) deviceData {
	return deviceData{
		ID:        device.ID,
		Name:      device.Name,
		Brand:     device.Brand,
		State:     device.State,
		CreatedAt: device.CreatedAt.UTC(),
		UpdatedAt: device.UpdatedAt.UTC(),
	}
}

func toDeviceListResponse(list *model.DeviceList) deviceListResponse {
	data := make([]deviceData, 0, len(list.Devices))
	for _, device := range list.Devices {
		data = append(data, toDeviceData(device))
	}

	var filters filtersData
	if brand, ok := list.Filters.Brand.Get(); ok {
		filters.Brand = &brand
	}

	if state, ok := list.Filters.State.Get(); ok {
		filters.State = &state
	}

	return deviceListResponse{
		Data: data,
		Pagination: paginationData{
			Page:        list.Pagination.Page,
			Size:        list.Pagination.Size,
			TotalItems:  list.Pagination.TotalItems,
			TotalPages:  list.Pagination.TotalPages,
			HasNext:     list.Pagination.HasNext,
			HasPrevious: list.Pagination.HasPrevious,
		},
		Filters: filters,
	}
}
