package handlers

import (
	"errors"
	"net/http"

	"github.com/architeacher/devicely/internal/adapters/inbound/http/handlers/shared"
	"github.com/architeacher/devicely/internal/domain/model"
)

const (
	msgDeviceNotFound     = "device not found"
	msgInvalidDeviceID    = "invalid device ID"
	msgInvalidRequestBody = "invalid request body"
	msgValidationFailed   = "request validation failed"
	msgDeviceInUse        = "device is in use"
	msgInternalError      = "internal server error"
)

// writeDomainError maps service errors to status codes: unknown ids to 404,
// in-use rule violations to 409, other validation failures to 400 and
// everything else to 500.
func writeDomainError(w http.ResponseWriter, err error) {
	var verr *model.ValidationErrors

	switch {
	case errors.Is(err, model.ErrDeviceNotFound):
		shared.WriteError(w, http.StatusNotFound, shared.CodeNotFound, msgDeviceNotFound)

	case errors.As(err, &verr):
		if verr.HasCode(model.CodeDeviceInUse) {
			shared.WriteError(w, http.StatusConflict, shared.CodeConflict, msgDeviceInUse, toFieldErrors(verr)...)

			return
		}

		shared.WriteError(w, http.StatusBadRequest, shared.CodeValidationFailed, msgValidationFailed, toFieldErrors(verr)...)

	case errors.Is(err, model.ErrInvalidDeviceID):
		shared.WriteError(w, http.StatusBadRequest, shared.CodeInvalidID, msgInvalidDeviceID)

	default:
		shared.WriteError(w, http.StatusInternalServerError, shared.CodeInternalError, msgInternalError)
	}
}

func toFieldErrors(verr *model.ValidationErrors) []shared.FieldError {
	fieldErrors := make([]shared.FieldError, 0, len(verr.Errors))

	for _, e := range verr.Errors {
		fieldErrors = append(fieldErrors, shared.FieldError{
			Field:   e.Field,
			Message: e.Message,
			Code:    e.Code,
		})
	}

	return fieldErrors
}
