package model

import (
	"errors"
	"strings"
)

var (
	ErrDeviceNotFound          = newCallerError("device not found")
	ErrValidation              = newCallerError("validation failed")
	ErrCannotUpdateInUseDevice = newCallerError("cannot update name or brand of in-use device")
	ErrCannotDeleteInUseDevice = newCallerError("cannot delete in-use device")
	ErrInvalidDeviceID         = newCallerError("invalid device ID")
	ErrInvalidState            = newCallerError("invalid device state")
	ErrInvalidPagination       = newCallerError("invalid pagination")
	ErrDatabaseConnection      = errors.New("database connection error")
	ErrDatabaseQuery           = errors.New("database query error")
)

// callerError is a sentinel for failures caused by the request rather than
// the system. Such errors report Expected() == true.
type callerError struct {
	msg string
}

func newCallerError(msg string) error {
	return &callerError{msg: msg}
}

func (e *callerError) Error() string {
	return e.msg
}

func (e *callerError) Expected() bool {
	return true
}

const (
	CodeRequired          = "REQUIRED"
	CodeInvalidState      = "INVALID_STATE"
	CodeInvalidPagination = "INVALID_PAGINATION"
	CodeDeviceInUse       = "DEVICE_IN_USE"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Err     error  `json:"-"`
}

func (v ValidationError) Error() string {
	if v.Field == "" {
		return v.Message
	}

	return v.Field + ": " + v.Message
}

func (v ValidationError) Unwrap() error {
	return v.Err
}

// ValidationErrors collects rule violations for a single operation. It always
// matches ErrValidation, plus the cause of every collected error.
type ValidationErrors struct {
	Errors []ValidationError
}

func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return ErrValidation.Error()
	}

	msgs := make([]string, 0, len(v.Errors))
	for _, e := range v.Errors {
		msgs = append(msgs, e.Error())
	}

	return strings.Join(msgs, "; ")
}

func (v *ValidationErrors) Unwrap() []error {
	errs := make([]error, 0, len(v.Errors)+1)
	errs = append(errs, ErrValidation)

	for _, e := range v.Errors {
		errs = append(errs, e)
	}

	return errs
}

func (v *ValidationErrors) Add(field, message, code string) {
	v.AddCause(field, message, code, nil)
}

func (v *ValidationErrors) AddCause(field, message, code string, cause error) {
	v.Errors = append(v.Errors, ValidationError{
		Field:   field,
		Message: message,
		Code:    code,
		Err:     cause,
	})
}

func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// HasCode reports whether any collected error carries the given code.
func (v *ValidationErrors) HasCode(code string) bool {
	for _, e := range v.Errors {
		if e.Code == code {
			return true
		}
	}

	return false
}

// OrNil returns v when it holds errors, nil otherwise.
func (v *ValidationErrors) OrNil() error {
	if !v.HasErrors() {
		return nil
	}

	return v
}

func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors: make([]ValidationError, 0),
	}
}

func NewValidationError(field, message, code string, cause error) *ValidationErrors {
	v := NewValidationErrors()
	v.AddCause(field, message, code, cause)

	return v
}
