package shared

import (
	"encoding/json"
	"net/http"
	"time"
)

const (
	HeaderContentType = "Content-Type"
	HeaderLocation    = "Location"
	HeaderETag        = "ETag"
	HeaderIfNoneMatch = "If-None-Match"
	HeaderRetryAfter  = "Retry-After"

	ApplicationJSON = "application/json"
)

const (
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeInvalidID          = "INVALID_ID"
	CodeInvalidJSON        = "INVALID_JSON"
	CodeInternalError      = "INTERNAL_ERROR"
	CodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"

	CodeInvalidIdempotencyKey = "INVALID_IDEMPOTENCY_KEY"
	CodeIdempotencyKeyReused  = "IDEMPOTENCY_KEY_REUSED"
	CodeRequestInProgress     = "REQUEST_IN_PROGRESS"
)

type (
	// FieldError describes a single rejected input field.
	FieldError struct {
		Field   string `json:"field"`
		Message string `json:"message"`
		Code    string `json:"code"`
	}

	ErrorResponse struct {
		Code      string       `json:"code"`
		Message   string       `json:"message"`
		Timestamp time.Time    `json:"timestamp"`
		Errors    []FieldError `json:"errors,omitempty"`
	}
)

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set(HeaderContentType, ApplicationJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func WriteError(w http.ResponseWriter, status int, code, message string, fieldErrors ...FieldError) {
	WriteJSON(w, status, ErrorResponse{
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
		Errors:    fieldErrors,
	})
}
