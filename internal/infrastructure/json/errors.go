package json

import (
	"net/http"
	"strconv"
)

// ErrorResponse is the envelope of every non-2xx answer. Field names the
// offending input of a validation failure.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
}

func newErrorResponse(status int, msg string) ErrorResponse {
	return ErrorResponse{Error: http.StatusText(status), Message: msg}
}

func WriteError(w http.ResponseWriter, status int, msg string) {
	Write(w, status, newErrorResponse(status, msg))
}

func WriteFieldError(w http.ResponseWriter, field, msg string) {
	resp := newErrorResponse(http.StatusBadRequest, msg)
	resp.Field = field
	Write(w, http.StatusBadRequest, resp)
}

// WriteValidationError is for malformed bodies and path params, before any domain call.
func WriteValidationError(w http.ResponseWriter, err error) {
	WriteError(w, http.StatusBadRequest, err.Error())
}

// WriteInternalError never echoes the cause; callers log it.
func WriteInternalError(w http.ResponseWriter) {
	WriteError(w, http.StatusInternalServerError, "An unexpected error occurred")
}

func WriteRateLimitError(w http.ResponseWriter, retryAfter int) {
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	}
	WriteError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
}
