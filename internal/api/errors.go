package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/pumpfoilmap/pfm-api/internal/middleware"
	"github.com/pumpfoilmap/pfm-api/internal/moderation"
	"github.com/pumpfoilmap/pfm-api/internal/notify"
	"github.com/pumpfoilmap/pfm-api/internal/spot"
)

// Standard error codes for API responses.
const (
	// ErrCodeInvalidRequest indicates a malformed request.
	ErrCodeInvalidRequest = "invalid_request"

	// ErrCodeValidationFailed indicates a payload that breaks field constraints.
	ErrCodeValidationFailed = "validation_failed"

	// ErrCodeNotFound indicates the spot does not exist.
	ErrCodeNotFound = "not_found"

	// ErrCodeInvalidSecret indicates a captcha token that cannot be opened.
	ErrCodeInvalidSecret = "invalid_secret"

	// ErrCodeNotConfigured indicates a secret or mailbox missing from the configuration.
	ErrCodeNotConfigured = "not_configured"

	// ErrCodeTooLarge indicates a request body over the configured limit.
	ErrCodeTooLarge = "request_too_large"

	// ErrCodeInternalError indicates a server error.
	ErrCodeInternalError = "internal_error"
)

// APIError is the standard error response format.
type APIError struct {
	Error   string       `json:"error"`
	Message string       `json:"message"`
	Issues  []spot.Issue `json:"issues,omitempty"`
}

// WriteError writes a JSON error response with the given status code, error code, and message.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, APIError{Error: code, Message: message})
}

// WriteValidationError writes a 400 listing every invalid field.
func WriteValidationError(w http.ResponseWriter, verr *spot.ValidationError) {
	writeJSON(w, http.StatusBadRequest, APIError{
		Error:   ErrCodeValidationFailed,
		Message: verr.Error(),
		Issues:  verr.Issues,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // Response write errors are unrecoverable
	json.NewEncoder(w).Encode(v)
}

// decodeJSON reads the request body into dst. An empty body leaves dst
// untouched when allowEmpty is set. On failure the response is written and
// false is returned.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}

	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		WriteError(w, http.StatusRequestEntityTooLarge, ErrCodeTooLarge, "Request body too large")
	case errors.Is(err, io.EOF):
		if allowEmpty {
			return true
		}
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Missing request body")
	default:
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON")
	}
	return false
}

// writeServiceError maps moderation errors to HTTP responses. Unexpected
// errors are logged and reported without detail.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *spot.ValidationError
	switch {
	case errors.As(err, &verr):
		WriteValidationError(w, verr)
	case errors.Is(err, moderation.ErrNotFound):
		WriteError(w, http.StatusNotFound, ErrCodeNotFound, "Spot not found")
	case errors.Is(err, moderation.ErrMissingID),
		errors.Is(err, moderation.ErrEmptyPatch),
		errors.Is(err, moderation.ErrInvalidStatus),
		errors.Is(err, spot.ErrInvalidBBox):
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
	case errors.Is(err, notify.ErrNotConfigured):
		WriteError(w, http.StatusInternalServerError, ErrCodeNotConfigured, "ADMIN_MAIL not configured")
	default:
		middleware.Logger(r.Context(), h.logger).Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal server error")
	}
}
