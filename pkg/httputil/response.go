package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	apperrors "github.com/harunzafer/fastsvelte/pkg/errors"
	"github.com/harunzafer/fastsvelte/pkg/logger"
	"github.com/harunzafer/fastsvelte/pkg/validator"
)

// MaxBodyBytes bounds JSON request bodies.
const MaxBodyBytes = 1 << 20

// Response is the standard JSON response envelope.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse represents an error in the standard response format.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes a standardized error response based on the error type.
// Server-side failures (5xx) are logged with the full wrapped error; the client
// only ever sees the code, the public message and the correlation id.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}
	requestID := logger.CorrelationIDFromContext(r.Context())

	status := apperrors.HTTPStatus(err)
	code := "INTERNAL_ERROR"
	message := "an internal error occurred"

	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		code, message = appErr.Code, appErr.Message
	case errors.Is(err, apperrors.ErrNotFound):
		code, message = "RESOURCE_NOT_FOUND", "resource not found"
	case errors.Is(err, apperrors.ErrAlreadyExists):
		code, message = "ALREADY_EXISTS", "resource already exists"
	case errors.Is(err, apperrors.ErrInvalidInput):
		code, message = "INVALID_INPUT", err.Error()
	case errors.Is(err, apperrors.ErrUnauthorized):
		code, message = "UNAUTHORIZED", "authentication required"
	case errors.Is(err, apperrors.ErrForbidden):
		code, message = "ACCESS_DENIED", "access denied"
	}

	if status >= http.StatusInternalServerError {
		l.ErrorContext(r.Context(), "request failed",
			slog.String("code", code),
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}

	WriteJSON(w, status, Response{
		Error: &ErrorResponse{Code: code, Message: message, RequestID: requestID},
	})
}

// WriteValidationError writes a standardized validation error response.
// It handles ValidationError from the validator package and returns field-level errors.
func WriteValidationError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := logger.CorrelationIDFromContext(r.Context())

	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteJSON(w, http.StatusBadRequest, Response{
			Error: &ErrorResponse{
				Code:      "VALIDATION_ERROR",
				Message:   "request validation failed",
				Fields:    valErr.Fields(),
				RequestID: requestID,
			},
		})
		return
	}

	WriteJSON(w, http.StatusBadRequest, Response{
		Error: &ErrorResponse{Code: "INVALID_INPUT", Message: err.Error(), RequestID: requestID},
	})
}

// DecodeJSON reads a size-limited JSON body into dst and validates it.
// On failure it writes the 400 response itself and returns false.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		WriteValidationError(w, r, errors.New("invalid request body"))
		return false
	}
	if err := validator.Validate(dst); err != nil {
		WriteValidationError(w, r, err)
		return false
	}
	return true
}

// ParseID parses a positive integer path parameter. If invalid, it writes a
// 400 response with code INVALID_PARAMETER and returns false.
func ParseID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(param, 10, 64)
	if err != nil || id <= 0 {
		WriteJSON(w, http.StatusBadRequest, Response{
			Error: &ErrorResponse{
				Code:      "INVALID_PARAMETER",
				Message:   "invalid id: " + param,
				RequestID: logger.CorrelationIDFromContext(r.Context()),
			},
		})
		return 0, false
	}
	return id, true
}
