// Package http provides the JSON API server and its handlers.
//
// This file implements the builder used by every handler to write JSON
// responses and to map service errors onto status codes.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"spendlens/internal/aggregate"
	"spendlens/internal/auth"
	"spendlens/internal/core"
	"spendlens/internal/log"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	payload    any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Payload sets the value encoded as the response body.
func (b *JSONResponseBuilder) Payload(v any) *JSONResponseBuilder {
	b.payload = v
	return b
}

// Message sets a {"message": ...} body.
func (b *JSONResponseBuilder) Message(msg string) *JSONResponseBuilder {
	return b.Payload(map[string]string{"message": msg})
}

// Error sets an {"error": ...} body.
func (b *JSONResponseBuilder) Error(msg string) *JSONResponseBuilder {
	return b.Payload(map[string]string{"error": msg})
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.payload == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.payload)
}

// ErrorResponse creates a standard {"error": ...} response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Error(message)
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// UnauthorizedError creates a 401 Unauthorized error response.
func UnauthorizedError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

var validationErrors = []error{
	core.ErrInvalidAmount,
	core.ErrInvalidCategory,
	core.ErrMissingDate,
	core.ErrDescriptionTooLong,
	core.ErrInvalidEmail,
	core.ErrEmptyName,
	core.ErrWeakPassword,
	aggregate.ErrUnknownGranularity,
	errInvalidDate,
	errInvalidTimezone,
	errInvalidBody,
	errInvalidQuery,
}

// ServiceError maps err onto a status code and a client-safe message.
// Internal errors are logged and reported generically.
func ServiceError(r *http.Request, err error) *JSONResponseBuilder {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return BadRequestError(err.Error())
		}
	}

	switch {
	case errors.Is(err, core.ErrExpenseNotFound):
		return NotFoundError("Expense not found")
	case errors.Is(err, core.ErrUserNotFound):
		return NotFoundError("User not found")
	case errors.Is(err, core.ErrNotFound):
		return NotFoundError("Not found")
	case errors.Is(err, core.ErrEmailTaken):
		return ErrorResponse(http.StatusConflict, "Email already registered")
	case errors.Is(err, core.ErrInvalidCredentials):
		return UnauthorizedError("Invalid credentials")
	case errors.Is(err, auth.ErrOTPRequired):
		return UnauthorizedError("Two-factor code required")
	case errors.Is(err, auth.ErrInvalidOTP):
		return UnauthorizedError("Invalid two-factor code")
	}

	log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
		log.FieldError, err.Error(),
		log.FieldPath, r.URL.Path,
		log.FieldErrorType, log.ErrorTypeInternal)
	return InternalServerError("Internal server error")
}
