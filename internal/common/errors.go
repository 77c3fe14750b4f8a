package common

import (
	"errors"
	"net/http"
)

// AppError is a domain error that already knows its HTTP presentation.
// Services return them (usually as package-level sentinels) and handlers
// surface them through WriteAppError without per-handler mapping tables.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
}

func (e *AppError) Error() string { return e.Message }

// NewAppError builds an AppError. Status defaults to 400 when out of range.
func NewAppError(code, message string, status int) *AppError {
	if status < 400 || status > 599 {
		status = http.StatusBadRequest
	}
	return &AppError{Code: code, Message: message, HTTPStatus: status}
}

// Shared sentinels used across domains.
var (
	ErrNotFound     = NewAppError("NOT_FOUND", "resource not found", http.StatusNotFound)
	ErrInvalidInput = NewAppError("INVALID_INPUT", "invalid input", http.StatusUnprocessableEntity)
	ErrUnauthorized = NewAppError("UNAUTHORIZED", "unauthorized", http.StatusUnauthorized)
)

// WriteAppError renders err if it is (or wraps) an AppError, otherwise a
// generic 500. Returns true when the error was an AppError, so callers can
// decide whether to log at error level.
func WriteAppError(w http.ResponseWriter, err error) bool {
	var app *AppError
	if errors.As(err, &app) {
		JSONError(w, app.HTTPStatus, app.Code, app.Message, nil)
		return true
	}
	JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal server error", nil)
	return false
}
