package http

import (
	"fmt"
	"net/http"
)

// Error codes shared by every handler. Chart-specific codes live with the
// chart handlers.
const (
	CodeNotFound       = "ERR_NOT_FOUND"
	CodeInvalidTime    = "ERR_INVALID_TIME"
	CodeRateLimited    = "ERR_RATE_LIMITED"
	CodeUnavailable    = "ERR_UNAVAILABLE"
	CodeNotImplemented = "ERR_NOT_IMPLEMENTED"
	CodeHTTP           = "ERR_HTTP"
)

// AppError is an error with the HTTP status and code it is reported with.
// Params carry request values worth echoing back to the client.
type AppError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Field   string                 `json:"field,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Status  int                    `json:"-"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(code, field, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Field:   field,
		Status:  status,
	}
}

// WithParam sets a single error param.
func (e *AppError) WithParam(key string, value interface{}) *AppError {
	if e.Params == nil {
		e.Params = make(map[string]interface{})
	}
	e.Params[key] = value
	return e
}

// WithError attaches the cause. It is logged, never sent.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

func NotFoundErrorf(format string, a ...interface{}) *AppError {
	return NewAppError(CodeNotFound, "", fmt.Sprintf(format, a...), http.StatusNotFound)
}

// InvalidTimeError rejects a time parameter that is neither RFC3339 nor
// unix seconds.
func InvalidTimeError(field, value string) *AppError {
	return NewAppError(CodeInvalidTime, field, "expected RFC3339 or unix seconds", http.StatusBadRequest).
		WithParam("value", value)
}

// UnprocessableError creates a 422 error for requests that are well formed
// but cannot produce a chart.
func UnprocessableError(code, message string) *AppError {
	return NewAppError(code, "", message, http.StatusUnprocessableEntity)
}

func TooManyRequestsError() *AppError {
	return NewAppError(CodeRateLimited, "", "too many requests", http.StatusTooManyRequests)
}

// UnavailableError reports a dependency that failed; the cause stays server side.
func UnavailableError(message string, err error) *AppError {
	return NewAppError(CodeUnavailable, "", message, http.StatusServiceUnavailable).WithError(err)
}

func NotImplementedError(field, message string) *AppError {
	return NewAppError(CodeNotImplemented, field, message, http.StatusNotImplemented)
}
