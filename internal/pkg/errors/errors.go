// Package errors provides AppError, the error type every HTTP-facing failure
// is expressed in, plus the storage sentinels repositories wrap.
//
// Import Path: travelguide.io/guestbook/internal/pkg/errors
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Storage sentinels. Repositories wrap these with %w; callers above the
// repository layer translate them into AppErrors.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// paramRetryAfter is the Params key holding whole seconds until a retry may succeed.
const paramRetryAfter = "retry_after_seconds"

// AppError is a coded error carrying the HTTP status it renders as.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`

	// Params is rendered verbatim, e.g. reset_at for rate limit rejections.
	Params      map[string]any `json:"params,omitempty"`
	FieldErrors []FieldError   `json:"field_errors,omitempty"`

	Err error `json:"-"`
}

// FieldError is one rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

// Is matches another AppError by code, so errors.Is(err, ErrSubmissionNotFound(""))
// holds for any missing submission.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// WithParams merges params into the error's params.
func (e *AppError) WithParams(params map[string]any) *AppError {
	if e == nil || len(params) == 0 {
		return e
	}
	if e.Params == nil {
		e.Params = make(map[string]any, len(params))
	}
	for k, v := range params {
		e.Params[k] = v
	}
	return e
}

// WithFieldErrors appends field-level failures.
func (e *AppError) WithFieldErrors(fieldErrors []FieldError) *AppError {
	if e == nil {
		return e
	}
	e.FieldErrors = append(e.FieldErrors, fieldErrors...)
	return e
}

// RetryAfter returns the seconds a client should wait, when the error carries one.
func (e *AppError) RetryAfter() (int, bool) {
	if e == nil {
		return 0, false
	}
	v, ok := e.Params[paramRetryAfter].(int)
	return v, ok
}

// New creates an AppError.
func New(code, message string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus}
}

// Wrap creates an AppError around a lower-level cause.
func Wrap(err error, code, message string, httpStatus int) *AppError {
	appErr := New(code, message, httpStatus)
	appErr.Err = err
	return appErr
}

func BadRequest(code, message string) *AppError {
	return New(code, message, http.StatusBadRequest)
}

func Unauthorized(code, message string) *AppError {
	return New(code, message, http.StatusUnauthorized)
}

func Forbidden(code, message string) *AppError {
	return New(code, message, http.StatusForbidden)
}

func NotFound(code, message string) *AppError {
	return New(code, message, http.StatusNotFound)
}

func TooManyRequests(code, message string) *AppError {
	return New(code, message, http.StatusTooManyRequests)
}

// IsAppError returns the first AppError in err's chain.
func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err is, or wraps, an AppError with the given code.
func HasCode(err error, code string) bool {
	appErr, ok := IsAppError(err)
	return ok && appErr.Code == code
}

// StatusOf returns the HTTP status err renders as; 500 for anything that is not an AppError.
func StatusOf(err error) int {
	if appErr, ok := IsAppError(err); ok && appErr.HTTPStatus != 0 {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}
