package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/cvintake/cvintake-backend/pkg/i18n"
)

// Standard error types
var (
	ErrNotFound             = errors.New("resource not found")
	ErrBadRequest           = errors.New("bad request")
	ErrInternal             = errors.New("internal server error")
	ErrValidation           = errors.New("validation error")
	ErrPayloadTooLarge      = errors.New("payload too large")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrUnprocessable        = errors.New("unprocessable entity")
)

// AppError represents an application error with context
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	MessageKey string            `json:"-"` // i18n key for localization
	Params     map[string]string `json:"-"`
	Code       string            `json:"code"`
	StatusCode int               `json:"status_code"`
	Details    map[string]string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// Localize returns the message in the locale carried by ctx
func (e *AppError) Localize(ctx context.Context) string {
	if e.MessageKey == "" {
		return e.Message
	}
	return i18n.TFromContext(ctx, e.MessageKey, e.Params)
}

// New creates a new AppError
func New(code string, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, code string, message string, statusCode int) *AppError {
	return &AppError{
		Err:        err,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// WithCause attaches the underlying error while keeping the sentinel reachable.
func (e *AppError) WithCause(err error) *AppError {
	e.Err = errors.Join(e.Err, err)
	return e
}

func keyed(sentinel error, code, key string, status int, params map[string]string) *AppError {
	return &AppError{
		Err:        sentinel,
		Code:       code,
		Message:    i18n.T(key, params),
		MessageKey: key,
		Params:     params,
		StatusCode: status,
	}
}

// Common error constructors

func NotFound(resource string) *AppError {
	return keyed(ErrNotFound, "NOT_FOUND", "errors.not_found", http.StatusNotFound,
		map[string]string{"resource": resource})
}

// BadRequest uses message verbatim; use BadRequestKey for localized messages.
func BadRequest(message string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Code:       "BAD_REQUEST",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// BadRequestKey creates a 400 whose message is looked up by i18n key
func BadRequestKey(key string) *AppError {
	return keyed(ErrBadRequest, "BAD_REQUEST", key, http.StatusBadRequest, nil)
}

func Internal(message string) *AppError {
	return &AppError{
		Err:        ErrInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		MessageKey: "errors.internal",
		StatusCode: http.StatusInternalServerError,
	}
}

func Validation(details map[string]string) *AppError {
	e := keyed(ErrValidation, "VALIDATION_ERROR", "errors.validation_failed", http.StatusBadRequest, nil)
	e.Details = details
	return e
}

// PayloadTooLarge reports an upload over the configured limit
func PayloadTooLarge(limitMB int64) *AppError {
	return keyed(ErrPayloadTooLarge, "PAYLOAD_TOO_LARGE", "errors.file_too_large", http.StatusRequestEntityTooLarge,
		map[string]string{"limit": fmt.Sprintf("%d", limitMB)})
}

// UnsupportedMediaType reports a file whose type is not accepted
func UnsupportedMediaType() *AppError {
	return keyed(ErrUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "errors.file_type", http.StatusUnsupportedMediaType, nil)
}

// Unprocessable reports a file that could not be read
func Unprocessable(key string) *AppError {
	return keyed(ErrUnprocessable, "UNPROCESSABLE", key, http.StatusUnprocessableEntity, nil)
}

// Is checks if the error matches a target error
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As attempts to convert an error to a specific type
func As(err error, target any) bool {
	return errors.As(err, target)
}
