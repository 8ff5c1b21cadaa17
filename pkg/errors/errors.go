package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError provides a structured error that can be rendered to API consumers.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}

	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}

	return e.Message
}

// Unwrap exposes the internal error for errors.Is / errors.As compatibility.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// WithInternal returns a copy of the AppError with an attached internal error.
func (e *AppError) WithInternal(err error) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Internal = err
	return &cpy
}

// WithMessage returns a copy of the AppError carrying a more specific message.
func (e *AppError) WithMessage(message string) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Message = message
	return &cpy
}

// Common errors exposed to the rest of the application.
var (
	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: http.StatusNotFound,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: http.StatusBadRequest,
	}

	ErrInternalServer = &AppError{
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    "Internal server error",
		StatusCode: http.StatusInternalServerError,
	}

	ErrRateLimit = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Too many requests, please slow down",
		StatusCode: http.StatusTooManyRequests,
	}

	// ErrSpeechNotConfigured indicates no speech provider credentials are present.
	ErrSpeechNotConfigured = &AppError{
		Code:       "speech.not_configured",
		Message:    "No speech recognition provider is configured",
		StatusCode: http.StatusServiceUnavailable,
	}

	// ErrImageNotConfigured indicates no image generation provider credentials are present.
	ErrImageNotConfigured = &AppError{
		Code:       "image.not_configured",
		Message:    "No image generation provider is configured",
		StatusCode: http.StatusServiceUnavailable,
	}

	// ErrProviderFailure indicates an external provider rejected a request or
	// reported a terminal failure. Callers wrap it with the provider name.
	ErrProviderFailure = &AppError{
		Code:       "provider.failure",
		Message:    "External provider request failed",
		StatusCode: http.StatusBadGateway,
	}

	// ErrGenerationTimeout indicates the poll budget for an asynchronous
	// generation task elapsed without reaching a terminal state. Kept distinct
	// from ErrProviderFailure so callers can tell "still might finish" apart
	// from "rejected".
	ErrGenerationTimeout = &AppError{
		Code:       "image.generation_timeout",
		Message:    "Image generation did not finish in time",
		StatusCode: http.StatusGatewayTimeout,
	}
)

// New builds a new application error with the provided metadata.
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap turns any error into an AppError while keeping the original error for logging.
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   err,
	}
}

// FromError converts a generic error into an AppError, defaulting to ErrInternalServer.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return ErrInternalServer.WithInternal(err)
}

// NewBadRequest wraps validation errors with a helpful message.
func NewBadRequest(message string) *AppError {
	return &AppError{
		Code:       ErrBadRequest.Code,
		Message:    message,
		StatusCode: ErrBadRequest.StatusCode,
	}
}

// NewProviderFailure tags a provider error with the provider that produced it.
func NewProviderFailure(provider string, err error) *AppError {
	return &AppError{
		Code:       ErrProviderFailure.Code,
		Message:    fmt.Sprintf("provider %s: request failed", provider),
		StatusCode: ErrProviderFailure.StatusCode,
		Internal:   err,
	}
}

// IsKind reports whether err carries the same error code as the reference AppError.
func IsKind(err error, ref *AppError) bool {
	if err == nil || ref == nil {
		return false
	}
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Code == ref.Code
}
