package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the type of error.
type ErrorType string

const (
	ErrorTypeValidation     ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound       ErrorType = "NOT_FOUND"
	ErrorTypeWindowFull     ErrorType = "WINDOW_FULL"
	ErrorTypeDecode         ErrorType = "DECODE_ERROR"
	ErrorTypeTransport      ErrorType = "TRANSPORT_ERROR"
	ErrorTypeRetryExhausted ErrorType = "RETRY_EXHAUSTED"
	ErrorTypeInternal       ErrorType = "INTERNAL_ERROR"
	ErrorTypeTimeout        ErrorType = "TIMEOUT"
)

// AppError represents an application error with additional context.
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	Code       string                 `json:"code,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	HTTPStatus int                    `json:"-"`
	Err        error                  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails adds details to the error.
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// WithCode adds an error code.
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// New creates a new AppError.
func New(errType ErrorType, message string, httpStatus int) *AppError {
	return &AppError{
		Type:       errType,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an existing error.
func Wrap(err error, errType ErrorType, message string, httpStatus int) *AppError {
	return &AppError{
		Type:       errType,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// Common error constructors.

// NewValidationError creates a validation error.
func NewValidationError(message string) *AppError {
	return New(ErrorTypeValidation, message, http.StatusBadRequest)
}

// NewNotFoundError creates a not found error.
func NewNotFoundError(resource string) *AppError {
	return New(ErrorTypeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// NewWindowFullError creates the sender's backpressure error: the sliding window
// has no capacity until an acknowledgment advances the base, so the caller must
// wait and retry rather than treat this as fatal.
func NewWindowFullError(base, nextSeq uint64, windowSize int) *AppError {
	return New(ErrorTypeWindowFull, "send window is full", http.StatusTooManyRequests).
		WithDetails(map[string]interface{}{
			"base":        base,
			"next_seq":    nextSeq,
			"window_size": windowSize,
		})
}

// NewDecodeError wraps a deserialization failure at the datagram boundary. The
// caller discards the datagram; the failure never reaches protocol state.
func NewDecodeError(err error) *AppError {
	return Wrap(err, ErrorTypeDecode, "malformed datagram", http.StatusBadRequest)
}

// NewTransportError wraps a datagram send/receive failure.
func NewTransportError(err error, message string) *AppError {
	return Wrap(err, ErrorTypeTransport, message, http.StatusBadGateway)
}

// NewRetryExhaustedError signals that the configured retry limit was reached
// without window progress. Only possible when max_retries is set; the default
// protocol retransmits without bound.
func NewRetryExhaustedError(base uint64, retries int) *AppError {
	return New(ErrorTypeRetryExhausted, "retransmission limit reached without progress", http.StatusGatewayTimeout).
		WithDetails(map[string]interface{}{
			"base":    base,
			"retries": retries,
		})
}

// NewInternalError creates an internal server error.
func NewInternalError(message string) *AppError {
	return New(ErrorTypeInternal, message, http.StatusInternalServerError)
}

// WrapInternalError wraps an error as internal server error.
func WrapInternalError(err error, message string) *AppError {
	return Wrap(err, ErrorTypeInternal, message, http.StatusInternalServerError)
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(message string) *AppError {
	return New(ErrorTypeTimeout, message, http.StatusRequestTimeout)
}

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts AppError from an error.
func GetAppError(err error) (*AppError, bool) {
	var appErr *AppError
	ok := errors.As(err, &appErr)
	return appErr, ok
}

// IsWindowFull reports whether err is the sender's backpressure signal.
func IsWindowFull(err error) bool {
	appErr, ok := GetAppError(err)
	return ok && appErr.Type == ErrorTypeWindowFull
}

// IsDecodeError reports whether err is a datagram decode failure.
func IsDecodeError(err error) bool {
	appErr, ok := GetAppError(err)
	return ok && appErr.Type == ErrorTypeDecode
}
