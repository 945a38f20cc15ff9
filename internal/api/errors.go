package api

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents the type of API error
type ErrorType string

const (
	// ErrTypeAuthentication indicates a rejected or missing token
	ErrTypeAuthentication ErrorType = "authentication"

	// ErrTypeValidation indicates invalid input, caught locally or by the server
	ErrTypeValidation ErrorType = "validation"

	// ErrTypeNotFound indicates the requested resource does not exist
	ErrTypeNotFound ErrorType = "not_found"

	// ErrTypeRateLimit indicates rate limiting errors
	ErrTypeRateLimit ErrorType = "rate_limit"

	// ErrTypeNetwork indicates network-related errors
	ErrTypeNetwork ErrorType = "network"

	// ErrTypeTimeout indicates timeout errors
	ErrTypeTimeout ErrorType = "timeout"

	// ErrTypeServer indicates a 5xx response
	ErrTypeServer ErrorType = "server"

	// ErrTypeConfiguration indicates client configuration errors
	ErrTypeConfiguration ErrorType = "configuration"

	// ErrTypeInternal indicates internal client errors
	ErrTypeInternal ErrorType = "internal"
)

// APIError is returned for every failed call against the backend
type APIError struct {
	// Type categorizes the error
	Type ErrorType `json:"type"`

	// Message is safe to show to the user. It carries the backend's
	// "detail" when one was returned.
	Message string `json:"message"`

	// Operation names the client call that failed (login, upload, ...)
	Operation string `json:"operation,omitempty"`

	// StatusCode for HTTP-related errors
	StatusCode int `json:"status_code,omitempty"`

	// Underlying error that caused this error
	Cause error `json:"-"`

	// Retryable indicates if the operation can be retried
	Retryable bool `json:"retryable"`

	// RetryAfter suggests when to retry in seconds (for rate limiting)
	RetryAfter int `json:"retry_after,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	var parts []string

	if e.Operation != "" {
		parts = append(parts, e.Operation)
	}

	parts = append(parts, fmt.Sprintf("type=%s", e.Type))

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}

	parts = append(parts, e.Message)

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause=%s", e.Cause.Error()))
	}

	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying error
func (e *APIError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target error type
func (e *APIError) Is(target error) bool {
	if ae, ok := target.(*APIError); ok {
		return e.Type == ae.Type
	}
	return false
}

// IsRetryable returns whether the error is retryable
func (e *APIError) IsRetryable() bool {
	return e.Retryable
}

// ValidationError represents input rejected before any request is sent
type ValidationError struct {
	Field   string `json:"field"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewAPIError creates a new API error
func NewAPIError(errType ErrorType, operation, message string) *APIError {
	return &APIError{
		Type:      errType,
		Message:   message,
		Operation: operation,
		Retryable: isRetryableError(errType),
	}
}

// NewAPIErrorWithCause creates an API error with an underlying cause
func NewAPIErrorWithCause(errType ErrorType, operation, message string, cause error) *APIError {
	e := NewAPIError(errType, operation, message)
	e.Cause = cause
	return e
}

// NewValidationError creates a validation error
func NewValidationError(field, value, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// isRetryableError determines if an error type is retryable
func isRetryableError(errType ErrorType) bool {
	switch errType {
	case ErrTypeRateLimit, ErrTypeTimeout, ErrTypeNetwork, ErrTypeServer:
		return true
	default:
		return false
	}
}

// IsRetryableError checks if an error is retryable
func IsRetryableError(err error) bool {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.IsRetryable()
	}
	return false
}

// IsAuthenticationError checks if the backend rejected the credentials or token
func IsAuthenticationError(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Type == ErrTypeAuthentication
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Type == ErrTypeNotFound
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Type == ErrTypeRateLimit
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return true
	}
	var ae *APIError
	return errors.As(err, &ae) && ae.Type == ErrTypeValidation
}

// UserMessage extracts a message suitable for display. Validation errors
// and backend details are shown as-is; anything else yields fallback.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	var ae *APIError
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	return fallback
}
