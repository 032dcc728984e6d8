package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrInvalidInput indicates that the request payload could not be decoded.
	ErrInvalidInput = errors.New("invalid input")

	// ErrServiceUnavailable indicates that an external service could not be reached.
	ErrServiceUnavailable = errors.New("service unavailable")
)

// ExternalAPIError provides details about a failed outbound call.
type ExternalAPIError struct {
	Operation string
	URL       string
	Cause     error
}

// Error implements the error interface.
func (e *ExternalAPIError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Operation, e.URL, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ExternalAPIError) Unwrap() error {
	return e.Cause
}

// Is reports ErrServiceUnavailable for every outbound failure so callers can
// branch without knowing the concrete cause.
func (e *ExternalAPIError) Is(target error) bool {
	return target == ErrServiceUnavailable
}

// NewExternalAPIError creates a new ExternalAPIError.
func NewExternalAPIError(operation, url string, cause error) *ExternalAPIError {
	return &ExternalAPIError{
		Operation: operation,
		URL:       url,
		Cause:     cause,
	}
}
