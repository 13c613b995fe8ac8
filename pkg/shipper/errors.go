package shipper

import (
	"context"
	"errors"
	"fmt"
)

// Error codes used by adapters and the facade.
const (
	CodeTimeout        = "TIMEOUT"
	CodeCarrierError   = "CARRIER_ERROR"
	CodeAuthentication = "AUTHENTICATION_FAILED"
	CodeRateLimited    = "RATE_LIMITED"
	CodeBadRequest     = "BAD_REQUEST"
	CodeDecode         = "DECODE_ERROR"
)

// ProviderError represents a failed call to a shipping carrier.
type ProviderError struct {
	Carrier    Carrier
	Code       string
	Message    string
	StatusCode int
	Retryable  bool
	Cause      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error (%s): %s: %v", e.Carrier, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error (%s): %s", e.Carrier, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// Is matches another ProviderError with the same code.
func (e *ProviderError) Is(target error) bool {
	t, ok := target.(*ProviderError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewProviderError creates a new ProviderError.
func NewProviderError(carrier Carrier, code, message string) *ProviderError {
	return &ProviderError{
		Carrier: carrier,
		Code:    code,
		Message: message,
	}
}

// WithCause adds a cause to the error.
func (e *ProviderError) WithCause(err error) *ProviderError {
	e.Cause = err
	return e
}

// WithStatusCode adds the carrier HTTP status code to the error.
func (e *ProviderError) WithStatusCode(code int) *ProviderError {
	e.StatusCode = code
	return e
}

// WithRetryable marks the error as retryable by the caller.
func (e *ProviderError) WithRetryable(retryable bool) *ProviderError {
	e.Retryable = retryable
	return e
}

// AsProviderError returns err as a ProviderError, wrapping anything else.
// Deadline errors become TIMEOUT.
func AsProviderError(carrier Carrier, err error) *ProviderError {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewProviderError(carrier, CodeTimeout, "carrier request timed out").
			WithCause(err).WithRetryable(true)
	}
	return NewProviderError(carrier, CodeCarrierError, "carrier request failed").WithCause(err)
}

// Sentinel errors for common shipping scenarios.
var (
	// ErrInvalidAddress indicates the address is invalid or incomplete.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrInvalidPackage indicates package dimensions or weight are invalid.
	ErrInvalidPackage = errors.New("invalid package")

	// ErrUnknownStatus indicates a status outside the shipment state machine.
	ErrUnknownStatus = errors.New("unknown shipment status")

	// ErrUnknownCarrier indicates the provider key is not a supported carrier.
	ErrUnknownCarrier = errors.New("unknown carrier")

	// ErrConfigurationMissing indicates there is no enabled configuration for a provider.
	ErrConfigurationMissing = errors.New("no active shipping configuration")
)

// IsRetryable returns true if the error is retryable.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}
