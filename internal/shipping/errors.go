package shipping

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound matches every NotFoundError.
	ErrNotFound = errors.New("not found")
	// ErrUnauthenticated is returned for a missing or invalid session.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrSignatureInvalid is returned when a webhook signature does not verify.
	ErrSignatureInvalid = errors.New("invalid webhook signature")
)

// ValidationError reports malformed or missing input. Fields optionally maps
// input field names to problems.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

// NewValidationError creates a ValidationError with the given message.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NotFoundError names the missing resource.
type NotFoundError struct {
	Resource string
	Key      string
}

// NotFound creates a NotFoundError.
func NotFound(resource, key string) *NotFoundError {
	return &NotFoundError{Resource: resource, Key: key}
}

func (e *NotFoundError) Error() string {
	if e.Key == "" {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.Key)
}

// Is makes errors.Is(err, ErrNotFound) true.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// PersistenceWarning is a store write that failed after the carrier accepted a
// shipment. It is reported next to the result, never instead of it. Error names
// the operation only; the store error is logged and reachable through Unwrap.
type PersistenceWarning struct {
	Op  string
	Err error
}

func (w *PersistenceWarning) Error() string {
	return w.Op + " failed"
}

func (w *PersistenceWarning) Unwrap() error {
	return w.Err
}

func joinWarnings(warnings []*PersistenceWarning) string {
	if len(warnings) == 0 {
		return ""
	}
	parts := make([]string, len(warnings))
	for i, w := range warnings {
		parts[i] = w.Error()
	}
	return strings.Join(parts, "; ")
}
