package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no source can resolve a function name
	ErrNotFound = errors.New("function not found")

	// ErrTransport is returned when the remote delegate channel is lost
	ErrTransport = errors.New("remote transport failure")
)

// SchemaViolationError is returned when parameters fail validation before
// invocation. Field names the first offending parameter.
type SchemaViolationError struct {
	Function string
	Field    string
	Detail   string
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("schema violation in %s: field %q: %s", e.Function, e.Field, e.Detail)
}

// InvocationError is returned when a handler raised or returned a fault.
type InvocationError struct {
	Function string
	Cause    error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("invocation of %s failed: %v", e.Function, e.Cause)
}

func (e *InvocationError) Unwrap() error {
	return e.Cause
}

// RemoteError is returned when the remote delegate answered with a
// non-success response.
type RemoteError struct {
	Function string
	Message  string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote delegate rejected %s: %s", e.Function, e.Message)
}
