package sandbox

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout is returned when a call exceeds its time budget
	ErrTimeout = errors.New("execution timed out")

	// ErrCommandNotAllowed is returned when a handler requests a command
	// capability outside its allow list
	ErrCommandNotAllowed = errors.New("command capability not allowed")
)

// ExecutionError wraps a fault raised inside a handler. It never escapes
// the executor as a panic.
type ExecutionError struct {
	Function string
	Cause    error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution of %s failed: %v", e.Function, e.Cause)
}

func (e *ExecutionError) Unwrap() error {
	return e.Cause
}
