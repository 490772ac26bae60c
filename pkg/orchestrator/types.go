// Package orchestrator drives one assistant turn's worth of function calls:
// it resolves every request, classifies the resolved calls into priority
// waves, executes the waves through the sandbox, and aggregates ordered
// per-call results.
package orchestrator

import (
	"context"
	"time"
)

// CallRequest is one function call from the assistant layer
type CallRequest struct {
	ToolName   string                 `json:"tool_name"`
	Parameters map[string]interface{} `json:"parameters"`
}

// Status describes the outcome of a single call
type Status string

const (
	StatusSuccess  Status = "success"
	StatusFailure  Status = "failure"
	StatusFallback Status = "fallback" // succeeded through the fallback tier
)

// ErrorKind names the failure category of a call
type ErrorKind string

const (
	KindNotFound        ErrorKind = "not_found"
	KindSchemaViolation ErrorKind = "schema_violation"
	KindInvocationError ErrorKind = "invocation_error"
	KindExecutionError  ErrorKind = "execution_error"
	KindTimeout         ErrorKind = "timeout"
	KindTransportError  ErrorKind = "transport_error"
	KindRemoteError     ErrorKind = "remote_error"
	KindCancelled       ErrorKind = "cancelled"
)

// ErrorDetail carries the failure category and message of a failed call.
// Field is set only for schema violations.
type ErrorDetail struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
}

// CallResult is the outcome of one call, emitted in input order
type CallResult struct {
	ToolName string       `json:"tool_name"`
	Status   Status       `json:"status"`
	Value    interface{}  `json:"result,omitempty"`
	Error    *ErrorDetail `json:"error,omitempty"`
	SourceID string       `json:"source_id,omitempty"`
}

// Recorder persists call outcomes for later inspection
type Recorder interface {
	Record(ctx context.Context, batchID string, index int, result CallResult, duration time.Duration) error
}

// Metrics receives per-call and per-wave instrumentation events
type Metrics interface {
	CallStarted()
	CallFinished()
	ObserveCall(tool string, status string, duration time.Duration)
	ObserveWave(class string, duration time.Duration)
}
