package orchestrator

import (
	"context"
	"errors"

	"github.com/Scilence2022/CodeXomics-sub009/pkg/registry"
	"github.com/Scilence2022/CodeXomics-sub009/pkg/sandbox"
)

// errorDetail maps an execution error onto its outward failure category.
// Every error from the resolve/execute path lands in exactly one kind;
// nothing propagates past the batch boundary.
func errorDetail(err error) *ErrorDetail {
	var (
		schemaErr *registry.SchemaViolationError
		invokeErr *registry.InvocationError
		remoteErr *registry.RemoteError
		execErr   *sandbox.ExecutionError
	)

	switch {
	case errors.Is(err, registry.ErrNotFound):
		return &ErrorDetail{Kind: KindNotFound, Message: err.Error()}
	case errors.As(err, &schemaErr):
		return &ErrorDetail{Kind: KindSchemaViolation, Message: schemaErr.Error(), Field: schemaErr.Field}
	case errors.Is(err, sandbox.ErrTimeout):
		return &ErrorDetail{Kind: KindTimeout, Message: err.Error()}
	case errors.Is(err, registry.ErrTransport):
		return &ErrorDetail{Kind: KindTransportError, Message: err.Error()}
	case errors.As(err, &remoteErr):
		return &ErrorDetail{Kind: KindRemoteError, Message: remoteErr.Error()}
	case errors.As(err, &invokeErr):
		return &ErrorDetail{Kind: KindInvocationError, Message: invokeErr.Error()}
	case errors.As(err, &execErr):
		return &ErrorDetail{Kind: KindExecutionError, Message: execErr.Error()}
	case errors.Is(err, context.Canceled):
		return &ErrorDetail{Kind: KindCancelled, Message: "batch cancelled"}
	default:
		return &ErrorDetail{Kind: KindExecutionError, Message: err.Error()}
	}
}

// fallbackEligible reports whether a primary-path failure may be retried
// against the fallback tier. Only a vanished entry or a faulting handler
// qualifies; schema violations, timeouts and remote failures do not.
func fallbackEligible(detail *ErrorDetail) bool {
	switch detail.Kind {
	case KindNotFound, KindExecutionError, KindInvocationError:
		return true
	default:
		return false
	}
}
