package sandbox

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Scilence2022/CodeXomics-sub009/pkg/registry"
)

// DefaultBudget is the per-call time budget applied when the caller does
// not supply one.
const DefaultBudget = 30 * time.Second

// Executor runs resolved calls under a capability set and a time budget
type Executor struct {
	caps          *CapabilitySet
	defaultBudget time.Duration
}

// New creates an Executor. A nil capability set yields an empty sandbox:
// no state access, no commands.
func New(caps *CapabilitySet, defaultBudget time.Duration) *Executor {
	if caps == nil {
		caps = NewCapabilitySet(nil, nil)
	}
	if defaultBudget <= 0 {
		defaultBudget = DefaultBudget
	}

	log.Info().
		Dur("default_budget", defaultBudget).
		Int("commands", len(caps.commands)).
		Msg("Sandbox executor initialized")

	return &Executor{
		caps:          caps,
		defaultBudget: defaultBudget,
	}
}

// Capabilities returns the capability set handed to handlers
func (e *Executor) Capabilities() *CapabilitySet {
	return e.caps
}

// Execute invokes the entry through its adapter with the capability set
// attached to the context. The call is bounded by budget (the executor
// default when budget <= 0); exceeding it returns ErrTimeout. A handler
// panic is recovered and surfaced as an ExecutionError.
func (e *Executor) Execute(ctx context.Context, adapter registry.Adapter, entry registry.Entry, params map[string]interface{}, budget time.Duration) (interface{}, error) {
	if budget <= 0 {
		budget = e.defaultBudget
	}

	startTime := time.Now()

	timeoutCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	callCtx := WithCapabilities(timeoutCtx, e.caps)

	log.Debug().
		Str("function", entry.QualifiedName).
		Str("source", entry.SourceID).
		Dur("budget", budget).
		Msg("Executing call")

	resultChan := make(chan interface{}, 1)
	errChan := make(chan error, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				errChan <- &ExecutionError{
					Function: entry.QualifiedName,
					Cause:    fmt.Errorf("handler panic: %v", r),
				}
			}
		}()
		result, err := adapter.Invoke(callCtx, entry, params)
		if err != nil {
			errChan <- err
		} else {
			resultChan <- result
		}
	}()

	select {
	case result := <-resultChan:
		log.Debug().
			Str("function", entry.QualifiedName).
			Dur("duration", time.Since(startTime)).
			Msg("Call completed")
		return result, nil

	case err := <-errChan:
		// A handler that honors its context errors out at the same moment
		// the deadline fires; the budget verdict wins over the wrapped
		// cause so exhaustion always reports as a timeout.
		if timeoutCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return nil, e.budgetExceeded(entry, budget)
		}
		log.Error().
			Str("function", entry.QualifiedName).
			Dur("duration", time.Since(startTime)).
			Err(err).
			Msg("Call failed")
		return nil, err

	case <-timeoutCtx.Done():
		if ctx.Err() != nil {
			// Parent cancellation, not budget exhaustion
			log.Warn().
				Str("function", entry.QualifiedName).
				Dur("duration", time.Since(startTime)).
				Msg("Call cancelled")
			return nil, ctx.Err()
		}
		return nil, e.budgetExceeded(entry, budget)
	}
}

func (e *Executor) budgetExceeded(entry registry.Entry, budget time.Duration) error {
	log.Error().
		Str("function", entry.QualifiedName).
		Dur("budget", budget).
		Msg("Call exceeded time budget")
	return fmt.Errorf("%s after %v: %w", entry.QualifiedName, budget, ErrTimeout)
}
