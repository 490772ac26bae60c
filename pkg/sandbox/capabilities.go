// Package sandbox runs resolved calls inside a restricted execution
// context: handlers see only an allow-listed capability set and every
// call is bounded by a time budget.
package sandbox

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// StateReader is the read-only application-state accessor handed to
// handlers. Handlers cannot mutate host state through it.
type StateReader interface {
	Get(key string) (interface{}, bool)
}

// Command is a named mutation capability. State changes go through
// commands exclusively, never through ambient access to the host.
type Command func(ctx context.Context, args map[string]interface{}) (interface{}, error)

// CapabilitySet is the full capability surface exposed to a handler
type CapabilitySet struct {
	state    StateReader
	commands map[string]Command
	clock    func() time.Time
}

// NewCapabilitySet builds a capability set from a state accessor and a
// command allow list. A nil clock defaults to time.Now.
func NewCapabilitySet(state StateReader, commands map[string]Command) *CapabilitySet {
	allowed := make(map[string]Command, len(commands))
	for name, cmd := range commands {
		allowed[name] = cmd
	}
	return &CapabilitySet{
		state:    state,
		commands: allowed,
		clock:    time.Now,
	}
}

// WithClock overrides the capability set's time source
func (c *CapabilitySet) WithClock(clock func() time.Time) *CapabilitySet {
	c.clock = clock
	return c
}

// State returns the read-only application-state accessor
func (c *CapabilitySet) State() StateReader {
	return c.state
}

// Now returns the current time from the capability clock
func (c *CapabilitySet) Now() time.Time {
	return c.clock()
}

// RunCommand invokes a named command capability. Commands outside the
// allow list fail with ErrCommandNotAllowed.
func (c *CapabilitySet) RunCommand(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
	cmd, ok := c.commands[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrCommandNotAllowed)
	}
	return cmd(ctx, args)
}

// CommandNames returns the names of the allowed commands
func (c *CapabilitySet) CommandNames() []string {
	names := make([]string, 0, len(c.commands))
	for name := range c.commands {
		names = append(names, name)
	}
	return names
}

// MapState is a StateReader over a fixed key/value snapshot
type MapState struct {
	mu     sync.RWMutex
	values map[string]interface{}
}

// NewMapState creates a MapState from a snapshot of values
func NewMapState(values map[string]interface{}) *MapState {
	copied := make(map[string]interface{}, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &MapState{values: copied}
}

// Get returns the value for a key
func (s *MapState) Get(key string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set updates a key. This is the host-side write path; handlers only ever
// see the StateReader view.
func (s *MapState) Set(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

type capabilityContextKey struct{}

// WithCapabilities attaches a capability set to a context for the duration
// of one call.
func WithCapabilities(ctx context.Context, caps *CapabilitySet) context.Context {
	return context.WithValue(ctx, capabilityContextKey{}, caps)
}

// CapabilitiesFromContext returns the capability set attached to the
// context, or nil when executing outside the sandbox.
func CapabilitiesFromContext(ctx context.Context) *CapabilitySet {
	caps, _ := ctx.Value(capabilityContextKey{}).(*CapabilitySet)
	return caps
}
