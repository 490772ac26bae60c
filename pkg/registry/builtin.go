package registry

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"
)

// Definition describes a function being registered with a builtin adapter
type Definition struct {
	Name         string      `json:"name"`
	Description  string      `json:"description"`
	Parameters   []Parameter `json:"parameters"`
	Handler      Handler     `json:"-"`
	PriorityHint int         `json:"priority_hint,omitempty"`
}

// BuiltinAdapter is an in-process function source. It validates parameters
// against a generated JSON Schema before each invocation and supports hot
// registration after startup.
type BuiltinAdapter struct {
	sourceID string
	mu       sync.RWMutex
	entries  map[string]*Entry
	handlers map[string]Handler
	order    []string
	version  atomic.Uint64
}

// NewBuiltinAdapter creates a new in-process adapter with the given source ID
func NewBuiltinAdapter(sourceID string) *BuiltinAdapter {
	return &BuiltinAdapter{
		sourceID: sourceID,
		entries:  make(map[string]*Entry),
		handlers: make(map[string]Handler),
	}
}

// SourceID returns the adapter's source identifier
func (a *BuiltinAdapter) SourceID() string {
	return a.sourceID
}

// Kind returns KindBuiltin
func (a *BuiltinAdapter) Kind() SourceKind {
	return KindBuiltin
}

// Register registers a function definition
func (a *BuiltinAdapter) Register(def Definition) error {
	if err := validateDefinition(def); err != nil {
		return fmt.Errorf("invalid definition: %w", err)
	}

	schema, err := CompileParameterSchema(def.Parameters)
	if err != nil {
		return fmt.Errorf("failed to compile schema for %s: %w", def.Name, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.entries[def.Name]; exists {
		return fmt.Errorf("function %s already registered in %s", def.Name, a.sourceID)
	}

	a.entries[def.Name] = &Entry{
		QualifiedName: def.Name,
		SourceID:      a.sourceID,
		Kind:          KindBuiltin,
		Description:   def.Description,
		Parameters:    def.Parameters,
		PriorityHint:  def.PriorityHint,
		schema:        schema,
	}
	a.handlers[def.Name] = def.Handler
	a.order = append(a.order, def.Name)
	a.version.Add(1)

	log.Debug().Str("source", a.sourceID).Str("function", def.Name).Msg("Function registered")

	return nil
}

// Unregister removes a function. Removing an unknown name is a no-op.
func (a *BuiltinAdapter) Unregister(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.entries[name]; !exists {
		return
	}

	delete(a.entries, name)
	delete(a.handlers, name)
	for i, n := range a.order {
		if n == name {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
	a.version.Add(1)

	log.Debug().Str("source", a.sourceID).Str("function", name).Msg("Function unregistered")
}

// Entries returns a snapshot of registered entries in registration order
func (a *BuiltinAdapter) Entries() []Entry {
	a.mu.RLock()
	defer a.mu.RUnlock()

	entries := make([]Entry, 0, len(a.order))
	for _, name := range a.order {
		entries = append(entries, *a.entries[name])
	}
	return entries
}

// Version returns the registration version counter
func (a *BuiltinAdapter) Version() uint64 {
	return a.version.Load()
}

// Invoke validates params against the entry's schema and runs the handler
func (a *BuiltinAdapter) Invoke(ctx context.Context, entry Entry, params map[string]interface{}) (interface{}, error) {
	a.mu.RLock()
	current, exists := a.entries[entry.QualifiedName]
	handler := a.handlers[entry.QualifiedName]
	a.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%s: %w", entry.QualifiedName, ErrNotFound)
	}

	if err := ValidateParameters(entry.QualifiedName, current.schema, params); err != nil {
		return nil, err
	}

	result, err := handler(ctx, params)
	if err != nil {
		return nil, &InvocationError{Function: entry.QualifiedName, Cause: err}
	}
	return result, nil
}

func validateDefinition(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("function name cannot be empty")
	}
	if def.Description == "" {
		return fmt.Errorf("function description cannot be empty")
	}
	if def.Handler == nil {
		return fmt.Errorf("function handler cannot be nil")
	}

	validTypes := map[string]bool{
		"string": true, "number": true, "boolean": true,
		"object": true, "array": true, "integer": true,
	}
	for _, param := range def.Parameters {
		if param.Name == "" {
			return fmt.Errorf("parameter name cannot be empty")
		}
		if !validTypes[param.Type] {
			return fmt.Errorf("invalid parameter type %s for %s", param.Type, param.Name)
		}
	}

	return nil
}

// CompileParameterSchema generates and compiles a JSON Schema from a
// parameter list.
func CompileParameterSchema(params []Parameter) (*gojsonschema.Schema, error) {
	properties := make(map[string]interface{})
	required := []string{}

	for _, param := range params {
		paramSchema := map[string]interface{}{
			"type": param.Type,
		}
		if param.Description != "" {
			paramSchema["description"] = param.Description
		}
		if param.Default != nil {
			paramSchema["default"] = param.Default
		}
		properties[param.Name] = paramSchema

		if param.Required {
			required = append(required, param.Name)
		}
	}

	schemaMap := map[string]interface{}{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           properties,
	}
	if len(required) > 0 {
		schemaMap["required"] = required
	}

	return gojsonschema.NewSchema(gojsonschema.NewGoLoader(schemaMap))
}

// ValidateParameters validates params against a compiled schema and maps
// the first violation to a SchemaViolationError naming the offending field.
func ValidateParameters(function string, schema *gojsonschema.Schema, params map[string]interface{}) error {
	if schema == nil {
		return nil
	}
	if params == nil {
		params = map[string]interface{}{}
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(params))
	if err != nil {
		return &SchemaViolationError{Function: function, Detail: err.Error()}
	}
	if !result.Valid() {
		first := result.Errors()[0]
		field := first.Field()
		if field == "(root)" {
			if prop, ok := first.Details()["property"].(string); ok {
				field = prop
			}
		}
		return &SchemaViolationError{Function: function, Field: field, Detail: first.Description()}
	}
	return nil
}
