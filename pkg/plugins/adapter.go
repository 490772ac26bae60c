package plugins

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/Scilence2022/CodeXomics-sub009/pkg/registry"
)

// SourceID is the source identifier of the plugin adapter
const SourceID = "plugins"

// Adapter exposes the functions of every loaded plugin through the uniform
// registry.Adapter interface. Function names are qualified as
// "pluginID.operation".
type Adapter struct {
	runtime *Runtime

	mu      sync.Mutex
	schemas map[string]*gojsonschema.Schema
	built   uint64
}

// NewAdapter creates a registry adapter over a plugin runtime
func NewAdapter(runtime *Runtime) *Adapter {
	return &Adapter{
		runtime: runtime,
		schemas: make(map[string]*gojsonschema.Schema),
	}
}

// SourceID returns the adapter's source identifier
func (a *Adapter) SourceID() string {
	return SourceID
}

// Kind returns KindPlugin
func (a *Adapter) Kind() registry.SourceKind {
	return registry.KindPlugin
}

// Version returns the runtime's load/unload counter
func (a *Adapter) Version() uint64 {
	return a.runtime.Version()
}

// Entries returns every exported function of every enabled plugin, plugins
// in load order and functions in manifest order.
func (a *Adapter) Entries() []registry.Entry {
	var entries []registry.Entry
	for _, p := range a.runtime.Plugins() {
		if p.State != StateEnabled {
			continue
		}
		for _, fn := range p.Manifest.Functions {
			entries = append(entries, registry.Entry{
				QualifiedName: p.ID + "." + fn.Name,
				SourceID:      SourceID,
				Kind:          registry.KindPlugin,
				Description:   fn.Description,
				Parameters:    fn.Parameters,
				PriorityHint:  fn.PriorityHint,
			})
		}
	}
	return entries
}

// Invoke validates parameters against the function's declared schema and
// routes execution to the owning plugin.
func (a *Adapter) Invoke(ctx context.Context, entry registry.Entry, params map[string]interface{}) (interface{}, error) {
	pluginID, operation, ok := strings.Cut(entry.QualifiedName, ".")
	if !ok {
		return nil, fmt.Errorf("malformed qualified name %q", entry.QualifiedName)
	}

	plugin, err := a.runtime.Get(pluginID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", entry.QualifiedName, registry.ErrNotFound)
	}

	var export *FunctionExport
	for i := range plugin.Manifest.Functions {
		if plugin.Manifest.Functions[i].Name == operation {
			export = &plugin.Manifest.Functions[i]
			break
		}
	}
	if export == nil {
		return nil, fmt.Errorf("%s: %w", entry.QualifiedName, registry.ErrNotFound)
	}

	schema, err := a.schemaFor(entry.QualifiedName, export.Parameters)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema for %s: %w", entry.QualifiedName, err)
	}
	if err := registry.ValidateParameters(entry.QualifiedName, schema, params); err != nil {
		return nil, err
	}

	result, err := plugin.Client.Execute(ctx, operation, params)
	if err != nil {
		return nil, &registry.InvocationError{Function: entry.QualifiedName, Cause: err}
	}
	return result, nil
}

func (a *Adapter) schemaFor(qualifiedName string, params []registry.Parameter) (*gojsonschema.Schema, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Compiled schemas are dropped wholesale when the plugin set changes.
	if version := a.runtime.Version(); version != a.built {
		a.schemas = make(map[string]*gojsonschema.Schema)
		a.built = version
	}

	if schema, ok := a.schemas[qualifiedName]; ok {
		return schema, nil
	}
	schema, err := registry.CompileParameterSchema(params)
	if err != nil {
		return nil, err
	}
	a.schemas[qualifiedName] = schema
	return schema, nil
}
