// Package registry defines the uniform adapter contract over the
// independent function sources (builtin analysis module, loaded plugins,
// remote delegate) and the entry type shared by all of them.
package registry

import (
	"context"

	"github.com/xeipuuv/gojsonschema"
)

// SourceKind identifies the kind of function source behind an adapter
type SourceKind string

const (
	KindBuiltin SourceKind = "builtin"
	KindPlugin  SourceKind = "plugin"
	KindRemote  SourceKind = "remote"
)

// Handler is the function signature for in-process function execution
type Handler func(ctx context.Context, params map[string]interface{}) (interface{}, error)

// Parameter describes one parameter of a registered function
type Parameter struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Required    bool        `json:"required"`
	Default     interface{} `json:"default,omitempty"`
}

// Entry describes one function exposed by a source. Entries are owned by
// their adapter; the resolver only ever holds read-only copies.
type Entry struct {
	QualifiedName string
	SourceID      string
	Kind          SourceKind
	Description   string
	Parameters    []Parameter
	PriorityHint  int

	schema *gojsonschema.Schema
}

// Schema returns the compiled parameter schema, if the entry has one.
func (e Entry) Schema() *gojsonschema.Schema {
	return e.schema
}

// Adapter is the uniform lookup/invoke interface over one function source.
// Implementations must be safe for concurrent use.
type Adapter interface {
	// SourceID returns the stable identifier of the source.
	SourceID() string

	// Kind returns the kind of source behind the adapter.
	Kind() SourceKind

	// Entries returns a snapshot of the source's entries in registration
	// order.
	Entries() []Entry

	// Version returns a counter that increases whenever the entry set
	// changes. The resolver compares versions to decide when its lookup
	// cache is stale.
	Version() uint64

	// Invoke executes the function behind entry with the given parameters.
	Invoke(ctx context.Context, entry Entry, params map[string]interface{}) (interface{}, error)
}
