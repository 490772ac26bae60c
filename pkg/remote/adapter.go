package remote

import (
	"context"

	"github.com/Scilence2022/CodeXomics-sub009/pkg/registry"
)

// SourceID is the source identifier of the remote delegate adapter
const SourceID = "remote-delegate"

// Adapter exposes the delegate's advertised catalog through the uniform
// registry.Adapter interface. Parameter validation is left to the remote
// side, which owns the authoritative schemas.
type Adapter struct {
	delegate *Delegate
}

// NewAdapter creates a registry adapter over a delegate client
func NewAdapter(delegate *Delegate) *Adapter {
	return &Adapter{delegate: delegate}
}

// SourceID returns the adapter's source identifier
func (a *Adapter) SourceID() string {
	return SourceID
}

// Kind returns KindRemote
func (a *Adapter) Kind() registry.SourceKind {
	return registry.KindRemote
}

// Version returns the delegate's catalog version counter
func (a *Adapter) Version() uint64 {
	return a.delegate.Version()
}

// Entries returns the advertised catalog in announcement order
func (a *Adapter) Entries() []registry.Entry {
	catalog := a.delegate.Catalog()
	entries := make([]registry.Entry, 0, len(catalog))
	for _, fn := range catalog {
		entries = append(entries, registry.Entry{
			QualifiedName: fn.Name,
			SourceID:      SourceID,
			Kind:          registry.KindRemote,
			Description:   fn.Description,
			Parameters:    fn.Parameters,
			PriorityHint:  fn.PriorityHint,
		})
	}
	return entries
}

// Invoke delegates the call over the websocket channel
func (a *Adapter) Invoke(ctx context.Context, entry registry.Entry, params map[string]interface{}) (interface{}, error) {
	return a.delegate.Call(ctx, entry.QualifiedName, params)
}
