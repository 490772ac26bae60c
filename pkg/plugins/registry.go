package plugins

import (
	"fmt"
	"sync"
	"time"
)

// Registry tracks loaded plugins and preserves their load order. Load
// order is what makes bare-name resolution deterministic when two plugins
// export the same operation.
type Registry struct {
	plugins map[string]*Record
	order   []string
	mu      sync.RWMutex
}

// NewRegistry creates a new plugin registry
func NewRegistry() *Registry {
	return &Registry{
		plugins: make(map[string]*Record),
	}
}

// Register registers a loaded plugin
func (r *Registry) Register(plugin *LoadedPlugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.plugins[plugin.ID]; exists {
		return fmt.Errorf("plugin %s already registered", plugin.ID)
	}

	r.plugins[plugin.ID] = &Record{
		Plugin:   plugin,
		LoadedAt: time.Now(),
	}
	r.order = append(r.order, plugin.ID)

	return nil
}

// Get retrieves a plugin record by ID
func (r *Registry) Get(pluginID string) (*Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, exists := r.plugins[pluginID]
	return record, exists
}

// All returns all registered plugin records in load order
func (r *Registry) All() []*Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]*Record, 0, len(r.order))
	for _, id := range r.order {
		records = append(records, r.plugins[id])
	}
	return records
}

// Manifests returns the manifests of all registered plugins keyed by ID
func (r *Registry) Manifests() map[string]*Manifest {
	r.mu.RLock()
	defer r.mu.RUnlock()

	manifests := make(map[string]*Manifest, len(r.plugins))
	for id, record := range r.plugins {
		manifests[id] = &record.Plugin.Manifest
	}
	return manifests
}

// Update applies updater to a plugin record under the registry lock
func (r *Registry) Update(pluginID string, updater func(*Record)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, exists := r.plugins[pluginID]
	if !exists {
		return fmt.Errorf("plugin %s not found", pluginID)
	}

	updater(record)
	return nil
}

// RecordError records an error for a plugin
func (r *Registry) RecordError(pluginID string, err error) error {
	return r.Update(pluginID, func(record *Record) {
		record.ErrorCount++
		record.LastError = err
	})
}

// Remove removes a plugin from the registry
func (r *Registry) Remove(pluginID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.plugins[pluginID]; !exists {
		return fmt.Errorf("plugin %s not found", pluginID)
	}

	delete(r.plugins, pluginID)
	for i, id := range r.order {
		if id == pluginID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}
