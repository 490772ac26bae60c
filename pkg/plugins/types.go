// Package plugins implements the dynamically loaded analysis plugin system:
// manifest validation, process-based plugin clients, the loaded-plugin
// registry, and the adapter exposing plugin functions to the resolver.
package plugins

import (
	"time"

	"github.com/Scilence2022/CodeXomics-sub009/pkg/registry"
)

// State represents the current state of a plugin
type State string

const (
	StateLoading  State = "loading"
	StateEnabled  State = "enabled"
	StateFailed   State = "failed"
	StateUnloaded State = "unloaded"
)

// Manifest represents the plugin.json file structure
type Manifest struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Version      string           `json:"version"`
	Description  string           `json:"description,omitempty"`
	Author       string           `json:"author,omitempty"`
	Main         string           `json:"main"`
	Dependencies []Dependency     `json:"dependencies,omitempty"`
	Functions    []FunctionExport `json:"functions"`
	Config       map[string]any   `json:"config,omitempty"`
}

// Dependency represents a dependency on another plugin
type Dependency struct {
	PluginID string `json:"pluginId"`
	Version  string `json:"version,omitempty"` // Semver constraint
}

// FunctionExport declares one function a plugin exposes
type FunctionExport struct {
	Name         string               `json:"name"`
	Description  string               `json:"description"`
	Parameters   []registry.Parameter `json:"parameters,omitempty"`
	PriorityHint int                  `json:"priority_hint,omitempty"`
}

// DiscoveredPlugin represents a plugin found during directory scanning
type DiscoveredPlugin struct {
	ID           string
	Path         string
	ManifestPath string
}

// LoadedPlugin represents a fully loaded plugin
type LoadedPlugin struct {
	ID       string
	Manifest Manifest
	State    State
	Client   AnalysisPlugin
	Config   map[string]any

	// kill terminates the plugin process, nil for in-process plugins
	kill func()
}

// Record tracks a loaded plugin in the registry
type Record struct {
	Plugin       *LoadedPlugin
	LoadedAt     time.Time
	LastReloadAt *time.Time
	ErrorCount   int
	LastError    error
}
