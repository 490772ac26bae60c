package plugins

import (
	"context"
)

// AnalysisPlugin is the interface plugin implementations must satisfy.
// Out-of-process plugins are reached through HashiCorp go-plugin RPC;
// in-process implementations can be attached directly.
type AnalysisPlugin interface {
	// Activate is called when the plugin is loaded
	Activate(ctx context.Context, config map[string]any) error

	// Deactivate is called when the plugin is unloaded
	Deactivate(ctx context.Context) error

	// Execute runs one of the plugin's exported functions
	Execute(ctx context.Context, name string, params map[string]any) (map[string]any, error)
}
