package plugins

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync/atomic"

	goplugin "github.com/hashicorp/go-plugin"
	"github.com/rs/zerolog"
)

// Runtime loads and unloads analysis plugins and tracks a version counter
// the resolver uses to invalidate its lookup cache.
type Runtime struct {
	logger         zerolog.Logger
	manifestLoader *ManifestLoader
	registry       *Registry
	version        atomic.Uint64
}

// NewRuntime creates a new plugin runtime
func NewRuntime(logger zerolog.Logger) *Runtime {
	return &Runtime{
		logger:         logger.With().Str("component", "plugin-runtime").Logger(),
		manifestLoader: NewManifestLoader(logger),
		registry:       NewRegistry(),
	}
}

// LoadResult contains the results of loading a set of plugins
type LoadResult struct {
	Loaded []string
	Failed []string
	Errors map[string]error
}

// LoadFromDirs discovers and loads every plugin under the given directories.
// A plugin that fails to load is reported in the result; it never aborts the
// other loads.
func (r *Runtime) LoadFromDirs(ctx context.Context, dirs []string) (*LoadResult, error) {
	result := &LoadResult{Errors: make(map[string]error)}

	discovered, err := Discover(r.logger, dirs)
	if err != nil {
		return nil, fmt.Errorf("plugin discovery failed: %w", err)
	}

	for _, dp := range discovered {
		if err := r.Load(ctx, dp); err != nil {
			r.logger.Error().Err(err).Str("plugin", dp.ID).Msg("Failed to load plugin")
			result.Failed = append(result.Failed, dp.ID)
			result.Errors[dp.ID] = err
			continue
		}
		result.Loaded = append(result.Loaded, dp.ID)
	}

	r.logger.Info().
		Int("loaded", len(result.Loaded)).
		Int("failed", len(result.Failed)).
		Msg("Plugin loading complete")

	return result, nil
}

// Load launches a discovered plugin process, activates it, and registers it
func (r *Runtime) Load(ctx context.Context, discovered DiscoveredPlugin) error {
	manifest, err := r.manifestLoader.LoadManifest(discovered.ManifestPath)
	if err != nil {
		return fmt.Errorf("failed to load manifest: %w", err)
	}

	if err := CheckDependencies(manifest, r.registry.Manifests()); err != nil {
		return fmt.Errorf("dependency check failed: %w", err)
	}

	pluginPath := filepath.Join(discovered.Path, manifest.Main)
	if _, err := os.Stat(pluginPath); err != nil {
		return fmt.Errorf("plugin executable not found: %s", pluginPath)
	}

	client := goplugin.NewClient(&goplugin.ClientConfig{
		HandshakeConfig:  Handshake,
		Plugins:          PluginMap,
		Cmd:              exec.Command(pluginPath),
		AllowedProtocols: []goplugin.Protocol{goplugin.ProtocolNetRPC},
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return fmt.Errorf("failed to connect to plugin: %w", err)
	}

	raw, err := rpcClient.Dispense("analysis")
	if err != nil {
		client.Kill()
		return fmt.Errorf("failed to dispense plugin: %w", err)
	}

	impl, ok := raw.(AnalysisPlugin)
	if !ok {
		client.Kill()
		return fmt.Errorf("unexpected plugin type")
	}

	loaded := &LoadedPlugin{
		ID:       manifest.ID,
		Manifest: *manifest,
		State:    StateLoading,
		Client:   impl,
		Config:   manifest.Config,
		kill:     client.Kill,
	}

	if err := impl.Activate(ctx, manifest.Config); err != nil {
		client.Kill()
		return fmt.Errorf("failed to activate plugin: %w", err)
	}
	loaded.State = StateEnabled

	if err := r.registry.Register(loaded); err != nil {
		client.Kill()
		return err
	}
	r.version.Add(1)

	r.logger.Info().
		Str("id", manifest.ID).
		Str("version", manifest.Version).
		Msg("Plugin loaded")

	return nil
}

// Attach registers an already-connected plugin implementation. It is used
// for in-process plugins and by tests.
func (r *Runtime) Attach(ctx context.Context, manifest Manifest, impl AnalysisPlugin) error {
	if err := ValidateManifest(&manifest); err != nil {
		return fmt.Errorf("manifest validation failed: %w", err)
	}
	if err := CheckDependencies(&manifest, r.registry.Manifests()); err != nil {
		return fmt.Errorf("dependency check failed: %w", err)
	}

	if err := impl.Activate(ctx, manifest.Config); err != nil {
		return fmt.Errorf("failed to activate plugin: %w", err)
	}

	loaded := &LoadedPlugin{
		ID:       manifest.ID,
		Manifest: manifest,
		State:    StateEnabled,
		Client:   impl,
		Config:   manifest.Config,
	}

	if err := r.registry.Register(loaded); err != nil {
		return err
	}
	r.version.Add(1)

	r.logger.Info().Str("id", manifest.ID).Msg("Plugin attached")
	return nil
}

// Unload deactivates a plugin, terminates its process, and removes it
func (r *Runtime) Unload(ctx context.Context, pluginID string) error {
	record, exists := r.registry.Get(pluginID)
	if !exists {
		return fmt.Errorf("plugin %s not found", pluginID)
	}

	if record.Plugin.Client != nil {
		if err := record.Plugin.Client.Deactivate(ctx); err != nil {
			r.logger.Warn().Err(err).Str("plugin", pluginID).Msg("Failed to deactivate plugin")
		}
	}
	if record.Plugin.kill != nil {
		record.Plugin.kill()
	}
	record.Plugin.State = StateUnloaded

	if err := r.registry.Remove(pluginID); err != nil {
		return err
	}
	r.version.Add(1)

	r.logger.Info().Str("id", pluginID).Msg("Plugin unloaded")
	return nil
}

// Get retrieves a loaded plugin
func (r *Runtime) Get(pluginID string) (*LoadedPlugin, error) {
	record, exists := r.registry.Get(pluginID)
	if !exists {
		return nil, fmt.Errorf("plugin %s not found", pluginID)
	}
	return record.Plugin, nil
}

// Plugins returns all loaded plugins in load order
func (r *Runtime) Plugins() []*LoadedPlugin {
	records := r.registry.All()
	plugins := make([]*LoadedPlugin, 0, len(records))
	for _, record := range records {
		plugins = append(plugins, record.Plugin)
	}
	return plugins
}

// Version returns the load/unload version counter
func (r *Runtime) Version() uint64 {
	return r.version.Load()
}

// Shutdown unloads every plugin
func (r *Runtime) Shutdown(ctx context.Context) error {
	for _, record := range r.registry.All() {
		if err := r.Unload(ctx, record.Plugin.ID); err != nil {
			r.logger.Error().Err(err).Str("plugin", record.Plugin.ID).Msg("Failed to unload plugin")
		}
	}
	return nil
}
