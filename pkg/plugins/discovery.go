package plugins

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Discover scans the given directories for plugin subdirectories containing
// a plugin.json manifest.
func Discover(logger zerolog.Logger, dirs []string) ([]DiscoveredPlugin, error) {
	var discovered []DiscoveredPlugin

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		plugins, err := scanDirectory(logger, dir)
		if err != nil {
			logger.Warn().Err(err).Str("dir", dir).Msg("Failed to scan plugin directory")
			continue
		}
		discovered = append(discovered, plugins...)
	}

	logger.Info().Int("count", len(discovered)).Msg("Plugin discovery completed")
	return discovered, nil
}

func scanDirectory(logger zerolog.Logger, dir string) ([]DiscoveredPlugin, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug().Str("dir", dir).Msg("Directory does not exist, skipping")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to stat directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var discovered []DiscoveredPlugin
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		pluginDir := filepath.Join(dir, entry.Name())
		manifestPath := filepath.Join(pluginDir, "plugin.json")
		if _, err := os.Stat(manifestPath); err != nil {
			continue
		}

		discovered = append(discovered, DiscoveredPlugin{
			ID:           entry.Name(),
			Path:         pluginDir,
			ManifestPath: manifestPath,
		})
	}

	return discovered, nil
}

// Watcher reloads plugins when their directories change on disk. Load and
// unload both bump the runtime version, so the resolver picks up changes
// before the next batch.
type Watcher struct {
	logger  zerolog.Logger
	runtime *Runtime
	watcher *fsnotify.Watcher
	dirs    []string
}

// NewWatcher creates a directory watcher over the plugin runtime
func NewWatcher(logger zerolog.Logger, runtime *Runtime, dirs []string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := fsw.Add(dir); err != nil {
			logger.Warn().Err(err).Str("dir", dir).Msg("Failed to watch plugin directory")
		}
	}

	return &Watcher{
		logger:  logger.With().Str("component", "plugin-watcher").Logger(),
		runtime: runtime,
		watcher: fsw,
		dirs:    dirs,
	}, nil
}

// Run processes filesystem events until the context is cancelled
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("Plugin watcher error")
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	pluginID := filepath.Base(event.Name)

	switch {
	case event.Op.Has(fsnotify.Create):
		manifestPath := filepath.Join(event.Name, "plugin.json")
		if _, err := os.Stat(manifestPath); err != nil {
			return
		}
		dp := DiscoveredPlugin{ID: pluginID, Path: event.Name, ManifestPath: manifestPath}
		if err := w.runtime.Load(ctx, dp); err != nil {
			w.logger.Error().Err(err).Str("plugin", pluginID).Msg("Failed to load created plugin")
		}

	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		if _, err := w.runtime.Get(pluginID); err != nil {
			return
		}
		if err := w.runtime.Unload(ctx, pluginID); err != nil {
			w.logger.Error().Err(err).Str("plugin", pluginID).Msg("Failed to unload removed plugin")
		}
	}
}

// Close stops watching
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
