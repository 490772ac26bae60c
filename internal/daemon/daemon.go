// Package daemon wires the dispatch stack together: configuration, logging,
// metrics, call history, function sources, resolver, sandbox executor,
// orchestrator, and the gateway server.
package daemon

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Scilence2022/CodeXomics-sub009/internal/config"
	"github.com/Scilence2022/CodeXomics-sub009/internal/history"
	"github.com/Scilence2022/CodeXomics-sub009/internal/logger"
	"github.com/Scilence2022/CodeXomics-sub009/internal/metrics"
	"github.com/Scilence2022/CodeXomics-sub009/pkg/classifier"
	"github.com/Scilence2022/CodeXomics-sub009/pkg/gateway"
	"github.com/Scilence2022/CodeXomics-sub009/pkg/genomics"
	"github.com/Scilence2022/CodeXomics-sub009/pkg/orchestrator"
	"github.com/Scilence2022/CodeXomics-sub009/pkg/plugins"
	"github.com/Scilence2022/CodeXomics-sub009/pkg/registry"
	"github.com/Scilence2022/CodeXomics-sub009/pkg/remote"
	"github.com/Scilence2022/CodeXomics-sub009/pkg/resolver"
	"github.com/Scilence2022/CodeXomics-sub009/pkg/sandbox"
)

// Daemon represents the CodeXomics dispatcher daemon service
type Daemon struct {
	config *config.Config
	logger *logger.Logger

	metrics *metrics.Metrics
	history *history.Store
	janitor *history.Janitor

	builtin        *registry.BuiltinAdapter
	fallback       *registry.BuiltinAdapter
	pluginRuntime  *plugins.Runtime
	pluginAdapter  *plugins.Adapter
	pluginWatcher  *plugins.Watcher
	remoteDelegate *remote.Delegate

	resolver     *resolver.Resolver
	classifier   *classifier.Classifier
	executor     *sandbox.Executor
	orchestrator *orchestrator.Orchestrator

	gatewayServer *gateway.Server
	metricsServer *http.Server

	lifecycle *LifecycleManager

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	startTime time.Time
	running   bool
	mu        sync.RWMutex
}

// New creates a new daemon instance
func New(cfg *config.Config, log *logger.Logger) (*Daemon, error) {
	ctx, cancel := context.WithCancel(context.Background())
	zl := log.GetZerolog()

	d := &Daemon{
		config:  cfg,
		logger:  log,
		metrics: metrics.NewMetrics(),
		ctx:     ctx,
		cancel:  cancel,
	}

	d.builtin = registry.NewBuiltinAdapter("builtin")
	if err := genomics.RegisterBuiltins(d.builtin); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to register builtin functions: %w", err)
	}
	if err := genomics.RegisterUIActions(d.builtin); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to register ui actions: %w", err)
	}

	// The fallback tier carries the sequence primitives only, so a broken
	// plugin override still resolves to a working implementation.
	d.fallback = registry.NewBuiltinAdapter("builtin-fallback")
	if err := genomics.RegisterBuiltins(d.fallback); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to register fallback functions: %w", err)
	}

	d.pluginRuntime = plugins.NewRuntime(zl)
	d.pluginAdapter = plugins.NewAdapter(d.pluginRuntime)

	adapters := []registry.Adapter{d.builtin, d.pluginAdapter}
	if cfg.Remote.Enabled {
		d.remoteDelegate = remote.NewDelegate(zl, remote.Options{
			Endpoint:    cfg.Remote.Endpoint,
			CallTimeout: cfg.Remote.CallTimeout,
		})
		adapters = append(adapters, remote.NewAdapter(d.remoteDelegate))
	}

	d.resolver = resolver.New(zl, adapters...)
	d.resolver.SetFallback(d.fallback)
	d.classifier = classifier.New()

	caps := sandbox.NewCapabilitySet(sandbox.NewMapState(nil), uiCommands())
	d.executor = sandbox.New(caps, sandbox.DefaultBudget)

	orch, err := orchestrator.New(d.resolver, d.classifier, d.executor, orchestrator.Config{
		ImmediateBudget:     cfg.Dispatch.ImmediateBudget,
		AnalysisBudget:      cfg.Dispatch.AnalysisBudget,
		RetrievalBudget:     cfg.Dispatch.RetrievalBudget,
		ExternalBudget:      cfg.Dispatch.ExternalBudget,
		ExternalConcurrency: cfg.Dispatch.ExternalConcurrency,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create orchestrator: %w", err)
	}
	orch.SetMetrics(d.metrics)
	d.orchestrator = orch

	if cfg.History.Enabled {
		store, err := history.NewStore(cfg.History.Path, zl)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to open history store: %w", err)
		}
		d.history = store
		orch.SetHistory(store)

		if cfg.History.Retention > 0 {
			schedule := cfg.History.PruneSchedule
			if schedule == "" {
				schedule = "@hourly"
			}
			janitor, err := history.NewJanitor(store, cfg.History.Retention, schedule, zl)
			if err != nil {
				cancel()
				return nil, fmt.Errorf("failed to create history janitor: %w", err)
			}
			d.janitor = janitor
		}
	}

	gw, err := gateway.NewServer(gateway.Config{
		Port:         cfg.Gateway.Port,
		SharedSecret: cfg.Gateway.SharedSecret,
		Orchestrator: orch,
		Classifier:   d.classifier,
		Adapters:     adapters,
		Logger:       zl,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create gateway: %w", err)
	}
	d.gatewayServer = gw

	d.lifecycle = NewLifecycleManager(cfg.DataDir, log)

	return d, nil
}

// uiCommands returns the allow-listed genome browser actions. The daemon has
// no browser of its own; each command acknowledges the action so the client
// that submitted the batch can apply it.
func uiCommands() map[string]sandbox.Command {
	ack := func(name string) sandbox.Command {
		return func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return map[string]interface{}{"action": name, "args": args}, nil
		}
	}
	return map[string]sandbox.Command{
		"navigate":             ack("navigate"),
		"zoom":                 ack("zoom"),
		"highlight-region":     ack("highlight-region"),
		"set-track-visibility": ack("set-track-visibility"),
	}
}

// Start starts the daemon and all its services
func (d *Daemon) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return fmt.Errorf("daemon is already running")
	}

	d.logger.Info().Msg("Starting CodeXomics dispatcher daemon")

	if err := d.lifecycle.Start(); err != nil {
		return fmt.Errorf("failed to start lifecycle manager: %w", err)
	}

	result, err := d.pluginRuntime.LoadFromDirs(d.ctx, d.config.Plugins.Dirs)
	if err != nil {
		return fmt.Errorf("failed to load plugins: %w", err)
	}
	d.metrics.PluginsLoaded.Set(float64(len(result.Loaded)))
	for id, loadErr := range result.Errors {
		d.logger.Warn().Err(loadErr).Str("plugin", id).Msg("Plugin failed to load")
	}

	if d.config.Plugins.Watch && len(d.config.Plugins.Dirs) > 0 {
		watcher, err := plugins.NewWatcher(d.logger.GetZerolog(), d.pluginRuntime, d.config.Plugins.Dirs)
		if err != nil {
			return fmt.Errorf("failed to start plugin watcher: %w", err)
		}
		d.pluginWatcher = watcher
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			watcher.Run(d.ctx)
		}()
	}

	if d.remoteDelegate != nil {
		if err := d.remoteDelegate.Connect(d.ctx); err != nil {
			// Remote functions resolve to NotFound until a reconnect
			// succeeds; builtins and plugins keep working.
			d.logger.Warn().Err(err).Str("endpoint", d.config.Remote.Endpoint).Msg("Remote delegate connection failed")
		}
	}

	if d.janitor != nil {
		d.janitor.Start()
	}

	if d.config.Metrics.Enabled {
		d.startMetricsServer()
	}

	if err := d.gatewayServer.Start(); err != nil {
		return fmt.Errorf("failed to start gateway: %w", err)
	}

	d.startTime = time.Now()
	d.running = true

	d.logger.Info().
		Int("port", d.config.Gateway.Port).
		Int("plugins", len(result.Loaded)).
		Bool("remote", d.remoteDelegate != nil).
		Msg("Daemon started")

	return nil
}

func (d *Daemon) startMetricsServer() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", d.metrics.Handler())
	d.metricsServer = &http.Server{Addr: d.config.Metrics.Addr, Handler: mux}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.logger.Info().Str("addr", d.config.Metrics.Addr).Msg("Starting metrics endpoint")
		if err := d.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			d.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
}

// Stop gracefully stops the daemon
func (d *Daemon) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return fmt.Errorf("daemon is not running")
	}

	d.logger.Info().Msg("Stopping daemon")

	if err := d.gatewayServer.Stop(); err != nil {
		d.logger.Error().Err(err).Msg("Failed to stop gateway")
	}

	d.cancel()

	if d.pluginWatcher != nil {
		if err := d.pluginWatcher.Close(); err != nil {
			d.logger.Error().Err(err).Msg("Failed to close plugin watcher")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := d.pluginRuntime.Shutdown(shutdownCtx); err != nil {
		d.logger.Error().Err(err).Msg("Failed to shut down plugin runtime")
	}

	if d.remoteDelegate != nil {
		if err := d.remoteDelegate.Close(); err != nil {
			d.logger.Error().Err(err).Msg("Failed to close remote delegate")
		}
	}

	if d.metricsServer != nil {
		if err := d.metricsServer.Shutdown(shutdownCtx); err != nil {
			d.logger.Error().Err(err).Msg("Failed to stop metrics server")
		}
	}

	if d.janitor != nil {
		d.janitor.Stop()
	}

	if d.history != nil {
		if err := d.history.Close(); err != nil {
			d.logger.Error().Err(err).Msg("Failed to close history store")
		}
	}

	if err := d.lifecycle.Stop(); err != nil {
		d.logger.Error().Err(err).Msg("Failed to stop lifecycle manager")
	}

	d.wg.Wait()
	d.running = false

	d.logger.Info().Msg("Daemon stopped")
	return nil
}

// Status holds a snapshot of the running daemon
type Status struct {
	Running       bool          `json:"running"`
	Uptime        time.Duration `json:"uptime"`
	GatewayPort   int           `json:"gateway_port"`
	PluginsLoaded int           `json:"plugins_loaded"`
	RemoteEnabled bool          `json:"remote_enabled"`
	HistoryPath   string        `json:"history_path,omitempty"`
}

// Status returns the current daemon status
func (d *Daemon) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s := Status{
		Running:       d.running,
		GatewayPort:   d.config.Gateway.Port,
		PluginsLoaded: len(d.pluginRuntime.Plugins()),
		RemoteEnabled: d.remoteDelegate != nil,
	}
	if d.running {
		s.Uptime = time.Since(d.startTime)
	}
	if d.history != nil {
		s.HistoryPath = d.config.History.Path
	}
	return s
}

// Orchestrator exposes the orchestrator, mainly for tests
func (d *Daemon) Orchestrator() *orchestrator.Orchestrator {
	return d.orchestrator
}
