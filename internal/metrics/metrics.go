package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the dispatcher
type Metrics struct {
	registry *prometheus.Registry

	// Call metrics
	CallsTotal      *prometheus.CounterVec
	CallDuration    *prometheus.HistogramVec
	CallsInFlight   prometheus.Gauge
	CallErrorsTotal *prometheus.CounterVec

	// Wave metrics
	WaveDuration *prometheus.HistogramVec
	BatchesTotal prometheus.Counter

	// Plugin metrics
	PluginsLoaded      prometheus.Gauge
	PluginReloadsTotal prometheus.Counter

	// Remote delegate metrics
	RemoteCallsTotal      *prometheus.CounterVec
	RemoteReconnectsTotal prometheus.Counter
}

// NewMetrics creates and registers all metrics
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		// Call metrics
		CallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "calls_total",
				Help: "Total number of dispatched calls",
			},
			[]string{"tool_name", "status"},
		),
		CallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "call_duration_seconds",
				Help:    "Duration of dispatched calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tool_name"},
		),
		CallsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "calls_in_flight",
				Help: "Number of calls currently executing",
			},
		),
		CallErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "call_errors_total",
				Help: "Total number of failed calls",
			},
			[]string{"tool_name", "error_kind"},
		),

		// Wave metrics
		WaveDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wave_duration_seconds",
				Help:    "Duration of execution waves in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"class"},
		),
		BatchesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "batches_total",
				Help: "Total number of call batches run",
			},
		),

		// Plugin metrics
		PluginsLoaded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "plugins_loaded",
				Help: "Number of currently loaded plugins",
			},
		),
		PluginReloadsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "plugin_reloads_total",
				Help: "Total number of plugin reloads",
			},
		),

		// Remote delegate metrics
		RemoteCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "remote_calls_total",
				Help: "Total number of calls delegated to the remote service",
			},
			[]string{"status"},
		),
		RemoteReconnectsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "remote_reconnects_total",
				Help: "Total number of remote delegate reconnects",
			},
		),
	}

	// Register all metrics
	m.registerMetrics()

	return m
}

// registerMetrics registers all metrics with the registry
func (m *Metrics) registerMetrics() {
	// Call metrics
	m.registry.MustRegister(m.CallsTotal)
	m.registry.MustRegister(m.CallDuration)
	m.registry.MustRegister(m.CallsInFlight)
	m.registry.MustRegister(m.CallErrorsTotal)

	// Wave metrics
	m.registry.MustRegister(m.WaveDuration)
	m.registry.MustRegister(m.BatchesTotal)

	// Plugin metrics
	m.registry.MustRegister(m.PluginsLoaded)
	m.registry.MustRegister(m.PluginReloadsTotal)

	// Remote delegate metrics
	m.registry.MustRegister(m.RemoteCallsTotal)
	m.registry.MustRegister(m.RemoteReconnectsTotal)
}

// CallStarted marks a call as in flight
func (m *Metrics) CallStarted() {
	m.CallsInFlight.Inc()
}

// CallFinished marks a call as no longer in flight
func (m *Metrics) CallFinished() {
	m.CallsInFlight.Dec()
}

// ObserveCall records one completed call
func (m *Metrics) ObserveCall(tool string, status string, duration time.Duration) {
	m.CallsTotal.WithLabelValues(tool, status).Inc()
	m.CallDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// ObserveWave records one completed wave
func (m *Metrics) ObserveWave(class string, duration time.Duration) {
	m.WaveDuration.WithLabelValues(class).Observe(duration.Seconds())
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
