// Package config holds the dispatcher daemon's configuration: file-based
// with environment overrides, validated before use.
package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Config represents the main CodeXomics dispatcher configuration
type Config struct {
	// Dispatch
	Dispatch DispatchConfig `json:"dispatch" mapstructure:"dispatch"`

	// Plugins
	Plugins PluginsConfig `json:"plugins" mapstructure:"plugins"`

	// Remote delegate
	Remote RemoteConfig `json:"remote" mapstructure:"remote"`

	// Gateway
	Gateway GatewayConfig `json:"gateway" mapstructure:"gateway"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Call history
	History HistoryConfig `json:"history" mapstructure:"history"`

	// Metrics
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// DispatchConfig holds per-class budgets and concurrency limits
type DispatchConfig struct {
	ImmediateBudget     time.Duration `json:"immediate_budget" mapstructure:"immediate_budget"`
	AnalysisBudget      time.Duration `json:"analysis_budget" mapstructure:"analysis_budget"`
	RetrievalBudget     time.Duration `json:"retrieval_budget" mapstructure:"retrieval_budget"`
	ExternalBudget      time.Duration `json:"external_budget" mapstructure:"external_budget"`
	ExternalConcurrency int           `json:"external_concurrency" mapstructure:"external_concurrency"`
}

// PluginsConfig holds plugin discovery settings
type PluginsConfig struct {
	Dirs  []string `json:"dirs" mapstructure:"dirs"`
	Watch bool     `json:"watch" mapstructure:"watch"`
}

// RemoteConfig holds remote delegate connection settings
type RemoteConfig struct {
	Enabled     bool          `json:"enabled" mapstructure:"enabled"`
	Endpoint    string        `json:"endpoint" mapstructure:"endpoint"`
	CallTimeout time.Duration `json:"call_timeout" mapstructure:"call_timeout"`
}

// GatewayConfig holds the call gateway listener settings
type GatewayConfig struct {
	Port         int    `json:"port" mapstructure:"port"`
	SharedSecret string `json:"shared_secret" mapstructure:"shared_secret"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Console   bool   `json:"console" mapstructure:"console"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
	MaxSize   int    `json:"max_size" mapstructure:"max_size"`
	MaxAge    int    `json:"max_age" mapstructure:"max_age"`
	Compress  bool   `json:"compress" mapstructure:"compress"`
}

// HistoryConfig holds call-history store settings
type HistoryConfig struct {
	Enabled       bool          `json:"enabled" mapstructure:"enabled"`
	Path          string        `json:"path" mapstructure:"path"`
	Retention     time.Duration `json:"retention" mapstructure:"retention"`
	PruneSchedule string        `json:"prune_schedule" mapstructure:"prune_schedule"`
}

// MetricsConfig holds the metrics endpoint settings
type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Addr    string `json:"addr" mapstructure:"addr"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Dispatch: DispatchConfig{
			ImmediateBudget:     5 * time.Second,
			AnalysisBudget:      60 * time.Second,
			RetrievalBudget:     30 * time.Second,
			ExternalBudget:      120 * time.Second,
			ExternalConcurrency: 4,
		},
		Plugins: PluginsConfig{
			Dirs:  []string{},
			Watch: false,
		},
		Remote: RemoteConfig{
			Enabled:     false,
			CallTimeout: 60 * time.Second,
		},
		Gateway: GatewayConfig{
			Port: 8482,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Console:   true,
			Pretty:    true,
			Redaction: true,
			MaxSize:   100,
			MaxAge:    7,
			Compress:  true,
		},
		History: HistoryConfig{
			Enabled:       true,
			Retention:     30 * 24 * time.Hour,
			PruneSchedule: "@hourly",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9090",
		},
	}
}

// String returns the config as a JSON string with sensitive values intact;
// callers log it through the redacting logger.
func (c *Config) String() string {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Sprintf("config marshal error: %v", err)
	}
	return string(data)
}
