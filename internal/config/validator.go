package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateLogLevel validates a logging level
func (v *Validator) ValidateLogLevel(level string) error {
	switch strings.ToLower(level) {
	case "trace", "debug", "info", "warn", "error", "fatal":
		return nil
	default:
		return fmt.Errorf("invalid log level: %s", level)
	}
}

// ValidateRemoteEndpoint validates a remote delegate endpoint URL
func (v *Validator) ValidateRemoteEndpoint(endpoint string) error {
	if endpoint == "" {
		return fmt.Errorf("remote endpoint cannot be empty")
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid remote endpoint: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("remote endpoint must use ws or wss scheme, got: %s", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("remote endpoint missing host")
	}

	return nil
}

// ValidateDispatch validates the dispatch section
func (v *Validator) ValidateDispatch(cfg DispatchConfig) error {
	if cfg.ImmediateBudget <= 0 {
		return fmt.Errorf("dispatch.immediate_budget must be positive")
	}
	if cfg.AnalysisBudget <= 0 {
		return fmt.Errorf("dispatch.analysis_budget must be positive")
	}
	if cfg.RetrievalBudget <= 0 {
		return fmt.Errorf("dispatch.retrieval_budget must be positive")
	}
	if cfg.ExternalBudget <= 0 {
		return fmt.Errorf("dispatch.external_budget must be positive")
	}
	if cfg.ExternalConcurrency <= 0 {
		return fmt.Errorf("dispatch.external_concurrency must be positive")
	}
	return nil
}

// ValidateConfig validates the complete configuration
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errors []error

	if err := v.ValidateDispatch(cfg.Dispatch); err != nil {
		errors = append(errors, err)
	}

	if cfg.Logging.Level != "" {
		if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
			errors = append(errors, err)
		}
	}

	if cfg.Remote.Enabled {
		if err := v.ValidateRemoteEndpoint(cfg.Remote.Endpoint); err != nil {
			errors = append(errors, err)
		}
		if cfg.Remote.CallTimeout <= 0 {
			errors = append(errors, fmt.Errorf("remote.call_timeout must be positive"))
		}
	}

	if cfg.Gateway.Port <= 0 || cfg.Gateway.Port > 65535 {
		errors = append(errors, fmt.Errorf("gateway.port must be between 1 and 65535"))
	}

	if cfg.History.Enabled && cfg.History.Path == "" && cfg.DataDir == "" {
		errors = append(errors, fmt.Errorf("history.path is required when history is enabled and no data_dir is set"))
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		errors = append(errors, fmt.Errorf("metrics.addr is required when metrics are enabled"))
	}

	return errors
}
