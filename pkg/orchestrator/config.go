package orchestrator

import (
	"fmt"
	"time"

	"github.com/Scilence2022/CodeXomics-sub009/pkg/classifier"
)

// Config holds the per-class time budgets and concurrency limits applied
// by RunBatch.
type Config struct {
	ImmediateBudget time.Duration `json:"immediate_budget" yaml:"immediate_budget"`
	AnalysisBudget  time.Duration `json:"analysis_budget" yaml:"analysis_budget"`
	RetrievalBudget time.Duration `json:"retrieval_budget" yaml:"retrieval_budget"`
	ExternalBudget  time.Duration `json:"external_budget" yaml:"external_budget"`

	// ExternalConcurrency caps concurrent ExternalService calls within a
	// wave. Other parallel classes run unbounded.
	ExternalConcurrency int `json:"external_concurrency" yaml:"external_concurrency"`
}

// DefaultConfig returns the budgets used when the host supplies none
func DefaultConfig() Config {
	return Config{
		ImmediateBudget:     5 * time.Second,
		AnalysisBudget:      60 * time.Second,
		RetrievalBudget:     30 * time.Second,
		ExternalBudget:      120 * time.Second,
		ExternalConcurrency: 4,
	}
}

// Validate validates the orchestrator configuration
func (c Config) Validate() error {
	if c.ImmediateBudget <= 0 {
		return fmt.Errorf("immediate_budget must be positive, got: %v", c.ImmediateBudget)
	}
	if c.AnalysisBudget <= 0 {
		return fmt.Errorf("analysis_budget must be positive, got: %v", c.AnalysisBudget)
	}
	if c.RetrievalBudget <= 0 {
		return fmt.Errorf("retrieval_budget must be positive, got: %v", c.RetrievalBudget)
	}
	if c.ExternalBudget <= 0 {
		return fmt.Errorf("external_budget must be positive, got: %v", c.ExternalBudget)
	}
	if c.ExternalConcurrency <= 0 {
		return fmt.Errorf("external_concurrency must be positive, got: %d", c.ExternalConcurrency)
	}
	return nil
}

func (c Config) budgetFor(class classifier.Class) time.Duration {
	switch class {
	case classifier.ClassImmediate:
		return c.ImmediateBudget
	case classifier.ClassDataRetrieval:
		return c.RetrievalBudget
	case classifier.ClassExternalService:
		return c.ExternalBudget
	default:
		return c.AnalysisBudget
	}
}
