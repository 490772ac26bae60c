// Package classifier assigns each resolved call a priority class that
// drives wave scheduling.
package classifier

import (
	"strings"

	"github.com/Scilence2022/CodeXomics-sub009/pkg/registry"
)

// Class is the execution class of a call. Lower priority numbers run
// earlier; Immediate calls additionally run serially.
type Class string

const (
	ClassImmediate        Class = "immediate"
	ClassSequenceAnalysis Class = "sequence-analysis"
	ClassAdvancedAnalysis Class = "advanced-analysis"
	ClassDataRetrieval    Class = "data-retrieval"
	ClassExternalService  Class = "external-service"
)

// AllClasses returns every class in ascending priority order
func AllClasses() []Class {
	return []Class{
		ClassImmediate,
		ClassSequenceAnalysis,
		ClassAdvancedAnalysis,
		ClassDataRetrieval,
		ClassExternalService,
	}
}

// Priority returns the class's scheduling priority, 1 being highest
func (c Class) Priority() int {
	switch c {
	case ClassImmediate:
		return 1
	case ClassSequenceAnalysis:
		return 2
	case ClassAdvancedAnalysis:
		return 3
	case ClassDataRetrieval:
		return 4
	case ClassExternalService:
		return 5
	default:
		return int(^uint(0) >> 1)
	}
}

// Parallel reports whether calls of this class may run concurrently with
// other calls in the same wave. Immediate calls have user-visible side
// effects whose order matters, so they stay serial.
func (c Class) Parallel() bool {
	return c != ClassImmediate
}

// advancedNamespaces are the plugin namespaces carrying compute-heavy
// analysis functions.
var advancedNamespaces = []string{
	"phylogenetic-analysis.",
	"biological-networks.",
	"ml-analysis.",
}

// Classifier maps qualified call names onto execution classes. It is a
// pure rule table; the same name always yields the same class.
type Classifier struct {
	uiActions          map[string]bool
	sequencePrimitives map[string]bool
	dataFetch          map[string]bool
}

// New creates a classifier with the default rule table
func New() *Classifier {
	return &Classifier{
		uiActions: map[string]bool{
			"navigate":             true,
			"zoom":                 true,
			"highlight-region":     true,
			"set-track-visibility": true,
		},
		sequencePrimitives: map[string]bool{
			"reverse-complement": true,
			"gc-content":         true,
			"translate":          true,
			"find-orfs":          true,
			"codon-usage":        true,
		},
		dataFetch: map[string]bool{
			"fetch-sequence":   true,
			"fetch-annotation": true,
			"blast-search":     true,
		},
	}
}

// Classify assigns a class to a resolved call. Rules are checked in order
// and the first match wins; every name yields exactly one class.
func (c *Classifier) Classify(name string, kind registry.SourceKind) Class {
	if strings.HasPrefix(name, "ui.") || c.uiActions[name] {
		return ClassImmediate
	}

	if strings.HasPrefix(name, "genomic-analysis.") || c.sequencePrimitives[name] {
		return ClassSequenceAnalysis
	}

	for _, ns := range advancedNamespaces {
		if strings.HasPrefix(name, ns) {
			return ClassAdvancedAnalysis
		}
	}

	if strings.HasPrefix(name, "data-retrieval.") || c.dataFetch[name] {
		return ClassDataRetrieval
	}

	if kind == registry.KindRemote {
		return ClassExternalService
	}

	// Unknown names default to analysis priority so UI feedback is never
	// starved by a misnamed call.
	return ClassSequenceAnalysis
}
