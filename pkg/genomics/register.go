package genomics

import (
	"context"
	"errors"
	"fmt"

	"github.com/Scilence2022/CodeXomics-sub009/pkg/registry"
)

// RegisterBuiltins registers the sequence analysis primitives with the
// given builtin adapter.
func RegisterBuiltins(adapter *registry.BuiltinAdapter) error {
	if adapter == nil {
		return errors.New("builtin adapter is required")
	}

	defs := []registry.Definition{
		reverseComplementDef(),
		gcContentDef(),
		translateDef(),
		findORFsDef(),
		codonUsageDef(),
	}

	for _, def := range defs {
		if err := adapter.Register(def); err != nil {
			return fmt.Errorf("failed to register %s: %w", def.Name, err)
		}
	}
	return nil
}

func sequenceParam() registry.Parameter {
	return registry.Parameter{Name: "sequence", Type: "string", Description: "DNA sequence", Required: true}
}

func reverseComplementDef() registry.Definition {
	return registry.Definition{
		Name:        "reverse-complement",
		Description: "Compute the reverse complement of a DNA sequence.",
		Parameters:  []registry.Parameter{sequenceParam()},
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			seq, _ := params["sequence"].(string)
			rc, err := ReverseComplement(seq)
			if err != nil {
				return nil, err
			}
			return map[string]interface{}{"sequence": rc, "length": len(rc)}, nil
		},
	}
}

func gcContentDef() registry.Definition {
	return registry.Definition{
		Name:        "gc-content",
		Description: "Compute the GC fraction of a DNA sequence.",
		Parameters:  []registry.Parameter{sequenceParam()},
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			seq, _ := params["sequence"].(string)
			gc, err := GCContent(seq)
			if err != nil {
				return nil, err
			}
			return map[string]interface{}{"gc_content": gc, "length": len(seq)}, nil
		},
	}
}

func translateDef() registry.Definition {
	return registry.Definition{
		Name:        "translate",
		Description: "Translate a DNA sequence into protein using the standard genetic code.",
		Parameters:  []registry.Parameter{sequenceParam()},
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			seq, _ := params["sequence"].(string)
			protein, err := Translate(seq)
			if err != nil {
				return nil, err
			}
			return map[string]interface{}{"protein": protein, "length": len(protein)}, nil
		},
	}
}

func findORFsDef() registry.Definition {
	return registry.Definition{
		Name:        "find-orfs",
		Description: "Find open reading frames on both strands of a DNA sequence.",
		Parameters: []registry.Parameter{
			sequenceParam(),
			{Name: "min_length", Type: "integer", Description: "Minimum ORF length in amino acids", Required: false, Default: 30},
		},
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			seq, _ := params["sequence"].(string)
			minLength := 30
			if raw, ok := params["min_length"].(float64); ok && raw > 0 {
				minLength = int(raw)
			}
			orfs, err := FindORFs(seq, minLength)
			if err != nil {
				return nil, err
			}
			return map[string]interface{}{"orfs": orfs, "count": len(orfs)}, nil
		},
	}
}

func codonUsageDef() registry.Definition {
	return registry.Definition{
		Name:        "codon-usage",
		Description: "Analyze codon usage of a coding sequence and compute its codon adaptation index.",
		Parameters:  []registry.Parameter{sequenceParam()},
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			seq, _ := params["sequence"].(string)
			return AnalyzeCodonUsage(seq)
		},
	}
}
