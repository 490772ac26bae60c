package genomics

import (
	"context"
	"errors"
	"fmt"

	"github.com/Scilence2022/CodeXomics-sub009/pkg/registry"
	"github.com/Scilence2022/CodeXomics-sub009/pkg/sandbox"
)

// RegisterUIActions registers the genome browser UI actions with the given
// builtin adapter. The handlers dispatch through the sandbox command
// capabilities, so a call only succeeds when the host allow-listed the
// matching command.
func RegisterUIActions(adapter *registry.BuiltinAdapter) error {
	if adapter == nil {
		return errors.New("builtin adapter is required")
	}

	defs := []registry.Definition{
		uiActionDef("navigate", "Navigate the genome browser to a region.", []registry.Parameter{
			{Name: "chromosome", Type: "string", Description: "Chromosome or contig name", Required: true},
			{Name: "start", Type: "number", Description: "Region start (1-based)"},
			{Name: "end", Type: "number", Description: "Region end (inclusive)"},
		}),
		uiActionDef("zoom", "Zoom the genome browser view.", []registry.Parameter{
			{Name: "factor", Type: "number", Description: "Zoom factor, >1 zooms in", Required: true},
		}),
		uiActionDef("highlight-region", "Highlight a region in the genome browser.", []registry.Parameter{
			{Name: "chromosome", Type: "string", Description: "Chromosome or contig name", Required: true},
			{Name: "start", Type: "number", Description: "Region start (1-based)", Required: true},
			{Name: "end", Type: "number", Description: "Region end (inclusive)", Required: true},
		}),
		uiActionDef("set-track-visibility", "Show or hide a browser track.", []registry.Parameter{
			{Name: "track", Type: "string", Description: "Track identifier", Required: true},
			{Name: "visible", Type: "boolean", Description: "Whether the track is shown", Required: true},
		}),
	}

	for _, def := range defs {
		if err := adapter.Register(def); err != nil {
			return fmt.Errorf("failed to register %s: %w", def.Name, err)
		}
	}
	return nil
}

func uiActionDef(name, description string, params []registry.Parameter) registry.Definition {
	return registry.Definition{
		Name:        name,
		Description: description,
		Parameters:  params,
		Handler: func(ctx context.Context, callParams map[string]interface{}) (interface{}, error) {
			caps := sandbox.CapabilitiesFromContext(ctx)
			if caps == nil {
				return nil, fmt.Errorf("%s: no ui capabilities available", name)
			}
			return caps.RunCommand(ctx, name, callParams)
		},
	}
}
