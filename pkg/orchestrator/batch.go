package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
)

// RunBatchJSON decodes a raw batch (a JSON array of call objects) and runs
// it. Malformed input is the only batch-fatal condition: it fails here,
// before any resolution begins.
func (o *Orchestrator) RunBatchJSON(ctx context.Context, raw []byte) ([]CallResult, error) {
	var requests []CallRequest
	if err := json.Unmarshal(raw, &requests); err != nil {
		return nil, fmt.Errorf("malformed batch: %w", err)
	}
	for i, req := range requests {
		if req.ToolName == "" {
			return nil, fmt.Errorf("malformed batch: call %d has no tool_name", i)
		}
	}
	return o.RunBatch(ctx, requests), nil
}
