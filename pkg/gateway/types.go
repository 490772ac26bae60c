// Package gateway exposes the dispatcher to the assistant layer over HTTP
// and websocket: batches of calls in, ordered results out.
package gateway

import (
	"github.com/Scilence2022/CodeXomics-sub009/pkg/orchestrator"
)

// BatchMessage is one inbound websocket request
type BatchMessage struct {
	ID    string                     `json:"id"`
	Calls []orchestrator.CallRequest `json:"calls"`
}

// ResultMessage is the response to one BatchMessage
type ResultMessage struct {
	ID      string                    `json:"id"`
	Results []orchestrator.CallResult `json:"results,omitempty"`
	Error   string                    `json:"error,omitempty"`
}

// CatalogEntry describes one callable function to the assistant layer
type CatalogEntry struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	SourceID    string `json:"source_id"`
	Class       string `json:"class"`
}
