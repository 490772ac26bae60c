package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Scilence2022/CodeXomics-sub009/pkg/orchestrator"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "history.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewStoreRequiresPath(t *testing.T) {
	_, err := NewStore("", zerolog.Nop())
	assert.Error(t, err)
}

func TestRecordAndBatch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, "batch-1", 0, orchestrator.CallResult{
		ToolName: "gc-content",
		Status:   orchestrator.StatusSuccess,
		Value:    map[string]interface{}{"gc": 0.42},
		SourceID: "builtin",
	}, 120*time.Millisecond))

	require.NoError(t, store.Record(ctx, "batch-1", 1, orchestrator.CallResult{
		ToolName: "ml-analysis.predictGeneFunction",
		Status:   orchestrator.StatusFailure,
		Error:    &orchestrator.ErrorDetail{Kind: orchestrator.KindTimeout, Message: "budget exceeded"},
		SourceID: "plugins",
	}, 2*time.Second))

	rows, err := store.Batch(ctx, "batch-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "gc-content", rows[0].ToolName)
	assert.Equal(t, "success", rows[0].Status)
	assert.Contains(t, rows[0].Value, "0.42")
	assert.Equal(t, int64(120), rows[0].DurationMS)

	assert.Equal(t, "failure", rows[1].Status)
	assert.Equal(t, "timeout", rows[1].ErrorKind)
	assert.Equal(t, "budget exceeded", rows[1].ErrorMsg)
}

func TestBatchIsolation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, "batch-a", 0, orchestrator.CallResult{ToolName: "translate", Status: orchestrator.StatusSuccess}, time.Millisecond))
	require.NoError(t, store.Record(ctx, "batch-b", 0, orchestrator.CallResult{ToolName: "navigate", Status: orchestrator.StatusSuccess}, time.Millisecond))

	rows, err := store.Batch(ctx, "batch-a")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "translate", rows[0].ToolName)
}

func TestRecent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Record(ctx, "batch-1", i, orchestrator.CallResult{
			ToolName: "gc-content",
			Status:   orchestrator.StatusSuccess,
		}, time.Millisecond))
	}

	rows, err := store.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	// Newest first
	assert.Equal(t, 4, rows[0].CallIndex)
}

func TestFailureCounts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, "b", 0, orchestrator.CallResult{
		ToolName: "x", Status: orchestrator.StatusFailure,
		Error: &orchestrator.ErrorDetail{Kind: orchestrator.KindNotFound, Message: "nope"},
	}, time.Millisecond))
	require.NoError(t, store.Record(ctx, "b", 1, orchestrator.CallResult{
		ToolName: "y", Status: orchestrator.StatusFailure,
		Error: &orchestrator.ErrorDetail{Kind: orchestrator.KindNotFound, Message: "nope"},
	}, time.Millisecond))
	require.NoError(t, store.Record(ctx, "b", 2, orchestrator.CallResult{
		ToolName: "z", Status: orchestrator.StatusSuccess,
	}, time.Millisecond))

	counts, err := store.FailureCounts(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, counts["not_found"])
	assert.NotContains(t, counts, "timeout")
}

func TestPrune(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, "b", 0, orchestrator.CallResult{ToolName: "x", Status: orchestrator.StatusSuccess}, time.Millisecond))

	// Nothing is older than an hour ago
	removed, err := store.Prune(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), removed)

	// Everything is older than an hour from now
	removed, err = store.Prune(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	rows, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
