package history

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Scilence2022/CodeXomics-sub009/pkg/orchestrator"
)

func TestNewJanitorValidation(t *testing.T) {
	store := newTestStore(t)

	_, err := NewJanitor(nil, time.Hour, "@hourly", zerolog.Nop())
	assert.Error(t, err)

	_, err = NewJanitor(store, 0, "@hourly", zerolog.Nop())
	assert.Error(t, err)

	_, err = NewJanitor(store, time.Hour, "not a schedule", zerolog.Nop())
	assert.Error(t, err)
}

func TestJanitorStartStop(t *testing.T) {
	store := newTestStore(t)

	j, err := NewJanitor(store, 24*time.Hour, "@hourly", zerolog.Nop())
	require.NoError(t, err)

	j.Start()
	j.Stop()
}

func TestJanitorPrune(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, "batch-old", 0, orchestrator.CallResult{
		ToolName: "gc-content",
		Status:   orchestrator.StatusSuccess,
		SourceID: "builtin",
	}, time.Millisecond))

	j, err := NewJanitor(store, time.Nanosecond, "@hourly", zerolog.Nop())
	require.NoError(t, err)

	// Rows carry second-resolution timestamps, so wait for the cutoff to
	// pass the recorded row.
	time.Sleep(1100 * time.Millisecond)
	j.prune()

	rows, err := store.Batch(ctx, "batch-old")
	require.NoError(t, err)
	assert.Empty(t, rows)
}
