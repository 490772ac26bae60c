package genomics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Scilence2022/CodeXomics-sub009/pkg/registry"
	"github.com/Scilence2022/CodeXomics-sub009/pkg/sandbox"
)

func uiEntry(t *testing.T, adapter *registry.BuiltinAdapter, name string) registry.Entry {
	t.Helper()
	for _, entry := range adapter.Entries() {
		if entry.QualifiedName == name {
			return entry
		}
	}
	t.Fatalf("entry %s not registered", name)
	return registry.Entry{}
}

func TestRegisterUIActions(t *testing.T) {
	adapter := registry.NewBuiltinAdapter("builtin")
	require.NoError(t, RegisterUIActions(adapter))

	names := make([]string, 0, 4)
	for _, entry := range adapter.Entries() {
		names = append(names, entry.QualifiedName)
	}
	assert.ElementsMatch(t, []string{"navigate", "zoom", "highlight-region", "set-track-visibility"}, names)
}

func TestRegisterUIActionsNilAdapter(t *testing.T) {
	assert.Error(t, RegisterUIActions(nil))
}

func TestUIActionDispatchesCommand(t *testing.T) {
	adapter := registry.NewBuiltinAdapter("builtin")
	require.NoError(t, RegisterUIActions(adapter))

	var gotArgs map[string]interface{}
	caps := sandbox.NewCapabilitySet(nil, map[string]sandbox.Command{
		"navigate": func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			gotArgs = args
			return map[string]interface{}{"applied": true}, nil
		},
	})

	ctx := sandbox.WithCapabilities(context.Background(), caps)
	entry := uiEntry(t, adapter, "navigate")
	result, err := adapter.Invoke(ctx, entry, map[string]interface{}{"chromosome": "chr2", "start": float64(100), "end": float64(500)})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"applied": true}, result)
	assert.Equal(t, "chr2", gotArgs["chromosome"])
}

func TestUIActionWithoutCapabilities(t *testing.T) {
	adapter := registry.NewBuiltinAdapter("builtin")
	require.NoError(t, RegisterUIActions(adapter))

	entry := uiEntry(t, adapter, "zoom")
	_, err := adapter.Invoke(context.Background(), entry, map[string]interface{}{"factor": float64(2)})
	assert.ErrorContains(t, err, "no ui capabilities")
}

func TestUIActionOutsideAllowList(t *testing.T) {
	adapter := registry.NewBuiltinAdapter("builtin")
	require.NoError(t, RegisterUIActions(adapter))

	caps := sandbox.NewCapabilitySet(nil, map[string]sandbox.Command{
		"navigate": func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return nil, nil
		},
	})

	ctx := sandbox.WithCapabilities(context.Background(), caps)
	entry := uiEntry(t, adapter, "zoom")
	_, err := adapter.Invoke(ctx, entry, map[string]interface{}{"factor": float64(2)})
	assert.ErrorIs(t, err, sandbox.ErrCommandNotAllowed)
}
