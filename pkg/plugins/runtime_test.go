package plugins

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Scilence2022/CodeXomics-sub009/pkg/registry"
)

// fakePlugin is an in-process AnalysisPlugin for tests
type fakePlugin struct {
	activated   bool
	deactivated bool
	execute     func(name string, params map[string]any) (map[string]any, error)
}

func (f *fakePlugin) Activate(ctx context.Context, config map[string]any) error {
	f.activated = true
	return nil
}

func (f *fakePlugin) Deactivate(ctx context.Context) error {
	f.deactivated = true
	return nil
}

func (f *fakePlugin) Execute(ctx context.Context, name string, params map[string]any) (map[string]any, error) {
	if f.execute != nil {
		return f.execute(name, params)
	}
	return map[string]any{"function": name}, nil
}

func testManifest(id string, functions ...FunctionExport) Manifest {
	if len(functions) == 0 {
		functions = []FunctionExport{{Name: "run", Description: "Run"}}
	}
	return Manifest{
		ID:        id,
		Name:      id,
		Version:   "1.0.0",
		Main:      id,
		Functions: functions,
	}
}

func TestRuntime_AttachAndUnload(t *testing.T) {
	rt := NewRuntime(zerolog.Nop())
	impl := &fakePlugin{}

	v0 := rt.Version()
	require.NoError(t, rt.Attach(context.Background(), testManifest("ml-analysis"), impl))
	assert.True(t, impl.activated)
	assert.Greater(t, rt.Version(), v0)

	loaded, err := rt.Get("ml-analysis")
	require.NoError(t, err)
	assert.Equal(t, StateEnabled, loaded.State)

	v1 := rt.Version()
	require.NoError(t, rt.Unload(context.Background(), "ml-analysis"))
	assert.True(t, impl.deactivated)
	assert.Greater(t, rt.Version(), v1)

	_, err = rt.Get("ml-analysis")
	assert.Error(t, err)
}

func TestRuntime_Attach_DuplicateID(t *testing.T) {
	rt := NewRuntime(zerolog.Nop())
	require.NoError(t, rt.Attach(context.Background(), testManifest("dup"), &fakePlugin{}))
	assert.Error(t, rt.Attach(context.Background(), testManifest("dup"), &fakePlugin{}))
}

func TestRuntime_Attach_DependencyEnforced(t *testing.T) {
	rt := NewRuntime(zerolog.Nop())

	needy := testManifest("needy")
	needy.Dependencies = []Dependency{{PluginID: "base", Version: "^1.0.0"}}
	assert.Error(t, rt.Attach(context.Background(), needy, &fakePlugin{}))

	require.NoError(t, rt.Attach(context.Background(), testManifest("base"), &fakePlugin{}))
	assert.NoError(t, rt.Attach(context.Background(), needy, &fakePlugin{}))
}

func TestRuntime_PluginsPreserveLoadOrder(t *testing.T) {
	rt := NewRuntime(zerolog.Nop())
	ids := []string{"zeta", "alpha", "mid"}
	for _, id := range ids {
		require.NoError(t, rt.Attach(context.Background(), testManifest(id), &fakePlugin{}))
	}

	plugins := rt.Plugins()
	require.Len(t, plugins, 3)
	for i, id := range ids {
		assert.Equal(t, id, plugins[i].ID)
	}
}

func TestAdapter_Entries(t *testing.T) {
	rt := NewRuntime(zerolog.Nop())
	require.NoError(t, rt.Attach(context.Background(), testManifest("genomic-analysis",
		FunctionExport{Name: "analyzeGCContent", Description: "GC content"},
		FunctionExport{Name: "findMotifs", Description: "Motif search"},
	), &fakePlugin{}))
	require.NoError(t, rt.Attach(context.Background(), testManifest("ml-analysis",
		FunctionExport{Name: "predictGeneFunction", Description: "Gene function prediction"},
	), &fakePlugin{}))

	adapter := NewAdapter(rt)
	entries := adapter.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "genomic-analysis.analyzeGCContent", entries[0].QualifiedName)
	assert.Equal(t, "genomic-analysis.findMotifs", entries[1].QualifiedName)
	assert.Equal(t, "ml-analysis.predictGeneFunction", entries[2].QualifiedName)
	assert.Equal(t, registry.KindPlugin, entries[0].Kind)
}

func TestAdapter_Invoke(t *testing.T) {
	rt := NewRuntime(zerolog.Nop())
	impl := &fakePlugin{
		execute: func(name string, params map[string]any) (map[string]any, error) {
			return map[string]any{"function": name, "chromosome": params["chromosome"]}, nil
		},
	}
	require.NoError(t, rt.Attach(context.Background(), testManifest("genomic-analysis",
		FunctionExport{
			Name:        "analyzeGCContent",
			Description: "GC content",
			Parameters: []registry.Parameter{
				{Name: "chromosome", Type: "string", Required: true},
				{Name: "start", Type: "integer", Required: true},
				{Name: "end", Type: "integer", Required: true},
			},
		},
	), impl))

	adapter := NewAdapter(rt)
	entry := adapter.Entries()[0]

	result, err := adapter.Invoke(context.Background(), entry, map[string]interface{}{
		"chromosome": "chr1", "start": 1000, "end": 5000,
	})
	require.NoError(t, err)
	out := result.(map[string]any)
	assert.Equal(t, "analyzeGCContent", out["function"])
	assert.Equal(t, "chr1", out["chromosome"])
}

func TestAdapter_Invoke_SchemaViolation(t *testing.T) {
	rt := NewRuntime(zerolog.Nop())
	require.NoError(t, rt.Attach(context.Background(), testManifest("genomic-analysis",
		FunctionExport{
			Name:        "analyzeGCContent",
			Description: "GC content",
			Parameters: []registry.Parameter{
				{Name: "chromosome", Type: "string", Required: true},
			},
		},
	), &fakePlugin{}))

	adapter := NewAdapter(rt)
	entry := adapter.Entries()[0]

	_, err := adapter.Invoke(context.Background(), entry, map[string]interface{}{})
	var sv *registry.SchemaViolationError
	require.ErrorAs(t, err, &sv)
	assert.Equal(t, "chromosome", sv.Field)
}

func TestAdapter_Invoke_PluginError(t *testing.T) {
	rt := NewRuntime(zerolog.Nop())
	boom := fmt.Errorf("model unavailable")
	require.NoError(t, rt.Attach(context.Background(), testManifest("ml-analysis",
		FunctionExport{Name: "predictGeneFunction", Description: "Prediction"},
	), &fakePlugin{
		execute: func(name string, params map[string]any) (map[string]any, error) {
			return nil, boom
		},
	}))

	adapter := NewAdapter(rt)
	entry := adapter.Entries()[0]

	_, err := adapter.Invoke(context.Background(), entry, nil)
	var ie *registry.InvocationError
	require.ErrorAs(t, err, &ie)
	assert.ErrorIs(t, err, boom)
}

func TestAdapter_Invoke_AfterUnload(t *testing.T) {
	rt := NewRuntime(zerolog.Nop())
	require.NoError(t, rt.Attach(context.Background(), testManifest("ml-analysis",
		FunctionExport{Name: "predictGeneFunction", Description: "Prediction"},
	), &fakePlugin{}))

	adapter := NewAdapter(rt)
	entry := adapter.Entries()[0]

	require.NoError(t, rt.Unload(context.Background(), "ml-analysis"))

	_, err := adapter.Invoke(context.Background(), entry, nil)
	assert.True(t, errors.Is(err, registry.ErrNotFound))
	assert.Empty(t, adapter.Entries())
}
