package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Scilence2022/CodeXomics-sub009/pkg/plugins"
	"github.com/Scilence2022/CodeXomics-sub009/pkg/registry"
)

// stubRemote is a minimal remote-kind adapter for resolver tests
type stubRemote struct {
	names   []string
	version uint64
}

func (s *stubRemote) SourceID() string            { return "remote-delegate" }
func (s *stubRemote) Kind() registry.SourceKind   { return registry.KindRemote }
func (s *stubRemote) Version() uint64             { return s.version }
func (s *stubRemote) Entries() []registry.Entry {
	entries := make([]registry.Entry, 0, len(s.names))
	for _, name := range s.names {
		entries = append(entries, registry.Entry{
			QualifiedName: name,
			SourceID:      s.SourceID(),
			Kind:          registry.KindRemote,
		})
	}
	return entries
}
func (s *stubRemote) Invoke(ctx context.Context, entry registry.Entry, params map[string]interface{}) (interface{}, error) {
	return nil, nil
}

type noopPlugin struct{}

func (noopPlugin) Activate(ctx context.Context, config map[string]any) error { return nil }
func (noopPlugin) Deactivate(ctx context.Context) error                      { return nil }
func (noopPlugin) Execute(ctx context.Context, name string, params map[string]any) (map[string]any, error) {
	return map[string]any{}, nil
}

func newBuiltin(t *testing.T, names ...string) *registry.BuiltinAdapter {
	t.Helper()
	a := registry.NewBuiltinAdapter("core")
	for _, name := range names {
		require.NoError(t, a.Register(registry.Definition{
			Name:        name,
			Description: "builtin " + name,
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				return nil, nil
			},
		}))
	}
	return a
}

func newPluginAdapter(t *testing.T, rt *plugins.Runtime, id string, ops ...string) {
	t.Helper()
	functions := make([]plugins.FunctionExport, 0, len(ops))
	for _, op := range ops {
		functions = append(functions, plugins.FunctionExport{Name: op, Description: "op " + op})
	}
	require.NoError(t, rt.Attach(context.Background(), plugins.Manifest{
		ID: id, Name: id, Version: "1.0.0", Main: id, Functions: functions,
	}, noopPlugin{}))
}

func TestResolver_NotFound(t *testing.T) {
	r := New(zerolog.Nop(), newBuiltin(t, "gc-content"))

	_, err := r.Resolve("no-such-function")
	assert.True(t, errors.Is(err, registry.ErrNotFound))
}

func TestResolver_BuiltinBeatsPlugin(t *testing.T) {
	builtin := newBuiltin(t, "gc-content")
	rt := plugins.NewRuntime(zerolog.Nop())
	newPluginAdapter(t, rt, "genomic-analysis", "gc-content")

	r := New(zerolog.Nop(), builtin, plugins.NewAdapter(rt))

	res, err := r.Resolve("gc-content")
	require.NoError(t, err)
	assert.Equal(t, "core", res.Entry.SourceID)

	// The plugin implementation stays reachable under its qualified name.
	res, err = r.Resolve("genomic-analysis.gc-content")
	require.NoError(t, err)
	assert.Equal(t, registry.KindPlugin, res.Entry.Kind)
}

func TestResolver_FirstRegisteredPluginWinsBareName(t *testing.T) {
	rt := plugins.NewRuntime(zerolog.Nop())
	newPluginAdapter(t, rt, "phylogenetic-analysis", "buildTree")
	newPluginAdapter(t, rt, "biological-networks", "buildTree")

	r := New(zerolog.Nop(), plugins.NewAdapter(rt))

	// Stable across repeated resolutions.
	for i := 0; i < 5; i++ {
		res, err := r.Resolve("buildTree")
		require.NoError(t, err)
		assert.Equal(t, "phylogenetic-analysis.buildTree", res.Entry.QualifiedName)
	}
}

func TestResolver_BarePluginBeatsRemote(t *testing.T) {
	rt := plugins.NewRuntime(zerolog.Nop())
	newPluginAdapter(t, rt, "data-retrieval", "blast-search")
	remote := &stubRemote{names: []string{"blast-search", "fetch-sequence"}}

	r := New(zerolog.Nop(), plugins.NewAdapter(rt), remote)

	res, err := r.Resolve("blast-search")
	require.NoError(t, err)
	assert.Equal(t, registry.KindPlugin, res.Entry.Kind)

	res, err = r.Resolve("fetch-sequence")
	require.NoError(t, err)
	assert.Equal(t, registry.KindRemote, res.Entry.Kind)
}

func TestResolver_CacheInvalidation_Unload(t *testing.T) {
	rt := plugins.NewRuntime(zerolog.Nop())
	newPluginAdapter(t, rt, "ml-analysis", "predictGeneFunction")

	r := New(zerolog.Nop(), plugins.NewAdapter(rt))

	_, err := r.Resolve("ml-analysis.predictGeneFunction")
	require.NoError(t, err)

	require.NoError(t, rt.Unload(context.Background(), "ml-analysis"))

	_, err = r.Resolve("ml-analysis.predictGeneFunction")
	assert.True(t, errors.Is(err, registry.ErrNotFound), "stale entry served after unload")
	_, err = r.Resolve("predictGeneFunction")
	assert.True(t, errors.Is(err, registry.ErrNotFound))
}

func TestResolver_CacheInvalidation_LateRegistration(t *testing.T) {
	builtin := newBuiltin(t)
	r := New(zerolog.Nop(), builtin)

	_, err := r.Resolve("translate")
	require.Error(t, err)

	require.NoError(t, builtin.Register(registry.Definition{
		Name:        "translate",
		Description: "Translate DNA",
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			return nil, nil
		},
	}))

	res, err := r.Resolve("translate")
	require.NoError(t, err)
	assert.Equal(t, "translate", res.Entry.QualifiedName)
}

func TestResolver_ResolveFallback(t *testing.T) {
	rt := plugins.NewRuntime(zerolog.Nop())
	newPluginAdapter(t, rt, "genomic-analysis", "analyzeGCContent")

	r := New(zerolog.Nop(), plugins.NewAdapter(rt))

	_, err := r.ResolveFallback("analyzeGCContent")
	assert.True(t, errors.Is(err, registry.ErrNotFound))

	fallback := registry.NewBuiltinAdapter("legacy")
	require.NoError(t, fallback.Register(registry.Definition{
		Name:        "analyzeGCContent",
		Description: "Legacy GC content",
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			return "legacy", nil
		},
	}))
	r.SetFallback(fallback)

	// Bare and namespaced lookups both land on the legacy entry.
	res, err := r.ResolveFallback("analyzeGCContent")
	require.NoError(t, err)
	assert.Equal(t, "legacy", res.Entry.SourceID)

	res, err = r.ResolveFallback("genomic-analysis.analyzeGCContent")
	require.NoError(t, err)
	assert.Equal(t, "legacy", res.Entry.SourceID)
}
