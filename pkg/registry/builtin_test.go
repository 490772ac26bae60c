package registry

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinAdapter_Register(t *testing.T) {
	a := NewBuiltinAdapter("core")

	def := Definition{
		Name:        "reverse-complement",
		Description: "Reverse complement a DNA sequence",
		Parameters: []Parameter{
			{Name: "sequence", Type: "string", Description: "DNA sequence", Required: true},
		},
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			return "ok", nil
		},
	}

	err := a.Register(def)
	require.NoError(t, err)

	entries := a.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "reverse-complement", entries[0].QualifiedName)
	assert.Equal(t, "core", entries[0].SourceID)
	assert.Equal(t, KindBuiltin, entries[0].Kind)
}

func TestBuiltinAdapter_Register_Invalid(t *testing.T) {
	a := NewBuiltinAdapter("core")

	noop := func(ctx context.Context, params map[string]interface{}) (interface{}, error) { return nil, nil }

	tests := []struct {
		name string
		def  Definition
	}{
		{
			name: "empty name",
			def:  Definition{Description: "d", Handler: noop},
		},
		{
			name: "empty description",
			def:  Definition{Name: "f", Handler: noop},
		},
		{
			name: "nil handler",
			def:  Definition{Name: "f", Description: "d"},
		},
		{
			name: "bad parameter type",
			def: Definition{
				Name: "f", Description: "d", Handler: noop,
				Parameters: []Parameter{{Name: "p", Type: "float"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, a.Register(tt.def))
		})
	}
}

func TestBuiltinAdapter_Register_Duplicate(t *testing.T) {
	a := NewBuiltinAdapter("core")
	def := Definition{
		Name:        "gc-content",
		Description: "GC content",
		Handler:     func(ctx context.Context, params map[string]interface{}) (interface{}, error) { return nil, nil },
	}

	require.NoError(t, a.Register(def))
	assert.Error(t, a.Register(def))
}

func TestBuiltinAdapter_VersionCounter(t *testing.T) {
	a := NewBuiltinAdapter("core")
	v0 := a.Version()

	def := Definition{
		Name:        "translate",
		Description: "Translate DNA",
		Handler:     func(ctx context.Context, params map[string]interface{}) (interface{}, error) { return nil, nil },
	}
	require.NoError(t, a.Register(def))
	v1 := a.Version()
	assert.Greater(t, v1, v0)

	a.Unregister("translate")
	assert.Greater(t, a.Version(), v1)

	// Unregistering an unknown name must not bump the version
	v2 := a.Version()
	a.Unregister("translate")
	assert.Equal(t, v2, a.Version())
}

func TestBuiltinAdapter_EntriesPreserveRegistrationOrder(t *testing.T) {
	a := NewBuiltinAdapter("core")
	noop := func(ctx context.Context, params map[string]interface{}) (interface{}, error) { return nil, nil }

	names := []string{"zeta", "alpha", "mid"}
	for _, name := range names {
		require.NoError(t, a.Register(Definition{Name: name, Description: "d", Handler: noop}))
	}

	entries := a.Entries()
	require.Len(t, entries, 3)
	for i, name := range names {
		assert.Equal(t, name, entries[i].QualifiedName)
	}
}

func TestBuiltinAdapter_Invoke(t *testing.T) {
	a := NewBuiltinAdapter("core")
	require.NoError(t, a.Register(Definition{
		Name:        "echo",
		Description: "Echo the message back",
		Parameters: []Parameter{
			{Name: "message", Type: "string", Description: "Message", Required: true},
		},
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			return params["message"], nil
		},
	}))

	entry := a.Entries()[0]
	result, err := a.Invoke(context.Background(), entry, map[string]interface{}{"message": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", result)
}

func TestBuiltinAdapter_Invoke_SchemaViolation(t *testing.T) {
	a := NewBuiltinAdapter("core")
	require.NoError(t, a.Register(Definition{
		Name:        "gc-content",
		Description: "GC content of a region",
		Parameters: []Parameter{
			{Name: "chromosome", Type: "string", Description: "Chromosome", Required: true},
			{Name: "start", Type: "integer", Description: "Start", Required: true},
		},
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			return nil, nil
		},
	}))

	entry := a.Entries()[0]

	// missing required field
	_, err := a.Invoke(context.Background(), entry, map[string]interface{}{"chromosome": "chr1"})
	var sv *SchemaViolationError
	require.ErrorAs(t, err, &sv)
	assert.Equal(t, "start", sv.Field)

	// wrong type
	_, err = a.Invoke(context.Background(), entry, map[string]interface{}{"chromosome": "chr1", "start": "oops"})
	require.ErrorAs(t, err, &sv)
	assert.Equal(t, "start", sv.Field)
}

func TestBuiltinAdapter_Invoke_HandlerError(t *testing.T) {
	a := NewBuiltinAdapter("core")
	boom := fmt.Errorf("bad input")
	require.NoError(t, a.Register(Definition{
		Name:        "failing",
		Description: "Always fails",
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			return nil, boom
		},
	}))

	entry := a.Entries()[0]
	_, err := a.Invoke(context.Background(), entry, nil)
	var ie *InvocationError
	require.ErrorAs(t, err, &ie)
	assert.ErrorIs(t, err, boom)
}

func TestBuiltinAdapter_Invoke_AfterUnregister(t *testing.T) {
	a := NewBuiltinAdapter("core")
	require.NoError(t, a.Register(Definition{
		Name:        "transient",
		Description: "Unloaded mid-session",
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			return "value", nil
		},
	}))

	entry := a.Entries()[0]
	a.Unregister("transient")

	_, err := a.Invoke(context.Background(), entry, nil)
	assert.True(t, errors.Is(err, ErrNotFound))
}
