package plugins

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validManifest = `{
  "id": "genomic-analysis",
  "name": "Genomic Analysis",
  "version": "1.2.0",
  "main": "genomic-analysis",
  "functions": [
    {
      "name": "analyzeGCContent",
      "description": "GC content over a chromosome region",
      "parameters": [
        {"name": "chromosome", "type": "string", "required": true},
        {"name": "start", "type": "integer", "required": true},
        {"name": "end", "type": "integer", "required": true}
      ]
    }
  ]
}`

func TestManifestLoader_LoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plugin.json")
	require.NoError(t, os.WriteFile(path, []byte(validManifest), 0644))

	loader := NewManifestLoader(zerolog.Nop())
	manifest, err := loader.LoadManifest(path)
	require.NoError(t, err)

	assert.Equal(t, "genomic-analysis", manifest.ID)
	assert.Equal(t, "1.2.0", manifest.Version)
	require.Len(t, manifest.Functions, 1)
	assert.Equal(t, "analyzeGCContent", manifest.Functions[0].Name)
	assert.Len(t, manifest.Functions[0].Parameters, 3)
}

func TestManifestLoader_LoadManifest_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `{nope`},
		{name: "missing functions", body: `{"id":"p","name":"P","version":"1.0.0","main":"p"}`},
		{name: "empty functions", body: `{"id":"p","name":"P","version":"1.0.0","main":"p","functions":[]}`},
		{name: "bad id", body: `{"id":"Bad_ID","name":"P","version":"1.0.0","main":"p","functions":[{"name":"f","description":"d"}]}`},
		{name: "bad version", body: `{"id":"p","name":"P","version":"1.0","main":"p","functions":[{"name":"f","description":"d"}]}`},
		{name: "bad param type", body: `{"id":"p","name":"P","version":"1.0.0","main":"p","functions":[{"name":"f","description":"d","parameters":[{"name":"x","type":"float"}]}]}`},
	}

	loader := NewManifestLoader(zerolog.Nop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "plugin.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0644))

			_, err := loader.LoadManifest(path)
			assert.Error(t, err)
		})
	}
}

func TestValidateManifest_DuplicateFunction(t *testing.T) {
	manifest := &Manifest{
		ID: "p", Name: "P", Version: "1.0.0", Main: "p",
		Functions: []FunctionExport{
			{Name: "f", Description: "d"},
			{Name: "f", Description: "d again"},
		},
	}
	assert.Error(t, ValidateManifest(manifest))
}

func TestCheckDependencies(t *testing.T) {
	dep := &Manifest{ID: "base", Name: "Base", Version: "1.4.0", Main: "base",
		Functions: []FunctionExport{{Name: "f", Description: "d"}}}
	loaded := map[string]*Manifest{"base": dep}

	ok := &Manifest{ID: "p", Name: "P", Version: "1.0.0", Main: "p",
		Functions:    []FunctionExport{{Name: "g", Description: "d"}},
		Dependencies: []Dependency{{PluginID: "base", Version: "^1.0.0"}}}
	assert.NoError(t, CheckDependencies(ok, loaded))

	tooNew := &Manifest{ID: "p", Name: "P", Version: "1.0.0", Main: "p",
		Functions:    []FunctionExport{{Name: "g", Description: "d"}},
		Dependencies: []Dependency{{PluginID: "base", Version: "^2.0.0"}}}
	assert.Error(t, CheckDependencies(tooNew, loaded))

	missing := &Manifest{ID: "p", Name: "P", Version: "1.0.0", Main: "p",
		Functions:    []FunctionExport{{Name: "g", Description: "d"}},
		Dependencies: []Dependency{{PluginID: "absent"}}}
	assert.Error(t, CheckDependencies(missing, loaded))
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()

	pluginDir := filepath.Join(dir, "genomic-analysis")
	require.NoError(t, os.MkdirAll(pluginDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(pluginDir, "plugin.json"), []byte(validManifest), 0644))

	// A directory without a manifest is ignored.
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "not-a-plugin"), 0755))

	discovered, err := Discover(zerolog.Nop(), []string{dir, "", filepath.Join(dir, "missing")})
	require.NoError(t, err)
	require.Len(t, discovered, 1)
	assert.Equal(t, "genomic-analysis", discovered[0].ID)
	assert.Equal(t, pluginDir, discovered[0].Path)
}
