package plugins

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"
)

var (
	// pluginIDRegex validates plugin ID format (lowercase alphanumeric with hyphens)
	pluginIDRegex = regexp.MustCompile(`^[a-z0-9-]+$`)

	// semverRegex validates semver version format
	semverRegex = regexp.MustCompile(`^\d+\.\d+\.\d+$`)
)

// ManifestLoader loads and validates plugin manifests
type ManifestLoader struct {
	logger       zerolog.Logger
	schemaLoader gojsonschema.JSONLoader
}

// NewManifestLoader creates a new manifest loader
func NewManifestLoader(logger zerolog.Logger) *ManifestLoader {
	return &ManifestLoader{
		logger:       logger.With().Str("component", "manifest-loader").Logger(),
		schemaLoader: gojsonschema.NewStringLoader(ManifestSchema),
	}
}

// LoadManifest loads and validates a plugin manifest from a file
func (m *ManifestLoader) LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest file: %w", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest JSON: %w", err)
	}

	if err := m.validateSchema(data); err != nil {
		return nil, fmt.Errorf("manifest schema validation failed: %w", err)
	}

	if err := ValidateManifest(&manifest); err != nil {
		return nil, fmt.Errorf("manifest validation failed: %w", err)
	}

	m.logger.Debug().
		Str("id", manifest.ID).
		Str("version", manifest.Version).
		Int("functions", len(manifest.Functions)).
		Msg("Loaded manifest")

	return &manifest, nil
}

// validateSchema validates the manifest against the JSON schema
func (m *ManifestLoader) validateSchema(data []byte) error {
	result, err := gojsonschema.Validate(m.schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if !result.Valid() {
		var errMsg string
		for i, err := range result.Errors() {
			if i > 0 {
				errMsg += "; "
			}
			errMsg += err.String()
		}
		return fmt.Errorf("schema validation errors: %s", errMsg)
	}

	return nil
}

// ValidateManifest performs validation beyond the JSON schema
func ValidateManifest(manifest *Manifest) error {
	if !pluginIDRegex.MatchString(manifest.ID) {
		return fmt.Errorf("invalid plugin ID format: %s (must be lowercase alphanumeric with hyphens)", manifest.ID)
	}

	if !semverRegex.MatchString(manifest.Version) {
		return fmt.Errorf("invalid version format: %s (must be semver: X.Y.Z)", manifest.Version)
	}

	if manifest.Main == "" {
		return fmt.Errorf("main entry point cannot be empty")
	}

	if len(manifest.Functions) == 0 {
		return fmt.Errorf("plugin must export at least one function")
	}

	seen := make(map[string]bool)
	for i, fn := range manifest.Functions {
		if fn.Name == "" {
			return fmt.Errorf("function %d: name cannot be empty", i)
		}
		if seen[fn.Name] {
			return fmt.Errorf("function %d: duplicate function name %s", i, fn.Name)
		}
		seen[fn.Name] = true
	}

	for i, dep := range manifest.Dependencies {
		if dep.PluginID == "" {
			return fmt.Errorf("dependency %d: pluginId cannot be empty", i)
		}
		if dep.Version != "" {
			if _, err := semver.NewConstraint(dep.Version); err != nil {
				return fmt.Errorf("dependency %d: invalid version constraint %q: %w", i, dep.Version, err)
			}
		}
	}

	return nil
}

// CheckDependencies verifies a manifest's dependencies against the set of
// already loaded plugins.
func CheckDependencies(manifest *Manifest, loaded map[string]*Manifest) error {
	for _, dep := range manifest.Dependencies {
		depManifest, exists := loaded[dep.PluginID]
		if !exists {
			return fmt.Errorf("missing dependency: %s", dep.PluginID)
		}
		if dep.Version == "" {
			continue
		}
		constraint, err := semver.NewConstraint(dep.Version)
		if err != nil {
			return fmt.Errorf("invalid version constraint %q for %s: %w", dep.Version, dep.PluginID, err)
		}
		version, err := semver.NewVersion(depManifest.Version)
		if err != nil {
			return fmt.Errorf("invalid version %q for %s: %w", depManifest.Version, dep.PluginID, err)
		}
		if !constraint.Check(version) {
			return fmt.Errorf("dependency %s version %s does not satisfy constraint %s",
				dep.PluginID, depManifest.Version, dep.Version)
		}
	}
	return nil
}

// ParseManifest parses a manifest from JSON bytes
func ParseManifest(data []byte) (*Manifest, error) {
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest JSON: %w", err)
	}
	return &manifest, nil
}
