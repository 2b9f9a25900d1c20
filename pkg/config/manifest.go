package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pixelgate/pixelgate/pkg/engine"
)

// Manifest describes the component dependency graph in YAML form:
//
//	components:
//	  - name: telemetry
//	  - name: cache
//	    dependencies: [telemetry]
//	  - name: diag
//	    dependencies: [telemetry, cache]
//	critical:
//	  - telemetry
type Manifest struct {
	// Components lists every component and its dependencies.
	// Declaration order is the tie-break order for initialization.
	Components []engine.ComponentDescriptor `yaml:"components"`

	// Critical names components whose failure always aborts initialization.
	Critical []string `yaml:"critical,omitempty"`
}

// LoadManifest reads and validates a component manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest parses manifest YAML and checks that every critical
// name refers to a declared component. Graph-level validation (duplicate
// names, undeclared dependencies, cycles) happens when the manifest is
// turned into a dependency graph.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	if len(m.Components) == 0 {
		return nil, fmt.Errorf("manifest declares no components")
	}

	declared := make(map[string]bool, len(m.Components))
	for _, c := range m.Components {
		declared[c.Name] = true
	}
	for _, name := range m.Critical {
		if !declared[name] {
			return nil, fmt.Errorf("critical component %q is not declared", name)
		}
	}

	return &m, nil
}

// Graph builds the dependency graph described by the manifest.
func (m *Manifest) Graph() (*engine.DependencyGraph, error) {
	return engine.NewDependencyGraph(m.Components)
}
