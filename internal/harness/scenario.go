package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines one conformance scenario: a panel configuration,
// sample and variant fixtures, and the queries to run against them.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Panels is inline CUE source for the panel configuration.
	Panels string `yaml:"panels,omitempty"`

	// PanelsFile is the path to a CUE panel file, resolved relative to
	// the scenario file. Panels and PanelsFile are mutually exclusive;
	// with neither, every assay is unrecognized and queries fall back
	// to the scope-only form.
	PanelsFile string `yaml:"panels_file,omitempty"`

	// Samples are registered before any variants load.
	Samples []SampleFixture `yaml:"samples"`

	// Variants are loaded into the store after the samples.
	Variants []VariantFixture `yaml:"variants,omitempty"`

	// Queries execute in order against the seeded store.
	Queries []QueryStep `yaml:"queries"`
}

// SampleFixture registers one sample.
type SampleFixture struct {
	ID    string         `yaml:"id"`
	Assay string         `yaml:"assay"`
	Meta  map[string]any `yaml:"meta,omitempty"`
}

// VariantFixture loads one variant document. The body must carry a
// SAMPLE_ID; an explicit ID keeps expected match lists stable across
// runs instead of getting a generated one.
type VariantFixture struct {
	Kind string         `yaml:"kind"`
	Body map[string]any `yaml:"body"`
}

// QueryStep runs one query through the engine.
type QueryStep struct {
	// Name labels the step in failure output and snapshots. Defaults
	// to the step index.
	Name string `yaml:"name,omitempty"`

	// Kind is the variant kind to query: snv, cnv, or fusion.
	Kind string `yaml:"kind"`

	// Settings is the raw curator settings map exactly as a caller
	// would send it. Resolution is total, so any map is accepted here,
	// including one that must be rejected at assembly for a missing
	// sample_id.
	Settings map[string]any `yaml:"settings"`

	// Expect validates the outcome. A step without one only has to
	// execute and satisfy the structural invariants.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a query step.
type ExpectClause struct {
	// IDs is the exact ordered list of matching document IDs. An
	// explicitly empty list asserts the query matched nothing; leaving
	// the field out skips the check.
	IDs []string `yaml:"ids,omitempty"`

	// Warnings are substrings that must each appear in some
	// construction warning.
	Warnings []string `yaml:"warnings,omitempty"`

	// Error is the error code (E201, E401) the step must be rejected
	// with. Exclusive with IDs and Warnings.
	Error string `yaml:"error,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so a typo in a clause name fails loudly instead of silently
// skipping the check. PanelsFile is resolved relative to the scenario
// file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario YAML: %w", err)
	}

	if scenario.PanelsFile != "" && !filepath.IsAbs(scenario.PanelsFile) {
		scenario.PanelsFile = filepath.Join(filepath.Dir(path), scenario.PanelsFile)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and coherent.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Panels != "" && s.PanelsFile != "" {
		return fmt.Errorf("panels and panels_file are mutually exclusive")
	}
	if s.PanelsFile != "" {
		if _, err := os.Stat(s.PanelsFile); os.IsNotExist(err) {
			return fmt.Errorf("panels file not found: %s", s.PanelsFile)
		}
	}
	if len(s.Samples) == 0 {
		return fmt.Errorf("samples list is required and must be non-empty")
	}
	if len(s.Queries) == 0 {
		return fmt.Errorf("queries list is required and must be non-empty")
	}

	for i, smp := range s.Samples {
		if smp.ID == "" {
			return fmt.Errorf("samples[%d]: id is required", i)
		}
		if smp.Assay == "" {
			return fmt.Errorf("samples[%d]: assay is required", i)
		}
	}

	for i, v := range s.Variants {
		if v.Kind == "" {
			return fmt.Errorf("variants[%d]: kind is required", i)
		}
		if len(v.Body) == 0 {
			return fmt.Errorf("variants[%d]: body is required", i)
		}
	}

	for i, q := range s.Queries {
		if q.Kind == "" {
			return fmt.Errorf("queries[%d]: kind is required", i)
		}
		if q.Settings == nil {
			return fmt.Errorf("queries[%d]: settings is required (use an empty map for defaults)", i)
		}
		if q.Expect != nil && q.Expect.Error != "" {
			if len(q.Expect.IDs) > 0 || len(q.Expect.Warnings) > 0 {
				return fmt.Errorf("queries[%d].expect: error is exclusive with ids and warnings", i)
			}
		}
	}

	return nil
}
