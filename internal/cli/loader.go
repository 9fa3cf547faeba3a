package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/varq/internal/panelcfg"
	"github.com/roach88/varq/internal/variant"
)

// ReadSettings reads a raw filter settings file. YAML and JSON both
// parse; the result is the flat mapping the settings resolver accepts.
// A missing path is an error, an empty file is an empty mapping.
func ReadSettings(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// ParseSettingsJSON parses inline settings given on the command line.
func ParseSettingsJSON(src string) (map[string]any, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(src), &raw); err != nil {
		return nil, fmt.Errorf("invalid settings JSON: %w", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// collectSettings merges the settings sources a command accepts, later
// sources overriding earlier ones: settings file, inline JSON, then the
// --sample flag.
func collectSettings(settingsFile, settingsJSON, sampleID string) (map[string]any, error) {
	raw := map[string]any{}

	if settingsFile != "" {
		fromFile, err := ReadSettings(settingsFile)
		if err != nil {
			return nil, err
		}
		for k, v := range fromFile {
			raw[k] = v
		}
	}

	if settingsJSON != "" {
		inline, err := ParseSettingsJSON(settingsJSON)
		if err != nil {
			return nil, err
		}
		for k, v := range inline {
			raw[k] = v
		}
	}

	if sampleID != "" {
		raw["sample_id"] = sampleID
	}

	return raw, nil
}

// Bundle is one ingest file: samples to register and variant documents
// to load. YAML and JSON both parse.
type Bundle struct {
	Samples  []BundleSample  `yaml:"samples" json:"samples"`
	Variants []BundleVariant `yaml:"variants" json:"variants"`
}

// BundleSample registers one sample.
type BundleSample struct {
	ID    string         `yaml:"id" json:"id"`
	Assay string         `yaml:"assay" json:"assay"`
	Meta  map[string]any `yaml:"meta" json:"meta"`
}

// BundleVariant is one variant document to load. The body must carry
// SAMPLE_ID; an absent ID is generated on load.
type BundleVariant struct {
	Kind string         `yaml:"kind" json:"kind"`
	Body map[string]any `yaml:"body" json:"body"`
}

// ReadBundle reads and parses one bundle file.
func ReadBundle(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bundle: %w", err)
	}

	var bundle Bundle
	if err := yaml.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("parse bundle %s: %w", path, err)
	}
	return &bundle, nil
}

// Documents converts the bundle's variant entries into validated
// documents, in file order.
func (b *Bundle) Documents() ([]variant.Document, error) {
	docs := make([]variant.Document, 0, len(b.Variants))
	for i, v := range b.Variants {
		doc, err := variant.New(variant.Kind(v.Kind), v.Body)
		if err != nil {
			return nil, fmt.Errorf("variant %d: %w", i, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// LoadPanels loads panel configuration from a path that may be a single
// CUE file or a directory of them.
func LoadPanels(path string, mode panelcfg.LoadMode) (*panelcfg.LoadResult, []error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, []error{fmt.Errorf("panel config: %w", err)}
	}
	if info.IsDir() {
		return panelcfg.LoadDir(path, mode)
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, []error{fmt.Errorf("panel config: %w", err)}
	}
	return panelcfg.LoadBytes(path, src, mode)
}
