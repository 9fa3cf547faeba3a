package store

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/varq/internal/canonical"
)

// QueryRecord is one row of the query audit log: the exact SQL and bind
// parameters that ran for a sample, plus the hashes that make the run
// verifiable after the fact.
type QueryRecord struct {
	ID          string
	SampleID    string
	Kind        string
	QueryHash   string
	SQL         string
	Params      []any
	ResultHash  string
	ResultCount int64
	ExecutedAt  string
}

// marshalParams converts bind parameters to canonical JSON TEXT for
// storage. Parameters are driver primitives (string, int64, float64,
// bool, nil), all of which canonical JSON represents directly.
func marshalParams(params []any) (string, error) {
	if params == nil {
		params = []any{}
	}
	data, err := canonical.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("marshal params: %w", err)
	}
	return string(data), nil
}

// unmarshalParams parses stored parameters back into bindable values.
// json.Number would bind as TEXT and break typed comparisons in replayed
// SQL, so numbers are converted back to int64 or float64.
func unmarshalParams(data string) ([]any, error) {
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()
	var raw []any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("unmarshal params: %w", err)
	}
	params := make([]any, len(raw))
	for i, v := range raw {
		params[i] = bindable(v)
	}
	return params, nil
}

func bindable(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

// marshalMeta converts sample metadata to canonical JSON TEXT.
func marshalMeta(meta map[string]any) (string, error) {
	if meta == nil {
		meta = map[string]any{}
	}
	data, err := canonical.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("marshal meta: %w", err)
	}
	return string(data), nil
}

// unmarshalMeta parses stored sample metadata. Numbers decode as
// json.Number to match the document body convention.
func unmarshalMeta(data string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()
	var meta map[string]any
	if err := dec.Decode(&meta); err != nil {
		return nil, fmt.Errorf("unmarshal meta: %w", err)
	}
	return meta, nil
}
