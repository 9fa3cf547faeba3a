package filter

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// legacyAliases maps canonical keys to the legacy key that backfills them
// when the canonical key is absent. The legacy key is read, never removed:
// Resolve does not mutate its input, so callers holding the raw map keep
// both spellings.
var legacyAliases = map[string]string{
	"sample_id":          "id",
	"min_spanning_reads": "spanning_reads",
	"min_spanning_pairs": "spanning_pairs",
}

// Resolve coerces a raw filter map into canonical FilterSettings.
//
// Coercion rules, applied per field:
//   - numbers accept Go numerics, json.Number, and numeric strings;
//     anything else falls back to the field default
//   - integer fields truncate fractional input
//   - negative thresholds clamp to the field default
//   - string sets accept []string, []any of strings, or a single string
//   - positions additionally accept numeric elements
//
// Resolve never returns an error and never mutates raw.
func Resolve(raw map[string]any) FilterSettings {
	return ResolveWithAliases(raw, nil)
}

// ResolveWithAliases is Resolve with additional canonical→legacy alias
// pairs consulted after the built-in table.
func ResolveWithAliases(raw map[string]any, aliases map[string]string) FilterSettings {
	get := func(key string) (any, bool) {
		if v, ok := raw[key]; ok {
			return v, true
		}
		if legacy, ok := legacyAliases[key]; ok {
			if v, ok := raw[legacy]; ok {
				return v, true
			}
		}
		if legacy, ok := aliases[key]; ok {
			if v, ok := raw[legacy]; ok {
				return v, true
			}
		}
		return nil, false
	}

	s := FilterSettings{
		MaxFreq:        DefaultMaxFreq,
		MaxControlFreq: DefaultMaxControlFreq,
		MaxPopFreq:     DefaultMaxPopFreq,
	}

	if v, ok := get("sample_id"); ok {
		s.SampleID = coerceString(v)
	}

	if v, ok := get("min_freq"); ok {
		s.MinFreq = coerceFloat(v, 0)
	}
	if v, ok := get("max_freq"); ok {
		s.MaxFreq = coerceFloat(v, DefaultMaxFreq)
	}
	if v, ok := get("min_depth"); ok {
		s.MinDepth = coerceInt(v, 0)
	}
	if v, ok := get("min_alt_reads"); ok {
		s.MinAltReads = coerceInt(v, 0)
	}
	if v, ok := get("max_control_freq"); ok {
		s.MaxControlFreq = coerceFloat(v, DefaultMaxControlFreq)
	}
	if v, ok := get("max_popfreq"); ok {
		s.MaxPopFreq = coerceFloat(v, DefaultMaxPopFreq)
	}

	if v, ok := get("filter_conseq"); ok {
		s.FilterConseq = coerceStrings(v)
	}
	if v, ok := get("filter_genes"); ok {
		s.FilterGenes = coerceStrings(v)
	}
	if v, ok := get("disp_pos"); ok {
		s.DispPos = coercePositions(v)
	}

	if v, ok := get("fp"); ok {
		s.FP = v
	}
	if v, ok := get("irrelevant"); ok {
		s.Irrelevant = v
	}

	if v, ok := get("cnv_loss_cutoff"); ok {
		s.CNVLossCutoff = coerceFloat(v, 0)
	}
	if v, ok := get("cnv_gain_cutoff"); ok {
		s.CNVGainCutoff = coerceFloat(v, 0)
	}
	if v, ok := get("min_cnv_size"); ok {
		s.MinCNVSize = coerceInt(v, 0)
	}
	if v, ok := get("max_cnv_size"); ok {
		s.MaxCNVSize = coerceInt(v, 0)
	}

	if v, ok := get("min_spanning_reads"); ok {
		s.MinSpanningReads = coerceInt(v, 0)
	}
	if v, ok := get("min_spanning_pairs"); ok {
		s.MinSpanningPairs = coerceInt(v, 0)
	}
	if v, ok := get("fusion_effects"); ok {
		s.FusionEffects = coerceStrings(v)
	}
	if v, ok := get("fusion_callers"); ok {
		s.FusionCallers = coerceStrings(v)
	}
	if v, ok := get("checked_fusionlists"); ok {
		s.CheckedFusionLists = coerceStrings(v)
	}

	return s
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return ""
	}
}

// coerceFloat parses a threshold. Unparsable or negative input yields def.
func coerceFloat(v any, def float64) float64 {
	f, ok := toFloat(v)
	if !ok || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	return f
}

// coerceInt parses an integer threshold, truncating fractional input.
// Unparsable or negative input yields def.
func coerceInt(v any, def int64) int64 {
	f, ok := toFloat(v)
	if !ok || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	return int64(f)
}

func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// coerceStrings accepts a string slice, a mixed slice, or a single string.
// Non-string elements are dropped; the result is never nil.
func coerceStrings(v any) []string {
	out := []string{}
	switch val := v.(type) {
	case []string:
		for _, s := range val {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, e := range val {
			if s, ok := e.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
		}
	case string:
		if s := strings.TrimSpace(val); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// coercePositions accepts numeric or numeric-string elements; anything
// unparsable is dropped. The result is never nil.
func coercePositions(v any) []int64 {
	out := []int64{}
	collect := func(e any) {
		if f, ok := toFloat(e); ok && f >= 0 {
			out = append(out, int64(f))
		}
	}
	switch val := v.(type) {
	case []any:
		for _, e := range val {
			collect(e)
		}
	case []string:
		for _, e := range val {
			collect(e)
		}
	case []int64:
		out = append(out, val...)
	case []int:
		for _, e := range val {
			out = append(out, int64(e))
		}
	default:
		collect(v)
	}
	return out
}
