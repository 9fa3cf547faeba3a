package filter

import (
	"fmt"
	"sort"
)

var knownKeys = map[string]struct{}{
	"sample_id": {}, "id": {},
	"min_freq": {}, "max_freq": {}, "min_depth": {}, "min_alt_reads": {},
	"max_control_freq": {}, "max_popfreq": {},
	"filter_conseq": {}, "filter_genes": {}, "disp_pos": {},
	"fp": {}, "irrelevant": {},
	"cnv_loss_cutoff": {}, "cnv_gain_cutoff": {}, "min_cnv_size": {}, "max_cnv_size": {},
	"min_spanning_reads": {}, "spanning_reads": {},
	"min_spanning_pairs": {}, "spanning_pairs": {},
	"fusion_effects": {}, "fusion_callers": {}, "checked_fusionlists": {},
}

var numericKeys = []string{
	"min_freq", "max_freq", "min_depth", "min_alt_reads",
	"max_control_freq", "max_popfreq",
	"cnv_loss_cutoff", "cnv_gain_cutoff", "min_cnv_size", "max_cnv_size",
	"min_spanning_reads", "spanning_reads",
	"min_spanning_pairs", "spanning_pairs",
}

// Lint reports what Resolve silently repairs: unknown keys, unparsable or
// negative numeric input, missing sample scope. Warn-only - the same raw
// map still resolves to usable settings. Warnings come back in a
// deterministic order.
func Lint(raw map[string]any) []string {
	l := &linter{warnings: []string{}}

	if _, ok := raw["sample_id"]; !ok {
		if _, ok := raw["id"]; !ok {
			l.addWarning("no sample_id (or legacy id): queries cannot be assembled from these settings")
		}
	}

	for _, key := range numericKeys {
		v, ok := raw[key]
		if !ok {
			continue
		}
		f, parsed := toFloat(v)
		switch {
		case !parsed:
			l.addWarning("%s: unparsable %T value, default applies", key, v)
		case f < 0:
			l.addWarning("%s: negative value %v clamps to default", key, f)
		}
	}

	if v, ok := raw["disp_pos"]; ok {
		if elems, isSlice := v.([]any); isSlice {
			for i, e := range elems {
				if _, parsed := toFloat(e); !parsed {
					l.addWarning("disp_pos[%d]: unparsable %T element dropped", i, e)
				}
			}
		}
	}

	unknown := []string{}
	for key := range raw {
		if _, ok := knownKeys[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		l.addWarning("unknown key %q ignored", key)
	}

	return l.warnings
}

type linter struct {
	warnings []string
}

func (l *linter) addWarning(format string, args ...any) {
	l.warnings = append(l.warnings, fmt.Sprintf(format, args...))
}
