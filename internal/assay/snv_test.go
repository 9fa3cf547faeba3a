package assay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/varq/internal/filter"
	"github.com/roach88/varq/internal/queryir"
)

// collectFields flattens a tree into its field predicates, descending
// into elem_match and none_match operands.
func collectFields(n queryir.Node) []queryir.Field {
	var out []queryir.Field
	var walk func(queryir.Node)
	walk = func(n queryir.Node) {
		switch v := n.(type) {
		case queryir.And:
			for _, c := range v.Children {
				walk(c)
			}
		case queryir.Or:
			for _, c := range v.Children {
				walk(c)
			}
		case queryir.Field:
			out = append(out, v)
			if sub, ok := v.Value.(queryir.Node); ok {
				walk(sub)
			}
		}
	}
	walk(n)
	return out
}

func fieldsOn(fields []queryir.Field, path string) []queryir.Field {
	var out []queryir.Field
	for _, f := range fields {
		if f.Path == path {
			out = append(out, f)
		}
	}
	return out
}

func myeloidSettings(extra map[string]any) filter.FilterSettings {
	raw := map[string]any{
		"sample_id":     "S1",
		"min_freq":      0.05,
		"max_freq":      0.95,
		"min_depth":     100,
		"min_alt_reads": 5,
		"max_popfreq":   0.01,
	}
	for k, v := range extra {
		raw[k] = v
	}
	return filter.Resolve(raw)
}

func TestMyeloidTreeShape(t *testing.T) {
	got := BuildSNVPredicate(GroupMyeloid, myeloidSettings(nil))

	require.IsType(t, queryir.Or{}, got)
	branches := got.(queryir.Or).Children
	require.Len(t, branches, 4)

	assert.Equal(t, queryir.FieldEq("INFO.MYELOID_GERMLINE", 1), branches[0])
	assert.Equal(t, queryir.AllOf(
		queryir.FieldEq("FILTER", "GERMLINE"),
		queryir.ElemMatch("INFO.CSQ", queryir.FieldEq("SYMBOL", "CEBPA")),
	), branches[1])
}

func TestMyeloidFamilySharesOnePolicy(t *testing.T) {
	s := myeloidSettings(nil)
	want := BuildSNVPredicate(GroupMyeloid, s)
	for _, g := range []Group{GroupHematology, GroupTumwgs, GroupUnknown} {
		assert.Equal(t, want, BuildSNVPredicate(g, s), "group %s", g)
	}
}

func TestHotspotWindowBoundsAreExclusive(t *testing.T) {
	branches := BuildSNVPredicate(GroupMyeloid, myeloidSettings(nil)).(queryir.Or).Children

	// Strict comparisons on both ends: 115256520 and 115256538 are
	// outside the window, 115256530 is inside.
	assert.Equal(t, queryir.AllOf(
		queryir.FieldEq("CHROM", "1"),
		queryir.FieldGt("POS", 115256520),
		queryir.FieldLt("POS", 115256538),
	), branches[2])
}

func TestEvidenceCaseThresholds(t *testing.T) {
	branches := BuildSNVPredicate(GroupMyeloid, myeloidSettings(nil)).(queryir.Or).Children
	evidence := branches[3]

	require.IsType(t, queryir.And{}, evidence)
	conjuncts := evidence.(queryir.And).Children
	// No consequence types selected, so the consequence gate is absent.
	require.Len(t, conjuncts, 3)

	assert.Equal(t, queryir.ElemMatch("GT", queryir.AllOf(
		queryir.FieldEq("type", "case"),
		queryir.FieldGte("AF", 0.05),
		queryir.FieldLte("AF", 0.95),
		queryir.FieldGte("DP", int64(100)),
		queryir.FieldGte("VD", int64(5)),
	)), conjuncts[0])
}

func TestControlClearanceAdmitsAbsentControl(t *testing.T) {
	s := myeloidSettings(map[string]any{"max_control_freq": 0.05})
	conjuncts := BuildSNVPredicate(GroupMyeloid, s).(queryir.Or).Children[3].(queryir.And).Children

	assert.Equal(t, queryir.AnyOf(
		queryir.NoneMatch("GT", queryir.FieldEq("type", "control")),
		queryir.ElemMatch("GT", queryir.AllOf(
			queryir.FieldEq("type", "control"),
			queryir.FieldLte("AF", 0.05),
			queryir.FieldGte("DP", int64(100)),
		)),
	), conjuncts[1])
}

func TestPopFreqGateAdmitsAbsentAndNonNumeric(t *testing.T) {
	conjuncts := BuildSNVPredicate(GroupMyeloid, myeloidSettings(nil)).(queryir.Or).Children[3].(queryir.And).Children

	assert.Equal(t, queryir.AnyOf(
		queryir.FieldExists("gnomad_frequency", false),
		queryir.FieldType("gnomad_frequency", queryir.TypeString),
		queryir.FieldLte("gnomad_frequency", 0.01),
	), conjuncts[2])
}

func TestConsequenceGateCarriesFLT3Rescue(t *testing.T) {
	s := myeloidSettings(map[string]any{
		"filter_conseq": []any{"missense_variant", "stop_gained"},
	})
	conjuncts := BuildSNVPredicate(GroupMyeloid, s).(queryir.Or).Children[3].(queryir.And).Children
	require.Len(t, conjuncts, 4)

	conseqs := []any{"missense_variant", "stop_gained"}
	assert.Equal(t, queryir.AnyOf(
		queryir.FieldIn("INFO.selected_CSQ.Consequence", conseqs),
		queryir.ElemMatch("INFO.CSQ", queryir.FieldIn("Consequence", conseqs)),
		queryir.AllOf(
			queryir.FieldEq("genes", "FLT3"),
			queryir.AnyOf(
				queryir.FieldExists("INFO.SVTYPE", true),
				queryir.FieldRegex("ALT", `(?i)\w{10,200}`),
			),
		),
	), conjuncts[3])
}

func TestPlainTreeIsEvidenceOnly(t *testing.T) {
	s := myeloidSettings(map[string]any{
		"filter_conseq": []any{"missense_variant"},
	})
	for _, g := range []Group{GroupSwea, GroupGMSOnco} {
		got := BuildSNVPredicate(g, s)
		require.IsType(t, queryir.And{}, got, "group %s", g)

		fields := collectFields(got)
		assert.Empty(t, fieldsOn(fields, "FILTER"), "no germline escape for %s", g)
		assert.Empty(t, fieldsOn(fields, "INFO.MYELOID_GERMLINE"), "no germline flag for %s", g)
		assert.Empty(t, fieldsOn(fields, "CHROM"), "no hotspot window for %s", g)
		assert.Empty(t, fieldsOn(fields, "INFO.selected_CSQ.Consequence"), "no rescue arms for %s", g)
		assert.Empty(t, fieldsOn(fields, "gnomad_frequency"), "no population gate for %s", g)
	}
}

func TestPlainTreeWithoutConsequenceSelection(t *testing.T) {
	s := filter.Resolve(map[string]any{"sample_id": "S1", "min_freq": 0.01})
	got := BuildSNVPredicate(GroupSwea, s)

	require.IsType(t, queryir.Field{}, got)
	assert.Equal(t, "GT", got.(queryir.Field).Path)
	assert.Equal(t, queryir.OpElemMatch, got.(queryir.Field).Op)
}

func TestSolidTreeShape(t *testing.T) {
	s := myeloidSettings(map[string]any{"filter_conseq": []any{"missense_variant"}})
	got := BuildSNVPredicate(GroupSolid, s)

	require.IsType(t, queryir.Or{}, got)
	branches := got.(queryir.Or).Children
	require.Len(t, branches, 2)

	// The germline escape needs the FILTER tag alone, no gene condition.
	assert.Equal(t, queryir.FieldEq("FILTER", "GERMLINE"), branches[0])

	fields := collectFields(got)
	assert.Empty(t, fieldsOn(fields, "CHROM"), "solid assays have no hotspot window")
	assert.Empty(t, fieldsOn(fields, "INFO.MYELOID_GERMLINE"))
}

func TestSolidRegulatoryRescue(t *testing.T) {
	s := myeloidSettings(map[string]any{"filter_conseq": []any{"missense_variant"}})
	branches := BuildSNVPredicate(GroupSolid, s).(queryir.Or).Children
	conjuncts := branches[1].(queryir.And).Children
	require.Len(t, conjuncts, 4)

	gate := conjuncts[3].(queryir.Or)
	require.Len(t, gate.Children, 3)

	rescueConseqs := []any{"regulatory_region_variant", "TF_binding_site_variant"}
	assert.Equal(t, queryir.AllOf(
		queryir.FieldIn("genes", []any{"TERT", "NFKBIE"}),
		queryir.AnyOf(
			queryir.FieldIn("INFO.selected_CSQ.Consequence", rescueConseqs),
			queryir.ElemMatch("INFO.CSQ", queryir.FieldIn("Consequence", rescueConseqs)),
		),
	), gate.Children[2])
}

func TestUnrecognizedGroupFailsOpen(t *testing.T) {
	got := BuildSNVPredicate(ParseGroup("custom-panel-v2"), myeloidSettings(nil))
	assert.True(t, queryir.IsNeutral(got))
}

func TestScopeFilterConjoinedBeforePolicy(t *testing.T) {
	s := myeloidSettings(map[string]any{"filter_genes": []any{"NRAS"}})
	got := BuildSNVPredicate(GroupMyeloid, s)

	require.IsType(t, queryir.And{}, got)
	parts := got.(queryir.And).Children
	require.Len(t, parts, 2)
	assert.Equal(t, queryir.FieldIn("genes", []any{"NRAS"}), parts[0])
	require.IsType(t, queryir.Or{}, parts[1])
}

func TestSNVTreeDeterministic(t *testing.T) {
	raw := map[string]any{
		"sample_id":     "S1",
		"min_freq":      "0.05",
		"filter_conseq": []any{"stop_gained", "missense_variant"},
		"filter_genes":  []any{"FLT3", "NPM1"},
	}
	a, err := queryir.EncodeCanonical(BuildSNVPredicate(GroupMyeloid, filter.Resolve(raw)))
	require.NoError(t, err)
	b, err := queryir.EncodeCanonical(BuildSNVPredicate(GroupMyeloid, filter.Resolve(raw)))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
