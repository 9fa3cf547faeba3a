package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/varq/internal/assay"
	"github.com/roach88/varq/internal/filter"
	"github.com/roach88/varq/internal/queryir"
	"github.com/roach88/varq/internal/variant"
)

func mustMatch(t *testing.T, n queryir.Node, body map[string]any) bool {
	t.Helper()
	ok, err := Match(n, body)
	require.NoError(t, err)
	return ok
}

func TestMatch_Equality(t *testing.T) {
	body := map[string]any{
		"FILTER": "GERMLINE",
		"genes":  []any{"FLT3", "NPM1"},
		"POS":    json.Number("115256530"),
		"flag":   true,
		"blank":  nil,
	}

	tests := []struct {
		name string
		node queryir.Node
		want bool
	}{
		{"scalar hit", queryir.FieldEq("FILTER", "GERMLINE"), true},
		{"scalar miss", queryir.FieldEq("FILTER", "PASS"), false},
		{"array any element", queryir.FieldEq("genes", "FLT3"), true},
		{"array no element", queryir.FieldEq("genes", "TP53"), false},
		{"number against json.Number", queryir.FieldEq("POS", int64(115256530)), true},
		{"float against json.Number", queryir.FieldEq("POS", 115256530.0), true},
		{"bool", queryir.FieldEq("flag", true), true},
		{"bool as integer one", queryir.FieldEq("flag", int64(1)), true},
		{"absent field", queryir.FieldEq("missing", "x"), false},
		{"null equals nothing", queryir.FieldEq("blank", "x"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mustMatch(t, tt.node, body))
		})
	}
}

func TestMatch_NullSafeNegation(t *testing.T) {
	body := map[string]any{"NORMAL": true, "FILTER": "PASS"}

	tests := []struct {
		name string
		node queryir.Node
		want bool
	}{
		{"ne on absent field matches", queryir.FieldNe("missing", true), true},
		{"ne on different value matches", queryir.FieldNe("FILTER", "GERMLINE"), true},
		{"ne on equal value does not", queryir.FieldNe("NORMAL", true), false},
		{"nin on absent field matches", queryir.FieldNin("missing", queryir.Strings([]string{"a", "b"})), true},
		{"nin on listed value does not", queryir.FieldNin("FILTER", queryir.Strings([]string{"PASS"})), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mustMatch(t, tt.node, body))
		})
	}
}

func TestMatch_Membership(t *testing.T) {
	body := map[string]any{
		"Consequence": []any{"missense_variant", "splice_region_variant"},
		"SYMBOL":      "TERT",
	}

	tests := []struct {
		name string
		node queryir.Node
		want bool
	}{
		{"scalar in list", queryir.FieldIn("SYMBOL", queryir.Strings([]string{"TERT", "NFKBIE"})), true},
		{"scalar not in list", queryir.FieldIn("SYMBOL", queryir.Strings([]string{"TP53"})), false},
		{"array intersects list", queryir.FieldIn("Consequence", queryir.Strings([]string{"splice_region_variant"})), true},
		{"array disjoint from list", queryir.FieldIn("Consequence", queryir.Strings([]string{"stop_gained"})), false},
		{"empty in matches nothing", queryir.FieldIn("SYMBOL", []any{}), false},
		{"empty nin matches everything", queryir.FieldNin("SYMBOL", []any{}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mustMatch(t, tt.node, body))
		})
	}
}

func TestMatch_OrderingComparisons(t *testing.T) {
	body := map[string]any{
		"AF":     json.Number("0.35"),
		"DP":     json.Number("180"),
		"gnomad": ".",
	}

	tests := []struct {
		name string
		node queryir.Node
		want bool
	}{
		{"gte hit", queryir.FieldGte("AF", 0.05), true},
		{"gte exact", queryir.FieldGte("AF", 0.35), true},
		{"lte miss", queryir.FieldLte("AF", 0.1), false},
		{"gt integer", queryir.FieldGt("DP", int64(100)), true},
		{"lt miss", queryir.FieldLt("DP", int64(100)), false},
		{"absent field never orders", queryir.FieldGte("missing", 0.0), false},
		// SQLite orders text after numbers, so a dot placeholder is
		// never <= a numeric cutoff but is always > one.
		{"text not lte number", queryir.FieldLte("gnomad", 0.01), false},
		{"text gt number", queryir.FieldGt("gnomad", 0.01), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mustMatch(t, tt.node, body))
		})
	}
}

func TestMatch_ExistsAndType(t *testing.T) {
	body := map[string]any{
		"SVTYPE": "ITD",
		"gnomad": ".",
		"AF":     json.Number("0.2"),
		"GT":     []any{map[string]any{"type": "case"}},
		"INFO":   map[string]any{"CSQ": []any{}},
		"blank":  nil,
	}

	tests := []struct {
		name string
		node queryir.Node
		want bool
	}{
		{"exists true", queryir.FieldExists("SVTYPE", true), true},
		{"exists false on absent", queryir.FieldExists("missing", false), true},
		{"exists true on absent", queryir.FieldExists("missing", true), false},
		{"json null is present", queryir.FieldExists("blank", true), true},
		{"type string", queryir.FieldType("gnomad", queryir.TypeString), true},
		{"type number", queryir.FieldType("AF", queryir.TypeNumber), true},
		{"type number rejects string", queryir.FieldType("gnomad", queryir.TypeNumber), false},
		{"type array", queryir.FieldType("GT", queryir.TypeArray), true},
		{"type object", queryir.FieldType("INFO", queryir.TypeObject), true},
		{"type null", queryir.FieldType("blank", queryir.TypeNull), true},
		{"type on absent field", queryir.FieldType("missing", queryir.TypeString), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mustMatch(t, tt.node, body))
		})
	}
}

func TestMatch_Regex(t *testing.T) {
	body := map[string]any{
		"ALT":  "AACCGGTTAACCGGTT",
		"desc": "mitelman:BCR::ABL1",
		"POS":  json.Number("100"),
	}

	assert.True(t, mustMatch(t, queryir.FieldRegex("ALT", `(?i)\w{10,200}`), body))
	assert.True(t, mustMatch(t, queryir.FieldRegex("desc", `(?i)(mitelman|FCknown)`), body))
	assert.False(t, mustMatch(t, queryir.FieldRegex("desc", `FCknown`), body))
	assert.False(t, mustMatch(t, queryir.FieldRegex("missing", `.*`), body), "absent field never matches")
	assert.False(t, mustMatch(t, queryir.FieldRegex("POS", `1`), body), "non-string value never matches")

	_, err := Match(queryir.FieldRegex("ALT", `(`), body)
	require.Error(t, err)
}

func TestMatch_ElemMatch(t *testing.T) {
	body := map[string]any{
		"GT": []any{
			map[string]any{"type": "case", "AF": json.Number("0.4"), "DP": json.Number("200")},
			map[string]any{"type": "control", "AF": json.Number("0.01"), "DP": json.Number("150")},
		},
		"gene": "FLT3",
	}

	caseEvidence := queryir.ElemMatch("GT", queryir.AllOf(
		queryir.FieldEq("type", "case"),
		queryir.FieldGte("AF", 0.05),
	))
	assert.True(t, mustMatch(t, caseEvidence, body))

	controlHigh := queryir.ElemMatch("GT", queryir.AllOf(
		queryir.FieldEq("type", "control"),
		queryir.FieldGte("AF", 0.05),
	))
	assert.False(t, mustMatch(t, controlHigh, body))

	// A scalar field is a single-element list, so a neutral child tree
	// matches it.
	assert.True(t, mustMatch(t, queryir.ElemMatch("gene", queryir.And{}), body))

	_, err := Match(queryir.ElemMatch("GT", queryir.FieldEq("", "x")), body)
	require.Error(t, err, "empty path inside the child tree is a defect")

	assert.True(t, mustMatch(t, queryir.ElemMatch("GT", queryir.FieldEq("type", "case")), body))
	assert.False(t, mustMatch(t, queryir.ElemMatch("missing", queryir.FieldEq("type", "case")), body),
		"absent field has no matching element")

	// none_match is vacuously true on absent fields and false when any
	// element matches.
	assert.True(t, mustMatch(t, queryir.NoneMatch("missing", queryir.FieldEq("type", "control")), body))
	assert.False(t, mustMatch(t, queryir.NoneMatch("GT", queryir.FieldEq("type", "control")), body))
	assert.True(t, mustMatch(t, queryir.NoneMatch("GT", queryir.FieldEq("type", "tumor")), body))
}

func TestMatch_DottedPaths(t *testing.T) {
	body := map[string]any{
		"INFO": map[string]any{
			"MYELOID_GERMLINE": json.Number("1"),
			"selected_CSQ": map[string]any{
				"Consequence": []any{"missense_variant"},
			},
		},
		"FILTER": "PASS",
	}

	assert.True(t, mustMatch(t, queryir.FieldEq("INFO.MYELOID_GERMLINE", int64(1)), body))
	assert.True(t, mustMatch(t, queryir.FieldIn("INFO.selected_CSQ.Consequence", queryir.Strings([]string{"missense_variant"})), body))
	assert.False(t, mustMatch(t, queryir.FieldEq("INFO.absent.deeper", "x"), body))
	assert.False(t, mustMatch(t, queryir.FieldEq("FILTER.deeper", "x"), body),
		"path through a scalar is absent")
}

func TestMatch_CompositeTrees(t *testing.T) {
	body := map[string]any{"FILTER": "PASS", "DP": json.Number("100")}

	assert.True(t, mustMatch(t, queryir.And{}, body), "neutral tree matches everything")
	assert.False(t, mustMatch(t, queryir.Or{}, body), "empty disjunction matches nothing")

	both := queryir.AllOf(
		queryir.FieldEq("FILTER", "PASS"),
		queryir.FieldGte("DP", int64(50)),
	)
	assert.True(t, mustMatch(t, both, body))

	either := queryir.AnyOf(
		queryir.FieldEq("FILTER", "GERMLINE"),
		queryir.FieldGte("DP", int64(50)),
	)
	assert.True(t, mustMatch(t, either, body))

	neither := queryir.AnyOf(
		queryir.FieldEq("FILTER", "GERMLINE"),
		queryir.FieldGte("DP", int64(500)),
	)
	assert.False(t, mustMatch(t, neither, body))
}

func TestMatch_Defects(t *testing.T) {
	body := map[string]any{"x": "y"}

	defects := []struct {
		name string
		node queryir.Node
	}{
		{"unknown operator", queryir.Field{Path: "x", Op: "like", Value: "y"}},
		{"empty path", queryir.Field{Path: "", Op: queryir.OpEq, Value: "y"}},
		{"exists non-bool operand", queryir.Field{Path: "x", Op: queryir.OpExists, Value: "yes"}},
		{"type non-string operand", queryir.Field{Path: "x", Op: queryir.OpType, Value: 1}},
		{"type unknown name", queryir.FieldType("x", "decimal")},
		{"regex non-string operand", queryir.Field{Path: "x", Op: queryir.OpRegex, Value: 1}},
		{"in non-list operand", queryir.Field{Path: "x", Op: queryir.OpIn, Value: "y"}},
		{"elem_match non-tree operand", queryir.Field{Path: "x", Op: queryir.OpElemMatch, Value: "y"}},
	}

	for _, tt := range defects {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Match(tt.node, body)
			require.Error(t, err)
		})
	}
}

func TestFilterDocuments(t *testing.T) {
	docs := []variant.Document{
		{ID: "var-a", SampleID: "S1", Kind: variant.KindSNV, Body: map[string]any{"FILTER": "PASS"}},
		{ID: "var-b", SampleID: "S1", Kind: variant.KindSNV, Body: map[string]any{"FILTER": "GERMLINE"}},
		{ID: "var-c", SampleID: "S1", Kind: variant.KindSNV, Body: map[string]any{"FILTER": "PASS"}},
	}

	matched, err := FilterDocuments(docs, queryir.FieldEq("FILTER", "PASS"))
	require.NoError(t, err)
	require.Len(t, matched, 2)
	assert.Equal(t, "var-a", matched[0].ID)
	assert.Equal(t, "var-c", matched[1].ID)

	none, err := FilterDocuments(docs, queryir.FieldEq("FILTER", "LOWQC"))
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Len(t, none, 0)

	_, err = FilterDocuments(docs, queryir.Field{Path: "FILTER", Op: "like", Value: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "var-a")
}

func TestMatch_CNVPolicyBounds(t *testing.T) {
	tree := assay.BuildCNVPredicate(filter.Resolve(map[string]any{
		"sample_id":       "S1",
		"cnv_loss_cutoff": 0.5,
		"cnv_gain_cutoff": 1.5,
		"min_cnv_size":    1000,
		"max_cnv_size":    50000,
	}))

	call := func(ratio float64, size int) map[string]any {
		return map[string]any{"ratio": ratio, "size": size, "genes": []any{"ERBB2"}}
	}

	cases := []struct {
		name string
		body map[string]any
		want bool
	}{
		{"neutral ratio excluded", call(1.0, 5000), false},
		{"just above loss cutoff excluded", call(0.51, 5000), false},
		{"just below gain cutoff excluded", call(1.49, 5000), false},
		{"loss at cutoff included", call(0.5, 5000), true},
		{"gain at cutoff included", call(1.5, 5000), true},
		{"deep loss included", call(0.1, 5000), true},
		{"size at lower bound included", call(0.1, 1000), true},
		{"size at upper bound included", call(0.1, 50000), true},
		{"size below lower bound excluded", call(0.1, 999), false},
		{"size above upper bound excluded", call(0.1, 50001), false},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mustMatch(t, tree, tt.body))
		})
	}

	flagged := call(0.1, 5000)
	flagged["NORMAL"] = true
	assert.False(t, mustMatch(t, tree, flagged), "matched-normal call excluded")
	flagged["NORMAL"] = false
	assert.True(t, mustMatch(t, tree, flagged))
}

func TestMatch_CNVGeneScoping(t *testing.T) {
	tree := assay.BuildCNVPredicate(filter.Resolve(map[string]any{
		"sample_id":       "S1",
		"cnv_loss_cutoff": 0.5,
		"cnv_gain_cutoff": 1.5,
		"filter_genes":    []any{"ERBB2", "MET"},
	}))

	base := map[string]any{"ratio": 2.0, "size": 5000}

	listed := map[string]any{"ratio": 2.0, "size": 5000, "genes": []any{"MET"}}
	assert.True(t, mustMatch(t, tree, listed))

	unlisted := map[string]any{"ratio": 2.0, "size": 5000, "genes": []any{"KRAS"}}
	assert.False(t, mustMatch(t, tree, unlisted))

	assert.True(t, mustMatch(t, tree, base), "call without gene annotation stays visible")

	wholeGenome := map[string]any{"ratio": 2.0, "size": 5000, "genes": []any{"KRAS"}, "assay": "tumwgs"}
	assert.True(t, mustMatch(t, tree, wholeGenome), "whole-genome calls bypass the gene list")
}
