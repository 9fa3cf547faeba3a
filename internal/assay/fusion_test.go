package assay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/varq/internal/filter"
	"github.com/roach88/varq/internal/queryir"
)

func fusionSettings(extra map[string]any) filter.FilterSettings {
	raw := map[string]any{
		"sample_id":          "S1",
		"fusion_effects":     []any{"in-frame", "out-of-frame"},
		"min_spanning_reads": 2,
		"min_spanning_pairs": 5,
	}
	for k, v := range extra {
		raw[k] = v
	}
	return filter.Resolve(raw)
}

func TestBuildFusionPredicateNonFusionGroups(t *testing.T) {
	s := fusionSettings(nil)
	for _, g := range []Group{GroupMyeloid, GroupSolid, GroupSwea, GroupUnrecognized} {
		assert.True(t, queryir.IsNeutral(BuildFusionPredicate(g, s)), "group %s", g)
	}
}

func TestBuildFusionPredicateNoCriteria(t *testing.T) {
	s := filter.Resolve(map[string]any{"sample_id": "S1"})
	assert.True(t, queryir.IsNeutral(BuildFusionPredicate(GroupFusion, s)))
}

func TestFusionCallClauseWithoutCallerSelection(t *testing.T) {
	got := BuildFusionPredicate(GroupFusion, fusionSettings(nil))

	assert.Equal(t, queryir.ElemMatch("calls", queryir.AllOf(
		queryir.FieldIn("effect", []any{"in-frame", "out-of-frame"}),
		queryir.FieldGte("spanreads", int64(2)),
		queryir.FieldGte("spanpairs", int64(5)),
	)), got)
}

func TestFusionCallerArmsShareOneRecord(t *testing.T) {
	got := BuildFusionPredicate(GroupFusionRNA, fusionSettings(map[string]any{
		"fusion_callers": []any{"starfusion", "arriba"},
	}))

	require.IsType(t, queryir.Or{}, got)
	arms := got.(queryir.Or).Children
	require.Len(t, arms, 2)

	assert.Equal(t, queryir.ElemMatch("calls", queryir.AllOf(
		queryir.FieldEq("caller", "starfusion"),
		queryir.FieldIn("effect", []any{"in-frame", "out-of-frame"}),
		queryir.FieldGte("spanreads", int64(2)),
		queryir.FieldGte("spanpairs", int64(5)),
	)), arms[0])
}

func TestArribaArmSkipsSpanningPairFloor(t *testing.T) {
	got := BuildFusionPredicate(GroupFusion, fusionSettings(map[string]any{
		"fusion_callers": []any{"arriba"},
	}))

	// Spanning reads stay required; only the pair floor is dropped.
	assert.Equal(t, queryir.ElemMatch("calls", queryir.AllOf(
		queryir.FieldEq("caller", "arriba"),
		queryir.FieldIn("effect", []any{"in-frame", "out-of-frame"}),
		queryir.FieldGte("spanreads", int64(2)),
	)), got)
}

func TestCallerSelectionAloneFilters(t *testing.T) {
	got := BuildFusionPredicate(GroupFusion, filter.Resolve(map[string]any{
		"sample_id":      "S1",
		"fusion_callers": []any{"starfusion"},
	}))

	assert.Equal(t, queryir.ElemMatch("calls",
		queryir.FieldEq("caller", "starfusion")), got)
}

func TestFusionListPattern(t *testing.T) {
	got := BuildFusionPredicate(GroupWTS, filter.Resolve(map[string]any{
		"sample_id":           "S1",
		"checked_fusionlists": []any{"mitelman", "FCknown"},
	}))

	assert.Equal(t, queryir.ElemMatch("calls",
		queryir.FieldRegex("desc", `(?i)(mitelman|FCknown)`)), got)
}

func TestFusionListPatternQuotesMetaCharacters(t *testing.T) {
	assert.Equal(t, `(?i)(list\.a|b\+c)`, fusionListPattern([]string{"list.a", "b+c"}))
}

func TestFusionGenePairClause(t *testing.T) {
	got := BuildFusionPredicate(GroupFusion, fusionSettings(map[string]any{
		"filter_genes": []any{"KMT2A"},
	}))

	require.IsType(t, queryir.And{}, got)
	parts := got.(queryir.And).Children
	require.Len(t, parts, 2)
	assert.Equal(t, queryir.AnyOf(
		queryir.FieldIn("gene1", []any{"KMT2A"}),
		queryir.FieldIn("gene2", []any{"KMT2A"}),
	), parts[1])
}

func TestFusionGeneOnlySelection(t *testing.T) {
	got := BuildFusionPredicate(GroupFusion, filter.Resolve(map[string]any{
		"sample_id":    "S1",
		"filter_genes": []any{"KMT2A", "MLLT3"},
	}))

	assert.Equal(t, queryir.AnyOf(
		queryir.FieldIn("gene1", []any{"KMT2A", "MLLT3"}),
		queryir.FieldIn("gene2", []any{"KMT2A", "MLLT3"}),
	), got)
}
