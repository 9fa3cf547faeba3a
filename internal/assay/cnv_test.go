package assay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/varq/internal/filter"
	"github.com/roach88/varq/internal/queryir"
)

func cnvSettings(extra map[string]any) filter.FilterSettings {
	raw := map[string]any{
		"sample_id":       "S1",
		"cnv_loss_cutoff": 0.75,
		"cnv_gain_cutoff": 1.25,
		"min_cnv_size":    10000,
		"max_cnv_size":    5000000,
	}
	for k, v := range extra {
		raw[k] = v
	}
	return filter.Resolve(raw)
}

func TestBuildCNVPredicateNoCriteria(t *testing.T) {
	s := filter.Resolve(map[string]any{"sample_id": "S1"})
	assert.True(t, queryir.IsNeutral(BuildCNVPredicate(s)))
}

func TestBuildCNVPredicateShape(t *testing.T) {
	got := BuildCNVPredicate(cnvSettings(nil))

	require.IsType(t, queryir.And{}, got)
	conjuncts := got.(queryir.And).Children
	require.Len(t, conjuncts, 4)

	assert.Equal(t, queryir.AnyOf(
		queryir.FieldExists("NORMAL", false),
		queryir.FieldNe("NORMAL", true),
	), conjuncts[0])
	assert.Equal(t, queryir.AnyOf(
		queryir.FieldLte("ratio", 0.75),
		queryir.FieldGte("ratio", 1.25),
	), conjuncts[1])
	assert.Equal(t, queryir.FieldGte("size", int64(10000)), conjuncts[2])
	assert.Equal(t, queryir.FieldLte("size", int64(5000000)), conjuncts[3])
}

func TestBuildCNVPredicateUnboundedSize(t *testing.T) {
	got := BuildCNVPredicate(cnvSettings(map[string]any{"max_cnv_size": 0}))

	conjuncts := got.(queryir.And).Children
	require.Len(t, conjuncts, 3)
	for _, c := range conjuncts {
		if f, ok := c.(queryir.Field); ok {
			assert.NotEqual(t, queryir.OpLte, f.Op, "no size ceiling expected")
		}
	}
}

func TestBuildCNVPredicateGeneClause(t *testing.T) {
	got := BuildCNVPredicate(cnvSettings(map[string]any{
		"filter_genes": []any{"ERBB2", "MYC"},
	}))

	conjuncts := got.(queryir.And).Children
	require.Len(t, conjuncts, 5)
	assert.Equal(t, queryir.AnyOf(
		queryir.FieldIn("genes", []any{"ERBB2", "MYC"}),
		queryir.FieldExists("genes", false),
		queryir.FieldEq("assay", "tumwgs"),
	), conjuncts[4])
}

func TestBuildCNVPredicateNoGeneClauseWithoutGenes(t *testing.T) {
	fields := collectFields(BuildCNVPredicate(cnvSettings(nil)))
	assert.Empty(t, fieldsOn(fields, "genes"))
	assert.Empty(t, fieldsOn(fields, "assay"))
}

func TestBuildCNVPredicateSingleThresholdActivates(t *testing.T) {
	s := filter.Resolve(map[string]any{"sample_id": "S1", "cnv_loss_cutoff": 0.5})
	got := BuildCNVPredicate(s)

	assert.False(t, queryir.IsNeutral(got))
	require.IsType(t, queryir.And{}, got)
	require.Len(t, got.(queryir.And).Children, 3)
}
