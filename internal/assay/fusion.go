package assay

import (
	"regexp"
	"strings"

	"github.com/roach88/varq/internal/filter"
	"github.com/roach88/varq/internal/queryir"
)

// Fusion document fields. Per-call fields are relative to an element of
// the calls array.
const (
	fieldCalls = "calls"
	fieldGene1 = "gene1"
	fieldGene2 = "gene2"

	callCaller    = "caller"
	callEffect    = "effect"
	callDesc      = "desc"
	callSpanReads = "spanreads"
	callSpanPairs = "spanpairs"

	// arriba reports no spanning-pair count, so the pair floor would
	// silently exclude every arriba call.
	callerArriba = "arriba"
)

// BuildFusionPredicate builds the fusion filtering tree. Groups that do
// not carry fusion calls get the neutral tree: the query then returns
// whatever fusion documents the sample has, which is normally none.
func BuildFusionPredicate(g Group, s filter.FilterSettings) queryir.Node {
	if !g.FusionCapable() {
		return queryir.And{}
	}

	var calls queryir.Node
	if s.HasFusionCallCriteria() {
		calls = callMatch(s)
	}

	var genes queryir.Node
	if len(s.FilterGenes) > 0 {
		listed := queryir.Strings(s.FilterGenes)
		genes = queryir.AnyOf(
			queryir.FieldIn(fieldGene1, listed),
			queryir.FieldIn(fieldGene2, listed),
		)
	}

	return queryir.Conjoin(calls, genes)
}

// callMatch requires one call record meeting the per-call criteria. When
// specific callers are selected, each gets its own arm so that the
// caller identity and its thresholds are tested against the same record.
func callMatch(s filter.FilterSettings) queryir.Node {
	if len(s.FusionCallers) == 0 {
		return queryir.ElemMatch(fieldCalls, callClause(s, ""))
	}
	arms := make([]queryir.Node, 0, len(s.FusionCallers))
	for _, caller := range s.FusionCallers {
		arms = append(arms, queryir.ElemMatch(fieldCalls, callClause(s, caller)))
	}
	if len(arms) == 1 {
		return arms[0]
	}
	return queryir.AnyOf(arms...)
}

// callClause builds the criteria one call record must meet. An empty
// caller means any caller. The spanning-pair floor is skipped for arriba.
func callClause(s filter.FilterSettings, caller string) queryir.Node {
	var conjuncts []queryir.Node
	if caller != "" {
		conjuncts = append(conjuncts, queryir.FieldEq(callCaller, caller))
	}
	if len(s.FusionEffects) > 0 {
		conjuncts = append(conjuncts,
			queryir.FieldIn(callEffect, queryir.Strings(s.FusionEffects)))
	}
	if len(s.CheckedFusionLists) > 0 {
		conjuncts = append(conjuncts,
			queryir.FieldRegex(callDesc, fusionListPattern(s.CheckedFusionLists)))
	}
	if s.MinSpanningReads > 0 {
		conjuncts = append(conjuncts,
			queryir.FieldGte(callSpanReads, s.MinSpanningReads))
	}
	if s.MinSpanningPairs > 0 && caller != callerArriba {
		conjuncts = append(conjuncts,
			queryir.FieldGte(callSpanPairs, s.MinSpanningPairs))
	}
	return queryir.Conjoin(conjuncts...)
}

// fusionListPattern OR-joins the selected list tags into a single
// case-insensitive pattern matched anywhere in the call description.
func fusionListPattern(lists []string) string {
	quoted := make([]string, len(lists))
	for i, tag := range lists {
		quoted[i] = regexp.QuoteMeta(tag)
	}
	return "(?i)(" + strings.Join(quoted, "|") + ")"
}
