package assay

import (
	"github.com/roach88/varq/internal/filter"
	"github.com/roach88/varq/internal/queryir"
)

// Document fields shared by the builders in this package.
const (
	fieldSampleID = "SAMPLE_ID"
	fieldGenes    = "genes"
	fieldPos      = "POS"
	fieldFP       = "fp"
	fieldIrrelev  = "irrelevant"
)

// BuildScopeFilter narrows a query to the curator's current view: an
// explicit position list, or failing that a gene list, plus the
// false-positive and irrelevant annotation flags. All parts are optional
// and the result is the neutral tree when none are set.
//
// An explicit position list takes precedence over the gene list. Curators
// drill into positions from a gene-level view; applying both at once
// would intersect the drill-down with its parent and hide positions the
// curator asked for by name.
func BuildScopeFilter(s filter.FilterSettings) queryir.Node {
	var region queryir.Node
	switch {
	case len(s.DispPos) > 0:
		region = queryir.FieldIn(fieldPos, queryir.Int64s(s.DispPos))
	case len(s.FilterGenes) > 0:
		region = queryir.FieldIn(fieldGenes, queryir.Strings(s.FilterGenes))
	}

	var fp, irrelevant queryir.Node
	if s.FP != nil {
		fp = queryir.FieldEq(fieldFP, s.FP)
	}
	if s.Irrelevant != nil {
		irrelevant = queryir.FieldEq(fieldIrrelev, s.Irrelevant)
	}

	return queryir.Conjoin(region, fp, irrelevant)
}
