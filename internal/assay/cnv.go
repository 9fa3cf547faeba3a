package assay

import (
	"github.com/roach88/varq/internal/filter"
	"github.com/roach88/varq/internal/queryir"
)

// CNV document fields.
const (
	fieldNormal = "NORMAL"
	fieldRatio  = "ratio"
	fieldSize   = "size"
	fieldAssay  = "assay"

	// Assay name whose CNV calls bypass panel gene lists. Whole-genome
	// copy calls routinely span regions no panel covers.
	wholeGenomeAssay = "tumwgs"
)

// BuildCNVPredicate builds the copy-number filtering tree. CNV policy
// does not vary by assay group; it is driven entirely by the settings.
// With no copy-number criteria configured the tree is neutral and the
// query returns the sample's full CNV set.
func BuildCNVPredicate(s filter.FilterSettings) queryir.Node {
	if !s.HasCNVCriteria() {
		return queryir.And{}
	}

	conjuncts := []queryir.Node{
		// Calls flagged as matched-normal findings are never reportable.
		queryir.AnyOf(
			queryir.FieldExists(fieldNormal, false),
			queryir.FieldNe(fieldNormal, true),
		),
		// Copy ratio must leave the neutral band in either direction.
		queryir.AnyOf(
			queryir.FieldLte(fieldRatio, s.CNVLossCutoff),
			queryir.FieldGte(fieldRatio, s.CNVGainCutoff),
		),
		queryir.FieldGte(fieldSize, s.MinCNVSize),
	}
	if s.MaxCNVSize > 0 {
		conjuncts = append(conjuncts, queryir.FieldLte(fieldSize, s.MaxCNVSize))
	}

	if len(s.FilterGenes) > 0 {
		// A call stays visible when it touches a listed gene, when it has
		// no gene annotation to test, or when it comes from a whole-genome
		// assay where panel gene lists do not apply.
		conjuncts = append(conjuncts, queryir.AnyOf(
			queryir.FieldIn(fieldGenes, queryir.Strings(s.FilterGenes)),
			queryir.FieldExists(fieldGenes, false),
			queryir.FieldEq(fieldAssay, wholeGenomeAssay),
		))
	}

	return queryir.AllOf(conjuncts...)
}
