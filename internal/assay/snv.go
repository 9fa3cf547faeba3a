package assay

import (
	"github.com/roach88/varq/internal/filter"
	"github.com/roach88/varq/internal/queryir"
)

// SNV document fields and annotation values.
const (
	fieldFilter = "FILTER"
	fieldChrom  = "CHROM"
	fieldGT     = "GT"
	fieldAlt    = "ALT"

	gtType    = "type"
	gtAF      = "AF"
	gtDP      = "DP"
	gtVD      = "VD"
	gtCase    = "case"
	gtControl = "control"

	filterGermline = "GERMLINE"

	germlineFlagField   = "INFO.MYELOID_GERMLINE"
	svTypeField         = "INFO.SVTYPE"
	csqListField        = "INFO.CSQ"
	selectedConseqField = "INFO.selected_CSQ.Consequence"
	csqSymbol           = "SYMBOL"
	csqConsequence      = "Consequence"
	gnomadField         = "gnomad_frequency"

	geneCEBPA = "CEBPA"
	geneFLT3  = "FLT3"

	// NRAS hotspot window on chr1. Both bounds are exclusive: positions
	// 115256521 through 115256537 are inside, the endpoints are not.
	chr1HotspotChrom = "1"
	chr1HotspotStart = 115256520
	chr1HotspotEnd   = 115256538

	// FLT3 internal tandem duplications show up as long inserted alleles.
	// Matches any run of 10 to 200 word characters anywhere in ALT,
	// case-insensitively. Unanchored: a match anywhere qualifies.
	longInsertionPattern = `(?i)\w{10,200}`
)

var (
	solidRescueGenes        = []string{"TERT", "NFKBIE"}
	solidRescueConsequences = []string{"regulatory_region_variant", "TF_binding_site_variant"}
)

// BuildSNVPredicate builds the SNV filtering tree for an assay group.
// The tree never includes the sample scope; AssembleSNVQuery adds it.
// Unrecognized groups get the neutral tree and therefore an unfiltered
// sample view.
func BuildSNVPredicate(g Group, s filter.FilterSettings) queryir.Node {
	switch {
	case g.MyeloidFamily():
		return myeloidSNVTree(s)
	case g == GroupSwea || g == GroupGMSOnco:
		return plainSNVTree(s)
	case g == GroupSolid:
		return solidSNVTree(s)
	default:
		return queryir.And{}
	}
}

// myeloidSNVTree admits a variant through any of four branches: the
// panel's germline flag, a CEBPA germline call, the chr1 hotspot window,
// or the general evidence gate with the FLT3 structural rescue.
func myeloidSNVTree(s filter.FilterSettings) queryir.Node {
	return queryir.Conjoin(
		BuildScopeFilter(s),
		queryir.AnyOf(
			queryir.FieldEq(germlineFlagField, 1),
			cebpaGermlineRescue(),
			chr1HotspotWindow(),
			evidenceGate(s, flt3StructuralRescue()),
		),
	)
}

// plainSNVTree is the swea/gmsonco policy: case evidence plus the
// consequence gate, no germline escapes and no rescue paths.
func plainSNVTree(s filter.FilterSettings) queryir.Node {
	var conseq queryir.Node
	if len(s.FilterConseq) > 0 {
		conseq = queryir.ElemMatch(csqListField,
			queryir.FieldIn(csqConsequence, queryir.Strings(s.FilterConseq)))
	}
	return queryir.Conjoin(BuildScopeFilter(s), caseEvidence(s), conseq)
}

// solidSNVTree admits germline-tagged calls unconditionally, otherwise
// requires the evidence gate with the TERT/NFKBIE regulatory rescue.
// Solid assays have no hotspot window.
func solidSNVTree(s filter.FilterSettings) queryir.Node {
	return queryir.Conjoin(
		BuildScopeFilter(s),
		queryir.AnyOf(
			queryir.FieldEq(fieldFilter, filterGermline),
			evidenceGate(s, regulatoryRescue()),
		),
	)
}

// cebpaGermlineRescue admits germline-filtered calls annotated to CEBPA.
// The GERMLINE tag alone is not enough for myeloid assays; the annotation
// list must name the gene.
func cebpaGermlineRescue() queryir.Node {
	return queryir.AllOf(
		queryir.FieldEq(fieldFilter, filterGermline),
		queryir.ElemMatch(csqListField, queryir.FieldEq(csqSymbol, geneCEBPA)),
	)
}

func chr1HotspotWindow() queryir.Node {
	return queryir.AllOf(
		queryir.FieldEq(fieldChrom, chr1HotspotChrom),
		queryir.FieldGt(fieldPos, chr1HotspotStart),
		queryir.FieldLt(fieldPos, chr1HotspotEnd),
	)
}

// evidenceGate is the general reportability conjunction: case genotype
// thresholds, control clearance, the population-frequency gate, and the
// consequence gate with an assay-specific rescue arm.
func evidenceGate(s filter.FilterSettings, rescue queryir.Node) queryir.Node {
	conjuncts := []queryir.Node{
		caseEvidence(s),
		controlClearance(s),
		popFreqGate(s),
	}
	if conseq := consequenceGate(s, rescue); conseq != nil {
		conjuncts = append(conjuncts, conseq)
	}
	return queryir.AllOf(conjuncts...)
}

// caseEvidence requires one case genotype record meeting every threshold
// at once. Thresholds apply per record, not across records.
func caseEvidence(s filter.FilterSettings) queryir.Node {
	return queryir.ElemMatch(fieldGT, queryir.AllOf(
		queryir.FieldEq(gtType, gtCase),
		queryir.FieldGte(gtAF, s.MinFreq),
		queryir.FieldLte(gtAF, s.MaxFreq),
		queryir.FieldGte(gtDP, s.MinDepth),
		queryir.FieldGte(gtVD, s.MinAltReads),
	))
}

// controlClearance passes when the sample has no control genotype record
// at all, or when a control record stays under the control frequency
// ceiling at adequate depth. Absence of control data never blocks a
// variant.
func controlClearance(s filter.FilterSettings) queryir.Node {
	return queryir.AnyOf(
		queryir.NoneMatch(fieldGT, queryir.FieldEq(gtType, gtControl)),
		queryir.ElemMatch(fieldGT, queryir.AllOf(
			queryir.FieldEq(gtType, gtControl),
			queryir.FieldLte(gtAF, s.MaxControlFreq),
			queryir.FieldGte(gtDP, s.MinDepth),
		)),
	)
}

// popFreqGate excludes only on a known numeric population frequency above
// the cutoff. An absent annotation passes, and so does a non-numeric
// string left over from upstream annotation quirks.
func popFreqGate(s filter.FilterSettings) queryir.Node {
	return queryir.AnyOf(
		queryir.FieldExists(gnomadField, false),
		queryir.FieldType(gnomadField, queryir.TypeString),
		queryir.FieldLte(gnomadField, s.MaxPopFreq),
	)
}

// consequenceGate restricts to the curator's selected consequence types,
// consulting both the pre-selected annotation and the full annotation
// list, with an optional rescue arm. With no types selected the gate is
// omitted entirely: selecting nothing means "do not filter by
// consequence", not "match none".
func consequenceGate(s filter.FilterSettings, rescue queryir.Node) queryir.Node {
	if len(s.FilterConseq) == 0 {
		return nil
	}
	conseqs := queryir.Strings(s.FilterConseq)
	arms := []queryir.Node{
		queryir.FieldIn(selectedConseqField, conseqs),
		queryir.ElemMatch(csqListField, queryir.FieldIn(csqConsequence, conseqs)),
	}
	if rescue != nil {
		arms = append(arms, rescue)
	}
	return queryir.AnyOf(arms...)
}

// flt3StructuralRescue lets FLT3 internal tandem duplications through the
// consequence gate. ITDs surface either as annotated structural variants
// or as long inserted alleles that consequence prediction misclassifies.
func flt3StructuralRescue() queryir.Node {
	return queryir.AllOf(
		queryir.FieldEq(fieldGenes, geneFLT3),
		queryir.AnyOf(
			queryir.FieldExists(svTypeField, true),
			queryir.FieldRegex(fieldAlt, longInsertionPattern),
		),
	)
}

// regulatoryRescue lets TERT and NFKBIE regulatory-region calls through
// the consequence gate on solid assays. Promoter hits in these genes are
// reportable even when the curator's selection excludes regulatory
// classes.
func regulatoryRescue() queryir.Node {
	conseqs := queryir.Strings(solidRescueConsequences)
	return queryir.AllOf(
		queryir.FieldIn(fieldGenes, queryir.Strings(solidRescueGenes)),
		queryir.AnyOf(
			queryir.FieldIn(selectedConseqField, conseqs),
			queryir.ElemMatch(csqListField, queryir.FieldIn(csqConsequence, conseqs)),
		),
	)
}
