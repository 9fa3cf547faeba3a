// Package filter resolves raw filter input into canonical settings.
//
// Raw input arrives as a loosely typed map: form values, YAML files, JSON
// payloads. Resolve coerces it into one immutable FilterSettings value that
// every assay policy builder consumes. Resolution is total - there is no
// error path. Missing keys take documented defaults, unparsable values take
// documented defaults, negative thresholds clamp to defaults. A parallel
// Lint reports what Resolve silently repaired, and never blocks.
package filter

// Threshold defaults. Lower bounds default to zero (no floor). The three
// frequency upper bounds are fractions in [0,1] and default to one (no
// ceiling), so an unconfigured gate passes everything instead of excluding
// everything. MaxCNVSize zero means unbounded; the CNV builder omits the
// upper size clause.
const (
	DefaultMaxFreq        = 1.0
	DefaultMaxControlFreq = 1.0
	DefaultMaxPopFreq     = 1.0
)

// FilterSettings is the canonical, immutable-per-request filter structure.
// Every field except SampleID is optional; zero values carry the documented
// "not configured" meaning. Builders branch on values, never on key
// presence: an empty FilterGenes means no gene scoping, a zero
// MinSpanningReads means no spanning-read floor.
type FilterSettings struct {
	// SampleID scopes every query. It is the only field whose absence is
	// fatal, enforced by the assemblers rather than here.
	SampleID string

	// Case-sample variant evidence thresholds.
	MinFreq     float64
	MaxFreq     float64
	MinDepth    int64
	MinAltReads int64

	// Control-sample suppression threshold.
	MaxControlFreq float64

	// Population-frequency gate.
	MaxPopFreq float64

	// Consequence-type selection, e.g. "missense_variant".
	FilterConseq []string

	// Gene and position scoping. DispPos takes precedence over FilterGenes.
	FilterGenes []string
	DispPos     []int64

	// Pre-tagged exclusion flags. The values are opaque: whatever was
	// supplied is matched by equality. nil means not configured.
	FP         any
	Irrelevant any

	// CNV thresholds. Ratio cutoffs are fold-change values (non-negative).
	CNVLossCutoff float64
	CNVGainCutoff float64
	MinCNVSize    int64
	MaxCNVSize    int64

	// Fusion evidence and selection.
	MinSpanningReads   int64
	MinSpanningPairs   int64
	FusionEffects      []string
	FusionCallers      []string
	CheckedFusionLists []string
}

// HasCNVCriteria reports whether any CNV threshold is configured. When
// false the CNV builder produces the trivial tree.
func (s FilterSettings) HasCNVCriteria() bool {
	return s.CNVLossCutoff > 0 || s.CNVGainCutoff > 0 || s.MinCNVSize > 0 || s.MaxCNVSize > 0
}

// HasFusionCallCriteria reports whether any per-call fusion criterion is
// configured: caller selection, effect selection, fusion-list selection,
// or a positive evidence threshold. Caller selection counts because a
// per-caller clause always pins the caller identity, which is itself a
// filter.
func (s FilterSettings) HasFusionCallCriteria() bool {
	return len(s.FusionCallers) > 0 || len(s.FusionEffects) > 0 ||
		len(s.CheckedFusionLists) > 0 ||
		s.MinSpanningReads > 0 || s.MinSpanningPairs > 0
}
