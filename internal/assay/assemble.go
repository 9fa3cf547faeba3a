package assay

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/varq/internal/filter"
	"github.com/roach88/varq/internal/queryir"
	"github.com/roach88/varq/internal/variant"
)

// ErrMissingSampleScope is returned when settings carry no sample ID.
// Every assembled query is scoped to exactly one sample; without an ID
// there is nothing safe to build, and unlike every other settings defect
// this one cannot be repaired with a default.
var ErrMissingSampleScope = errors.New("E201: missing sample scope")

// AssembleSNVQuery builds the complete SNV query for one sample: the
// mandatory sample scope conjoined with the group's SNV policy tree.
func AssembleSNVQuery(g Group, s filter.FilterSettings) (queryir.Query, error) {
	return assemble(variant.KindSNV, BuildSNVPredicate(g, s), s)
}

// AssembleCNVQuery builds the complete CNV query for one sample. CNV
// policy does not depend on the assay group.
func AssembleCNVQuery(s filter.FilterSettings) (queryir.Query, error) {
	return assemble(variant.KindCNV, BuildCNVPredicate(s), s)
}

// AssembleFusionQuery builds the complete fusion query for one sample.
func AssembleFusionQuery(g Group, s filter.FilterSettings) (queryir.Query, error) {
	return assemble(variant.KindFusion, BuildFusionPredicate(g, s), s)
}

// Assemble dispatches on the variant kind.
func Assemble(kind variant.Kind, g Group, s filter.FilterSettings) (queryir.Query, error) {
	switch kind {
	case variant.KindSNV:
		return AssembleSNVQuery(g, s)
	case variant.KindCNV:
		return AssembleCNVQuery(s)
	case variant.KindFusion:
		return AssembleFusionQuery(g, s)
	default:
		return queryir.Query{}, fmt.Errorf("assemble: unknown variant kind %q", kind)
	}
}

func assemble(kind variant.Kind, policy queryir.Node, s filter.FilterSettings) (queryir.Query, error) {
	if strings.TrimSpace(s.SampleID) == "" {
		return queryir.Query{}, ErrMissingSampleScope
	}
	return queryir.Query{
		Kind:     string(kind),
		SampleID: s.SampleID,
		Where:    queryir.Conjoin(queryir.FieldEq(fieldSampleID, s.SampleID), policy),
	}, nil
}
