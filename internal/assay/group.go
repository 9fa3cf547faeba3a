package assay

import "strings"

// Group is a recognized assay group. Groups are the dispatch key for
// filtering policy: every panel maps its assay onto exactly one group.
type Group string

const (
	// Myeloid-family groups. All four share the myeloid SNV policy.
	GroupMyeloid    Group = "myeloid"
	GroupHematology Group = "hematology"
	GroupTumwgs     Group = "tumwgs"
	GroupUnknown    Group = "unknown"

	// Germline-style panels without rescue paths.
	GroupSwea    Group = "swea"
	GroupGMSOnco Group = "gmsonco"

	// Solid tumor panels.
	GroupSolid Group = "solid"

	// RNA groups that carry fusion calls.
	GroupFusion    Group = "fusion"
	GroupFusionRNA Group = "fusionrna"
	GroupWTS       Group = "wts"

	// GroupUnrecognized is the fail-open bucket for group strings outside
	// the enumeration. Builders map it to the neutral tree.
	GroupUnrecognized Group = ""
)

// ParseGroup maps a raw group string onto the enumeration. Matching is
// case-insensitive and ignores surrounding whitespace. Strings outside
// the enumeration map to GroupUnrecognized; parsing never fails, because
// an unmapped assay must degrade to an unfiltered view rather than an
// error.
func ParseGroup(raw string) Group {
	switch g := Group(strings.ToLower(strings.TrimSpace(raw))); g {
	case GroupMyeloid, GroupHematology, GroupTumwgs, GroupUnknown,
		GroupSwea, GroupGMSOnco,
		GroupSolid,
		GroupFusion, GroupFusionRNA, GroupWTS:
		return g
	default:
		return GroupUnrecognized
	}
}

// Groups returns the recognized groups in a stable order.
func Groups() []Group {
	return []Group{
		GroupMyeloid, GroupHematology, GroupTumwgs, GroupUnknown,
		GroupSwea, GroupGMSOnco,
		GroupSolid,
		GroupFusion, GroupFusionRNA, GroupWTS,
	}
}

// Recognized reports whether g is a member of the enumeration.
func (g Group) Recognized() bool {
	return g != GroupUnrecognized
}

// MyeloidFamily reports whether g shares the myeloid SNV policy.
func (g Group) MyeloidFamily() bool {
	switch g {
	case GroupMyeloid, GroupHematology, GroupTumwgs, GroupUnknown:
		return true
	}
	return false
}

// FusionCapable reports whether g carries DNA/RNA fusion calls. Fusion
// queries for other groups match nothing beyond the sample scope.
func (g Group) FusionCapable() bool {
	switch g {
	case GroupFusion, GroupFusionRNA, GroupWTS:
		return true
	}
	return false
}

func (g Group) String() string {
	if g == GroupUnrecognized {
		return "unrecognized"
	}
	return string(g)
}
