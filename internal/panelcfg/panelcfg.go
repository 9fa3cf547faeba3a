// Package panelcfg loads and validates assay panel configuration.
//
// Panel configuration is written in CUE and declares every sequencing
// panel the lab runs: its assay name, its filtering-policy group, whether
// it is DNA or RNA, and the gene and fusion lists that scope its queries.
// Configuration errors are strict (a typo in a group name is a defect,
// not a policy), while runtime lookups of assays missing from the
// configuration fail open to the unrecognized group.
package panelcfg

import (
	"sort"
	"strings"

	"github.com/roach88/varq/internal/assay"
)

// Panel is one configured sequencing panel.
type Panel struct {
	// Assay is the unique panel identifier samples reference, e.g.
	// "myeloid_GMSv1".
	Assay string

	// Group names the filtering policy. Must parse to a recognized
	// assay.Group; validation rejects anything else.
	Group string

	// Type is "dna" or "rna".
	Type string

	// WholeGenome marks unpaneled whole-genome assays. Only meaningful
	// for DNA panels.
	WholeGenome bool

	// Genes is the panel's gene list. May be empty for whole-genome
	// assays.
	Genes []string

	// FusionLists names the known-fusion annotation lists available to
	// this panel.
	FusionLists []string

	// Description is free-form operator documentation.
	Description string
}

// PanelConfig is a validated set of panels.
type PanelConfig struct {
	Panels []Panel
}

// PanelFor returns the panel for an assay name. Lookup ignores
// surrounding whitespace but is otherwise exact.
func (c *PanelConfig) PanelFor(assayName string) (Panel, bool) {
	name := strings.TrimSpace(assayName)
	for _, p := range c.Panels {
		if p.Assay == name {
			return p, true
		}
	}
	return Panel{}, false
}

// GroupFor resolves an assay name to its filtering-policy group. Assays
// missing from the configuration resolve to assay.GroupUnrecognized, so
// an unmapped assay degrades to an unfiltered sample view instead of an
// error. Callers that care log the degradation.
func (c *PanelConfig) GroupFor(assayName string) assay.Group {
	p, ok := c.PanelFor(assayName)
	if !ok {
		return assay.GroupUnrecognized
	}
	return assay.ParseGroup(p.Group)
}

// IsWholeGenome reports whether the assay is configured as whole-genome.
func (c *PanelConfig) IsWholeGenome(assayName string) bool {
	p, ok := c.PanelFor(assayName)
	return ok && p.WholeGenome
}

// GenesFor returns the configured gene list for an assay, nil when the
// assay is unknown or has no list.
func (c *PanelConfig) GenesFor(assayName string) []string {
	p, ok := c.PanelFor(assayName)
	if !ok {
		return nil
	}
	return p.Genes
}

// FusionListsFor returns the configured fusion lists for an assay.
func (c *PanelConfig) FusionListsFor(assayName string) []string {
	p, ok := c.PanelFor(assayName)
	if !ok {
		return nil
	}
	return p.FusionLists
}

// AssayNames returns every configured assay name, sorted.
func (c *PanelConfig) AssayNames() []string {
	names := make([]string, 0, len(c.Panels))
	for _, p := range c.Panels {
		names = append(names, p.Assay)
	}
	sort.Strings(names)
	return names
}
