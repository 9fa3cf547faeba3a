package panelcfg

import (
	"fmt"

	"github.com/roach88/varq/internal/assay"
)

// Validate checks cross-panel invariants. Violations are configuration
// defects: the fail-open tolerance that applies to runtime assay lookups
// never applies to the configuration itself, where an unknown group is a
// typo waiting to hide variants.
func Validate(cfg *PanelConfig) []error {
	var errs []error

	seen := make(map[string]bool, len(cfg.Panels))
	for _, p := range cfg.Panels {
		if seen[p.Assay] {
			errs = append(errs, &LoadError{
				Code:    ErrCodeDuplicateAssay,
				Message: fmt.Sprintf("duplicate assay name %q", p.Assay),
			})
		}
		seen[p.Assay] = true

		if !assay.ParseGroup(p.Group).Recognized() {
			errs = append(errs, &LoadError{
				Code:    ErrCodeUnknownGroup,
				Message: fmt.Sprintf("panel %q: unknown assay group %q", p.Assay, p.Group),
			})
		}

		if p.Type == "rna" && p.WholeGenome {
			errs = append(errs, &LoadError{
				Code:    ErrCodeRNAWholeGenome,
				Message: fmt.Sprintf("panel %q: RNA panels cannot be whole-genome", p.Assay),
			})
		}
	}

	return errs
}

// Lint reports conditions worth an operator's attention that do not make
// the configuration unusable.
func Lint(cfg *PanelConfig) []string {
	var warnings []string

	if len(cfg.Panels) == 0 {
		warnings = append(warnings, "configuration declares no panels")
	}

	for _, p := range cfg.Panels {
		group := assay.ParseGroup(p.Group)
		switch {
		case p.Type == "dna" && !p.WholeGenome && len(p.Genes) == 0:
			warnings = append(warnings,
				fmt.Sprintf("panel %q has no gene list", p.Assay))
		case p.Type == "dna" && group.FusionCapable():
			warnings = append(warnings,
				fmt.Sprintf("panel %q is DNA but uses fusion group %q", p.Assay, p.Group))
		case group.FusionCapable() && len(p.FusionLists) == 0:
			warnings = append(warnings,
				fmt.Sprintf("panel %q selects fusion policy but configures no fusion lists", p.Assay))
		}
	}

	return warnings
}
