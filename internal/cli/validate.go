package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/varq/internal/panelcfg"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	AllErrors bool
}

// PanelSummary is the JSON shape for one validated panel.
type PanelSummary struct {
	Assay       string `json:"assay"`
	Group       string `json:"group"`
	Type        string `json:"type"`
	WholeGenome bool   `json:"whole_genome,omitempty"`
	Genes       int    `json:"genes"`
	FusionLists int    `json:"fusion_lists"`
}

// ValidationReport holds the validate command's result.
type ValidationReport struct {
	Valid    bool           `json:"valid"`
	Panels   []PanelSummary `json:"panels,omitempty"`
	Warnings []string       `json:"warnings,omitempty"`
	Errors   []CLIError     `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <panels.cue|config-dir>",
		Short: "Validate panel configuration",
		Long: `Validate assay panel configuration without touching a database.

Checks the CUE source against the panel schema, rejects duplicate assay
names and unknown policy groups, and reports lint warnings.

Exit codes:
  0 - Configuration valid (warnings allowed)
  1 - Configuration invalid
  2 - Command error (path not found, unreadable file)

Examples:
  varq validate ./panels.cue
  varq validate ./config --all-errors
  varq validate ./panels.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.AllErrors, "all-errors", false, "report every error instead of stopping at the first")

	return cmd
}

func runValidate(opts *ValidateOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	mode := panelcfg.LoadModeFailFast
	if opts.AllErrors {
		mode = panelcfg.LoadModeCollectAll
	}

	if _, err := os.Stat(path); err != nil {
		_ = formatter.Error(ErrCodeBadFile, err.Error(), nil)
		return WrapExitError(ExitCommandError, "panel config not accessible", err)
	}

	result, errs := LoadPanels(path, mode)
	if len(errs) > 0 {
		return outputValidationErrors(formatter, errs)
	}

	formatter.VerboseLog("Loaded %d CUE file(s) from %s", result.FileCount, path)

	return outputValidateSuccess(formatter, result)
}

// outputValidateSuccess reports a valid configuration with its panels
// and any lint warnings.
func outputValidateSuccess(formatter *OutputFormatter, result *panelcfg.LoadResult) error {
	report := ValidationReport{
		Valid:    true,
		Warnings: result.Warnings,
	}
	for _, p := range result.Config.Panels {
		report.Panels = append(report.Panels, PanelSummary{
			Assay:       p.Assay,
			Group:       p.Group,
			Type:        p.Type,
			WholeGenome: p.WholeGenome,
			Genes:       len(p.Genes),
			FusionLists: len(p.FusionLists),
		})
	}

	if formatter.Format == "json" {
		return formatter.Success(report)
	}

	fmt.Fprintf(formatter.Writer, "✓ Valid: %d panel(s)\n\n", len(report.Panels))
	for _, p := range report.Panels {
		marker := ""
		if p.WholeGenome {
			marker = " (whole-genome)"
		}
		fmt.Fprintf(formatter.Writer, "  %s: group %s, %s%s, %d gene(s), %d fusion list(s)\n",
			p.Assay, p.Group, p.Type, marker, p.Genes, p.FusionLists)
	}
	if len(report.Warnings) > 0 {
		fmt.Fprintln(formatter.Writer)
		fmt.Fprintln(formatter.Writer, "Warnings:")
		for _, w := range report.Warnings {
			fmt.Fprintf(formatter.Writer, "  %s\n", w)
		}
	}

	return nil
}

// outputValidationErrors reports configuration errors and maps them to
// exit code 1.
func outputValidationErrors(formatter *OutputFormatter, errs []error) error {
	cliErrors := make([]CLIError, len(errs))
	for i, err := range errs {
		var le *panelcfg.LoadError
		if errors.As(err, &le) {
			msg := le.Message
			if le.Pos.IsValid() {
				msg = fmt.Sprintf("%s:%d:%d: %s", le.Pos.Filename(), le.Pos.Line(), le.Pos.Column(), le.Message)
			}
			cliErrors[i] = CLIError{Code: le.Code, Message: msg}
		} else {
			cliErrors[i] = CLIError{Code: codeFor(err), Message: err.Error()}
		}
	}

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationReport{Valid: false, Errors: cliErrors},
			Error:  &cliErrors[0],
		}
		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, ce := range cliErrors {
		fmt.Fprintf(formatter.Writer, "  %s: %s\n", ce.Code, ce.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
