package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/varq/internal/assay"
	"github.com/roach88/varq/internal/engine"
	"github.com/roach88/varq/internal/queryir"
	"github.com/roach88/varq/internal/variant"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Group        string
	Kind         string
	SettingsFile string
	SettingsJSON string
	Sample       string
	Output       string // output file path
}

// CompileResult is the compiled query: the canonical predicate tree,
// the lowered SQL, and the fingerprint under which a run would be
// logged.
type CompileResult struct {
	Group     string          `json:"group"`
	Kind      string          `json:"kind"`
	SampleID  string          `json:"sample_id"`
	Tree      json.RawMessage `json:"tree"`
	SQL       string          `json:"sql"`
	Params    []any           `json:"params"`
	QueryHash string          `json:"query_hash"`
	Warnings  []string        `json:"warnings,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Build and compile a query without executing it",
		Long: `Build the predicate tree for a policy group and compile it to SQL.

Settings resolve the same way the query command resolves them, but no
database is touched: the group is named directly instead of looked up
from a registered sample. The output is the canonical tree JSON, the
compiled SQL with its bind parameters, and the query fingerprint.

Examples:
  varq compile --group myeloid --kind snv --sample S1
  varq compile --group solid --settings curator.yaml
  varq compile --group myeloid --settings-json '{"sample_id":"S1","min_freq":0.05}'`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Group, "group", "", "assay policy group (required)")
	_ = cmd.MarkFlagRequired("group")
	cmd.Flags().StringVar(&opts.Kind, "kind", "snv", "variant kind (snv|cnv|fusion)")
	cmd.Flags().StringVar(&opts.SettingsFile, "settings", "", "settings file (YAML or JSON)")
	cmd.Flags().StringVar(&opts.SettingsJSON, "settings-json", "", "inline settings as JSON")
	cmd.Flags().StringVar(&opts.Sample, "sample", "", "sample ID (overrides settings)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write result JSON to file")

	return cmd
}

func runCompile(opts *CompileOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	raw, err := collectSettings(opts.SettingsFile, opts.SettingsJSON, opts.Sample)
	if err != nil {
		_ = formatter.Error(ErrCodeBadFile, err.Error(), nil)
		return WrapExitError(ExitCommandError, "settings not readable", err)
	}

	kind, err := variant.ParseKind(opts.Kind)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid kind", err)
	}

	group := assay.ParseGroup(opts.Group)
	formatter.VerboseLog("Building %s query for group %s", kind, group)

	plan, err := engine.BuildPlanForGroup(group, kind, raw)
	if err != nil {
		_ = formatter.Error(codeFor(err), err.Error(), nil)
		if errors.Is(err, assay.ErrMissingSampleScope) {
			return WrapExitError(ExitCommandError, "missing sample scope", err)
		}
		return WrapExitError(ExitFailure, "compilation failed", err)
	}

	tree, err := queryir.EncodeCanonical(plan.Query.Where)
	if err != nil {
		_ = formatter.Error(codeFor(err), err.Error(), nil)
		return WrapExitError(ExitFailure, "tree encoding failed", err)
	}

	result := CompileResult{
		Group:     group.String(),
		Kind:      string(kind),
		SampleID:  plan.Query.SampleID,
		Tree:      json.RawMessage(tree),
		SQL:       plan.SQL,
		Params:    plan.Params,
		QueryHash: plan.QueryHash,
		Warnings:  plan.Warnings,
	}

	if opts.Output != "" {
		if err := writeResultFile(result, opts.Output); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "writing output file", err)
		}
	}

	return outputCompileResult(formatter, result, opts.Output)
}

func outputCompileResult(formatter *OutputFormatter, result CompileResult, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %s query for sample %s (group %s)\n\n", result.Kind, result.SampleID, result.Group)
	fmt.Fprintf(w, "Tree:\n  %s\n\n", result.Tree)
	fmt.Fprintf(w, "SQL:\n  %s\n\n", result.SQL)
	fmt.Fprintf(w, "Params: %v\n", result.Params)
	fmt.Fprintf(w, "Query hash: %s\n", result.QueryHash)

	if len(result.Warnings) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Warnings:")
		for _, warning := range result.Warnings {
			fmt.Fprintf(w, "  %s\n", warning)
		}
	}
	if outputFile != "" {
		fmt.Fprintf(w, "\nWrote result to %s\n", outputFile)
	}

	return nil
}

// writeResultFile writes the compile result to a file as indented JSON.
func writeResultFile(result CompileResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
