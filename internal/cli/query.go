package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/varq/internal/assay"
	"github.com/roach88/varq/internal/engine"
	"github.com/roach88/varq/internal/panelcfg"
	"github.com/roach88/varq/internal/store"
	"github.com/roach88/varq/internal/variant"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Panels       string
	Kind         string
	SettingsFile string
	SettingsJSON string
	Sample       string
}

// QueryResponse is the result envelope for one executed query.
type QueryResponse struct {
	QueryID    string   `json:"query_id"`
	SampleID   string   `json:"sample_id"`
	Kind       string   `json:"kind"`
	Group      string   `json:"group"`
	Matches    []string `json:"matches"`
	ResultHash string   `json:"result_hash"`
	QueryHash  string   `json:"query_hash"`
	ExecutedAt string   `json:"executed_at"`
	Warnings   []string `json:"warnings,omitempty"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run a query against the store",
		Long: `Run the full query pipeline for one sample.

The sample's registered assay resolves to its policy group through the
panel configuration, settings resolve into thresholds, the predicate
tree compiles to SQL, and the run executes against the store. Every
run is appended to the audit log under the printed query ID.

Without --panels every assay is unrecognized and queries degrade to
the bare sample scope, with a warning.

Examples:
  varq query --db ./varq.db --panels ./panels.cue --kind snv --sample S1
  varq query --db ./varq.db --panels ./panels.cue --settings curator.yaml
  varq query --db ./varq.db --panels ./panels.cue --sample S1 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Panels, "panels", "", "panel configuration file or directory")
	cmd.Flags().StringVar(&opts.Kind, "kind", "snv", "variant kind (snv|cnv|fusion)")
	cmd.Flags().StringVar(&opts.SettingsFile, "settings", "", "settings file (YAML or JSON)")
	cmd.Flags().StringVar(&opts.SettingsJSON, "settings-json", "", "inline settings as JSON")
	cmd.Flags().StringVar(&opts.Sample, "sample", "", "sample ID (overrides settings)")

	return cmd
}

func runQuery(opts *QueryOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	configureLogging(opts.Verbose)

	if opts.Database == "" {
		_ = formatter.Error(ErrCodeGeneric, "--db is required", nil)
		return NewExitError(ExitCommandError, "--db is required")
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

	panels, err := loadPanelsOrEmpty(opts.Panels)
	if err != nil {
		_ = formatter.Error(codeFor(err), err.Error(), nil)
		return WrapExitError(ExitCommandError, "panel config failed", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		_ = formatter.Error(codeFor(err), err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	eng := engine.New(st, panels)
	result, err := eng.Search(ctx, kind, raw)
	if err != nil {
		_ = formatter.Error(codeFor(err), err.Error(), nil)
		if errors.Is(err, assay.ErrMissingSampleScope) || errors.Is(err, store.ErrSampleNotFound) {
			return WrapExitError(ExitCommandError, "query rejected", err)
		}
		return WrapExitError(ExitFailure, "query failed", err)
	}

	response := QueryResponse{
		QueryID:    result.QueryID,
		SampleID:   result.Plan.Query.SampleID,
		Kind:       result.Plan.Query.Kind,
		Group:      result.Plan.Group.String(),
		Matches:    matchIDs(result.Rows),
		ResultHash: result.ResultHash,
		QueryHash:  result.Plan.QueryHash,
		ExecutedAt: result.ExecutedAt,
		Warnings:   result.Plan.Warnings,
	}

	return outputQueryResponse(formatter, response, result.Plan.SQL, result.Plan.Params)
}

// configureLogging routes pipeline logs to stderr, at debug level when
// verbose. Command output stays on stdout.
func configureLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// loadPanelsOrEmpty loads panel configuration, or returns an empty
// configuration when no path is given. With an empty configuration
// every assay resolves to the unrecognized group.
func loadPanelsOrEmpty(path string) (*panelcfg.PanelConfig, error) {
	if path == "" {
		return &panelcfg.PanelConfig{}, nil
	}
	result, errs := LoadPanels(path, panelcfg.LoadModeFailFast)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	return result.Config, nil
}

func matchIDs(rows []store.VariantRow) []string {
	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	return ids
}

func outputQueryResponse(formatter *OutputFormatter, response QueryResponse, sqlText string, params []any) error {
	if formatter.Format == "json" {
		return formatter.Success(response)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Query %s: %d match(es) for sample %s (%s, group %s)\n",
		response.QueryID, len(response.Matches), response.SampleID, response.Kind, response.Group)

	for _, id := range response.Matches {
		fmt.Fprintf(w, "  %s\n", id)
	}

	if len(response.Warnings) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Warnings:")
		for _, warning := range response.Warnings {
			fmt.Fprintf(w, "  %s\n", warning)
		}
	}

	formatter.VerboseLog("SQL: %s", sqlText)
	formatter.VerboseLog("Params: %v", params)
	formatter.VerboseLog("Query hash: %s", response.QueryHash)
	formatter.VerboseLog("Result hash: %s", response.ResultHash)

	return nil
}
