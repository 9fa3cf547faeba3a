package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/varq/internal/engine"
	"github.com/roach88/varq/internal/panelcfg"
	"github.com/roach88/varq/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Latest bool
	Sample string
}

// ReplayRecordResult holds the replay outcome for one audit record.
type ReplayRecordResult struct {
	QueryID     string `json:"query_id"`
	SampleID    string `json:"sample_id"`
	Kind        string `json:"kind"`
	LoggedHash  string `json:"logged_hash"`
	CurrentHash string `json:"current_hash"`
	Matches     int    `json:"matches"`
	Match       bool   `json:"match"`
}

// ReplayReport holds the overall replay result.
type ReplayReport struct {
	Records  []ReplayRecordResult `json:"records"`
	Total    int                  `json:"total"`
	AllMatch bool                 `json:"all_match"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay [query-id]",
		Short: "Re-execute logged queries and verify results",
		Long: `Re-execute logged queries verbatim and compare result hashes.

Each audit record's stored SQL and parameters run through the normal
execution path; a hash mismatch means the store contents changed since
the run was logged.

Exactly one selector: a query ID argument, --latest, or --sample.

Exit codes:
  0 - Every replayed query reproduced its logged result hash
  1 - At least one replay diverged
  2 - Command error (database not found, unknown query ID)

Examples:
  varq replay --db ./varq.db qry-0194f3a0-77f1-7cce-b599-9d3361dbc45e
  varq replay --db ./varq.db --latest
  varq replay --db ./varq.db --sample S1 --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplayCommand(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Latest, "latest", false, "replay the most recently logged query")
	cmd.Flags().StringVar(&opts.Sample, "sample", "", "replay every logged query for a sample")

	return cmd
}

func runReplayCommand(opts *ReplayOptions, args []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	selectors := 0
	if len(args) == 1 {
		selectors++
	}
	if opts.Latest {
		selectors++
	}
	if opts.Sample != "" {
		selectors++
	}
	if selectors != 1 {
		_ = formatter.Error(ErrCodeGeneric, "exactly one of <query-id>, --latest, or --sample is required", nil)
		return NewExitError(ExitCommandError, "exactly one of <query-id>, --latest, or --sample is required")
	}

	if opts.Database == "" {
		_ = formatter.Error(ErrCodeGeneric, "--db is required", nil)
		return NewExitError(ExitCommandError, "--db is required")
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

	// Replay never constructs queries, so no panel configuration is
	// needed; the engine re-executes stored SQL verbatim.
	eng := engine.New(st, &panelcfg.PanelConfig{})

	var results []engine.ReplayResult
	switch {
	case opts.Sample != "":
		results, err = eng.ReplaySample(ctx, opts.Sample)
	case opts.Latest:
		var rec store.QueryRecord
		rec, err = st.LatestQueryRecord(ctx)
		if err == nil {
			var result engine.ReplayResult
			result, err = eng.Replay(ctx, rec.ID)
			results = []engine.ReplayResult{result}
		}
	default:
		var result engine.ReplayResult
		result, err = eng.Replay(ctx, args[0])
		results = []engine.ReplayResult{result}
	}
	if err != nil {
		_ = formatter.Error(codeFor(err), err.Error(), nil)
		return WrapExitError(ExitCommandError, "replay failed", err)
	}

	report := ReplayReport{
		Records:  make([]ReplayRecordResult, 0, len(results)),
		Total:    len(results),
		AllMatch: true,
	}
	for _, r := range results {
		report.Records = append(report.Records, ReplayRecordResult{
			QueryID:     r.Record.ID,
			SampleID:    r.Record.SampleID,
			Kind:        r.Record.Kind,
			LoggedHash:  r.Record.ResultHash,
			CurrentHash: r.ResultHash,
			Matches:     len(r.Rows),
			Match:       r.Match,
		})
		if !r.Match {
			report.AllMatch = false
		}
	}

	if formatter.Format == "json" {
		return outputReplayJSON(formatter, report)
	}
	return outputReplayText(formatter, report)
}

func outputReplayJSON(formatter *OutputFormatter, report ReplayReport) error {
	response := CLIResponse{
		Status: "ok",
		Data:   report,
	}
	if !report.AllMatch {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeGeneric,
			Message: "replay divergence detected",
		}
	}

	encoder := json.NewEncoder(formatter.Writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if !report.AllMatch {
		return NewExitError(ExitFailure, "replay divergence detected")
	}
	return nil
}

func outputReplayText(formatter *OutputFormatter, report ReplayReport) error {
	w := formatter.Writer

	if report.Total == 0 {
		fmt.Fprintln(w, "No logged queries to replay.")
		return nil
	}

	for _, rec := range report.Records {
		status := "✓"
		if !rec.Match {
			status = "✗"
		}
		fmt.Fprintf(w, "%s %s: sample %s, %s, %d match(es)\n",
			status, rec.QueryID, rec.SampleID, rec.Kind, rec.Matches)
		if !rec.Match {
			fmt.Fprintf(w, "  logged  %s\n", rec.LoggedHash)
			fmt.Fprintf(w, "  current %s\n", rec.CurrentHash)
		}
	}
	fmt.Fprintln(w)

	if report.AllMatch {
		fmt.Fprintf(w, "✓ %d replay(s) verified\n", report.Total)
		return nil
	}

	fmt.Fprintln(w, "✗ Replay divergence detected")
	return NewExitError(ExitFailure, "replay divergence detected")
}
