package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/varq/internal/store"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	Sample string
	Kind   string
}

// LogEntry is one audit record in the log listing.
type LogEntry struct {
	QueryID     string `json:"query_id"`
	SampleID    string `json:"sample_id"`
	Kind        string `json:"kind"`
	QueryHash   string `json:"query_hash"`
	ResultHash  string `json:"result_hash"`
	ResultCount int64  `json:"result_count"`
	ExecutedAt  string `json:"executed_at"`
	SQL         string `json:"sql,omitempty"`
	Params      []any  `json:"params,omitempty"`
}

// LogReport is the log command's result.
type LogReport struct {
	SampleID string     `json:"sample_id"`
	Entries  []LogEntry `json:"entries"`
	Total    int        `json:"total"`
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log",
		Short: "List logged queries for a sample",
		Long: `List the audit log for a sample in execution order.

Each executed query is logged with its fingerprint, compiled SQL,
bind parameters, and result hash. This command shows what ran and
when; use replay to verify the logged results still hold.

Examples:
  varq log --db ./varq.db --sample S1
  varq log --db ./varq.db --sample S1 --kind snv
  varq log --db ./varq.db --sample S1 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Sample, "sample", "", "sample ID (required)")
	_ = cmd.MarkFlagRequired("sample")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter to one variant kind")

	return cmd
}

func runLog(opts *LogOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
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

	records, err := st.ListQueryRecords(ctx, opts.Sample)
	if err != nil {
		_ = formatter.Error(codeFor(err), err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to list query records", err)
	}

	report := LogReport{SampleID: opts.Sample, Entries: []LogEntry{}}
	for _, rec := range records {
		if opts.Kind != "" && rec.Kind != opts.Kind {
			continue
		}
		entry := LogEntry{
			QueryID:     rec.ID,
			SampleID:    rec.SampleID,
			Kind:        rec.Kind,
			QueryHash:   rec.QueryHash,
			ResultHash:  rec.ResultHash,
			ResultCount: rec.ResultCount,
			ExecutedAt:  rec.ExecutedAt,
		}
		// The compiled SQL is bulky; include it only in JSON output,
		// where consumers can filter.
		if formatter.Format == "json" {
			entry.SQL = rec.SQL
			entry.Params = rec.Params
		}
		report.Entries = append(report.Entries, entry)
	}
	report.Total = len(report.Entries)

	if formatter.Format == "json" {
		return formatter.Success(report)
	}

	w := formatter.Writer
	if report.Total == 0 {
		fmt.Fprintf(w, "No logged queries for sample %s.\n", opts.Sample)
		return nil
	}

	fmt.Fprintf(w, "Query log for sample %s: %d entr(ies)\n\n", opts.Sample, report.Total)
	for _, entry := range report.Entries {
		fmt.Fprintf(w, "  %s  %s  %-6s  %d match(es)\n",
			entry.ExecutedAt, entry.QueryID, entry.Kind, entry.ResultCount)
		formatter.VerboseLog("    query hash  %s", entry.QueryHash)
		formatter.VerboseLog("    result hash %s", entry.ResultHash)
	}

	return nil
}
