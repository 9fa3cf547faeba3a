package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/varq/internal/store"
	"github.com/roach88/varq/internal/variant"
)

// LoadOptions holds flags for the load command.
type LoadOptions struct {
	*RootOptions
}

// LoadFileResult reports the ingest outcome for one bundle file.
type LoadFileResult struct {
	File     string `json:"file"`
	Samples  int    `json:"samples"`
	Variants int    `json:"variants"`
	Inserted int    `json:"inserted"`
	Skipped  int    `json:"skipped"`
}

// LoadReport is the load command's aggregate result.
type LoadReport struct {
	Files         []LoadFileResult `json:"files"`
	TotalInserted int              `json:"total_inserted"`
	TotalSkipped  int              `json:"total_skipped"`
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load <bundle.yaml|bundle.json>...",
		Short: "Load samples and variants into the store",
		Long: `Load sample registrations and variant documents from bundle files.

Each file's variants are written in one transaction. Loading is
idempotent: re-loading a bundle skips documents whose content is
already stored for the same sample and kind, and re-registering a
sample updates its assay.

Example:
  varq load --db ./varq.db ./testdata/ALL_validation.yaml`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(opts, args, cmd)
		},
	}

	return cmd
}

func runLoad(opts *LoadOptions, files []string, cmd *cobra.Command) error {
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

	report := LoadReport{Files: make([]LoadFileResult, 0, len(files))}
	for _, file := range files {
		result, err := loadBundleFile(ctx, st, file, formatter)
		if err != nil {
			return err
		}
		report.Files = append(report.Files, result)
		report.TotalInserted += result.Inserted
		report.TotalSkipped += result.Skipped
	}

	return outputLoadReport(formatter, report)
}

// loadBundleFile ingests one bundle: samples first, then the variant
// batch in a single transaction.
func loadBundleFile(ctx context.Context, st *store.Store, file string, formatter *OutputFormatter) (LoadFileResult, error) {
	bundle, err := ReadBundle(file)
	if err != nil {
		_ = formatter.Error(ErrCodeBadFile, err.Error(), nil)
		return LoadFileResult{}, WrapExitError(ExitCommandError, fmt.Sprintf("loading %s", file), err)
	}

	for _, bs := range bundle.Samples {
		smp, err := variant.NewSample(bs.ID, bs.Assay, bs.Meta)
		if err != nil {
			_ = formatter.Error(ErrCodeBadFile, err.Error(), nil)
			return LoadFileResult{}, WrapExitError(ExitCommandError, fmt.Sprintf("loading %s", file), err)
		}
		if err := st.WriteSample(ctx, smp); err != nil {
			_ = formatter.Error(codeFor(err), err.Error(), nil)
			return LoadFileResult{}, WrapExitError(ExitCommandError, fmt.Sprintf("loading %s", file), err)
		}
	}

	docs, err := bundle.Documents()
	if err != nil {
		_ = formatter.Error(ErrCodeBadFile, err.Error(), nil)
		return LoadFileResult{}, WrapExitError(ExitCommandError, fmt.Sprintf("loading %s", file), err)
	}

	inserted, err := st.WriteVariants(ctx, docs)
	if err != nil {
		_ = formatter.Error(codeFor(err), err.Error(), nil)
		return LoadFileResult{}, WrapExitError(ExitCommandError, fmt.Sprintf("loading %s", file), err)
	}

	formatter.VerboseLog("%s: %d sample(s), %d/%d document(s) inserted",
		file, len(bundle.Samples), inserted, len(docs))

	return LoadFileResult{
		File:     file,
		Samples:  len(bundle.Samples),
		Variants: len(docs),
		Inserted: inserted,
		Skipped:  len(docs) - inserted,
	}, nil
}

func outputLoadReport(formatter *OutputFormatter, report LoadReport) error {
	if formatter.Format == "json" {
		return formatter.Success(report)
	}

	w := formatter.Writer
	for _, f := range report.Files {
		fmt.Fprintf(w, "✓ %s: %d sample(s), %d variant(s) (%d new, %d already stored)\n",
			f.File, f.Samples, f.Variants, f.Inserted, f.Skipped)
	}
	fmt.Fprintf(w, "\nLoaded %d new document(s), %d already stored\n",
		report.TotalInserted, report.TotalSkipped)
	return nil
}
