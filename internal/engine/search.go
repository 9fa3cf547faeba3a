package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/varq/internal/assay"
	"github.com/roach88/varq/internal/canonical"
	"github.com/roach88/varq/internal/filter"
	"github.com/roach88/varq/internal/panelcfg"
	"github.com/roach88/varq/internal/queryir"
	"github.com/roach88/varq/internal/querysql"
	"github.com/roach88/varq/internal/store"
	"github.com/roach88/varq/internal/variant"
)

// Plan is a constructed and compiled query that has not been executed.
// The compile CLI path stops here; Search carries it through execution.
type Plan struct {
	Group     assay.Group
	Query     queryir.Query
	SQL       string
	Params    []any
	QueryHash string
	Warnings  []string
}

// SearchResult is one executed query run: the plan, the matched rows,
// and the identifiers under which the run was logged.
type SearchResult struct {
	QueryID    string
	Plan       Plan
	Rows       []store.VariantRow
	ResultHash string
	ExecutedAt string
}

// BuildPlan constructs and compiles a query without a store: the assay
// group comes from the given assay name instead of a registered sample.
//
// Settings resolution is total, construction is total for every
// recognized and unrecognized group alike; the errors left are a missing
// sample ID and compiler rejections.
func BuildPlan(panels *panelcfg.PanelConfig, assayName string, kind variant.Kind, raw map[string]any) (Plan, error) {
	settings := filter.Resolve(raw)
	warnings := filter.Lint(raw)

	group := panels.GroupFor(assayName)
	if !group.Recognized() {
		warnings = append(warnings, fmt.Sprintf("assay %q has no recognized group, query is scope-only", assayName))
	}

	return buildPlan(group, kind, settings, warnings)
}

// BuildPlanForGroup constructs and compiles a query for an explicit
// policy group, skipping panel configuration entirely. The compile CLI
// path uses this when the caller names the group instead of an assay.
func BuildPlanForGroup(group assay.Group, kind variant.Kind, raw map[string]any) (Plan, error) {
	settings := filter.Resolve(raw)
	warnings := filter.Lint(raw)

	if !group.Recognized() {
		warnings = append(warnings, "group is unrecognized, query is scope-only")
	}

	return buildPlan(group, kind, settings, warnings)
}

// buildPlan finishes construction once the group is known: assemble,
// validate, compile, fingerprint.
func buildPlan(group assay.Group, kind variant.Kind, settings filter.FilterSettings, warnings []string) (Plan, error) {
	q, err := assay.Assemble(kind, group, settings)
	if err != nil {
		return Plan{}, err
	}

	if result := queryir.Validate(q.Where); !result.IsSound {
		warnings = append(warnings, result.Warnings...)
	}

	compiler := querysql.New()
	sqlText, params, err := compiler.Compile(q)
	if err != nil {
		return Plan{}, fmt.Errorf("compile: %w", err)
	}

	queryHash, err := hashQuery(q)
	if err != nil {
		return Plan{}, fmt.Errorf("fingerprint: %w", err)
	}

	return Plan{
		Group:     group,
		Query:     q,
		SQL:       sqlText,
		Params:    params,
		QueryHash: queryHash,
		Warnings:  warnings,
	}, nil
}

// Search runs the full pipeline for one sample and variant kind.
//
// The sample ID comes out of the raw settings; the sample's registered
// assay decides the policy group. Construction-stage defects surface as
// warnings on the result, not errors. The run is appended to the audit
// log before returning.
func (e *Engine) Search(ctx context.Context, kind variant.Kind, raw map[string]any) (SearchResult, error) {
	settings := filter.Resolve(raw)
	warnings := filter.Lint(raw)

	if strings.TrimSpace(settings.SampleID) == "" {
		return SearchResult{}, fmt.Errorf("search: %w", assay.ErrMissingSampleScope)
	}

	smp, err := e.store.GetSample(ctx, settings.SampleID)
	if err != nil {
		return SearchResult{}, fmt.Errorf("search: %w", err)
	}

	group := e.panels.GroupFor(smp.Assay)
	if !group.Recognized() {
		slog.Warn("assay group unrecognized, building scope-only query",
			"sample", smp.ID,
			"assay", smp.Assay,
			"kind", string(kind))
		warnings = append(warnings, fmt.Sprintf("assay %q has no recognized group, query is scope-only", smp.Assay))
	}

	plan, err := buildPlan(group, kind, settings, warnings)
	if err != nil {
		return SearchResult{}, fmt.Errorf("search: %w", err)
	}
	for _, w := range plan.Warnings {
		slog.Warn("query construction warning",
			"sample", smp.ID,
			"kind", string(kind),
			"warning", w)
	}

	rows, err := e.store.QueryVariants(ctx, plan.SQL, plan.Params)
	if err != nil {
		return SearchResult{}, fmt.Errorf("search: execute: %w", err)
	}

	resultHash, err := canonical.ResultHash(rowIDs(rows))
	if err != nil {
		return SearchResult{}, fmt.Errorf("search: result hash: %w", err)
	}

	rec := store.QueryRecord{
		ID:          e.idGen.Generate(),
		SampleID:    plan.Query.SampleID,
		Kind:        plan.Query.Kind,
		QueryHash:   plan.QueryHash,
		SQL:         plan.SQL,
		Params:      plan.Params,
		ResultHash:  resultHash,
		ResultCount: int64(len(rows)),
		ExecutedAt:  e.clock.Now().UTC().Format(time.RFC3339),
	}
	if err := e.store.WriteQueryRecord(ctx, rec); err != nil {
		return SearchResult{}, fmt.Errorf("search: %w", err)
	}

	slog.Info("query executed",
		"query_id", rec.ID,
		"sample", rec.SampleID,
		"kind", rec.Kind,
		"group", group.String(),
		"matches", len(rows))

	return SearchResult{
		QueryID:    rec.ID,
		Plan:       plan,
		Rows:       rows,
		ResultHash: resultHash,
		ExecutedAt: rec.ExecutedAt,
	}, nil
}

// hashQuery fingerprints a whole query: kind, sample scope, and the
// canonical form of the predicate tree. Two queries with the same
// fingerprint return the same rows against the same store state.
func hashQuery(q queryir.Query) (string, error) {
	form, err := queryir.CanonicalForm(q.Where)
	if err != nil {
		return "", err
	}
	return canonical.QueryHash(map[string]any{
		"kind":      q.Kind,
		"sample_id": q.SampleID,
		"where":     form,
	})
}

func rowIDs(rows []store.VariantRow) []string {
	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	return ids
}
