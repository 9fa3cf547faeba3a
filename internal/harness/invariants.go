package harness

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/roach88/varq/internal/engine"
	"github.com/roach88/varq/internal/panelcfg"
	"github.com/roach88/varq/internal/queryir"
	"github.com/roach88/varq/internal/querysql"
	"github.com/roach88/varq/internal/store"
	"github.com/roach88/varq/internal/variant"
)

// InvariantError reports a structural invariant violation on one query
// step.
type InvariantError struct {
	Invariant string // which invariant failed
	Query     string // step label
	Expected  string
	Actual    string
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "invariant %q failed on %s\n", e.Invariant, e.Query)
	fmt.Fprintf(&buf, "  expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  actual:   %s", e.Actual)
	return buf.String()
}

// checkInvariants runs the structural checks every successful query step
// must satisfy, regardless of what the scenario asserts. A failing check
// does not stop the remaining ones; each failure is reported.
func checkInvariants(ctx context.Context, eng *engine.Engine, st *store.Store, panels *panelcfg.PanelConfig, label string, kind variant.Kind, settings map[string]any, res engine.SearchResult) []string {
	checks := []func() error{
		func() error { return checkDeterminism(ctx, eng, st, panels, label, kind, settings, res) },
		func() error { return checkSampleIsolation(label, res) },
		func() error { return checkScopeNeutrality(ctx, st, label, res) },
		func() error { return checkDualEvaluation(ctx, st, label, res) },
	}

	var failures []string
	for _, check := range checks {
		if err := check(); err != nil {
			failures = append(failures, err.Error())
		}
	}
	return failures
}

// checkDeterminism re-derives the plan from the same raw settings and
// re-executes the logged SQL. Construction must reproduce the SQL text,
// parameters, and query fingerprint; execution must reproduce the result
// hash.
func checkDeterminism(ctx context.Context, eng *engine.Engine, st *store.Store, panels *panelcfg.PanelConfig, label string, kind variant.Kind, settings map[string]any, res engine.SearchResult) error {
	smp, err := st.GetSample(ctx, res.Plan.Query.SampleID)
	if err != nil {
		return fmt.Errorf("determinism check on %s: %w", label, err)
	}

	plan, err := engine.BuildPlan(panels, smp.Assay, kind, settings)
	if err != nil {
		return fmt.Errorf("determinism check on %s: rebuild: %w", label, err)
	}
	if plan.SQL != res.Plan.SQL || plan.QueryHash != res.Plan.QueryHash || !reflect.DeepEqual(plan.Params, res.Plan.Params) {
		return &InvariantError{
			Invariant: "determinism",
			Query:     label,
			Expected:  fmt.Sprintf("rebuilt plan identical to executed plan (hash %s)", res.Plan.QueryHash),
			Actual:    fmt.Sprintf("rebuilt hash %s", plan.QueryHash),
		}
	}

	rep, err := eng.Replay(ctx, res.QueryID)
	if err != nil {
		return fmt.Errorf("determinism check on %s: replay: %w", label, err)
	}
	if !rep.Match {
		return &InvariantError{
			Invariant: "determinism",
			Query:     label,
			Expected:  fmt.Sprintf("replayed result hash %s", res.ResultHash),
			Actual:    rep.ResultHash,
		}
	}
	return nil
}

// checkSampleIsolation verifies every returned row belongs to the
// queried sample. The scope filter is mandatory precisely so that no
// policy tree, however permissive, can surface another patient's
// variants.
func checkSampleIsolation(label string, res engine.SearchResult) error {
	for _, row := range res.Rows {
		body, err := variant.DecodeBody(row.Doc)
		if err != nil {
			return fmt.Errorf("isolation check on %s: decode %s: %w", label, row.ID, err)
		}
		sampleID, _ := body["SAMPLE_ID"].(string)
		if sampleID != res.Plan.Query.SampleID {
			return &InvariantError{
				Invariant: "sample isolation",
				Query:     label,
				Expected:  fmt.Sprintf("every row scoped to sample %s", res.Plan.Query.SampleID),
				Actual:    fmt.Sprintf("row %s belongs to sample %q", row.ID, sampleID),
			}
		}
	}
	return nil
}

// checkScopeNeutrality wraps the predicate tree in an explicit
// conjunction with the empty And and re-executes. The empty And is the
// neutral element; if wrapping changes the match set, a backend has
// lowered it to something other than always-true.
func checkScopeNeutrality(ctx context.Context, st *store.Store, label string, res engine.SearchResult) error {
	wrapped := res.Plan.Query
	wrapped.Where = queryir.And{Children: []queryir.Node{queryir.And{}, res.Plan.Query.Where}}

	sqlText, params, err := querysql.New().Compile(wrapped)
	if err != nil {
		return fmt.Errorf("neutrality check on %s: compile: %w", label, err)
	}
	rows, err := st.QueryVariants(ctx, sqlText, params)
	if err != nil {
		return fmt.Errorf("neutrality check on %s: execute: %w", label, err)
	}

	if got, want := matchedIDs(rows), matchedIDs(res.Rows); !slices.Equal(got, want) {
		return &InvariantError{
			Invariant: "scope neutrality",
			Query:     label,
			Expected:  fmt.Sprintf("matches unchanged: %v", want),
			Actual:    fmt.Sprintf("%v", got),
		}
	}
	return nil
}

// checkDualEvaluation runs the predicate tree through the in-memory
// evaluator over the sample's documents and compares match sets with the
// compiled SQL. The two evaluators implement the same semantics; any
// disagreement is a defect in one of them.
func checkDualEvaluation(ctx context.Context, st *store.Store, label string, res engine.SearchResult) error {
	docs, err := st.ListVariants(ctx, res.Plan.Query.SampleID, variant.Kind(res.Plan.Query.Kind))
	if err != nil {
		return fmt.Errorf("dual evaluation check on %s: %w", label, err)
	}

	matched, err := engine.FilterDocuments(docs, res.Plan.Query.Where)
	if err != nil {
		return fmt.Errorf("dual evaluation check on %s: evaluate: %w", label, err)
	}

	memIDs := make([]string, len(matched))
	for i, doc := range matched {
		memIDs[i] = doc.ID
	}
	if sqlIDs := matchedIDs(res.Rows); !slices.Equal(memIDs, sqlIDs) {
		return &InvariantError{
			Invariant: "dual evaluation",
			Query:     label,
			Expected:  fmt.Sprintf("in-memory matches equal SQL matches: %v", sqlIDs),
			Actual:    fmt.Sprintf("%v", memIDs),
		}
	}
	return nil
}
