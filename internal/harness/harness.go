package harness

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/roach88/varq/internal/engine"
	"github.com/roach88/varq/internal/panelcfg"
	"github.com/roach88/varq/internal/queryir"
	"github.com/roach88/varq/internal/store"
	"github.com/roach88/varq/internal/variant"
)

// runClock is the fixed instant stamped on every audit record a scenario
// writes. Snapshots would churn on every run with a wall clock.
var runClock = engine.FixedClock{T: time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory database with a fixed
// clock and sequential query IDs, so two runs of the same scenario
// produce identical snapshots. Every query step is checked against its
// expect clause and then against the structural invariants.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("open in-memory store: %w", err)
	}
	defer st.Close()

	panels, err := loadPanels(scenario)
	if err != nil {
		return nil, err
	}

	// One ID per step is an upper bound: rejected steps never reach the
	// audit log and leave their ID unused.
	ids := make([]string, len(scenario.Queries))
	for i := range ids {
		ids[i] = fmt.Sprintf("qry-%03d", i+1)
	}
	eng := engine.New(st, panels,
		engine.WithQueryIDGenerator(engine.NewFixedGenerator(ids...)),
		engine.WithClock(runClock),
	)

	ctx := context.Background()
	if err := seedFixtures(ctx, st, scenario); err != nil {
		return nil, err
	}

	result := NewResult(scenario.Name)
	for i, step := range scenario.Queries {
		outcome, failures := runStep(ctx, eng, st, panels, step, i)
		result.Queries = append(result.Queries, outcome)
		for _, f := range failures {
			result.AddError(f)
		}
	}
	return result, nil
}

// loadPanels compiles the scenario's panel configuration. A scenario
// without one gets an empty configuration: every assay is unrecognized
// and every query is scope-only.
func loadPanels(scenario *Scenario) (*panelcfg.PanelConfig, error) {
	var src []byte
	var filename string
	switch {
	case scenario.Panels != "":
		src = []byte(scenario.Panels)
		filename = scenario.Name + ".cue"
	case scenario.PanelsFile != "":
		data, err := os.ReadFile(scenario.PanelsFile)
		if err != nil {
			return nil, fmt.Errorf("read panels file: %w", err)
		}
		src = data
		filename = scenario.PanelsFile
	default:
		return &panelcfg.PanelConfig{}, nil
	}

	loaded, errs := panelcfg.LoadBytes(filename, src, panelcfg.LoadModeFailFast)
	if len(errs) > 0 {
		return nil, fmt.Errorf("load panels: %w", errs[0])
	}
	return loaded.Config, nil
}

// seedFixtures registers the scenario's samples and loads its variants.
func seedFixtures(ctx context.Context, st *store.Store, scenario *Scenario) error {
	for i, fix := range scenario.Samples {
		smp, err := variant.NewSample(fix.ID, fix.Assay, fix.Meta)
		if err != nil {
			return fmt.Errorf("samples[%d]: %w", i, err)
		}
		if err := st.WriteSample(ctx, smp); err != nil {
			return fmt.Errorf("samples[%d]: %w", i, err)
		}
	}

	docs := make([]variant.Document, 0, len(scenario.Variants))
	for i, fix := range scenario.Variants {
		kind, err := variant.ParseKind(fix.Kind)
		if err != nil {
			return fmt.Errorf("variants[%d]: %w", i, err)
		}
		doc, err := variant.New(kind, fix.Body)
		if err != nil {
			return fmt.Errorf("variants[%d]: %w", i, err)
		}
		docs = append(docs, doc)
	}
	if len(docs) > 0 {
		if _, err := st.WriteVariants(ctx, docs); err != nil {
			return fmt.Errorf("load variants: %w", err)
		}
	}
	return nil
}

// runStep executes one query step and returns its outcome plus any
// expectation or invariant failures.
func runStep(ctx context.Context, eng *engine.Engine, st *store.Store, panels *panelcfg.PanelConfig, step QueryStep, index int) (QueryOutcome, []string) {
	label := step.Name
	if label == "" {
		label = fmt.Sprintf("query[%d]", index)
	}
	outcome := QueryOutcome{
		Name:    label,
		Kind:    step.Kind,
		Matches: []string{},
	}

	kind, err := variant.ParseKind(step.Kind)
	if err != nil {
		outcome.Error = err.Error()
		return outcome, []string{fmt.Sprintf("%s: %v", label, err)}
	}

	res, err := eng.Search(ctx, kind, step.Settings)
	if err != nil {
		outcome.Error = err.Error()
		if step.Expect != nil && step.Expect.Error != "" {
			if engine.ErrorCode(err) == step.Expect.Error {
				return outcome, nil
			}
			return outcome, []string{fmt.Sprintf("%s: expected rejection %s, got %v", label, step.Expect.Error, err)}
		}
		return outcome, []string{fmt.Sprintf("%s: %v", label, err)}
	}

	tree, err := queryir.CanonicalForm(res.Plan.Query.Where)
	if err != nil {
		return outcome, []string{fmt.Sprintf("%s: canonical tree: %v", label, err)}
	}

	outcome.SampleID = res.Plan.Query.SampleID
	outcome.QueryID = res.QueryID
	outcome.Group = res.Plan.Group.String()
	outcome.Tree = tree
	outcome.SQL = res.Plan.SQL
	outcome.Params = res.Plan.Params
	outcome.QueryHash = res.Plan.QueryHash
	outcome.ResultHash = res.ResultHash
	outcome.Matches = matchedIDs(res.Rows)
	outcome.Warnings = res.Plan.Warnings

	failures := checkExpect(label, step.Expect, outcome)
	failures = append(failures, checkInvariants(ctx, eng, st, panels, label, kind, step.Settings, res)...)
	return outcome, failures
}

// checkExpect validates an outcome against the step's expect clause.
func checkExpect(label string, expect *ExpectClause, outcome QueryOutcome) []string {
	if expect == nil {
		return nil
	}

	if expect.Error != "" {
		return []string{fmt.Sprintf("%s: expected rejection %s, query succeeded with %d match(es)",
			label, expect.Error, len(outcome.Matches))}
	}

	var failures []string
	if expect.IDs != nil && !slices.Equal(expect.IDs, outcome.Matches) {
		failures = append(failures, fmt.Sprintf("%s: expected matches %v, got %v",
			label, expect.IDs, outcome.Matches))
	}
	for _, want := range expect.Warnings {
		if !warningsContain(outcome.Warnings, want) {
			failures = append(failures, fmt.Sprintf("%s: expected a warning containing %q, got %v",
				label, want, outcome.Warnings))
		}
	}
	return failures
}

func warningsContain(warnings []string, substr string) bool {
	for _, w := range warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}

func matchedIDs(rows []store.VariantRow) []string {
	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	return ids
}
