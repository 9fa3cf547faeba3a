package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/varq/internal/canonical"
)

// Snapshot renders a scenario result as canonical JSON for golden
// comparison. Per query step it captures the policy group, the canonical
// predicate tree, the compiled SQL and parameters, both fingerprints,
// and the matched IDs, so a policy change shows up as a reviewable diff
// against the golden file.
func Snapshot(result *Result) ([]byte, error) {
	steps := make([]any, len(result.Queries))
	for i, q := range result.Queries {
		step := map[string]any{
			"name": q.Name,
			"kind": q.Kind,
		}
		if q.Error != "" {
			step["error"] = q.Error
			steps[i] = step
			continue
		}
		step["sample_id"] = q.SampleID
		step["query_id"] = q.QueryID
		step["group"] = q.Group
		step["tree"] = q.Tree
		step["sql"] = q.SQL
		step["params"] = q.Params
		step["query_hash"] = q.QueryHash
		step["result_hash"] = q.ResultHash
		step["matches"] = toAnySlice(q.Matches)
		if len(q.Warnings) > 0 {
			step["warnings"] = toAnySlice(q.Warnings)
		}
		steps[i] = step
	}

	snapshot := map[string]any{
		"scenario": result.Scenario,
		"pass":     result.Pass,
		"queries":  steps,
	}
	if len(result.Errors) > 0 {
		snapshot["errors"] = toAnySlice(result.Errors)
	}
	return canonical.Marshal(snapshot)
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/<name>.golden. Regenerate golden files with:
//
//	go test ./internal/harness -update
//
// Returns an error when the scenario itself fails to run; a snapshot
// mismatch fails the test through goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an already-computed result against the golden
// file for scenarioName.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}

func toAnySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
