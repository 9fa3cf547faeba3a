package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loadTestScenario loads one of the bundled scenarios under testdata.
func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", name))
	require.NoError(t, err)
	return scenario
}

func TestRun_MyeloidBaseline(t *testing.T) {
	scenario := loadTestScenario(t, "myeloid-baseline.yaml")

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, "failures: %v", result.Errors)
	require.Len(t, result.Queries, 3)

	baseline := result.Queries[0]
	assert.Equal(t, "baseline", baseline.Name)
	assert.Equal(t, "qry-001", baseline.QueryID)
	assert.Equal(t, "S1", baseline.SampleID)
	assert.Equal(t, "myeloid", baseline.Group)
	assert.Equal(t, []string{"var-a", "var-b"}, baseline.Matches)
	assert.True(t, strings.HasPrefix(baseline.SQL, "SELECT id, doc FROM variants WHERE kind = ?"))
	require.NotEmpty(t, baseline.Params)
	assert.Equal(t, "snv", baseline.Params[0])
	assert.NotEmpty(t, baseline.QueryHash)
	assert.NotEmpty(t, baseline.ResultHash)

	strict := result.Queries[1]
	assert.Equal(t, "qry-002", strict.QueryID)
	assert.Equal(t, []string{"var-a"}, strict.Matches)
	// Tightening min_freq narrows the evidence arm; the fingerprint
	// must move with the policy.
	assert.NotEqual(t, baseline.QueryHash, strict.QueryHash)

	rejected := result.Queries[2]
	assert.Empty(t, rejected.QueryID)
	assert.Contains(t, rejected.Error, "E401")
}

func TestRun_ScopeOnlyFallback(t *testing.T) {
	scenario := loadTestScenario(t, "scope-only-fallback.yaml")

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, "failures: %v", result.Errors)
	require.Len(t, result.Queries, 2)

	baseline := result.Queries[0]
	assert.Equal(t, "unrecognized", baseline.Group)
	assert.Equal(t, []string{"var-001", "var-002"}, baseline.Matches)
	require.Len(t, baseline.Warnings, 1)
	assert.Contains(t, baseline.Warnings[0], "no recognized group")

	rejected := result.Queries[1]
	assert.Equal(t, "missing-scope", rejected.Name)
	assert.Contains(t, rejected.Error, "E201")
}

func TestRun_FailedExpectation(t *testing.T) {
	scenario := &Scenario{
		Name:        "wrong-ids",
		Description: "expectation names an ID the query cannot match",
		Samples:     []SampleFixture{{ID: "S1", Assay: "anything"}},
		Variants: []VariantFixture{
			{Kind: "snv", Body: map[string]any{"SAMPLE_ID": "S1", "ID": "var-1"}},
		},
		Queries: []QueryStep{
			{
				Name:     "baseline",
				Kind:     "snv",
				Settings: map[string]any{"sample_id": "S1"},
				Expect:   &ExpectClause{IDs: []string{"var-ghost"}},
			},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "expected matches")
	assert.Contains(t, result.Errors[0], "var-ghost")
}

func TestRun_MissingExpectedWarning(t *testing.T) {
	scenario := &Scenario{
		Name:        "wrong-warning",
		Description: "expectation names a warning the pipeline does not emit",
		Samples:     []SampleFixture{{ID: "S1", Assay: "anything"}},
		Queries: []QueryStep{
			{
				Kind:     "snv",
				Settings: map[string]any{"sample_id": "S1"},
				Expect:   &ExpectClause{Warnings: []string{"reactor meltdown"}},
			},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "reactor meltdown")
}

func TestRun_ExpectedRejectionButSucceeded(t *testing.T) {
	scenario := &Scenario{
		Name:        "should-fail",
		Description: "step expects a rejection the engine does not produce",
		Samples:     []SampleFixture{{ID: "S1", Assay: "anything"}},
		Queries: []QueryStep{
			{
				Name:     "hopeful",
				Kind:     "snv",
				Settings: map[string]any{"sample_id": "S1"},
				Expect:   &ExpectClause{Error: "E401"},
			},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "expected rejection E401, query succeeded")
}

func TestRun_WrongRejectionCode(t *testing.T) {
	scenario := &Scenario{
		Name:        "wrong-code",
		Description: "step expects E401 but the settings trip E201",
		Samples:     []SampleFixture{{ID: "S1", Assay: "anything"}},
		Queries: []QueryStep{
			{
				Kind:     "snv",
				Settings: map[string]any{},
				Expect:   &ExpectClause{Error: "E401"},
			},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "expected rejection E401")
	assert.Contains(t, result.Errors[0], "E201")
}

func TestRun_UnknownKindFailsStep(t *testing.T) {
	scenario := &Scenario{
		Name:        "bad-kind",
		Description: "step names a kind the pipeline does not know",
		Samples:     []SampleFixture{{ID: "S1", Assay: "anything"}},
		Queries: []QueryStep{
			{Kind: "chromothripsis", Settings: map[string]any{"sample_id": "S1"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Queries, 1)
	assert.NotEmpty(t, result.Queries[0].Error)
}

func TestRun_OrphanVariantRejected(t *testing.T) {
	// The store refuses documents for unregistered samples; the scenario
	// cannot run at all.
	scenario := &Scenario{
		Name:        "orphan",
		Description: "variant references a sample the scenario never registers",
		Samples:     []SampleFixture{{ID: "S1", Assay: "anything"}},
		Variants: []VariantFixture{
			{Kind: "snv", Body: map[string]any{"SAMPLE_ID": "S9", "ID": "var-1"}},
		},
		Queries: []QueryStep{
			{Kind: "snv", Settings: map[string]any{"sample_id": "S1"}},
		},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load variants")
}

func TestRun_BadPanelsSource(t *testing.T) {
	scenario := &Scenario{
		Name:        "bad-panels",
		Description: "panel source violates the schema",
		Panels:      "panels: [{assay: \"x\", group: \"made-up\", type: \"dna\"}]",
		Samples:     []SampleFixture{{ID: "S1", Assay: "x"}},
		Queries: []QueryStep{
			{Kind: "snv", Settings: map[string]any{"sample_id": "S1"}},
		},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load panels")
}

func TestRun_NamelessStepGetsIndexLabel(t *testing.T) {
	scenario := &Scenario{
		Name:        "nameless",
		Description: "failure output labels unnamed steps by index",
		Samples:     []SampleFixture{{ID: "S1", Assay: "anything"}},
		Queries: []QueryStep{
			{
				Kind:     "snv",
				Settings: map[string]any{"sample_id": "S1"},
				Expect:   &ExpectClause{IDs: []string{"var-none"}},
			},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "query[0]")
	assert.Equal(t, "query[0]", result.Queries[0].Name)
}
