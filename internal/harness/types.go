package harness

// QueryOutcome captures one executed query step: the compiled artifacts,
// what it matched, and how it was rejected if it was.
type QueryOutcome struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	SampleID string `json:"sample_id,omitempty"`
	QueryID  string `json:"query_id,omitempty"`
	Group    string `json:"group,omitempty"`

	// Tree is the canonical map form of the predicate tree, the same
	// shape the audit fingerprint hashes.
	Tree map[string]any `json:"tree,omitempty"`

	SQL        string   `json:"sql,omitempty"`
	Params     []any    `json:"params,omitempty"`
	QueryHash  string   `json:"query_hash,omitempty"`
	ResultHash string   `json:"result_hash,omitempty"`
	Matches    []string `json:"matches"`
	Warnings   []string `json:"warnings,omitempty"`

	// Error is set when the step was rejected before execution. A
	// rejected step carries no compiled artifacts.
	Error string `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Scenario is the scenario name.
	Scenario string `json:"scenario"`

	// Pass is true when every expect clause and every structural
	// invariant held.
	Pass bool `json:"pass"`

	// Queries holds one outcome per step, in execution order.
	Queries []QueryOutcome `json:"queries"`

	// Errors lists every expectation and invariant failure. Empty when
	// Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result for a scenario.
func NewResult(scenario string) *Result {
	return &Result{
		Scenario: scenario,
		Pass:     true,
		Queries:  []QueryOutcome{},
		Errors:   []string{},
	}
}

// AddError records a failure and marks the result failed.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}
