// Package harness executes conformance scenarios against the full query
// pipeline: settings resolution, policy selection, tree construction, SQL
// compilation, execution, and audit logging.
//
// A scenario is a YAML file bundling a panel configuration, sample and
// variant fixtures, and a list of queries with expected outcomes:
//
//	name: myeloid-baseline
//	description: germline flag and case evidence admit, weak calls drop
//	panels: |
//	  panels: [
//	    {
//	      assay: "myeloid_GMSv1"
//	      group: "myeloid"
//	      type:  "dna"
//	      genes: ["FLT3", "NPM1", "CEBPA"]
//	    },
//	  ]
//	samples:
//	  - id: S1
//	    assay: myeloid_GMSv1
//	variants:
//	  - kind: snv
//	    body:
//	      SAMPLE_ID: S1
//	      ID: var-a
//	      INFO: {MYELOID_GERMLINE: 1}
//	queries:
//	  - name: baseline
//	    kind: snv
//	    settings: {sample_id: S1, min_freq: 0.05}
//	    expect:
//	      ids: [var-a]
//
// Each scenario runs against a fresh in-memory store with a fixed clock
// and sequential query IDs, so two runs produce byte-identical snapshots
// suitable for golden comparison.
//
// Beyond the per-step expect clauses, every successful query is held to
// four structural invariants: rebuilding the plan from the same settings
// reproduces the SQL and fingerprints, every returned row belongs to the
// queried sample, conjoining the neutral empty And onto the tree leaves
// the match set unchanged, and the in-memory evaluator agrees with the
// compiled SQL row for row. A scenario fails when any expectation or
// invariant does, whatever its expect clauses say.
package harness
