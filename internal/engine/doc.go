// Package engine runs assay-aware variant queries end to end.
//
// One Search call walks the whole pipeline:
//
// 1. Raw filter settings resolved to typed FilterSettings (total, never fails)
// 2. Sample looked up, its assay mapped to an assay group via panel config
// 3. Group policy builds the predicate tree for the requested variant kind
// 4. Tree validated (warn-only, defects logged but never block)
// 5. Tree compiled to parameterized SQLite JSON1 SQL
// 6. SQL executed against the store
// 7. Run appended to the audit log with query hash and result hash
//
// Two backends evaluate the same predicate tree: the SQL compiler lowers
// it to JSON1 clauses, and the in-memory matcher in match.go evaluates it
// directly against decoded documents. Both follow json_each semantics so
// they agree document for document; the test harness cross-checks them.
//
// FAILURE POLICY:
//
// Fail-open on clinical policy: an assay group the panel config does not
// recognize degrades to a scope-only query with a logged warning. A
// pathologist reviewing too many variants is recoverable; a silently
// empty result set is not.
//
// Fail-closed on scope: a missing sample ID is the one error query
// construction produces. Every other construction-stage defect becomes a
// warning on the result.
//
// DETERMINISM:
//
// The engine never branches on wall time or randomness. Query IDs come
// from an injectable generator, timestamps from an injectable clock, and
// both hashes from RFC 8785 canonical JSON. Same store state plus same
// settings produces byte-identical SQL, hashes, and row order.
package engine
