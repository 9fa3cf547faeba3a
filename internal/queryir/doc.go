// Package queryir provides the abstract predicate-tree representation for
// variant queries.
//
// The predicate tree is the abstraction boundary between the assay policy
// builders and the backends that evaluate queries. Builders compose trees;
// adapters lower them:
//
//	[assay policy builders] → [predicate tree] → [SQL backend (querysql)]
//	                                           → [memory matcher (engine)]
//
// No node carries backend syntax. A tree is a pure value: built fresh per
// request, never mutated after construction, discarded after execution.
// Sibling order inside And/Or is preserved for readability but carries no
// semantic weight.
//
// SEALED INTERFACE:
//
// Node is sealed using the marker method pattern. Only types in this package
// implement it, which keeps backend type switches exhaustive:
//
//	switch n := n.(type) {
//	case queryir.And:
//	case queryir.Or:
//	case queryir.Field:
//	}
//
// NODE KINDS:
//
//   - And: all children match (empty = always true, the neutral element)
//   - Or: at least one child matches (empty = always false)
//   - Field: one comparison against a dotted document path
//
// OPERATORS:
//
// Field carries one operator from a closed set: eq, ne, gt, gte, lt, lte,
// in, nin, exists, type, regex, elem_match, none_match. Negation is
// expressed through operators (ne, nin, exists false, none_match); there
// is no Not combinator.
//
// elem_match and none_match are the higher-order operators: their operand
// is a nested Node evaluated against each element of an array-valued
// field. elem_match requires some element to satisfy it; none_match
// requires that no element does, and is vacuously true when the field is
// absent. Genotype records, transcript annotation lists, and fusion call
// lists are all queried this way.
//
// CANONICAL FORM:
//
// EncodeCanonical renders a tree as RFC 8785 canonical JSON. Golden files,
// audit-log entries, and equality assertions all compare trees through this
// encoding, so identical policies produce identical bytes.
package queryir
