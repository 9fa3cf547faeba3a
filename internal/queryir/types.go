package queryir

// Op identifies the comparison a Field node performs. The set is closed;
// backends type-switch on it exhaustively.
type Op string

const (
	OpEq        Op = "eq"
	OpNe        Op = "ne"
	OpGt        Op = "gt"
	OpGte       Op = "gte"
	OpLt        Op = "lt"
	OpLte       Op = "lte"
	OpIn        Op = "in"
	OpNin       Op = "nin"
	OpExists    Op = "exists"
	OpType      Op = "type"
	OpRegex     Op = "regex"
	OpElemMatch Op = "elem_match"
	OpNoneMatch Op = "none_match"
)

// Type-check operand values for OpType.
const (
	TypeString = "string"
	TypeNumber = "number"
	TypeBool   = "bool"
	TypeArray  = "array"
	TypeObject = "object"
	TypeNull   = "null"
)

// Node represents one node of a predicate tree.
//
// This is a sealed interface - only And, Or, and Field implement it. The
// marker method pattern prevents external implementations and enables
// exhaustive type switches in backends.
type Node interface {
	node() // Marker method - seals interface to this package
}

// And matches when every child matches. An empty And is the neutral
// element: it matches everything, and conjoining it onto any tree leaves
// that tree's matches unchanged. Backends lower it to an always-true
// clause, never to "match nothing".
type And struct {
	Children []Node
}

func (And) node() {}

// Or matches when at least one child matches. An empty Or matches nothing.
type Or struct {
	Children []Node
}

func (Or) node() {}

// Field is a single comparison against a document field.
//
// Path is a dotted path into the document ("INFO.MYELOID_GERMLINE",
// "INFO.selected_CSQ.Consequence"). Path segments never contain dots.
//
// Value is the operand. Its expected shape depends on Op:
//
//	eq, ne                 scalar (string, bool, number)
//	gt, gte, lt, lte       number
//	in, nin                slice of scalars ([]any or []string)
//	exists                 bool (true = field present, false = absent)
//	type                   one of the Type* constants
//	regex                  pattern string; case folding via inline (?i)
//	elem_match             Node, evaluated per element of the array field
//	none_match             Node; no element may satisfy it
//
// For eq and in against an array-valued field (genes, FILTER), backends
// apply any-element semantics: the predicate matches when any element of
// the array satisfies the comparison. ne and nin are the duals: no element
// may satisfy it, and an absent field satisfies both.
//
// none_match is vacuously true when the field is absent or empty. This is
// load-bearing for control-sample clearance: a variant with no control
// genotype records passes the "no qualifying control record" arm.
type Field struct {
	Path  string
	Op    Op
	Value any
}

func (Field) node() {}

// Query is a fully assembled variant query: the document kind, the sample
// it is scoped to, and the predicate tree to evaluate. Where always
// contains the sample-scope predicate; assemblers refuse to build a Query
// without one.
type Query struct {
	Kind     string
	SampleID string
	Where    Node
}

// Combinator constructors. Assay policies are written as compositions of
// these, so each policy reads as a declaration of its clinical rule rather
// than a hand-nested literal.

// AllOf returns the conjunction of children, in order.
func AllOf(children ...Node) And {
	return And{Children: children}
}

// AnyOf returns the disjunction of children, in order.
func AnyOf(children ...Node) Or {
	return Or{Children: children}
}

// Conjoin AND-combines nodes, dropping nils and neutral nodes. A single
// surviving node is returned unwrapped; no survivors yield the neutral
// And. Assemblers use this so "scope plus nothing" stays a flat tree.
func Conjoin(nodes ...Node) Node {
	kept := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if n == nil || IsNeutral(n) {
			continue
		}
		kept = append(kept, n)
	}
	switch len(kept) {
	case 0:
		return And{}
	case 1:
		return kept[0]
	default:
		return And{Children: kept}
	}
}

// IsNeutral reports whether n is the neutral (always-true) node: an And
// with no children.
func IsNeutral(n Node) bool {
	and, ok := n.(And)
	return ok && len(and.Children) == 0
}

// FieldEq returns path == value.
func FieldEq(path string, value any) Field {
	return Field{Path: path, Op: OpEq, Value: value}
}

// FieldNe returns path != value. Documents without the field match.
func FieldNe(path string, value any) Field {
	return Field{Path: path, Op: OpNe, Value: value}
}

// FieldGt returns path > value.
func FieldGt(path string, value any) Field {
	return Field{Path: path, Op: OpGt, Value: value}
}

// FieldGte returns path >= value.
func FieldGte(path string, value any) Field {
	return Field{Path: path, Op: OpGte, Value: value}
}

// FieldLt returns path < value.
func FieldLt(path string, value any) Field {
	return Field{Path: path, Op: OpLt, Value: value}
}

// FieldLte returns path <= value.
func FieldLte(path string, value any) Field {
	return Field{Path: path, Op: OpLte, Value: value}
}

// FieldIn returns path ∈ values.
func FieldIn(path string, values []any) Field {
	return Field{Path: path, Op: OpIn, Value: values}
}

// FieldNin returns path ∉ values. Documents without the field match.
func FieldNin(path string, values []any) Field {
	return Field{Path: path, Op: OpNin, Value: values}
}

// FieldExists returns a presence check: exists=true requires the field,
// exists=false requires its absence.
func FieldExists(path string, exists bool) Field {
	return Field{Path: path, Op: OpExists, Value: exists}
}

// FieldType returns a type check against one of the Type* constants.
func FieldType(path, typeName string) Field {
	return Field{Path: path, Op: OpType, Value: typeName}
}

// FieldRegex returns a regular-expression match on a string field.
// Case-insensitive patterns embed their own (?i) flag.
func FieldRegex(path, pattern string) Field {
	return Field{Path: path, Op: OpRegex, Value: pattern}
}

// ElemMatch returns a per-element match over an array field: it matches
// when any element of the array at path satisfies elem.
func ElemMatch(path string, elem Node) Field {
	return Field{Path: path, Op: OpElemMatch, Value: elem}
}

// NoneMatch returns the dual of ElemMatch: it matches when no element of
// the array at path satisfies elem, including when the field is absent.
func NoneMatch(path string, elem Node) Field {
	return Field{Path: path, Op: OpNoneMatch, Value: elem}
}

// Strings converts a string slice to the []any operand shape FieldIn and
// FieldNin expect.
func Strings(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// Int64s converts an int64 slice to the []any operand shape FieldIn and
// FieldNin expect.
func Int64s(ns []int64) []any {
	out := make([]any, len(ns))
	for i, n := range ns {
		out[i] = n
	}
	return out
}
