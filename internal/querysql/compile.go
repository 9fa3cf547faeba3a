// Package querysql lowers predicate trees to parameterized SQLite SQL.
//
// Variant documents are stored as JSON in the variants table and predicates
// are evaluated with the JSON1 functions: json_extract for scalar
// comparisons, json_type for presence and type checks, and correlated
// json_each subqueries for membership and per-element matching. Equality
// and membership compile to an any-element EXISTS so that a predicate on a
// field that may hold either a scalar or an array (genes, FILTER) behaves
// the same for both shapes; their negations compile to NOT EXISTS, which
// makes an absent field match, matching the in-memory evaluator.
//
// Two rules hold for every compiled query. Operand values are always bound
// as parameters, never interpolated into the SQL text. And every full query
// carries ORDER BY id COLLATE BINARY ASC, so the same database state always
// returns rows in the same order.
package querysql

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/varq/internal/queryir"
)

// ErrTooDeep is returned when a predicate tree exceeds queryir.MaxDepth.
var ErrTooDeep = errors.New("E102: predicate tree exceeds maximum depth")

// errUnsupported tags compile-time defects: unknown operators, operand
// shapes that cannot be bound, malformed paths.
func errUnsupported(format string, args ...any) error {
	return fmt.Errorf("E101: "+format, args...)
}

// Compiler compiles predicate trees and assembled queries to SQL for the
// variants table.
type Compiler struct{}

// New creates a Compiler.
func New() *Compiler {
	return &Compiler{}
}

// Compile converts an assembled query to a complete parameterized SELECT.
// The first parameter is always the document kind; predicate parameters
// follow in tree order. Identical queries compile to identical SQL text
// and parameter lists.
func (c *Compiler) Compile(q queryir.Query) (string, []any, error) {
	if q.Kind == "" {
		return "", nil, errUnsupported("query has no document kind")
	}
	if q.Where == nil {
		return "", nil, errUnsupported("query has no predicate")
	}

	st := &state{}
	where, params, err := st.node(q.Where, "doc")
	if err != nil {
		return "", nil, fmt.Errorf("compile predicate: %w", err)
	}

	sql := "SELECT id, doc FROM variants WHERE kind = ? AND " + where +
		" ORDER BY id COLLATE BINARY ASC"
	return sql, append([]any{q.Kind}, params...), nil
}

// CompileNode converts a bare predicate tree to a WHERE-clause fragment
// evaluated against the doc column. Used for fragment inspection and in
// tests; Compile is the production entry point.
func (c *Compiler) CompileNode(n queryir.Node) (string, []any, error) {
	st := &state{}
	return st.node(n, "doc")
}

// state carries per-compilation bookkeeping: recursion depth for the
// guard, and a sequence for json_each aliases so nested subqueries never
// shadow each other. Alias numbering follows traversal order, which keeps
// the SQL text deterministic.
type state struct {
	depth    int
	aliasSeq int
}

func (st *state) nextAlias() string {
	st.aliasSeq++
	return fmt.Sprintf("e%d", st.aliasSeq)
}

// node compiles one tree node against a subject expression: the doc
// column at the top level, or an enclosing json_each alias's value inside
// elem_match and none_match operands.
func (st *state) node(n queryir.Node, subj string) (string, []any, error) {
	if n == nil {
		return "", nil, errUnsupported("nil predicate node")
	}

	st.depth++
	defer func() { st.depth-- }()
	if st.depth > queryir.MaxDepth {
		return "", nil, ErrTooDeep
	}

	switch v := n.(type) {
	case queryir.And:
		return st.compose(v.Children, subj, " AND ", "1 = 1")
	case queryir.Or:
		return st.compose(v.Children, subj, " OR ", "0 = 1")
	case queryir.Field:
		return st.field(v, subj)
	default:
		return "", nil, errUnsupported("predicate node type %T", n)
	}
}

// compose joins child clauses with an operator. The empty And is the
// always-true clause and the empty Or the always-false one; lowering an
// empty composite to "match nothing" by accident would silently hide
// variants, so both sentinels are explicit.
func (st *state) compose(children []queryir.Node, subj, op, empty string) (string, []any, error) {
	if len(children) == 0 {
		return empty, nil, nil
	}

	parts := make([]string, 0, len(children))
	var params []any
	for _, child := range children {
		sql, childParams, err := st.node(child, subj)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, childParams...)
	}
	if len(parts) == 1 {
		return parts[0], params, nil
	}
	return "(" + strings.Join(parts, op) + ")", params, nil
}

func (st *state) field(f queryir.Field, subj string) (string, []any, error) {
	path, err := jsonPath(f.Path)
	if err != nil {
		return "", nil, err
	}

	switch f.Op {
	case queryir.OpEq:
		return st.membership(f, subj, path, false)
	case queryir.OpNe:
		return st.membership(f, subj, path, true)
	case queryir.OpIn:
		return st.membership(f, subj, path, false)
	case queryir.OpNin:
		return st.membership(f, subj, path, true)

	case queryir.OpGt, queryir.OpGte, queryir.OpLt, queryir.OpLte:
		param, err := paramValue(f.Value)
		if err != nil {
			return "", nil, err
		}
		// json_extract yields NULL for an absent field and NULL never
		// satisfies a comparison, so absence fails ordering predicates.
		sql := fmt.Sprintf("json_extract(%s, '%s') %s ?", subj, path, cmpOperators[f.Op])
		return sql, []any{param}, nil

	case queryir.OpExists:
		want, ok := f.Value.(bool)
		if !ok {
			return "", nil, errUnsupported("exists operand must be bool, got %T", f.Value)
		}
		// json_type is non-NULL for every present element, including an
		// explicit JSON null, so presence and value are kept distinct.
		if want {
			return fmt.Sprintf("json_type(%s, '%s') IS NOT NULL", subj, path), nil, nil
		}
		return fmt.Sprintf("json_type(%s, '%s') IS NULL", subj, path), nil, nil

	case queryir.OpType:
		name, ok := f.Value.(string)
		if !ok {
			return "", nil, errUnsupported("type operand must be string, got %T", f.Value)
		}
		jsonTypes, ok := jsonTypeNames(name)
		if !ok {
			return "", nil, errUnsupported("unknown type name %q", name)
		}
		if len(jsonTypes) == 1 {
			return fmt.Sprintf("json_type(%s, '%s') = ?", subj, path), []any{jsonTypes[0]}, nil
		}
		marks := placeholders(len(jsonTypes))
		params := make([]any, len(jsonTypes))
		for i, t := range jsonTypes {
			params[i] = t
		}
		return fmt.Sprintf("json_type(%s, '%s') IN (%s)", subj, path, marks), params, nil

	case queryir.OpRegex:
		pattern, ok := f.Value.(string)
		if !ok {
			return "", nil, errUnsupported("regex operand must be string, got %T", f.Value)
		}
		// REGEXP is the application-defined function the store registers
		// on every connection.
		sql := fmt.Sprintf("json_extract(%s, '%s') REGEXP ?", subj, path)
		return sql, []any{pattern}, nil

	case queryir.OpElemMatch, queryir.OpNoneMatch:
		elem, ok := f.Value.(queryir.Node)
		if !ok {
			return "", nil, errUnsupported("%s operand must be a predicate node, got %T", f.Op, f.Value)
		}
		alias := st.nextAlias()
		childSQL, childParams, err := st.node(elem, alias+".value")
		if err != nil {
			return "", nil, err
		}
		sql := fmt.Sprintf("EXISTS (SELECT 1 FROM json_each(%s, '%s') AS %s WHERE %s)",
			subj, path, alias, childSQL)
		if f.Op == queryir.OpNoneMatch {
			// json_each over an absent path yields no rows, so NOT EXISTS
			// holds vacuously for documents without the field.
			sql = "NOT " + sql
		}
		return sql, childParams, nil

	default:
		return "", nil, errUnsupported("operator %q", f.Op)
	}
}

// membership compiles eq, ne, in, and nin as any-element tests. json_each
// over a scalar yields that single value and over an array yields every
// element, so one EXISTS form covers both field shapes. Negation uses NOT
// EXISTS, which an absent field satisfies.
func (st *state) membership(f queryir.Field, subj, path string, negate bool) (string, []any, error) {
	var cond string
	var params []any

	switch f.Op {
	case queryir.OpEq, queryir.OpNe:
		param, err := paramValue(f.Value)
		if err != nil {
			return "", nil, err
		}
		cond = "value = ?"
		params = []any{param}

	case queryir.OpIn, queryir.OpNin:
		values, err := listValues(f.Value)
		if err != nil {
			return "", nil, err
		}
		if len(values) == 0 {
			// Nothing is in the empty set; everything is outside it.
			if negate {
				return "1 = 1", nil, nil
			}
			return "0 = 1", nil, nil
		}
		cond = "value IN (" + placeholders(len(values)) + ")"
		params = values
	}

	alias := st.nextAlias()
	sql := fmt.Sprintf("EXISTS (SELECT 1 FROM json_each(%s, '%s') AS %s WHERE %s.%s)",
		subj, path, alias, alias, cond)
	if negate {
		sql = "NOT " + sql
	}
	return sql, params, nil
}

var cmpOperators = map[queryir.Op]string{
	queryir.OpGt:  ">",
	queryir.OpGte: ">=",
	queryir.OpLt:  "<",
	queryir.OpLte: "<=",
}

// jsonTypeNames maps an abstract type name onto the json_type labels that
// realize it. JSON numbers surface as integer or real, booleans as true
// or false.
func jsonTypeNames(name string) ([]string, bool) {
	switch name {
	case queryir.TypeString:
		return []string{"text"}, true
	case queryir.TypeNumber:
		return []string{"integer", "real"}, true
	case queryir.TypeBool:
		return []string{"true", "false"}, true
	case queryir.TypeArray:
		return []string{"array"}, true
	case queryir.TypeObject:
		return []string{"object"}, true
	case queryir.TypeNull:
		return []string{"null"}, true
	default:
		return nil, false
	}
}

// jsonPath converts a dotted field path to a JSON path literal ready for
// embedding in single quotes. Every segment is double-quoted so keys
// containing JSON path metacharacters stay inert, and single quotes are
// doubled for the enclosing SQL literal.
func jsonPath(fieldPath string) (string, error) {
	if fieldPath == "" {
		return "", errUnsupported("empty field path")
	}
	segments := strings.Split(fieldPath, ".")
	var b strings.Builder
	b.WriteString("$")
	for _, seg := range segments {
		if seg == "" {
			return "", errUnsupported("field path %q has an empty segment", fieldPath)
		}
		b.WriteString(`."`)
		b.WriteString(strings.ReplaceAll(seg, `"`, `\"`))
		b.WriteString(`"`)
	}
	return strings.ReplaceAll(b.String(), "'", "''"), nil
}

// placeholders returns n comma-separated ? marks.
func placeholders(n int) string {
	marks := make([]string, n)
	for i := range marks {
		marks[i] = "?"
	}
	return strings.Join(marks, ", ")
}

// paramValue converts an operand to a driver-bindable value. json.Number
// binds as INTEGER when it fits, otherwise REAL, so numeric comparisons
// stay numeric in SQLite.
func paramValue(v any) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string, bool, int64, float64:
		return val, nil
	case int:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case float32:
		return float64(val), nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, errUnsupported("numeric operand %q", val.String())
		}
		return f, nil
	default:
		return nil, errUnsupported("operand type %T cannot be bound as a SQL parameter", v)
	}
}

// listValues converts an in/nin operand to bindable values.
func listValues(v any) ([]any, error) {
	switch vals := v.(type) {
	case []any:
		out := make([]any, len(vals))
		for i, item := range vals {
			param, err := paramValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = param
		}
		return out, nil
	case []string:
		out := make([]any, len(vals))
		for i, s := range vals {
			out[i] = s
		}
		return out, nil
	default:
		return nil, errUnsupported("in/nin operand must be a slice, got %T", v)
	}
}
