package engine

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/varq/internal/canonical"
	"github.com/roach88/varq/internal/queryir"
	"github.com/roach88/varq/internal/variant"
)

// Match reports whether a document body satisfies a predicate tree.
//
// Matching mirrors the SQL lowering clause for clause, following
// json_each semantics so both backends agree on every document:
//
//   - eq and in iterate the field's values: array fields element-wise,
//     object fields member-wise, scalars as themselves
//   - ne and nin are their negations, so an absent field matches
//   - ordering comparisons exclude absent fields and order mixed types
//     the way SQLite orders storage classes (numbers before text)
//   - elem_match needs one value satisfying the child tree; none_match
//     needs zero and is vacuously true on absent fields
//
// Errors mirror the compiler's rejections: unknown operators, empty
// paths, and operands of the wrong shape.
func Match(n queryir.Node, body map[string]any) (bool, error) {
	return matchNode(n, body, 0)
}

// FilterDocuments evaluates a predicate tree against a corpus in memory,
// returning matches in input order. This is the second backend used to
// cross-check compiled SQL.
func FilterDocuments(docs []variant.Document, n queryir.Node) ([]variant.Document, error) {
	matched := []variant.Document{}
	for _, doc := range docs {
		ok, err := Match(n, doc.Body)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", doc.ID, err)
		}
		if ok {
			matched = append(matched, doc)
		}
	}
	return matched, nil
}

func matchNode(n queryir.Node, subject any, depth int) (bool, error) {
	if depth > queryir.MaxDepth {
		return false, fmt.Errorf("match: tree exceeds maximum depth %d", queryir.MaxDepth)
	}

	switch node := n.(type) {
	case queryir.And:
		for _, child := range node.Children {
			ok, err := matchNode(child, subject, depth+1)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case queryir.Or:
		for _, child := range node.Children {
			ok, err := matchNode(child, subject, depth+1)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case queryir.Field:
		return matchField(node, subject, depth)
	case nil:
		return false, fmt.Errorf("match: nil node")
	default:
		return false, fmt.Errorf("match: unsupported node %T", n)
	}
}

func matchField(f queryir.Field, subject any, depth int) (bool, error) {
	if f.Path == "" {
		return false, fmt.Errorf("match: empty field path")
	}

	value, present := lookup(subject, f.Path)

	switch f.Op {
	case queryir.OpEq:
		return anyValueEquals(value, present, f.Value), nil

	case queryir.OpNe:
		return !anyValueEquals(value, present, f.Value), nil

	case queryir.OpIn:
		list, err := operandList(f)
		if err != nil {
			return false, err
		}
		for _, candidate := range list {
			if anyValueEquals(value, present, candidate) {
				return true, nil
			}
		}
		return false, nil

	case queryir.OpNin:
		list, err := operandList(f)
		if err != nil {
			return false, err
		}
		for _, candidate := range list {
			if anyValueEquals(value, present, candidate) {
				return false, nil
			}
		}
		return true, nil

	case queryir.OpGt, queryir.OpGte, queryir.OpLt, queryir.OpLte:
		if !present {
			return false, nil
		}
		cmp, ok := compareOrder(value, f.Value)
		if !ok {
			return false, nil
		}
		switch f.Op {
		case queryir.OpGt:
			return cmp > 0, nil
		case queryir.OpGte:
			return cmp >= 0, nil
		case queryir.OpLt:
			return cmp < 0, nil
		default:
			return cmp <= 0, nil
		}

	case queryir.OpExists:
		want, ok := f.Value.(bool)
		if !ok {
			return false, fmt.Errorf("match: exists operand must be a bool, got %T", f.Value)
		}
		return present == want, nil

	case queryir.OpType:
		name, ok := f.Value.(string)
		if !ok {
			return false, fmt.Errorf("match: type operand must be a string, got %T", f.Value)
		}
		switch name {
		case queryir.TypeString, queryir.TypeNumber, queryir.TypeBool,
			queryir.TypeArray, queryir.TypeObject, queryir.TypeNull:
		default:
			return false, fmt.Errorf("match: unknown type name %q", name)
		}
		if !present {
			return false, nil
		}
		return typeName(value) == name, nil

	case queryir.OpRegex:
		pattern, ok := f.Value.(string)
		if !ok {
			return false, fmt.Errorf("match: regex operand must be a string, got %T", f.Value)
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, fmt.Errorf("match: regex: %w", err)
		}
		str, ok := value.(string)
		if !present || !ok {
			return false, nil
		}
		return re.MatchString(str), nil

	case queryir.OpElemMatch:
		child, ok := f.Value.(queryir.Node)
		if !ok {
			return false, fmt.Errorf("match: elem_match operand must be a predicate tree, got %T", f.Value)
		}
		for _, elem := range fieldValues(value, present) {
			matched, err := matchNode(child, elem, depth+1)
			if err != nil {
				return false, err
			}
			if matched {
				return true, nil
			}
		}
		return false, nil

	case queryir.OpNoneMatch:
		child, ok := f.Value.(queryir.Node)
		if !ok {
			return false, fmt.Errorf("match: none_match operand must be a predicate tree, got %T", f.Value)
		}
		for _, elem := range fieldValues(value, present) {
			matched, err := matchNode(child, elem, depth+1)
			if err != nil {
				return false, err
			}
			if matched {
				return false, nil
			}
		}
		return true, nil

	default:
		return false, fmt.Errorf("match: unsupported operator %q", f.Op)
	}
}

// lookup resolves a dotted path against a subject. Missing keys and
// non-object midpoints report absence, matching json_extract. An
// explicit JSON null is present with a nil value.
func lookup(subject any, path string) (any, bool) {
	current := subject
	for _, seg := range strings.Split(path, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[seg]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// fieldValues returns what json_each yields for a value: array elements,
// object member values, or the scalar itself. Absent fields yield
// nothing.
func fieldValues(v any, present bool) []any {
	if !present {
		return nil
	}
	switch val := v.(type) {
	case []any:
		return val
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out
	case map[string]any:
		keys := canonical.SortedKeys(val)
		out := make([]any, 0, len(keys))
		for _, k := range keys {
			out = append(out, val[k])
		}
		return out
	default:
		return []any{v}
	}
}

func anyValueEquals(value any, present bool, operand any) bool {
	for _, v := range fieldValues(value, present) {
		if equalValues(v, operand) {
			return true
		}
	}
	return false
}

// equalValues compares one field value with an operand under SQLite
// comparison semantics: numbers compare numerically, booleans are the
// integers 1 and 0, strings compare exactly, and null equals nothing.
func equalValues(docVal, operand any) bool {
	if docVal == nil || operand == nil {
		return false
	}
	if a, ok := numeric(docVal); ok {
		b, bok := numeric(operand)
		return bok && a == b
	}
	if a, ok := docVal.(string); ok {
		b, bok := operand.(string)
		return bok && a == b
	}
	return false
}

// compareOrder orders a field value against an operand the way SQLite
// orders storage classes: numbers sort before text; booleans are the
// integers 1 and 0. Arrays, objects, and nulls are not orderable.
func compareOrder(docVal, operand any) (int, bool) {
	if docVal == nil || operand == nil {
		return 0, false
	}

	na, aNum := numeric(docVal)
	nb, bNum := numeric(operand)
	if aNum && bNum {
		switch {
		case na < nb:
			return -1, true
		case na > nb:
			return 1, true
		}
		return 0, true
	}

	sa, aStr := docVal.(string)
	sb, bStr := operand.(string)
	switch {
	case aStr && bStr:
		return strings.Compare(sa, sb), true
	case aNum && bStr:
		return -1, true // numbers sort before text
	case aStr && bNum:
		return 1, true
	}
	return 0, false
}

func numeric(v any) (float64, bool) {
	switch val := v.(type) {
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case float32:
		return float64(val), true
	case float64:
		return val, true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// typeName classifies a present value into the type operator's
// vocabulary.
func typeName(v any) string {
	switch v.(type) {
	case nil:
		return queryir.TypeNull
	case bool:
		return queryir.TypeBool
	case string:
		return queryir.TypeString
	case []any, []string:
		return queryir.TypeArray
	case map[string]any:
		return queryir.TypeObject
	default:
		if _, ok := numeric(v); ok {
			return queryir.TypeNumber
		}
		return ""
	}
}

func operandList(f queryir.Field) ([]any, error) {
	switch list := f.Value.(type) {
	case []any:
		return list, nil
	case []string:
		out := make([]any, len(list))
		for i, s := range list {
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("match: %s operand must be a list, got %T", f.Op, f.Value)
	}
}
