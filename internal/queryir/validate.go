package queryir

import (
	"fmt"
	"regexp"
)

// MaxDepth bounds tree nesting. Policy trees top out around depth six;
// anything past this is a construction bug, and backends refuse to lower
// it.
const MaxDepth = 64

// ValidationResult contains soundness analysis of a tree.
type ValidationResult struct {
	// IsSound indicates every node can be lowered by both backends.
	IsSound bool

	// Warnings lists the defects found. Empty when IsSound is true.
	Warnings []string
}

// Validate checks that every node of a tree is lowerable: known operators,
// non-empty field paths, operands of the shape the operator requires,
// compilable regex patterns, nesting within MaxDepth.
//
// Validation never blocks query construction - builders are total
// functions and the engine logs warnings rather than failing. The SQL
// compiler performs its own hard rejection of unlowerable nodes; Validate
// exists so defects surface before a query reaches a backend.
//
// Validate is a pure function with no side effects.
func Validate(n Node) ValidationResult {
	v := &validator{
		warnings: []string{},
	}
	v.validateNode(n, 0)

	return ValidationResult{
		IsSound:  len(v.warnings) == 0,
		Warnings: v.warnings,
	}
}

// validator accumulates warnings during traversal.
type validator struct {
	warnings []string
}

// addWarning appends a warning message.
func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

// validateNode recursively validates a tree node.
func (v *validator) validateNode(n Node, depth int) {
	if depth > MaxDepth {
		v.addWarning("tree exceeds maximum depth %d", MaxDepth)
		return
	}

	switch node := n.(type) {
	case And:
		for _, c := range node.Children {
			v.validateChild(c, depth+1)
		}
	case Or:
		for _, c := range node.Children {
			v.validateChild(c, depth+1)
		}
	case Field:
		v.validateField(node, depth)
	case nil:
		v.addWarning("nil node")
	default:
		v.addWarning("unknown node type %T", n)
	}
}

func (v *validator) validateChild(c Node, depth int) {
	if c == nil {
		v.addWarning("nil child node")
		return
	}
	v.validateNode(c, depth)
}

// validateField checks operator/operand pairing for one comparison.
func (v *validator) validateField(f Field, depth int) {
	if f.Path == "" {
		v.addWarning("field node with empty path")
	}

	switch f.Op {
	case OpEq, OpNe:
		switch f.Value.(type) {
		case nil, string, bool, int, int64, float64:
		default:
			v.addWarning("field %q: %s operand is %T, want scalar", f.Path, f.Op, f.Value)
		}
	case OpGt, OpGte, OpLt, OpLte:
		switch f.Value.(type) {
		case int, int64, float64:
		default:
			v.addWarning("field %q: %s operand is %T, want number", f.Path, f.Op, f.Value)
		}
	case OpIn, OpNin:
		switch f.Value.(type) {
		case []any, []string:
		default:
			v.addWarning("field %q: %s operand is %T, want slice", f.Path, f.Op, f.Value)
		}
	case OpExists:
		if _, ok := f.Value.(bool); !ok {
			v.addWarning("field %q: exists operand is %T, want bool", f.Path, f.Value)
		}
	case OpType:
		name, ok := f.Value.(string)
		if !ok {
			v.addWarning("field %q: type operand is %T, want string", f.Path, f.Value)
			return
		}
		switch name {
		case TypeString, TypeNumber, TypeBool, TypeArray, TypeObject, TypeNull:
		default:
			v.addWarning("field %q: unknown type name %q", f.Path, name)
		}
	case OpRegex:
		pattern, ok := f.Value.(string)
		if !ok {
			v.addWarning("field %q: regex operand is %T, want string", f.Path, f.Value)
			return
		}
		if _, err := regexp.Compile(pattern); err != nil {
			v.addWarning("field %q: regex does not compile: %v", f.Path, err)
		}
	case OpElemMatch, OpNoneMatch:
		elem, ok := f.Value.(Node)
		if !ok {
			v.addWarning("field %q: %s operand is %T, want Node", f.Path, f.Op, f.Value)
			return
		}
		v.validateNode(elem, depth+1)
	default:
		v.addWarning("field %q: unknown operator %q", f.Path, f.Op)
	}
}
