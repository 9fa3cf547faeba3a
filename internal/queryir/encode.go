package queryir

import (
	"fmt"

	"github.com/roach88/varq/internal/canonical"
)

// CanonicalForm converts a tree to plain maps and slices:
//
//	And   {"and": [child, ...]}
//	Or    {"or": [child, ...]}
//	Field {"path": p, "op": o, "value": v}
//
// with elem_match operands converted recursively. The result feeds
// canonical.Marshal and the audit log.
func CanonicalForm(n Node) (map[string]any, error) {
	switch t := n.(type) {
	case And:
		children, err := canonicalChildren(t.Children)
		if err != nil {
			return nil, err
		}
		return map[string]any{"and": children}, nil
	case Or:
		children, err := canonicalChildren(t.Children)
		if err != nil {
			return nil, err
		}
		return map[string]any{"or": children}, nil
	case Field:
		value := t.Value
		if t.Op == OpElemMatch || t.Op == OpNoneMatch {
			elem, ok := t.Value.(Node)
			if !ok {
				return nil, fmt.Errorf("%s on %q: operand is %T, want Node", t.Op, t.Path, t.Value)
			}
			sub, err := CanonicalForm(elem)
			if err != nil {
				return nil, err
			}
			value = sub
		}
		return map[string]any{
			"path":  t.Path,
			"op":    string(t.Op),
			"value": value,
		}, nil
	case nil:
		return nil, fmt.Errorf("nil node")
	default:
		return nil, fmt.Errorf("unknown node type %T", n)
	}
}

func canonicalChildren(children []Node) ([]any, error) {
	out := make([]any, len(children))
	for i, c := range children {
		m, err := CanonicalForm(c)
		if err != nil {
			return nil, fmt.Errorf("child[%d]: %w", i, err)
		}
		out[i] = m
	}
	return out, nil
}

// EncodeCanonical renders the tree as RFC 8785 canonical JSON. Two trees
// that express the same policy encode to identical bytes, which is what
// golden files and audit fingerprints compare.
func EncodeCanonical(n Node) ([]byte, error) {
	form, err := CanonicalForm(n)
	if err != nil {
		return nil, fmt.Errorf("queryir: canonical form: %w", err)
	}
	data, err := canonical.Marshal(form)
	if err != nil {
		return nil, fmt.Errorf("queryir: canonical encode: %w", err)
	}
	return data, nil
}

// Fingerprint returns the content hash of the tree's canonical form.
func Fingerprint(n Node) (string, error) {
	form, err := CanonicalForm(n)
	if err != nil {
		return "", fmt.Errorf("queryir: fingerprint: %w", err)
	}
	return canonical.QueryHash(form)
}
