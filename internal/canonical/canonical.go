// Package canonical produces RFC 8785 canonical JSON and content hashes.
//
// Every byte sequence that feeds an identity (document content hashes,
// query fingerprints, result fingerprints, golden files) goes through
// Marshal. Standard json.Marshal is unsuitable: map iteration order is
// random, HTML characters are escaped, and strings are not normalized.
package canonical

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Marshal produces RFC 8785 canonical JSON for v.
//
// Guarantees:
//  1. Object keys sorted by UTF-16 code units (not UTF-8 bytes)
//  2. No HTML escaping (< > & are emitted literally)
//  3. Strings are NFC normalized
//  4. Numbers use the shortest round-trip form; NaN and Inf are errors
//  5. Same value, same bytes, independent of input key order
//
// Accepted value shapes: nil, bool, string, int/int32/int64, float32/float64,
// json.Number, []any, []string, map[string]any. Anything else (including
// structs) must go through MarshalAny.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := marshalValue(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalAny canonicalizes an arbitrary JSON-marshalable value by round-
// tripping it through encoding/json (numbers preserved as json.Number) and
// then applying Marshal. Use for typed structs at API boundaries.
func MarshalAny(v any) ([]byte, error) {
	plain, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical: pre-encode: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(plain))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("canonical: re-decode: %w", err)
	}
	return Marshal(generic)
}

func marshalValue(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
		return nil
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case string:
		return marshalString(buf, val)
	case int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
		return nil
	case int32:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
		return nil
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
		return nil
	case float32:
		return marshalFloat(buf, float64(val))
	case float64:
		return marshalFloat(buf, val)
	case json.Number:
		return marshalNumber(buf, val)
	case []string:
		arr := make([]any, len(val))
		for i, s := range val {
			arr[i] = s
		}
		return marshalArray(buf, arr)
	case []any:
		return marshalArray(buf, val)
	case map[string]any:
		return marshalObject(buf, val)
	default:
		return fmt.Errorf("canonical: unsupported type %T", v)
	}
}

// marshalNumber emits a json.Number in canonical form: integers as plain
// decimal, everything else through the float path so "0.050" and "0.05"
// produce identical bytes.
func marshalNumber(buf *bytes.Buffer, n json.Number) error {
	s := n.String()
	if s == "" {
		return fmt.Errorf("canonical: empty number")
	}
	if !strings.ContainsAny(s, ".eE") {
		i, err := n.Int64()
		if err == nil {
			buf.WriteString(strconv.FormatInt(i, 10))
			return nil
		}
		// Integer wider than int64: keep the literal digits.
		if validDigits(s) {
			buf.WriteString(s)
			return nil
		}
	}
	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("canonical: bad number %q: %w", s, err)
	}
	return marshalFloat(buf, f)
}

func validDigits(s string) bool {
	for i, c := range s {
		if c == '-' && i == 0 {
			continue
		}
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// marshalFloat formats per RFC 8785 §3.2.2.3 (ECMAScript number-to-string):
// integral values below 1e21 print without decimal point or exponent, other
// values use the shortest round-trip form with unpadded exponents.
func marshalFloat(buf *bytes.Buffer, f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("canonical: non-finite number %v", f)
	}
	if f == 0 {
		// Negative zero serializes as "0".
		buf.WriteByte('0')
		return nil
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e21 {
		buf.WriteString(strconv.FormatFloat(f, 'f', -1, 64))
		return nil
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	buf.WriteString(fixExponent(s))
	return nil
}

// fixExponent strips zero padding from the exponent ("1e-07" → "1e-7") to
// match ECMAScript formatting. The "+" sign on positive exponents is kept.
func fixExponent(s string) string {
	e := strings.IndexAny(s, "eE")
	if e < 0 {
		return s
	}
	mant, exp := s[:e], s[e+1:]
	sign := ""
	if len(exp) > 0 && (exp[0] == '+' || exp[0] == '-') {
		sign, exp = string(exp[0]), exp[1:]
	}
	exp = strings.TrimLeft(exp, "0")
	if exp == "" {
		exp = "0"
	}
	return mant + "e" + sign + exp
}

// marshalString emits the minimal JSON escaping: quote, backslash, and
// control characters. U+2028 and U+2029 are emitted literally, per RFC 8785.
// Input must be valid UTF-8; the string is NFC normalized first.
func marshalString(buf *bytes.Buffer, s string) error {
	normalized := norm.NFC.String(s)
	if !utf8.ValidString(normalized) {
		return fmt.Errorf("canonical: invalid UTF-8 in string %q", s)
	}
	buf.WriteByte('"')
	for _, r := range normalized {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(buf, `\u%04x`, r)
			} else {
				buf.WriteRune(r)
			}
		}
	}
	buf.WriteByte('"')
	return nil
}

func marshalArray(buf *bytes.Buffer, arr []any) error {
	buf.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := marshalValue(buf, elem); err != nil {
			return fmt.Errorf("array[%d]: %w", i, err)
		}
	}
	buf.WriteByte(']')
	return nil
}

func marshalObject(buf *bytes.Buffer, obj map[string]any) error {
	keys := SortedKeys(obj)
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := marshalString(buf, k); err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
		buf.WriteByte(':')
		if err := marshalValue(buf, obj[k]); err != nil {
			return fmt.Errorf("value for key %q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

// SortedKeys returns the object's keys in RFC 8785 order: by UTF-16 code
// units. This differs from byte order for characters outside the BMP:
// surrogate pairs sort below U+E000..U+FFFF.
func SortedKeys(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return compareUTF16(keys[i], keys[j]) < 0
	})
	return keys
}

func compareUTF16(a, b string) int {
	ua := utf16.Encode([]rune(a))
	ub := utf16.Encode([]rune(b))
	for i := 0; i < len(ua) && i < len(ub); i++ {
		if ua[i] != ub[i] {
			if ua[i] < ub[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(ua) < len(ub):
		return -1
	case len(ua) > len(ub):
		return 1
	default:
		return 0
	}
}
