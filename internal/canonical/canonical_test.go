package canonical

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", "hello", `"hello"`},
		{"empty string", "", `""`},
		{"int", 42, "42"},
		{"negative int", -100, "-100"},
		{"int64", int64(9223372036854775807), "9223372036854775807"},
		{"bool true", true, "true"},
		{"bool false", false, "false"},
		{"null", nil, "null"},
		{"empty array", []any{}, "[]"},
		{"empty object", map[string]any{}, "{}"},
		{"array", []any{1, 2, 3}, "[1,2,3]"},
		{"string slice", []string{"b", "a"}, `["b","a"]`},
		{"simple object", map[string]any{"a": 1}, `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Marshal(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalNumbers(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"integral float", float64(115256530), "115256530"},
		{"fraction", 0.05, "0.05"},
		{"negative ratio", -0.3, "-0.3"},
		{"trailing zeros trimmed", json.Number("0.050"), "0.05"},
		{"number integer", json.Number("1000"), "1000"},
		{"negative zero", math.Copysign(0, -1), "0"},
		{"small exponent unpadded", 1e-7, "1e-7"},
		{"large magnitude", 1e21, "1e+21"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Marshal(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalRejectsNonFinite(t *testing.T) {
	_, err := Marshal(math.NaN())
	require.Error(t, err)
	_, err = Marshal(math.Inf(1))
	require.Error(t, err)
}

func TestMarshalSortedKeys(t *testing.T) {
	obj := map[string]any{
		"zebra": 1,
		"alpha": 2,
		"beta":  3,
	}

	result, err := Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"beta":3,"zebra":1}`, string(result))
}

func TestMarshalNestedSortedKeys(t *testing.T) {
	obj := map[string]any{
		"z": map[string]any{
			"b": 1,
			"a": 2,
		},
		"a": 3,
	}

	result, err := Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"a":3,"z":{"a":2,"b":1}}`, string(result))
}

func TestMarshalUTF16Ordering(t *testing.T) {
	// U+E000 vs U+10000: UTF-16 order differs from UTF-8. The surrogate
	// pair (0xD800,0xDC00) sorts below 0xE000 even though its code point
	// is higher. This is THE discriminating test for RFC 8785 ordering.
	obj := map[string]any{
		"": 1,
		"𐀀":      2,
	}

	result, err := Marshal(obj)
	require.NoError(t, err)

	expected := `{"𐀀":2,"` + "" + `":1}`
	assert.Equal(t, expected, string(result))
}

func TestMarshalNoHTMLEscape(t *testing.T) {
	result, err := Marshal("<TERT> & NFKBIE")
	require.NoError(t, err)
	assert.Equal(t, `"<TERT> & NFKBIE"`, string(result))
	assert.NotContains(t, string(result), `<`)
	assert.NotContains(t, string(result), `&`)
}

func TestMarshalControlCharacters(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"newline", "a\nb", `"a\nb"`},
		{"tab", "a\tb", `"a\tb"`},
		{"carriage return", "a\rb", `"a\rb"`},
		{"unit separator", "a\x1fb", `"ab"`},
		{"quote", `a"b`, `"a\"b"`},
		{"backslash", `a\b`, `"a\\b"`},
		{"line separator literal", "a b", "\"a b\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Marshal(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalNFCNormalization(t *testing.T) {
	// "é" composed (U+00E9) and decomposed (e + U+0301) must serialize to
	// the same bytes.
	composed, err := Marshal("café")
	require.NoError(t, err)
	decomposed, err := Marshal("café")
	require.NoError(t, err)
	assert.Equal(t, string(composed), string(decomposed))
}

func TestMarshalRejectsInvalidUTF8(t *testing.T) {
	_, err := Marshal(string([]byte{0xff, 0xfe}))
	require.Error(t, err)
}

func TestMarshalRejectsUnsupportedType(t *testing.T) {
	type opaque struct{ X int }
	_, err := Marshal(opaque{X: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported type")
}

func TestMarshalAnyStruct(t *testing.T) {
	type gt struct {
		Type string  `json:"type"`
		AF   float64 `json:"AF"`
		DP   int     `json:"DP"`
	}
	result, err := MarshalAny(gt{Type: "case", AF: 0.35, DP: 420})
	require.NoError(t, err)
	assert.Equal(t, `{"AF":0.35,"DP":420,"type":"case"}`, string(result))
}

func TestMarshalDeterministic(t *testing.T) {
	doc := map[string]any{
		"CHROM": "1",
		"POS":   115256530,
		"INFO":  map[string]any{"MYELOID_GERMLINE": 1, "CSQ": []any{map[string]any{"SYMBOL": "CEBPA"}}},
	}

	first, err := Marshal(doc)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Marshal(doc)
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
}
