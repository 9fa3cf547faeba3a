package engine

import "regexp"

// codePattern matches the stable error code prefix sentinel errors carry
// across the pipeline (for example "E201: missing sample scope"). Codes
// survive wrapping because sentinels are wrapped, never rewritten.
var codePattern = regexp.MustCompile(`\bE[0-9]{3}\b`)

// ErrorCode extracts the pipeline error code from an error chain.
// Returns the empty string when the error carries no code.
//
// Code ranges:
//
//	E1xx  compiler rejections (defective tree, depth)
//	E2xx  query assembly (missing sample scope)
//	E3xx  panel configuration loading
//	E4xx  store lookups
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	return codePattern.FindString(err.Error())
}
