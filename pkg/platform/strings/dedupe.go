// Package strings holds small string-slice utilities shared by config
// parsing.
package strings

import "strings"

// DedupeAndTrim trims each element and drops duplicates and empties,
// preserving order. Config lists arrive comma-separated from the environment
// and routinely carry stray whitespace.
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}
	return result
}

// DedupeAndTrimLower additionally lowercases, for role lists that must
// compare case-insensitively.
func DedupeAndTrimLower(values []string) []string {
	lowered := make([]string, 0, len(values))
	for _, v := range values {
		lowered = append(lowered, strings.ToLower(v))
	}
	return DedupeAndTrim(lowered)
}
