// Package strings provides string manipulation utilities.
package strings

import (
	"strings"
)

// Dedupe applies normalize to each element, drops empty results and removes
// duplicates. Order of first appearance is preserved. A nil normalize trims
// whitespace only.
func Dedupe(values []string, normalize func(string) string) []string {
	if len(values) == 0 {
		return values
	}
	if normalize == nil {
		normalize = strings.TrimSpace
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		n := normalize(v)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; !ok {
			seen[n] = struct{}{}
			result = append(result, n)
		}
	}

	return result
}

// UpperFields splits s on whitespace and returns the distinct upper-cased tokens.
//
// Example:
//
//	UpperFields("  nel ewl NEL ")
//	// Returns: []string{"NEL", "EWL"}
func UpperFields(s string) []string {
	return Dedupe(strings.Fields(s), func(v string) string {
		return strings.ToUpper(strings.TrimSpace(v))
	})
}
