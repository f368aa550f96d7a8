// Package strings provides small string-slice utilities shared across the
// service, mainly for normalizing token role claims.
package strings

import (
	"strings"
)

// DedupeAndTrimLower trims whitespace, lowercases, and removes duplicates
// and empties from a slice. First occurrence wins; order is preserved.
//
// Role claims arrive from token issuers with inconsistent casing and
// padding ("Account-Approver ", "account-approver"), so every claim list
// passes through here before it is parsed.
func DedupeAndTrimLower(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		normalized := strings.ToLower(strings.TrimSpace(v))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}
