// Package identity normalizes submitter identities so duplicate checks, device binding and
// identifier lookups agree on one key per person.
package identity

import (
	"strings"

	"golang.org/x/text/cases"
)

// Normalize trims surrounding space and applies Unicode case folding. Returns "" for blank input.
func Normalize(identity string) string {
	s := strings.TrimSpace(identity)
	if s == "" {
		return ""
	}
	// cases.Caser is stateful, so one per call.
	return cases.Fold().String(s)
}

// Equal reports whether a and b normalize to the same identity.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
