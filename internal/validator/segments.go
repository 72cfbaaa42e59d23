package validator

import (
	"strings"

	"golang.org/x/text/cases"
)

// Compound column labels use '|' between segments, with any amount of
// surrounding whitespace: "standard_charge | gross", "code|1|type".
const segmentSep = "|"

// splitRaw splits a label into trimmed segments, preserving case. It is used
// where the original spelling matters (payer and plan names).
func splitRaw(label string) []string {
	parts := strings.Split(label, segmentSep)
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// splitFolded splits a label into trimmed, case-folded segments suitable
// for comparison.
func splitFolded(label string) []string {
	// A Caser is stateful; one per call keeps this safe for concurrent sessions.
	fold := cases.Fold()
	parts := splitRaw(label)
	for i, p := range parts {
		parts[i] = fold.String(p)
	}
	return parts
}

// segmentsEqual compares two folded segment lists. Segment counts must
// match exactly; a shorter list is never treated as a prefix match.
func segmentsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// joinSegments renders segments in the canonical " | " form used for
// semantic column keys.
func joinSegments(segs ...string) string {
	return strings.Join(segs, " | ")
}

// foldKey is the case-insensitive identity of a label.
func foldKey(label string) string {
	return joinSegments(splitFolded(label)...)
}
