package eligibility

import "strings"

// Indicator vocabularies for biomarker values as they come out of clinical
// text. Comparisons are case-insensitive.
var positiveIndicators = map[string]bool{
	"positive":      true,
	"+":             true,
	"present":       true,
	"detected":      true,
	"rearrangement": true,
	"fusion":        true,
	"amplification": true,
	"mutated":       true,
}

var negativeIndicators = map[string]bool{
	"negative":     true,
	"-":            true,
	"wild-type":    true,
	"wildtype":     true,
	"wt":           true,
	"not detected": true,
}

// IsPositiveIndicator reports whether a reported value is a generic positive
// finding rather than a specific mutation.
func IsPositiveIndicator(v string) bool {
	return positiveIndicators[strings.ToLower(strings.TrimSpace(v))]
}

// IsNegativeIndicator reports whether a reported value is an explicit
// negative/wild-type finding.
func IsNegativeIndicator(v string) bool {
	return negativeIndicators[strings.ToLower(strings.TrimSpace(v))]
}

// HasPositiveIndicator reports whether any value in the set is a generic
// positive finding.
func HasPositiveIndicator(values []string) bool {
	for _, v := range values {
		if IsPositiveIndicator(v) {
			return true
		}
	}
	return false
}

// HasNegativeIndicator reports whether any value in the set is an explicit
// negative finding.
func HasNegativeIndicator(values []string) bool {
	for _, v := range values {
		if IsNegativeIndicator(v) {
			return true
		}
	}
	return false
}

// SpecificValues returns the values that are neither generic-positive nor
// negative indicators, i.e. concrete mutations or alterations.
func SpecificValues(values []string) []string {
	var out []string
	for _, v := range values {
		if !IsPositiveIndicator(v) && !IsNegativeIndicator(v) {
			out = append(out, v)
		}
	}
	return out
}

// LookupMarker finds the reported values for a biomarker by name,
// case-insensitively. The second return is false when the marker was never
// tested/reported, which is distinct from an explicit negative.
func LookupMarker(biomarkers map[string][]string, name string) ([]string, bool) {
	for k, vals := range biomarkers {
		if strings.EqualFold(k, name) {
			return vals, true
		}
	}
	return nil, false
}

// ValuesIntersect intersects two value sets case-insensitively and returns
// the shared members as reported by the first set.
func ValuesIntersect(a, b []string) []string {
	lowered := make(map[string]bool, len(b))
	for _, v := range b {
		lowered[strings.ToLower(strings.TrimSpace(v))] = true
	}
	var shared []string
	for _, v := range a {
		if lowered[strings.ToLower(strings.TrimSpace(v))] {
			shared = append(shared, v)
		}
	}
	return shared
}
