package extractor

import "strings"

// canonicalMarkers maps folded synonym spellings onto the canonical biomarker
// name used throughout the corpus.
var canonicalMarkers = map[string]string{
	"egfr":  "EGFR",
	"alk":   "ALK",
	"ros1":  "ROS1",
	"ros-1": "ROS1",
	"braf":  "BRAF",
	"kras":  "KRAS",
	"met":   "MET",
	"ret":   "RET",
	"ntrk":  "NTRK",
	"her2":  "HER2",
	"erbb2": "HER2",
	"pdl1":  "PD-L1",
	"pd-l1": "PD-L1",
	"pd l1": "PD-L1",
}

// NormalizeBiomarkers folds marker names onto their canonical spelling and
// merges duplicates. Unknown marker names are kept as reported, upper-cased,
// never dropped.
func NormalizeBiomarkers(biomarkers map[string][]string) map[string][]string {
	if len(biomarkers) == 0 {
		return map[string][]string{}
	}

	out := make(map[string][]string, len(biomarkers))
	for name, values := range biomarkers {
		canonical := canonicalMarkerName(name)
		out[canonical] = mergeValues(out[canonical], values)
	}
	return out
}

func canonicalMarkerName(name string) string {
	folded := strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := canonicalMarkers[folded]; ok {
		return canonical
	}
	return strings.ToUpper(strings.TrimSpace(name))
}

// mergeValues appends values not already present, case-insensitively.
func mergeValues(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, v := range existing {
		seen[strings.ToLower(strings.TrimSpace(v))] = true
	}
	for _, v := range incoming {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		existing = append(existing, v)
	}
	return existing
}

// parseLocation splits a free-form "city, state" string. A bare two-letter
// token is treated as a state code.
func parseLocation(raw string) (city, state string) {
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	switch {
	case len(parts) >= 2 && parts[0] != "" && parts[1] != "":
		return parts[0], parts[1]
	case len(parts[0]) == 2:
		return "", strings.ToUpper(parts[0])
	default:
		return parts[0], ""
	}
}
