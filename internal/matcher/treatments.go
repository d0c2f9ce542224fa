package matcher

import (
	"fmt"
	"sort"
	"strings"

	"github.com/trialscout/trialscout/internal/config"
	"github.com/trialscout/trialscout/internal/eligibility"
	"github.com/trialscout/trialscout/internal/model"
)

// broadClassTerms mark drug classes that apply to NSCLC patients without a
// companion biomarker.
var broadClassTerms = []string{"chemotherapy", "immunotherapy", "pd-1", "pd-l1"}

// MatchTreatments scores every catalog treatment against the patient's
// biomarker panel. Treatments with no relevance to the patient are omitted
// entirely.
func MatchTreatments(cfg config.MatcherConfig, patient *model.PatientProfile, treatments []model.Treatment) []model.TreatmentMatch {
	var matches []model.TreatmentMatch

	for _, t := range treatments {
		score, reasons := scoreTreatment(cfg, patient, &t)
		if score <= 0 && len(reasons) == 0 {
			continue
		}
		reason := "General NSCLC treatment"
		if len(reasons) > 0 {
			reason = strings.Join(reasons, "; ")
		}
		matches = append(matches, model.TreatmentMatch{
			Treatment:   t,
			MatchScore:  score,
			MatchReason: reason,
		})
	}

	// Score descending, then FDA approval recency, then generic name
	// ascending for a stable order. Undated treatments sort after dated ones.
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].MatchScore != matches[j].MatchScore {
			return matches[i].MatchScore > matches[j].MatchScore
		}
		di, dj := matches[i].FDAApprovalDate, matches[j].FDAApprovalDate
		switch {
		case di != nil && dj == nil:
			return true
		case di == nil && dj != nil:
			return false
		case di != nil && !di.Equal(*dj):
			return di.After(*dj)
		}
		return matches[i].GenericName < matches[j].GenericName
	})

	return matches
}

func scoreTreatment(cfg config.MatcherConfig, patient *model.PatientProfile, t *model.Treatment) (float64, []string) {
	var score float64
	var reasons []string

	if len(t.BiomarkerRequirements) == 0 {
		// Broadly applicable therapies score a baseline when the drug class
		// says they apply to NSCLC generally.
		class := strings.ToLower(t.DrugClass)
		for _, term := range broadClassTerms {
			if strings.Contains(class, term) {
				return cfg.TreatmentBaseline, []string{"General NSCLC treatment"}
			}
		}
		return 0, nil
	}

	// Iterate requirements in sorted order so reasons are deterministic.
	markers := make([]string, 0, len(t.BiomarkerRequirements))
	for m := range t.BiomarkerRequirements {
		markers = append(markers, m)
	}
	sort.Strings(markers)

	for _, marker := range markers {
		required := t.BiomarkerRequirements[marker]
		reported, tested := eligibility.LookupMarker(patient.Biomarkers, marker)
		if !tested {
			continue
		}

		shared := eligibility.ValuesIntersect(reported, required)
		switch {
		case eligibility.HasPositiveIndicator(required) && eligibility.HasPositiveIndicator(reported):
			score += cfg.TreatmentGenericPositive
			reasons = append(reasons, fmt.Sprintf("%s positive match", marker))

		case len(shared) > 0:
			// Specific alteration named by both sides.
			score += cfg.TreatmentExact
			reasons = append(reasons, fmt.Sprintf("%s mutation match (%s)", marker, strings.Join(shared, ", ")))

		case eligibility.HasPositiveIndicator(reported) && !eligibility.HasPositiveIndicator(required):
			// Patient is generically positive but the drug needs a named
			// alteration.
			score += cfg.TreatmentPartial
			reasons = append(reasons, fmt.Sprintf("%s positive (specific mutation check needed)", marker))

		case eligibility.HasNegativeIndicator(required) && eligibility.HasNegativeIndicator(reported):
			score += cfg.TreatmentWildType
			reasons = append(reasons, fmt.Sprintf("%s wild-type match", marker))
		}
	}

	// A multi-requirement treatment should not outrank an exact single-marker
	// match just by summing, so normalize back into the exact band.
	if score > cfg.TreatmentExact && len(t.BiomarkerRequirements) > 1 {
		score = score / float64(len(t.BiomarkerRequirements))
		if score > cfg.TreatmentExact {
			score = cfg.TreatmentExact
		}
	}

	return score, reasons
}
