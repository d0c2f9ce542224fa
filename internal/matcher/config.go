// Package matcher ranks FDA-approved treatments and open clinical trials
// against a patient profile using additive, configurable scoring.
package matcher

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/trialscout/trialscout/internal/config"
)

// DefaultMatcherConfig returns a config.MatcherConfig with the standard
// weights.
func DefaultMatcherConfig() config.MatcherConfig {
	return config.MatcherConfig{
		// Trial composite weights.
		BiomarkerWeight:     50,
		LineOfTherapyWeight: 30,
		ECOGWeight:          20,
		DistanceNearWeight:  15,
		DistanceFarWeight:   10,
		RecruitingWeight:    10,

		// Distance bands.
		NearMiles: 25,
		FarMiles:  50,

		// Treatment match scores.
		TreatmentExact:           50,
		TreatmentGenericPositive: 40,
		TreatmentWildType:        30,
		TreatmentPartial:         25,
		TreatmentBaseline:        10,

		TopN: 5,
	}
}

// ValidateConfig checks that a MatcherConfig is internally consistent.
func ValidateConfig(c config.MatcherConfig) error {
	var errs []string

	weights := map[string]float64{
		"biomarker_weight":           c.BiomarkerWeight,
		"line_of_therapy_weight":     c.LineOfTherapyWeight,
		"ecog_weight":                c.ECOGWeight,
		"distance_near_weight":       c.DistanceNearWeight,
		"distance_far_weight":        c.DistanceFarWeight,
		"recruiting_weight":          c.RecruitingWeight,
		"treatment_exact":            c.TreatmentExact,
		"treatment_generic_positive": c.TreatmentGenericPositive,
		"treatment_wild_type":        c.TreatmentWildType,
		"treatment_partial":          c.TreatmentPartial,
		"treatment_baseline":         c.TreatmentBaseline,
	}
	for name, w := range weights {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", name))
		}
	}

	if c.NearMiles <= 0 {
		errs = append(errs, "near_miles must be > 0")
	}
	if c.FarMiles < c.NearMiles {
		errs = append(errs, "far_miles must be >= near_miles")
	}
	if c.TopN <= 0 {
		errs = append(errs, "top_n must be > 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("matcher: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
