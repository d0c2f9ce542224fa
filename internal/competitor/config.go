// Package competitor scores trial-vs-trial similarity for competitive
// landscape analysis and aggregates market insights over the scored set.
package competitor

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/trialscout/trialscout/internal/config"
)

// DefaultSimilarityConfig returns a config.SimilarityConfig with the standard
// weights. Weights sum to 1.0.
func DefaultSimilarityConfig() config.SimilarityConfig {
	return config.SimilarityConfig{
		BiomarkerWeight:  0.4,
		StageWeight:      0.2,
		GeographicWeight: 0.2,
		PhaseWeight:      0.2,

		MinScore:   0.1,
		MaxResults: 50,
	}
}

// WeightSum returns the sum of all component weights.
func WeightSum(c config.SimilarityConfig) float64 {
	return c.BiomarkerWeight + c.StageWeight + c.GeographicWeight + c.PhaseWeight
}

// ValidateConfig checks that a SimilarityConfig is internally consistent.
func ValidateConfig(c config.SimilarityConfig) error {
	var errs []string

	weights := map[string]float64{
		"biomarker_weight":  c.BiomarkerWeight,
		"stage_weight":      c.StageWeight,
		"geographic_weight": c.GeographicWeight,
		"phase_weight":      c.PhaseWeight,
	}
	for name, w := range weights {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", name))
		}
	}

	sum := WeightSum(c)
	if sum <= 0 {
		errs = append(errs, "weight sum must be > 0")
	}
	if math.Abs(sum-1.0) > 0.01 {
		errs = append(errs, fmt.Sprintf("weights should sum to 1.0, got %.3f", sum))
	}

	if c.MinScore < 0 || c.MinScore > 1 {
		errs = append(errs, "min_score must be between 0 and 1")
	}
	if c.MaxResults <= 0 {
		errs = append(errs, "max_results must be > 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("competitor: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
