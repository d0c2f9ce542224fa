package extractor

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/trialscout/trialscout/internal/model"
)

// ExtractionVersion identifies the current criteria extraction pass. Bump it
// when the prompt or mapping changes so stale extractions can be re-run.
const ExtractionVersion = "1.0.0"

// ExtractEligibility parses a trial's raw eligibility criteria text into the
// structured form the evaluator consumes. Text too short to carry criteria
// yields an empty extraction with a note rather than an error, so backfill
// runs can record the attempt.
func ExtractEligibility(ctx context.Context, u Understander, title, criteriaText string) (*model.StructuredEligibility, error) {
	if len(strings.TrimSpace(criteriaText)) < MinDescriptionLength {
		return emptyEligibility(0, "eligibility text too short for extraction"), nil
	}

	fields, err := u.Understand(ctx, eligibilitySystemPrompt, eligibilityUserMessage(title, criteriaText))
	if err != nil {
		return nil, err
	}

	elig := mapEligibility(fields)

	zap.L().Debug("eligibility extraction complete",
		zap.String("trial", title),
		zap.Int("constraints", elig.ConstraintCount()),
		zap.Float64("confidence", elig.ExtractionConfidence))

	return elig, nil
}

func emptyEligibility(confidence float64, notes ...string) *model.StructuredEligibility {
	if notes == nil {
		notes = []string{}
	}
	return &model.StructuredEligibility{
		DiseaseStage: model.ListRequirement{Allowed: []string{}, Excluded: []string{}},
		Histology:    model.ListRequirement{Allowed: []string{}, Excluded: []string{}},
		Biomarkers: model.BiomarkerRules{
			RequiredPositive: map[string][]string{},
			RequiredNegative: []string{},
		},
		PriorTreatments: model.PriorTreatmentRules{
			Required: []string{},
			Excluded: []string{},
		},
		CommonExclusions:     []string{},
		ExtractionConfidence: confidence,
		ExtractionNotes:      notes,
	}
}

// mapEligibility fills a StructuredEligibility from the untyped field map,
// defaulting every absent section and clamping out-of-range values.
func mapEligibility(fields map[string]any) *model.StructuredEligibility {
	elig := emptyEligibility(defaultParseConfidence)

	if age, ok := asMap(fields, "age"); ok {
		elig.Age.Min = asIntPtr(age, "min")
		elig.Age.Max = asIntPtr(age, "max")
	}

	if ecog, ok := asMap(fields, "ecog"); ok {
		elig.ECOG.Min = clampECOG(asIntPtr(ecog, "min"))
		elig.ECOG.Max = clampECOG(asIntPtr(ecog, "max"))
	}

	if stage, ok := asMap(fields, "disease_stage"); ok {
		elig.DiseaseStage = mapListRequirement(stage)
	}
	if histology, ok := asMap(fields, "histology"); ok {
		elig.Histology = mapListRequirement(histology)
	}

	if biomarkers, ok := asMap(fields, "biomarkers"); ok {
		if positive, ok := asBiomarkerMap(biomarkers, "required_positive"); ok {
			elig.Biomarkers.RequiredPositive = NormalizeBiomarkers(positive)
		}
		if negative, ok := asStringSlice(biomarkers, "required_negative"); ok {
			for i, name := range negative {
				negative[i] = canonicalMarkerName(name)
			}
			elig.Biomarkers.RequiredNegative = negative
		}
		if pdl1, ok := asMap(biomarkers, "pdl1_expression"); ok {
			req := &model.PDL1Requirement{
				MinTPS: asFloatPtr(pdl1, "min_tps"),
				MaxTPS: asFloatPtr(pdl1, "max_tps"),
			}
			req.Level, _ = asString(pdl1, "level")
			elig.Biomarkers.PDL1 = req
		}
	}

	if prior, ok := asMap(fields, "prior_treatments"); ok {
		if required, ok := asStringSlice(prior, "required"); ok {
			elig.PriorTreatments.Required = required
		}
		if excluded, ok := asStringSlice(prior, "excluded"); ok {
			elig.PriorTreatments.Excluded = excluded
		}
		elig.PriorTreatments.MaxLines = asIntPtr(prior, "max_lines")
		elig.PriorTreatments.MinLines = asIntPtr(prior, "min_lines")
		if naive, ok := asBool(prior, "treatment_naive_required"); ok {
			elig.PriorTreatments.TreatmentNaiveRequired = naive
		}
	}

	if brain, ok := asMap(fields, "brain_metastases"); ok {
		rule := &model.BrainMetastasesRule{}
		rule.Allowed, _ = asBool(brain, "allowed")
		rule.ControlledOnly, _ = asBool(brain, "controlled_only")
		rule.UntreatedAllowed, _ = asBool(brain, "untreated_allowed")
		elig.BrainMetastases = rule
	}

	if exclusions, ok := asStringSlice(fields, "common_exclusions"); ok {
		elig.CommonExclusions = exclusions
	}

	if v, ok := asFloat(fields, "extraction_confidence"); ok {
		elig.ExtractionConfidence = clamp01(v)
	}
	if notes, ok := asStringSlice(fields, "extraction_notes"); ok {
		elig.ExtractionNotes = notes
	}

	return elig
}

func mapListRequirement(m map[string]any) model.ListRequirement {
	req := model.ListRequirement{Allowed: []string{}, Excluded: []string{}}
	if allowed, ok := asStringSlice(m, "allowed"); ok {
		req.Allowed = allowed
	}
	if excluded, ok := asStringSlice(m, "excluded"); ok {
		req.Excluded = excluded
	}
	return req
}

func clampECOG(v *int) *int {
	if v == nil {
		return nil
	}
	clamped := *v
	if clamped < 0 {
		clamped = 0
	}
	if clamped > 4 {
		clamped = 4
	}
	return &clamped
}
