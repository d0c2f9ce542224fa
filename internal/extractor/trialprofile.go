package extractor

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/trialscout/trialscout/internal/model"
)

// ExtractTrialProfile parses a researcher's free-text trial description into
// the reference profile competitive analysis runs against.
func ExtractTrialProfile(ctx context.Context, u Understander, description string) (*model.ParsedTrialProfile, error) {
	if len(strings.TrimSpace(description)) < MinDescriptionLength {
		return nil, &model.ValidationError{
			Field:  "description",
			Reason: "must be at least 20 characters",
		}
	}

	fields, err := u.Understand(ctx, trialProfileSystemPrompt, trialProfileUserMessage(description))
	if err != nil {
		return nil, err
	}

	profile := model.NewResearcherTrialProfile()
	var notes []string

	if title, ok := asString(fields, "title"); ok {
		profile.Title = title
	}

	if raw, ok := asString(fields, "phase"); ok {
		if phase, ok := parsePhase(raw); ok {
			profile.Phase = phase
		} else {
			notes = append(notes, noteUnplaced("phase", raw))
		}
	}

	if biomarkers, ok := asBiomarkerMap(fields, "target_biomarkers"); ok {
		profile.TargetBiomarkers = NormalizeBiomarkers(biomarkers)
	}
	if stages, ok := asStringSlice(fields, "target_stages"); ok {
		profile.TargetStages = stages
	}
	if histology, ok := asStringSlice(fields, "target_histology"); ok {
		profile.TargetHistology = histology
	}
	if locations, ok := asStringSlice(fields, "target_locations"); ok {
		profile.TargetLocations = locations
	}

	if bounds, ok := fields["age_range"].([]any); ok && len(bounds) == 2 {
		r := &model.AgeRange{}
		if v, ok := bounds[0].(float64); ok {
			min := int(v)
			r.Min = &min
		}
		if v, ok := bounds[1].(float64); ok {
			max := int(v)
			r.Max = &max
		}
		if r.Specified() {
			profile.AgeRange = r
		}
	}

	if ecog, ok := asInt(fields, "ecog_max"); ok {
		if ecog >= 0 && ecog <= 4 {
			profile.ECOGMax = &ecog
		} else {
			notes = append(notes, noteUnplaced("ecog_max", ecog))
		}
	}

	if v, ok := asBool(fields, "treatment_naive_only"); ok {
		profile.TreatmentNaiveOnly = model.Known(v)
	}
	if excluded, ok := asStringSlice(fields, "prior_treatments_excluded"); ok {
		profile.PriorTreatmentsExcluded = excluded
	}

	confidence := defaultParseConfidence
	if v, ok := asFloat(fields, "confidence"); ok {
		confidence = clamp01(v)
	}
	if extra, ok := asStringSlice(fields, "notes"); ok {
		notes = append(notes, extra...)
	}

	zap.L().Debug("trial profile extraction complete",
		zap.Int("target_biomarkers", len(profile.TargetBiomarkers)),
		zap.Float64("confidence", confidence))

	return &model.ParsedTrialProfile{
		Profile:    profile,
		Confidence: confidence,
		Notes:      noteSlice(notes),
	}, nil
}

// parsePhase canonicalizes phase spellings onto the registry form.
func parsePhase(raw string) (string, bool) {
	folded := strings.ToLower(strings.TrimSpace(raw))
	folded = strings.ReplaceAll(folded, " ", "")
	switch folded {
	case "phase1", "phasei", "1":
		return "Phase 1", true
	case "phase1/phase2", "phase1/2", "phasei/ii":
		return "Phase 1/Phase 2", true
	case "phase2", "phaseii", "2":
		return "Phase 2", true
	case "phase2/phase3", "phase2/3", "phaseii/iii":
		return "Phase 2/Phase 3", true
	case "phase3", "phaseiii", "3":
		return "Phase 3", true
	case "phase4", "phaseiv", "4":
		return "Phase 4", true
	default:
		return "", false
	}
}
