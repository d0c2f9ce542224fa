package extractor

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/trialscout/trialscout/internal/model"
)

// MinDescriptionLength is the floor below which free text is rejected before
// any external call.
const MinDescriptionLength = 20

// defaultParseConfidence applies when the collaborator omits its own
// confidence estimate.
const defaultParseConfidence = 0.5

// ExtractPatient parses a free-text patient description into a structured
// profile. Every profile field the text does not mention stays unknown, and
// values that cannot be placed are preserved in the notes.
func ExtractPatient(ctx context.Context, u Understander, description string) (*model.ParsedPatient, error) {
	if len(strings.TrimSpace(description)) < MinDescriptionLength {
		return nil, &model.ValidationError{
			Field:  "description",
			Reason: "must be at least 20 characters",
		}
	}

	fields, err := u.Understand(ctx, patientSystemPrompt, patientUserMessage(description))
	if err != nil {
		return nil, err
	}

	profile := model.NewPatientProfile()
	var notes []string

	if raw, ok := asString(fields, "histology"); ok {
		if h, ok := parseHistology(raw); ok {
			profile.Histology = model.Known(h)
		} else {
			profile.Histology = model.Known(model.HistologyOther)
			notes = append(notes, noteUnplaced("histology", raw))
		}
	}

	if stage, ok := asString(fields, "stage"); ok {
		profile.Stage = model.Known(stage)
	}

	if biomarkers, ok := asBiomarkerMap(fields, "biomarkers"); ok {
		profile.Biomarkers = NormalizeBiomarkers(biomarkers)
	}

	if age, ok := asInt(fields, "age"); ok {
		profile.Age = model.Known(age)
	}

	if ecog, ok := asInt(fields, "ecog_status"); ok {
		if ecog >= 0 && ecog <= 4 {
			profile.ECOGStatus = model.Known(ecog)
		} else {
			notes = append(notes, noteUnplaced("ecog_status", ecog))
		}
	}

	if treatments, ok := asStringSlice(fields, "prior_treatments"); ok {
		profile.PriorTreatments = model.Known(treatments)
	}

	if raw, ok := asString(fields, "line_of_therapy"); ok {
		if line, ok := parseLine(raw); ok {
			profile.LineOfTherapy = model.Known(line)
		} else {
			notes = append(notes, noteUnplaced("line_of_therapy", raw))
		}
	}

	if raw, ok := asString(fields, "brain_metastases"); ok {
		if status, ok := parseBrainMets(raw); ok {
			profile.BrainMetastases = model.Known(status)
		} else {
			notes = append(notes, noteUnplaced("brain_metastases", raw))
		}
	}

	if v, ok := asBool(fields, "prior_malignancy"); ok {
		profile.PriorMalignancy = model.Known(v)
	}
	if v, ok := asBool(fields, "organ_function_issues"); ok {
		profile.OrganFunctionIssues = model.Known(v)
	}

	if raw, ok := asString(fields, "location"); ok {
		city, state := parseLocation(raw)
		profile.Location = &model.PatientLocation{City: city, State: state}
	}
	if miles, ok := asFloat(fields, "travel_distance_miles"); ok {
		profile.TravelDistanceMiles = model.Known(miles)
	}

	confidence := defaultParseConfidence
	if v, ok := asFloat(fields, "confidence"); ok {
		confidence = clamp01(v)
	}
	if extra, ok := asStringSlice(fields, "notes"); ok {
		notes = append(notes, extra...)
	}

	zap.L().Debug("patient extraction complete",
		zap.Int("biomarkers", len(profile.Biomarkers)),
		zap.Float64("confidence", confidence),
		zap.Int("notes", len(notes)))

	return &model.ParsedPatient{
		Profile:    profile,
		Confidence: confidence,
		Notes:      noteSlice(notes),
	}, nil
}

func parseHistology(raw string) (model.Histology, bool) {
	folded := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(folded, "adeno"):
		return model.HistologyAdenocarcinoma, true
	case strings.Contains(folded, "squamous"):
		return model.HistologySquamous, true
	case strings.Contains(folded, "large"):
		return model.HistologyLargeCell, true
	case folded == "other", folded == "nos":
		return model.HistologyOther, true
	default:
		return "", false
	}
}

func parseLine(raw string) (model.LineOfTherapy, bool) {
	switch model.LineOfTherapy(strings.ToLower(strings.TrimSpace(raw))) {
	case model.LineTreatmentNaive:
		return model.LineTreatmentNaive, true
	case model.LineFirst:
		return model.LineFirst, true
	case model.LineSecond:
		return model.LineSecond, true
	case model.LineThirdPlus:
		return model.LineThirdPlus, true
	default:
		return "", false
	}
}

func parseBrainMets(raw string) (model.BrainMetStatus, bool) {
	switch model.BrainMetStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case model.BrainMetsNone:
		return model.BrainMetsNone, true
	case model.BrainMetsStable:
		return model.BrainMetsStable, true
	case model.BrainMetsActive:
		return model.BrainMetsActive, true
	default:
		return "", false
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// noteSlice keeps the JSON shape stable: an empty note list marshals as [],
// not null.
func noteSlice(notes []string) []string {
	if notes == nil {
		return []string{}
	}
	return notes
}
