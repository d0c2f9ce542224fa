package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trialscout/trialscout/internal/model"
)

// stubUnderstander returns a canned field map, recording the prompts it saw.
type stubUnderstander struct {
	fields map[string]any
	err    error

	lastSystem string
	lastText   string
}

func (s *stubUnderstander) Understand(_ context.Context, systemPrompt, text string) (map[string]any, error) {
	s.lastSystem = systemPrompt
	s.lastText = text
	if s.err != nil {
		return nil, s.err
	}
	return s.fields, nil
}

// fieldsFromJSON builds the map the way a real response parse would, so
// numbers arrive as float64.
func fieldsFromJSON(t *testing.T, raw string) map[string]any {
	t.Helper()
	var fields map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &fields))
	return fields
}

const patientDescription = "67 year old woman with stage IV adenocarcinoma, EGFR L858R positive, ECOG 1, on first line osimertinib, lives in Boston, MA"

func TestExtractPatientTooShort(t *testing.T) {
	stub := &stubUnderstander{}
	_, err := ExtractPatient(context.Background(), stub, "too short")

	require.Error(t, err)
	assert.True(t, model.IsValidation(err))
	// Rejected before any external call.
	assert.Empty(t, stub.lastText)
}

func TestExtractPatient(t *testing.T) {
	stub := &stubUnderstander{fields: fieldsFromJSON(t, `{
		"cancer_type": "NSCLC",
		"histology": "adenocarcinoma",
		"stage": "IV",
		"biomarkers": {"egfr": ["L858R"], "pd-l1": ["TPS 50%"]},
		"age": 67,
		"ecog_status": 1,
		"prior_treatments": ["osimertinib"],
		"line_of_therapy": "1st",
		"brain_metastases": "none",
		"location": "Boston, MA",
		"travel_distance_miles": 50,
		"confidence": 0.9
	}`)}

	parsed, err := ExtractPatient(context.Background(), stub, patientDescription)
	require.NoError(t, err)

	p := parsed.Profile
	assert.Equal(t, model.CancerTypeNSCLC, p.CancerType)
	assert.Equal(t, model.Known(model.HistologyAdenocarcinoma), p.Histology)
	assert.Equal(t, model.Known("IV"), p.Stage)
	// Marker names fold onto their canonical spelling.
	assert.Equal(t, map[string][]string{"EGFR": {"L858R"}, "PD-L1": {"TPS 50%"}}, p.Biomarkers)
	assert.Equal(t, model.Known(67), p.Age)
	assert.Equal(t, model.Known(1), p.ECOGStatus)
	assert.Equal(t, model.Known(model.LineFirst), p.LineOfTherapy)
	assert.Equal(t, model.Known(model.BrainMetsNone), p.BrainMetastases)
	require.NotNil(t, p.Location)
	assert.Equal(t, "Boston", p.Location.City)
	assert.Equal(t, "MA", p.Location.State)
	assert.Equal(t, model.Known(50.0), p.TravelDistanceMiles)

	assert.InDelta(t, 0.9, parsed.Confidence, 1e-9)
	assert.Empty(t, parsed.Notes)
}

func TestExtractPatientUnknownFields(t *testing.T) {
	stub := &stubUnderstander{fields: fieldsFromJSON(t, `{
		"histology": "carcinoid",
		"ecog_status": 7,
		"line_of_therapy": "maintenance",
		"brain_metastases": "resected"
	}`)}

	parsed, err := ExtractPatient(context.Background(), stub, patientDescription)
	require.NoError(t, err)

	// Unplaceable values are preserved as notes, never dropped.
	assert.Len(t, parsed.Notes, 4)
	assert.True(t, parsed.Profile.ECOGStatus.IsUnknown())
	assert.True(t, parsed.Profile.LineOfTherapy.IsUnknown())
	assert.True(t, parsed.Profile.BrainMetastases.IsUnknown())
	assert.Equal(t, model.Known(model.HistologyOther), parsed.Profile.Histology)
}

func TestExtractPatientDefaults(t *testing.T) {
	stub := &stubUnderstander{fields: map[string]any{}}

	parsed, err := ExtractPatient(context.Background(), stub, patientDescription)
	require.NoError(t, err)

	p := parsed.Profile
	assert.True(t, p.Histology.IsUnknown())
	assert.True(t, p.Age.IsUnknown())
	assert.Empty(t, p.Biomarkers)
	assert.InDelta(t, defaultParseConfidence, parsed.Confidence, 1e-9)
	assert.NotNil(t, parsed.Notes)
}

func TestExtractPatientUnavailable(t *testing.T) {
	stub := &stubUnderstander{err: &model.ExtractionUnavailableError{Err: errors.New("connection refused")}}

	_, err := ExtractPatient(context.Background(), stub, patientDescription)
	require.Error(t, err)
	assert.True(t, model.IsExtractionUnavailable(err))
}

func TestExtractTrialProfile(t *testing.T) {
	stub := &stubUnderstander{fields: fieldsFromJSON(t, `{
		"title": "Osimertinib plus chemo in EGFR-mutant NSCLC",
		"phase": "phase ii",
		"target_biomarkers": {"EGFR": ["L858R", "exon19del"]},
		"target_stages": ["IIIB", "IV"],
		"target_locations": ["CA", "MA"],
		"age_range": [18, 80],
		"ecog_max": 1,
		"treatment_naive_only": true,
		"confidence": 0.85
	}`)}

	parsed, err := ExtractTrialProfile(context.Background(), stub,
		"Planning a phase 2 study of osimertinib plus chemotherapy in EGFR-mutant stage IV NSCLC")
	require.NoError(t, err)

	p := parsed.Profile
	assert.Equal(t, "Phase 2", p.Phase)
	assert.Equal(t, []string{"IIIB", "IV"}, p.TargetStages)
	assert.Equal(t, []string{"CA", "MA"}, p.TargetLocations)
	require.NotNil(t, p.AgeRange)
	assert.Equal(t, 18, *p.AgeRange.Min)
	assert.Equal(t, 80, *p.AgeRange.Max)
	require.NotNil(t, p.ECOGMax)
	assert.Equal(t, 1, *p.ECOGMax)
	assert.Equal(t, model.Known(true), p.TreatmentNaiveOnly)
	assert.InDelta(t, 0.85, parsed.Confidence, 1e-9)
}

func TestParsePhase(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"Phase 2", "Phase 2", true},
		{"phase II", "Phase 2", true},
		{"Phase 1/2", "Phase 1/Phase 2", true},
		{"3", "Phase 3", true},
		{"Early Phase 1", "", false},
	}
	for _, tt := range tests {
		got, ok := parsePhase(tt.raw)
		assert.Equal(t, tt.ok, ok, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}
}

func TestExtractEligibilityTooShort(t *testing.T) {
	stub := &stubUnderstander{}

	elig, err := ExtractEligibility(context.Background(), stub, "NCT001", "N/A")
	require.NoError(t, err)

	assert.Zero(t, elig.ConstraintCount())
	assert.Zero(t, elig.ExtractionConfidence)
	assert.Contains(t, elig.ExtractionNotes, "eligibility text too short for extraction")
	assert.Empty(t, stub.lastText)
}

func TestExtractEligibility(t *testing.T) {
	stub := &stubUnderstander{fields: fieldsFromJSON(t, `{
		"age": {"min": 18, "max": null},
		"ecog": {"min": null, "max": 6},
		"disease_stage": {"allowed": ["IIIB", "IV"], "excluded": []},
		"biomarkers": {
			"required_positive": {"egfr": ["L858R", "exon 19 deletion"]},
			"required_negative": ["t790m"],
			"pdl1_expression": {"min_tps": 50, "level": "high"}
		},
		"prior_treatments": {"excluded": ["osimertinib"], "max_lines": 1, "treatment_naive_required": false},
		"brain_metastases": {"allowed": true, "controlled_only": true, "untreated_allowed": false},
		"common_exclusions": ["pregnancy"],
		"extraction_confidence": 1.7,
		"extraction_notes": ["stage wording ambiguous"]
	}`)}

	elig, err := ExtractEligibility(context.Background(), stub, "Osimertinib study", longCriteria())
	require.NoError(t, err)

	require.NotNil(t, elig.Age.Min)
	assert.Equal(t, 18, *elig.Age.Min)
	assert.Nil(t, elig.Age.Max)

	// ECOG clamps into 0-4.
	require.NotNil(t, elig.ECOG.Max)
	assert.Equal(t, 4, *elig.ECOG.Max)

	assert.Equal(t, []string{"IIIB", "IV"}, elig.DiseaseStage.Allowed)
	assert.Equal(t, map[string][]string{"EGFR": {"L858R", "exon 19 deletion"}}, elig.Biomarkers.RequiredPositive)
	assert.Equal(t, []string{"T790M"}, elig.Biomarkers.RequiredNegative)
	require.NotNil(t, elig.Biomarkers.PDL1)
	assert.Equal(t, 50.0, *elig.Biomarkers.PDL1.MinTPS)

	assert.Equal(t, []string{"osimertinib"}, elig.PriorTreatments.Excluded)
	require.NotNil(t, elig.PriorTreatments.MaxLines)
	assert.Equal(t, 1, *elig.PriorTreatments.MaxLines)

	require.NotNil(t, elig.BrainMetastases)
	assert.True(t, elig.BrainMetastases.ControlledOnly)

	// Confidence clamps into [0,1].
	assert.InDelta(t, 1.0, elig.ExtractionConfidence, 1e-9)
	assert.Equal(t, []string{"stage wording ambiguous"}, elig.ExtractionNotes)
}

func TestExtractEligibilityUnavailable(t *testing.T) {
	stub := &stubUnderstander{err: &model.ExtractionUnavailableError{Err: errors.New("timeout")}}

	_, err := ExtractEligibility(context.Background(), stub, "NCT001", longCriteria())
	require.Error(t, err)
	assert.True(t, model.IsExtractionUnavailable(err))
}

func longCriteria() string {
	return "Inclusion Criteria: age 18 or older, histologically confirmed stage IIIB or IV NSCLC with documented EGFR mutation. Exclusion Criteria: prior osimertinib."
}

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced no lang", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose wrapped", "Here you go:\n{\"a\":1}\nDone.", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanJSON(tt.in))
		})
	}
}

func TestNormalizeBiomarkers(t *testing.T) {
	got := NormalizeBiomarkers(map[string][]string{
		"egfr":  {"L858R"},
		"EGFR":  {"L858R", "T790M"},
		"pd l1": {"high"},
		"STK11": {"mutated"},
	})

	assert.Equal(t, []string{"high"}, got["PD-L1"])
	assert.ElementsMatch(t, []string{"L858R", "T790M"}, got["EGFR"])
	// Unknown markers survive, upper-cased.
	assert.Equal(t, []string{"mutated"}, got["STK11"])
}

func TestParseLocation(t *testing.T) {
	city, state := parseLocation("Boston, MA")
	assert.Equal(t, "Boston", city)
	assert.Equal(t, "MA", state)

	city, state = parseLocation("ma")
	assert.Empty(t, city)
	assert.Equal(t, "MA", state)

	city, state = parseLocation("Chicago")
	assert.Equal(t, "Chicago", city)
	assert.Empty(t, state)
}
