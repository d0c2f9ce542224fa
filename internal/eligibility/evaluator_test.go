package eligibility

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trialscout/trialscout/internal/model"
)

func intPtr(v int) *int { return &v }

func egfrPatient() *model.PatientProfile {
	p := model.NewPatientProfile()
	p.Age = model.Known(62)
	p.ECOGStatus = model.Known(1)
	p.Stage = model.Known("IV")
	p.Histology = model.Known(model.HistologyAdenocarcinoma)
	p.Biomarkers = map[string][]string{"EGFR": {"L858R"}}
	p.BrainMetastases = model.Known(model.BrainMetsNone)
	return &p
}

func egfrTrial() *model.StructuredEligibility {
	return &model.StructuredEligibility{
		Age:          model.AgeRange{Min: intPtr(18)},
		ECOG:         model.ECOGRange{Max: intPtr(2)},
		DiseaseStage: model.ListRequirement{Allowed: []string{"IIIB", "IV"}},
		Biomarkers: model.BiomarkerRules{
			RequiredPositive: map[string][]string{"EGFR": {"L858R", "exon19del"}},
		},
	}
}

func TestEvaluateEligible(t *testing.T) {
	res := Evaluate(egfrPatient(), egfrTrial())

	assert.Equal(t, model.StatusEligible, res.Status)
	assert.InDelta(t, 1.0, res.Confidence, 1e-9)
	assert.Empty(t, res.ExcludingCriteria)
	assert.Contains(t, res.MatchingCriteria, "EGFR L858R matches required positive")
	assert.Contains(t, res.MatchingCriteria, "Stage IV matches allowed stages")
}

func TestEvaluateRequiredNegativeConflict(t *testing.T) {
	p := egfrPatient()
	elig := &model.StructuredEligibility{
		Biomarkers: model.BiomarkerRules{RequiredNegative: []string{"EGFR"}},
	}

	res := Evaluate(p, elig)

	assert.Equal(t, model.StatusIneligible, res.Status)
	assert.Contains(t, res.ExcludingCriteria, "EGFR positive conflicts with required negative")
}

func TestEvaluateUnknownECOGNotEligible(t *testing.T) {
	p := egfrPatient()
	p.ECOGStatus = model.Unknown[int]()
	elig := &model.StructuredEligibility{ECOG: model.ECOGRange{Max: intPtr(1)}}

	res := Evaluate(p, elig)

	// Unknown can never count as satisfied.
	assert.Equal(t, model.StatusUncertain, res.Status)
	assert.InDelta(t, MinConfidence, res.Confidence, 1e-9)
}

func TestEvaluateZeroConstraints(t *testing.T) {
	res := Evaluate(egfrPatient(), &model.StructuredEligibility{})

	assert.Equal(t, model.StatusUncertain, res.Status)
	assert.InDelta(t, MinConfidence, res.Confidence, 1e-9)

	res = Evaluate(egfrPatient(), nil)
	assert.Equal(t, model.StatusUncertain, res.Status)
}

func TestEvaluateAgeBounds(t *testing.T) {
	tests := []struct {
		name   string
		age    model.Field[int]
		bounds model.AgeRange
		want   Verdict
	}{
		{"within", model.Known(50), model.AgeRange{Min: intPtr(18), Max: intPtr(75)}, VerdictMatch},
		{"at minimum", model.Known(18), model.AgeRange{Min: intPtr(18)}, VerdictMatch},
		{"below minimum", model.Known(17), model.AgeRange{Min: intPtr(18)}, VerdictMismatch},
		{"above maximum", model.Known(80), model.AgeRange{Max: intPtr(75)}, VerdictMismatch},
		{"unknown", model.Unknown[int](), model.AgeRange{Min: intPtr(18)}, VerdictUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := checkAge(tt.age, tt.bounds)
			assert.Equal(t, tt.want, c.Verdict)
		})
	}
}

func TestEvaluateStageVerdicts(t *testing.T) {
	req := model.ListRequirement{Allowed: []string{"III", "IV"}, Excluded: []string{"I"}}

	tests := []struct {
		stage string
		want  Verdict
	}{
		{"IV", VerdictMatch},
		{"IIIB", VerdictMatch}, // substage of an allowed entry counts
		{"I", VerdictMismatch},
		{"IA", VerdictMismatch}, // substage of an excluded entry
		{"II", VerdictWarning},
	}
	for _, tt := range tests {
		t.Run(tt.stage, func(t *testing.T) {
			c := checkStage(model.Known(tt.stage), req)
			assert.Equal(t, tt.want, c.Verdict, "stage %s", tt.stage)
		})
	}
}

func TestStageMember(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"IV", "IV", true},
		{"IIIB", "III", true},
		{"III", "IIIB", true},
		{"stage iv", "IV", true},
		{"IV", "I", false},   // IV is not a substage of I
		{"IV", "II", false},  // nor of II
		{"IIIA", "IIIB", false},
		{"II", "III", false},
		{"recurrent", "recurrent NSCLC", true}, // non-Roman values fall back
		{"IV", "recurrent", false},
	}
	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, stageMember(tt.a, tt.b))
		})
	}
}

// A stage-IV patient must never be excluded by a trial that rules out the
// early stages.
func TestEvaluateStageExclusionDoesNotCatchLaterStages(t *testing.T) {
	p := egfrPatient()
	elig := &model.StructuredEligibility{
		DiseaseStage: model.ListRequirement{Excluded: []string{"I", "II"}},
	}

	res := Evaluate(p, elig)
	assert.Equal(t, model.StatusEligible, res.Status)
}

func TestEvaluateGenericPositiveAgainstSpecific(t *testing.T) {
	p := egfrPatient()
	p.Biomarkers = map[string][]string{"EGFR": {"positive"}}

	res := Evaluate(p, egfrTrial())

	// Cannot confirm the specific alteration, so not eligible, but the
	// generic positive is not disqualifying either.
	assert.Equal(t, model.StatusUncertain, res.Status)
	assert.NotEmpty(t, res.ExcludingCriteria)
}

func TestEvaluateSpecificMismatch(t *testing.T) {
	p := egfrPatient()
	p.Biomarkers = map[string][]string{"EGFR": {"exon20ins"}}

	res := Evaluate(p, egfrTrial())

	assert.Equal(t, model.StatusIneligible, res.Status)
}

func TestEvaluateGenericRequirementAcceptsSpecific(t *testing.T) {
	p := egfrPatient()
	p.Biomarkers = map[string][]string{"ALK": {"fusion"}}
	elig := &model.StructuredEligibility{
		Biomarkers: model.BiomarkerRules{
			RequiredPositive: map[string][]string{"ALK": {"positive"}},
		},
	}

	res := Evaluate(p, elig)
	assert.Equal(t, model.StatusEligible, res.Status)
}

func TestEvaluateBrainMetastases(t *testing.T) {
	disallow := model.BrainMetastasesRule{Allowed: false}
	controlled := model.BrainMetastasesRule{Allowed: true, ControlledOnly: true}

	tests := []struct {
		name   string
		status model.Field[model.BrainMetStatus]
		rule   model.BrainMetastasesRule
		want   Verdict
	}{
		{"none vs disallow", model.Known(model.BrainMetsNone), disallow, VerdictMatch},
		{"stable vs disallow", model.Known(model.BrainMetsStable), disallow, VerdictWarning},
		{"active vs disallow", model.Known(model.BrainMetsActive), disallow, VerdictMismatch},
		{"active vs controlled-only", model.Known(model.BrainMetsActive), controlled, VerdictMismatch},
		{"stable vs controlled-only", model.Known(model.BrainMetsStable), controlled, VerdictMatch},
		{"unknown", model.Unknown[model.BrainMetStatus](), disallow, VerdictUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := checkBrainMetastases(tt.status, tt.rule)
			assert.Equal(t, tt.want, c.Verdict)
		})
	}
}

func TestEvaluateTreatmentNaive(t *testing.T) {
	elig := &model.StructuredEligibility{
		PriorTreatments: model.PriorTreatmentRules{TreatmentNaiveRequired: true},
	}

	p := egfrPatient()
	p.PriorTreatments = model.Known([]string{"osimertinib"})
	res := Evaluate(p, elig)
	assert.Equal(t, model.StatusIneligible, res.Status)

	p.PriorTreatments = model.Known([]string{})
	res = Evaluate(p, elig)
	assert.Equal(t, model.StatusEligible, res.Status)

	p.PriorTreatments = model.Unknown[[]string]()
	res = Evaluate(p, elig)
	assert.Equal(t, model.StatusUncertain, res.Status)
}

func TestEvaluateMaxLines(t *testing.T) {
	elig := &model.StructuredEligibility{
		PriorTreatments: model.PriorTreatmentRules{MaxLines: intPtr(1)},
	}

	p := egfrPatient()
	p.LineOfTherapy = model.Known(model.LineSecond)
	res := Evaluate(p, elig)
	assert.Equal(t, model.StatusIneligible, res.Status)

	p.LineOfTherapy = model.Known(model.LineFirst)
	res = Evaluate(p, elig)
	assert.Equal(t, model.StatusEligible, res.Status)
}

func TestEvaluateDeterministic(t *testing.T) {
	p := egfrPatient()
	elig := egfrTrial()

	first := Evaluate(p, elig)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Evaluate(p, elig))
	}
}

func TestFieldChecksCountMatchesConstraints(t *testing.T) {
	elig := egfrTrial()
	checks := FieldChecks(egfrPatient(), elig)
	require.Len(t, checks, elig.ConstraintCount())
}

func TestFieldChecksNilEligibility(t *testing.T) {
	assert.Empty(t, FieldChecks(egfrPatient(), nil))
}

func TestCheckPDL1(t *testing.T) {
	min := 50.0
	req := model.PDL1Requirement{MinTPS: &min}

	tests := []struct {
		name       string
		biomarkers map[string][]string
		want       Verdict
	}{
		{"tps above threshold", map[string][]string{"PD-L1": {"60%"}}, VerdictMatch},
		{"tps below threshold", map[string][]string{"PD-L1": {"30%"}}, VerdictMismatch},
		{"tps with prefix", map[string][]string{"PDL1": {"TPS 55"}}, VerdictMatch},
		{"positive unquantified", map[string][]string{"PD-L1": {"positive"}}, VerdictWarning},
		{"negative", map[string][]string{"PD-L1": {"negative"}}, VerdictMismatch},
		{"not reported", nil, VerdictUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := checkPDL1(tt.biomarkers, req)
			assert.Equal(t, tt.want, c.Verdict)
		})
	}
}

func TestEvaluatePDL1Requirement(t *testing.T) {
	min := 50.0
	elig := &model.StructuredEligibility{
		Biomarkers: model.BiomarkerRules{
			PDL1: &model.PDL1Requirement{MinTPS: &min},
		},
	}

	p := egfrPatient()
	p.Biomarkers = map[string][]string{"PD-L1": {"10%"}}
	res := Evaluate(p, elig)
	assert.Equal(t, model.StatusIneligible, res.Status)

	p.Biomarkers = map[string][]string{"PD-L1": {"80%"}}
	res = Evaluate(p, elig)
	assert.Equal(t, model.StatusEligible, res.Status)
}
