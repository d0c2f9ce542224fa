package matcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trialscout/trialscout/internal/model"
)

func egfrPatient() *model.PatientProfile {
	p := model.NewPatientProfile()
	p.Biomarkers = map[string][]string{"EGFR": {"L858R"}}
	return &p
}

func TestMatchTreatmentsExactMutation(t *testing.T) {
	cfg := DefaultMatcherConfig()
	treatments := []model.Treatment{
		{GenericName: "osimertinib", BiomarkerRequirements: map[string][]string{"EGFR": {"L858R", "exon19del"}}},
	}

	matches := MatchTreatments(cfg, egfrPatient(), treatments)

	require.Len(t, matches, 1)
	assert.InDelta(t, cfg.TreatmentExact, matches[0].MatchScore, 1e-9)
	assert.Equal(t, "EGFR mutation match (L858R)", matches[0].MatchReason)
}

func TestMatchTreatmentsGenericPositive(t *testing.T) {
	cfg := DefaultMatcherConfig()
	p := model.NewPatientProfile()
	p.Biomarkers = map[string][]string{"ALK": {"positive"}}
	treatments := []model.Treatment{
		{GenericName: "alectinib", BiomarkerRequirements: map[string][]string{"ALK": {"positive", "rearrangement"}}},
	}

	matches := MatchTreatments(cfg, &p, treatments)

	require.Len(t, matches, 1)
	assert.InDelta(t, cfg.TreatmentGenericPositive, matches[0].MatchScore, 1e-9)
	assert.Equal(t, "ALK positive match", matches[0].MatchReason)
}

func TestMatchTreatmentsPartial(t *testing.T) {
	cfg := DefaultMatcherConfig()
	p := model.NewPatientProfile()
	p.Biomarkers = map[string][]string{"EGFR": {"positive"}}
	treatments := []model.Treatment{
		{GenericName: "osimertinib", BiomarkerRequirements: map[string][]string{"EGFR": {"L858R", "exon19del"}}},
	}

	matches := MatchTreatments(cfg, &p, treatments)

	require.Len(t, matches, 1)
	assert.InDelta(t, cfg.TreatmentPartial, matches[0].MatchScore, 1e-9)
	assert.Contains(t, matches[0].MatchReason, "specific mutation check needed")
}

func TestMatchTreatmentsWildType(t *testing.T) {
	cfg := DefaultMatcherConfig()
	p := model.NewPatientProfile()
	p.Biomarkers = map[string][]string{"KRAS": {"wild-type"}}
	treatments := []model.Treatment{
		{GenericName: "cetuximab", BiomarkerRequirements: map[string][]string{"KRAS": {"wild-type"}}},
	}

	matches := MatchTreatments(cfg, &p, treatments)

	require.Len(t, matches, 1)
	assert.InDelta(t, cfg.TreatmentWildType, matches[0].MatchScore, 1e-9)
}

func TestMatchTreatmentsBaseline(t *testing.T) {
	cfg := DefaultMatcherConfig()
	treatments := []model.Treatment{
		{GenericName: "carboplatin", DrugClass: "Platinum chemotherapy"},
		{GenericName: "pembrolizumab", DrugClass: "PD-1 inhibitor immunotherapy"},
		{GenericName: "warfarin", DrugClass: "Anticoagulant"},
	}

	matches := MatchTreatments(cfg, egfrPatient(), treatments)

	require.Len(t, matches, 2)
	for _, m := range matches {
		assert.InDelta(t, cfg.TreatmentBaseline, m.MatchScore, 1e-9)
		assert.Equal(t, "General NSCLC treatment", m.MatchReason)
	}
}

func TestMatchTreatmentsUntestedMarkerOmitted(t *testing.T) {
	cfg := DefaultMatcherConfig()
	treatments := []model.Treatment{
		{GenericName: "alectinib", BiomarkerRequirements: map[string][]string{"ALK": {"positive"}}},
	}

	matches := MatchTreatments(cfg, egfrPatient(), treatments)
	assert.Empty(t, matches)
}

func TestMatchTreatmentsOrdering(t *testing.T) {
	cfg := DefaultMatcherConfig()
	treatments := []model.Treatment{
		{GenericName: "carboplatin", DrugClass: "chemotherapy"},
		{GenericName: "osimertinib", BiomarkerRequirements: map[string][]string{"EGFR": {"L858R"}}},
	}

	matches := MatchTreatments(cfg, egfrPatient(), treatments)

	require.Len(t, matches, 2)
	assert.Equal(t, "osimertinib", matches[0].GenericName)
	assert.Equal(t, "carboplatin", matches[1].GenericName)
}

func TestMatchTreatmentsApprovalRecencyTieBreak(t *testing.T) {
	cfg := DefaultMatcherConfig()
	older := time.Date(2013, 7, 12, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2015, 11, 13, 0, 0, 0, 0, time.UTC)

	requirement := map[string][]string{"EGFR": {"L858R"}}
	treatments := []model.Treatment{
		{GenericName: "afatinib", FDAApprovalDate: &older, BiomarkerRequirements: requirement},
		{GenericName: "erlotinib", BiomarkerRequirements: requirement},
		{GenericName: "osimertinib", FDAApprovalDate: &newer, BiomarkerRequirements: requirement},
	}

	matches := MatchTreatments(cfg, egfrPatient(), treatments)

	require.Len(t, matches, 3)
	// Equal scores: newest approval first, undated last.
	assert.Equal(t, "osimertinib", matches[0].GenericName)
	assert.Equal(t, "afatinib", matches[1].GenericName)
	assert.Equal(t, "erlotinib", matches[2].GenericName)
}
