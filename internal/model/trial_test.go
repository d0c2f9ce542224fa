package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrialOpen(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{"RECRUITING", true},
		{"Recruiting", true},
		{"recruiting", true},
		{"ACTIVE_NOT_RECRUITING", true},
		{"Enrolling_By_Invitation", true},
		{"COMPLETED", false},
		{"TERMINATED", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			trial := Trial{Status: tt.status}
			assert.Equal(t, tt.want, trial.Open())
		})
	}
}

func TestTrialRecruitingStates(t *testing.T) {
	trial := Trial{Locations: []TrialSite{
		{State: "California"},
		{State: "Texas"},
		{State: "California"},
		{City: "Boston"}, // no state
	}}
	assert.Equal(t, []string{"California", "Texas"}, trial.RecruitingStates())

	empty := Trial{}
	assert.Empty(t, empty.RecruitingStates())
}

func TestStructuredEligibilityConstraintCount(t *testing.T) {
	var e StructuredEligibility
	assert.Equal(t, 0, e.ConstraintCount())

	min := 18
	e.Age.Min = &min
	assert.Equal(t, 1, e.ConstraintCount())

	two := 2
	e.ECOG.Max = &two
	e.DiseaseStage.Allowed = []string{"IV"}
	e.Biomarkers.RequiredPositive = map[string][]string{"EGFR": {"L858R"}}
	e.Biomarkers.RequiredNegative = []string{"ALK"}
	e.PriorTreatments.TreatmentNaiveRequired = true
	e.BrainMetastases = &BrainMetastasesRule{Allowed: true}
	assert.Equal(t, 7, e.ConstraintCount())

	tps := 50.0
	e.Biomarkers.PDL1 = &PDL1Requirement{MinTPS: &tps}
	assert.Equal(t, 8, e.ConstraintCount())
}
