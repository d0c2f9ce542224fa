package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trialscout/trialscout/internal/model"
)

func TestMemoryStore_TrialRoundTrip(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	require.NoError(t, s.UpsertTrial(ctx, &model.Trial{NCTID: "NCT00000002", Title: "second"}))
	require.NoError(t, s.UpsertTrial(ctx, &model.Trial{NCTID: "NCT00000001", Title: "first"}))

	trials, err := s.ListTrials(ctx)
	require.NoError(t, err)
	require.Len(t, trials, 2)
	assert.Equal(t, "NCT00000001", trials[0].NCTID)

	trial, err := s.GetTrial(ctx, "nct00000002")
	require.NoError(t, err)
	require.NotNil(t, trial)
	assert.Equal(t, "second", trial.Title)

	missing, err := s.GetTrial(ctx, "NCT99999999")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemoryStore_EligibilityBackfill(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	require.NoError(t, s.UpsertTrial(ctx, &model.Trial{
		NCTID:               "NCT00000001",
		EligibilityCriteria: "Inclusion: measurable disease",
	}))
	require.NoError(t, s.UpsertTrial(ctx, &model.Trial{NCTID: "NCT00000002"}))

	missing, err := s.ListTrialsMissingEligibility(ctx, "1.0.0", 10)
	require.NoError(t, err)
	require.Len(t, missing, 1, "trials without criteria text are skipped")
	assert.Equal(t, "NCT00000001", missing[0].NCTID)

	maxECOG := 2
	elig := &model.StructuredEligibility{ECOG: model.ECOGRange{Max: &maxECOG}}
	require.NoError(t, s.UpdateTrialEligibility(ctx, "NCT00000001", elig, "1.0.0"))

	missing, err = s.ListTrialsMissingEligibility(ctx, "1.0.0", 10)
	require.NoError(t, err)
	assert.Empty(t, missing)

	trial, err := s.GetTrial(ctx, "NCT00000001")
	require.NoError(t, err)
	require.NotNil(t, trial.Eligibility)
	assert.Equal(t, "1.0.0", trial.EligibilityVersion)
	assert.NotNil(t, trial.EligibilityAt)

	err = s.UpdateTrialEligibility(ctx, "NCT404", elig, "1.0.0")
	require.Error(t, err)
}

func TestMemoryStore_Treatments(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	require.NoError(t, s.UpsertTreatment(ctx, &model.Treatment{GenericName: "pembrolizumab"}))
	require.NoError(t, s.UpsertTreatment(ctx, &model.Treatment{GenericName: "osimertinib"}))
	require.NoError(t, s.UpsertTreatment(ctx, &model.Treatment{GenericName: "Osimertinib", DrugClass: "EGFR TKI"}))

	treatments, err := s.ListTreatments(ctx)
	require.NoError(t, err)
	require.Len(t, treatments, 2, "upsert replaces by generic name case-insensitively")
	assert.Equal(t, "EGFR TKI", treatments[0].DrugClass)

	err = s.UpsertTreatment(ctx, &model.Treatment{})
	require.Error(t, err)
}
