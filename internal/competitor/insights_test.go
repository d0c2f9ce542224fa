package competitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trialscout/trialscout/internal/model"
)

func TestBuildInsightsEmpty(t *testing.T) {
	insights := BuildInsights(nil)

	assert.Zero(t, insights.TotalCompetingTrials)
	assert.Zero(t, insights.AvgSimilarityScore)
	assert.Empty(t, insights.TopSponsors)
	assert.Empty(t, insights.GeographicHotspots)
	assert.Empty(t, insights.CommonBiomarkers)
	assert.Empty(t, insights.PhaseDistribution)
}

func TestBuildInsights(t *testing.T) {
	competitors := []model.CompetitorMatch{
		{
			NCTID: "NCT001", Sponsor: "Oncora", Phase: "Phase 2",
			SimilarityScore:       0.8,
			OverlappingBiomarkers: []string{"EGFR"},
			Locations:             []model.TrialSite{{State: "CA"}, {State: "CA"}, {State: "NY"}},
		},
		{
			NCTID: "NCT002", Sponsor: "Oncora", Phase: "Phase 2",
			SimilarityScore:       0.4,
			OverlappingBiomarkers: []string{"EGFR", "ALK"},
			Locations:             []model.TrialSite{{State: "CA"}},
		},
		{
			NCTID: "NCT003", Sponsor: "BioVant", Phase: "Phase 3",
			SimilarityScore: 0.3,
		},
	}

	insights := BuildInsights(competitors)

	assert.Equal(t, 3, insights.TotalCompetingTrials)
	assert.InDelta(t, 0.5, insights.AvgSimilarityScore, 1e-9)

	require.Len(t, insights.TopSponsors, 2)
	assert.Equal(t, model.SponsorCount{Name: "Oncora", Count: 2}, insights.TopSponsors[0])

	require.NotEmpty(t, insights.GeographicHotspots)
	assert.Equal(t, model.StateCount{State: "CA", Count: 3}, insights.GeographicHotspots[0])

	assert.Equal(t, map[string]int{"Phase 2": 2, "Phase 3": 1}, insights.PhaseDistribution)

	require.Len(t, insights.CommonBiomarkers, 2)
	assert.Equal(t, model.BiomarkerCount{Biomarker: "EGFR", Count: 2}, insights.CommonBiomarkers[0])
}

func TestTopEntriesCapAndTies(t *testing.T) {
	counts := map[string]int{}
	for i := 0; i < 15; i++ {
		counts[string(rune('a'+i))] = 1
	}
	entries := topEntries(counts)
	require.Len(t, entries, topCounts)
	// Ties resolve alphabetically.
	assert.Equal(t, "a", entries[0].key)
	assert.Equal(t, "j", entries[9].key)
}
