package competitor

import (
	"sort"

	"github.com/trialscout/trialscout/internal/model"
)

// topCounts caps each insight frequency table.
const topCounts = 10

// BuildInsights aggregates the scored competitor set in a single pass:
// sponsor and state frequency tables, a phase histogram, common biomarkers,
// and the mean similarity score.
func BuildInsights(competitors []model.CompetitorMatch) model.MarketInsights {
	insights := model.MarketInsights{
		TopSponsors:        []model.SponsorCount{},
		GeographicHotspots: []model.StateCount{},
		PhaseDistribution:  map[string]int{},
		CommonBiomarkers:   []model.BiomarkerCount{},
	}
	if len(competitors) == 0 {
		return insights
	}

	sponsors := map[string]int{}
	states := map[string]int{}
	biomarkers := map[string]int{}
	var scoreSum float64

	for _, c := range competitors {
		if c.Sponsor != "" {
			sponsors[c.Sponsor]++
		}
		for _, state := range c.RecruitingStates {
			states[state]++
		}
		if c.Phase != "" {
			insights.PhaseDistribution[c.Phase]++
		}
		for _, b := range c.OverlappingBiomarkers {
			biomarkers[b]++
		}
		scoreSum += c.SimilarityScore
	}

	for _, e := range topEntries(sponsors) {
		insights.TopSponsors = append(insights.TopSponsors, model.SponsorCount{Name: e.key, Count: e.count})
	}
	for _, e := range topEntries(states) {
		insights.GeographicHotspots = append(insights.GeographicHotspots, model.StateCount{State: e.key, Count: e.count})
	}
	for _, e := range topEntries(biomarkers) {
		insights.CommonBiomarkers = append(insights.CommonBiomarkers, model.BiomarkerCount{Biomarker: e.key, Count: e.count})
	}

	insights.TotalCompetingTrials = len(competitors)
	insights.AvgSimilarityScore = scoreSum / float64(len(competitors))

	return insights
}

type countEntry struct {
	key   string
	count int
}

// topEntries returns counts descending, keys ascending on ties, capped.
func topEntries(counts map[string]int) []countEntry {
	entries := make([]countEntry, 0, len(counts))
	for k, c := range counts {
		entries = append(entries, countEntry{key: k, count: c})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].key < entries[j].key
	})
	if len(entries) > topCounts {
		entries = entries[:topCounts]
	}
	return entries
}
