package competitor

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/trialscout/trialscout/internal/config"
	"github.com/trialscout/trialscout/internal/eligibility"
	"github.com/trialscout/trialscout/internal/model"
)

// maxScoreConcurrency bounds the per-request scoring fan-out.
const maxScoreConcurrency = 8

// phaseOrdinals orders trial phases for proximity scoring. Combined phases
// sit between their endpoints.
var phaseOrdinals = map[string]float64{
	"Phase 1":         1,
	"Phase 1/Phase 2": 1.5,
	"Phase 2":         2,
	"Phase 2/Phase 3": 2.5,
	"Phase 3":         3,
	"Phase 4":         4,
}

// maxPhaseDistance is the ordinal span between Phase 1 and Phase 4.
const maxPhaseDistance = 3.0

// neutralPhaseScore applies when either side's phase is unspecified or
// unrecognized. Missing phase data should not zero out an otherwise strong
// overlap.
const neutralPhaseScore = 0.5

// maxCompetitorSites caps the per-competitor location list in responses.
const maxCompetitorSites = 5

// FindCompetitors scores every open trial in the corpus against the
// reference profile and returns the competitors above the configured floor,
// plus market insights aggregated over that full scored set.
func FindCompetitors(ctx context.Context, cfg config.SimilarityConfig, profile *model.ResearcherTrialProfile, trials []model.Trial) ([]model.CompetitorMatch, model.MarketInsights, error) {
	candidates := make([]model.Trial, 0, len(trials))
	for _, t := range trials {
		if !t.Open() {
			continue
		}
		// A trial is never its own competitor.
		if profile.NCTID != "" && strings.EqualFold(t.NCTID, profile.NCTID) {
			continue
		}
		candidates = append(candidates, t)
	}

	results := make([]*model.CompetitorMatch, len(candidates))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(maxScoreConcurrency)
	for i, trial := range candidates {
		g.Go(func() error {
			m := ScoreTrial(cfg, profile, &trial)
			if m.SimilarityScore > cfg.MinScore {
				results[i] = &m
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, model.MarketInsights{}, err
	}

	scored := make([]model.CompetitorMatch, 0, len(results))
	completion := make(map[string]int64, len(results))
	for i, m := range results {
		if m == nil {
			continue
		}
		scored = append(scored, *m)
		if d := candidates[i].PrimaryCompletionDate; d != nil {
			completion[m.NCTID] = d.Unix()
		}
	}

	// Similarity descending; ties broken by trial recency (later primary
	// completion first, undated last), then NCT ID for determinism.
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].SimilarityScore != scored[j].SimilarityScore {
			return scored[i].SimilarityScore > scored[j].SimilarityScore
		}
		ci, iok := completion[scored[i].NCTID]
		cj, jok := completion[scored[j].NCTID]
		if iok != jok {
			return iok
		}
		if iok && ci != cj {
			return ci > cj
		}
		return scored[i].NCTID < scored[j].NCTID
	})

	insights := BuildInsights(scored)

	top := scored
	if len(top) > cfg.MaxResults {
		top = top[:cfg.MaxResults]
	}

	zap.L().Debug("competitor analysis complete",
		zap.Int("candidates", len(candidates)),
		zap.Int("scored", len(scored)),
		zap.Int("returned", len(top)))

	return top, insights, nil
}

// ScoreTrial computes the similarity breakdown of one candidate trial against
// the reference profile.
func ScoreTrial(cfg config.SimilarityConfig, profile *model.ResearcherTrialProfile, trial *model.Trial) model.CompetitorMatch {
	bioScore, bioOverlap := biomarkerSimilarity(profile.TargetBiomarkers, trialBiomarkers(trial))

	trialStages := trialAllowedStages(trial)
	stageScore, stageOverlap := jaccardFold(profile.TargetStages, trialStages)

	trialStates := trial.RecruitingStates()
	geoScore, geoOverlap := jaccardFold(profile.TargetLocations, trialStates)

	phaseScore := phaseProximity(profile.Phase, trial.Phase)

	overall := bioScore*cfg.BiomarkerWeight +
		stageScore*cfg.StageWeight +
		geoScore*cfg.GeographicWeight +
		phaseScore*cfg.PhaseWeight

	locations := trial.Locations
	if len(locations) > maxCompetitorSites {
		locations = locations[:maxCompetitorSites]
	}

	return model.CompetitorMatch{
		NCTID:        trial.NCTID,
		Title:        trial.Title,
		Phase:        trial.Phase,
		Status:       trial.Status,
		Sponsor:      trial.Sponsor,
		BriefSummary: trial.BriefSummary,

		SimilarityScore:   overall,
		BiomarkerOverlap:  bioScore,
		StageOverlap:      stageScore,
		GeographicOverlap: geoScore,
		PhaseProximity:    phaseScore,

		OverlappingBiomarkers: bioOverlap,
		OverlappingStages:     stageOverlap,
		OverlappingLocations:  geoOverlap,

		Locations:        locations,
		RecruitingStates: trialStates,
		StudyURL:         trial.StudyURL,
	}
}

// trialBiomarkers merges the trial's ingestion-time biomarker summary with
// its structured extraction, keyed by marker name.
func trialBiomarkers(trial *model.Trial) map[string][]string {
	merged := make(map[string][]string, len(trial.BiomarkerRequirements))
	for name, values := range trial.BiomarkerRequirements {
		merged[name] = values
	}
	if trial.Eligibility != nil {
		for name, values := range trial.Eligibility.Biomarkers.RequiredPositive {
			if existing, ok := merged[name]; ok {
				merged[name] = append(existing, values...)
			} else {
				merged[name] = values
			}
		}
	}
	return merged
}

func trialAllowedStages(trial *model.Trial) []string {
	if trial.Eligibility == nil {
		return nil
	}
	return trial.Eligibility.DiseaseStage.Allowed
}

// biomarkerSimilarity is a Jaccard over marker names, refined per shared
// name: when both sides name specific alterations, the name's credit is the
// value-level Jaccard; a generic positive on either side grants full credit
// for that name.
func biomarkerSimilarity(a, b map[string][]string) (float64, []string) {
	if len(a) == 0 && len(b) == 0 {
		return 0, nil
	}

	union := make(map[string]bool, len(a)+len(b))
	lowerB := make(map[string][]string, len(b))
	for name := range a {
		union[strings.ToLower(name)] = true
	}
	for name, values := range b {
		union[strings.ToLower(name)] = true
		lowerB[strings.ToLower(name)] = values
	}

	var credit float64
	var overlapping []string
	for name, valuesA := range a {
		valuesB, shared := lowerB[strings.ToLower(name)]
		if !shared {
			continue
		}
		c := nameCredit(valuesA, valuesB)
		credit += c
		if c > 0 {
			overlapping = append(overlapping, name)
		}
	}
	sort.Strings(overlapping)

	return credit / float64(len(union)), overlapping
}

// nameCredit scores one shared marker name in [0,1].
func nameCredit(a, b []string) float64 {
	aSpecific := eligibility.SpecificValues(a)
	bSpecific := eligibility.SpecificValues(b)

	// Either side generic (or value-less): the shared name is a full match.
	if len(aSpecific) == 0 || len(bSpecific) == 0 {
		return 1
	}

	score, _ := jaccardFold(aSpecific, bSpecific)
	return score
}

// jaccardFold is a case-insensitive Jaccard over two string sets. Two empty
// sets score 0, not 1: no stated overlap is no evidence of similarity. The
// overlap is returned as spelled by the first set.
func jaccardFold(a, b []string) (float64, []string) {
	setA := foldSet(a)
	setB := foldSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 0, nil
	}

	union := make(map[string]bool, len(setA)+len(setB))
	for v := range setA {
		union[v] = true
	}
	for v := range setB {
		union[v] = true
	}

	var overlap []string
	seen := make(map[string]bool)
	for _, v := range a {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" || seen[key] {
			continue
		}
		if setB[key] {
			overlap = append(overlap, v)
			seen[key] = true
		}
	}
	sort.Strings(overlap)

	return float64(len(overlap)) / float64(len(union)), overlap
}

func foldSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		key := strings.ToLower(strings.TrimSpace(v))
		if key != "" {
			set[key] = true
		}
	}
	return set
}

// phaseProximity maps phase distance onto [0,1]. Equal phases score 1,
// opposite ends of the ordinal scale score 0, and a missing phase on either
// side is neutral.
func phaseProximity(a, b string) float64 {
	oa, aok := phaseOrdinals[a]
	ob, bok := phaseOrdinals[b]
	if !aok || !bok {
		return neutralPhaseScore
	}
	dist := oa - ob
	if dist < 0 {
		dist = -dist
	}
	score := 1 - dist/maxPhaseDistance
	if score < 0 {
		score = 0
	}
	return score
}
