package matcher

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

// maxRankConcurrency bounds the per-request evaluation fan-out.
const maxRankConcurrency = 8

// maxSitesReturned caps the per-trial location list in responses.
const maxSitesReturned = 5

// RankTrials evaluates the patient against every open, NSCLC-relevant trial
// in the corpus and returns the top-scored eligible and uncertain matches.
// Ineligible trials are dropped. Evaluation is pure, so the fan-out is bounded
// only to keep per-request CPU in check.
func RankTrials(ctx context.Context, cfg config.MatcherConfig, patient *model.PatientProfile, trials []model.Trial) ([]model.TrialMatch, int, error) {
	candidates := make([]model.Trial, 0, len(trials))
	for _, t := range trials {
		if !t.Open() || strings.EqualFold(t.Relevance, model.RelevanceUnrelated) {
			continue
		}
		candidates = append(candidates, t)
	}

	results := make([]*model.TrialMatch, len(candidates))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(maxRankConcurrency)
	for i, trial := range candidates {
		g.Go(func() error {
			results[i] = evaluateTrial(cfg, patient, &trial)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	matches := make([]model.TrialMatch, 0, len(results))
	for _, m := range results {
		if m != nil {
			matches = append(matches, *m)
		}
	}

	// Composite score descending; eligible before uncertain on ties; NCT ID
	// ascending as the final tiebreak so identical requests return identical
	// orderings.
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CompositeScore != matches[j].CompositeScore {
			return matches[i].CompositeScore > matches[j].CompositeScore
		}
		si, sj := matches[i].Eligibility.Status, matches[j].Eligibility.Status
		if si != sj {
			return si == model.StatusEligible
		}
		return matches[i].NCTID < matches[j].NCTID
	})

	total := len(matches)
	if len(matches) > cfg.TopN {
		matches = matches[:cfg.TopN]
	}

	zap.L().Debug("trial ranking complete",
		zap.Int("candidates", len(candidates)),
		zap.Int("matches", total),
		zap.Int("returned", len(matches)))

	return matches, total, nil
}

// evaluateTrial runs the rule evaluation and, unless the patient is
// ineligible, builds the scored match. Returns nil for ineligible trials.
func evaluateTrial(cfg config.MatcherConfig, patient *model.PatientProfile, trial *model.Trial) *model.TrialMatch {
	res := eligibility.Evaluate(patient, trial.Eligibility)
	if res.Status == model.StatusIneligible {
		return nil
	}

	var score float64
	for _, c := range eligibility.FieldChecks(patient, trial.Eligibility) {
		if c.Verdict != eligibility.VerdictMatch {
			continue
		}
		switch c.Field {
		case "biomarkers":
			score += cfg.BiomarkerWeight
		case "prior_treatments":
			score += cfg.LineOfTherapyWeight
		case "ecog":
			score += cfg.ECOGWeight
		}
	}

	score += distanceScore(cfg, patient, trial)

	if trial.Recruiting() {
		score += cfg.RecruitingWeight
	}

	return &model.TrialMatch{
		NCTID:                 trial.NCTID,
		Title:                 trial.Title,
		Phase:                 trial.Phase,
		Status:                trial.Status,
		Sponsor:               trial.Sponsor,
		BriefSummary:          trial.BriefSummary,
		BiomarkerRequirements: trial.BiomarkerRequirements,
		Eligibility:           res,
		CompositeScore:        score,
		Locations:             nearbySites(patient, trial),
		StudyURL:              trial.StudyURL,
	}
}

// distanceScore awards proximity points from the nearest site, falling back
// to a same-state check when coordinates are missing on either side.
func distanceScore(cfg config.MatcherConfig, patient *model.PatientProfile, trial *model.Trial) float64 {
	if patient.Location == nil {
		return 0
	}

	if miles, ok := nearestSiteMiles(patient.Location, trial.Locations); ok {
		if max, known := patient.TravelDistanceMiles.Get(); known && miles > max {
			return 0
		}
		switch {
		case miles < cfg.NearMiles:
			return cfg.DistanceNearWeight
		case miles < cfg.FarMiles:
			return cfg.DistanceFarWeight
		}
		return 0
	}

	if sameState(patient.Location, trial.Locations) {
		return cfg.DistanceFarWeight
	}
	return 0
}

// nearbySites orders the trial's sites by distance to the patient when
// coordinates allow, preferring same-state sites otherwise, and caps the list.
func nearbySites(patient *model.PatientProfile, trial *model.Trial) []model.TrialSite {
	sites := trial.Locations
	if len(sites) == 0 {
		return nil
	}

	if patient.Location != nil && patient.Location.Coord != nil {
		sorted := make([]model.TrialSite, len(sites))
		copy(sorted, sites)
		sort.SliceStable(sorted, func(i, j int) bool {
			di, iok := siteMiles(patient.Location.Coord, sorted[i])
			dj, jok := siteMiles(patient.Location.Coord, sorted[j])
			if iok != jok {
				return iok
			}
			return di < dj
		})
		sites = sorted
	} else if patient.Location != nil && patient.Location.State != "" {
		var near, far []model.TrialSite
		for _, s := range sites {
			if strings.EqualFold(s.State, patient.Location.State) {
				near = append(near, s)
			} else {
				far = append(far, s)
			}
		}
		sites = append(near, far...)
	}

	if len(sites) > maxSitesReturned {
		sites = sites[:maxSitesReturned]
	}
	return sites
}

func siteMiles(from *model.GeoPoint, s model.TrialSite) (float64, bool) {
	if s.Lat == nil || s.Lng == nil {
		return 0, false
	}
	return haversineMiles(*from, model.GeoPoint{Lat: *s.Lat, Lng: *s.Lng}), true
}
