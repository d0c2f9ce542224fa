package engine

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/trialscout/trialscout/internal/competitor"
	"github.com/trialscout/trialscout/internal/extractor"
	"github.com/trialscout/trialscout/internal/model"
)

// Default age bounds assumed when a reference trial does not state them.
const (
	defaultAgeMin = 18
	defaultAgeMax = 99
)

// AnalyzeCompetitorStructured finds and scores competing trials for an
// already-structured researcher profile.
func (e *Engine) AnalyzeCompetitorStructured(ctx context.Context, profile *model.ResearcherTrialProfile) (*model.CompetitorAnalysisResponse, error) {
	start := time.Now()

	if profile == nil {
		return nil, &model.ValidationError{Field: "profile", Reason: "required"}
	}

	trials, err := e.store.ListTrials(ctx)
	if err != nil {
		return nil, &model.CorpusUnavailableError{Err: err}
	}

	competitors, insights, err := competitor.FindCompetitors(ctx, e.similarityCfg, profile, trials)
	if err != nil {
		return nil, err
	}

	resp := &model.CompetitorAnalysisResponse{
		Profile:          *profile,
		Competitors:      competitors,
		Insights:         insights,
		TotalCompetitors: insights.TotalCompetingTrials,
		ProcessingTimeMS: time.Since(start).Milliseconds(),
	}

	zap.L().Info("engine: competitor analysis complete",
		zap.String("nct_id", profile.NCTID),
		zap.Int("competitors", resp.TotalCompetitors),
		zap.Int64("elapsed_ms", resp.ProcessingTimeMS),
	)
	return resp, nil
}

// AnalyzeCompetitorFreeText extracts a researcher profile from a trial
// description and analyzes against it.
func (e *Engine) AnalyzeCompetitorFreeText(ctx context.Context, description string) (*model.CompetitorAnalysisResponse, error) {
	start := time.Now()

	if err := e.requireUnderstander(); err != nil {
		return nil, err
	}
	parsed, err := extractor.ExtractTrialProfile(ctx, e.understander, description)
	if err != nil {
		return nil, err
	}

	resp, err := e.AnalyzeCompetitorStructured(ctx, &parsed.Profile)
	if err != nil {
		return nil, err
	}
	resp.ProcessingTimeMS = time.Since(start).Milliseconds()
	return resp, nil
}

// AnalyzeCompetitorByReferenceID loads a catalog trial by NCT ID, converts it
// to a researcher profile, and analyzes against it. The reference trial is
// excluded from its own competitor set.
func (e *Engine) AnalyzeCompetitorByReferenceID(ctx context.Context, nctID string) (*model.CompetitorAnalysisResponse, error) {
	nctID = strings.ToUpper(strings.TrimSpace(nctID))
	if nctID == "" {
		return nil, &model.ValidationError{Field: "nct_id", Reason: "required"}
	}

	trial, err := e.store.GetTrial(ctx, nctID)
	if err != nil {
		return nil, &model.CorpusUnavailableError{Err: err}
	}
	if trial == nil {
		return nil, &model.NotFoundError{Kind: "trial", ID: nctID}
	}

	profile := profileFromTrial(trial)
	return e.AnalyzeCompetitorStructured(ctx, &profile)
}

// ParseTrialProfile runs extraction only, for previewing the researcher path.
func (e *Engine) ParseTrialProfile(ctx context.Context, description string) (*model.ParsedTrialProfile, error) {
	if err := e.requireUnderstander(); err != nil {
		return nil, err
	}
	return extractor.ExtractTrialProfile(ctx, e.understander, description)
}

// profileFromTrial derives a researcher profile from a catalog trial. Stated
// criteria carry over; unstated age bounds fall back to the adult defaults.
func profileFromTrial(trial *model.Trial) model.ResearcherTrialProfile {
	profile := model.NewResearcherTrialProfile()
	profile.NCTID = trial.NCTID
	profile.Title = trial.Title
	profile.Phase = trial.Phase
	profile.TargetLocations = trial.RecruitingStates()

	for name, values := range trial.BiomarkerRequirements {
		profile.TargetBiomarkers[name] = append([]string(nil), values...)
	}

	elig := trial.Eligibility
	if elig == nil {
		return profile
	}

	for name, values := range elig.Biomarkers.RequiredPositive {
		if _, ok := profile.TargetBiomarkers[name]; !ok {
			profile.TargetBiomarkers[name] = append([]string(nil), values...)
		}
	}
	profile.TargetStages = append([]string(nil), elig.DiseaseStage.Allowed...)
	profile.TargetHistology = append([]string(nil), elig.Histology.Allowed...)

	ageMin, ageMax := defaultAgeMin, defaultAgeMax
	if elig.Age.Min != nil {
		ageMin = *elig.Age.Min
	}
	if elig.Age.Max != nil {
		ageMax = *elig.Age.Max
	}
	profile.AgeRange = &model.AgeRange{Min: &ageMin, Max: &ageMax}
	profile.ECOGMax = elig.ECOG.Max

	if elig.PriorTreatments.Specified() {
		profile.TreatmentNaiveOnly = model.Known(elig.PriorTreatments.TreatmentNaiveRequired)
		profile.PriorTreatmentsExcluded = append([]string(nil), elig.PriorTreatments.Excluded...)
	}

	return profile
}
