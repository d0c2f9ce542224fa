package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/trialscout/trialscout/internal/extractor"
	"github.com/trialscout/trialscout/internal/matcher"
	"github.com/trialscout/trialscout/internal/model"
)

// MatchStructured ranks treatments and trials for an already-structured
// patient profile.
func (e *Engine) MatchStructured(ctx context.Context, profile *model.PatientProfile) (*model.MatchResponse, error) {
	start := time.Now()

	if profile == nil {
		return nil, &model.ValidationError{Field: "profile", Reason: "required"}
	}
	if err := validateCancerType(profile.CancerType); err != nil {
		return nil, err
	}

	treatments, err := e.store.ListTreatments(ctx)
	if err != nil {
		return nil, &model.CorpusUnavailableError{Err: err}
	}
	trials, err := e.store.ListTrials(ctx)
	if err != nil {
		return nil, &model.CorpusUnavailableError{Err: err}
	}

	treatmentMatches := matcher.MatchTreatments(e.matcherCfg, profile, treatments)
	trialMatches, totalTrials, err := matcher.RankTrials(ctx, e.matcherCfg, profile, trials)
	if err != nil {
		return nil, err
	}

	resp := &model.MatchResponse{
		Profile:          *profile,
		Treatments:       treatmentMatches,
		Trials:           trialMatches,
		TotalTreatments:  len(treatmentMatches),
		TotalTrials:      totalTrials,
		ProcessingTimeMS: time.Since(start).Milliseconds(),
	}

	zap.L().Info("engine: match complete",
		zap.Int("treatments", resp.TotalTreatments),
		zap.Int("trials", resp.TotalTrials),
		zap.Int64("elapsed_ms", resp.ProcessingTimeMS),
	)
	return resp, nil
}

// MatchFreeText extracts a patient profile from a clinical description and
// ranks against it. A non-nil location overrides whatever the extractor
// found in the text. Extraction failures surface as errors; the engine never
// matches against a silently empty profile.
func (e *Engine) MatchFreeText(ctx context.Context, description string, location *model.PatientLocation) (*model.MatchResponse, error) {
	start := time.Now()

	if err := e.requireUnderstander(); err != nil {
		return nil, err
	}
	parsed, err := extractor.ExtractPatient(ctx, e.understander, description)
	if err != nil {
		return nil, err
	}
	if location != nil {
		parsed.Profile.Location = location
	}

	resp, err := e.MatchStructured(ctx, &parsed.Profile)
	if err != nil {
		return nil, err
	}
	resp.ProcessingTimeMS = time.Since(start).Milliseconds()
	return resp, nil
}

// ParsePatient runs extraction only, so callers can preview and correct the
// structured profile before matching.
func (e *Engine) ParsePatient(ctx context.Context, description string) (*model.ParsedPatient, error) {
	if err := e.requireUnderstander(); err != nil {
		return nil, err
	}
	return extractor.ExtractPatient(ctx, e.understander, description)
}
