// Package engine orchestrates the matching flows: it loads the corpus from
// the store, runs extraction when the input is free text, and delegates
// scoring to the matcher and competitor packages.
package engine

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/trialscout/trialscout/internal/config"
	"github.com/trialscout/trialscout/internal/extractor"
	"github.com/trialscout/trialscout/internal/model"
	"github.com/trialscout/trialscout/internal/store"
)

// Engine answers match and competitor analysis requests. It is stateless
// between requests; the store is the only shared resource.
type Engine struct {
	store         store.Store
	understander  extractor.Understander
	matcherCfg    config.MatcherConfig
	similarityCfg config.SimilarityConfig
}

// New creates an Engine with all dependencies. The understander may be nil
// when no extraction key is configured; free-text paths then fail with
// ExtractionUnavailableError while structured paths keep working.
func New(st store.Store, u extractor.Understander, matcherCfg config.MatcherConfig, similarityCfg config.SimilarityConfig) *Engine {
	return &Engine{
		store:         st,
		understander:  u,
		matcherCfg:    matcherCfg,
		similarityCfg: similarityCfg,
	}
}

func (e *Engine) requireUnderstander() error {
	if e.understander == nil {
		return &model.ExtractionUnavailableError{Err: errNoUnderstander}
	}
	return nil
}

var errNoUnderstander = eris.New("engine: no extraction backend configured")

func validateCancerType(cancerType string) error {
	if cancerType == "" || strings.EqualFold(cancerType, model.CancerTypeNSCLC) {
		return nil
	}
	return &model.ValidationError{Field: "cancer_type", Reason: "only NSCLC is supported"}
}
