package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/trialscout/trialscout/internal/competitor"
	"github.com/trialscout/trialscout/internal/engine"
	"github.com/trialscout/trialscout/internal/extractor"
	"github.com/trialscout/trialscout/internal/matcher"
	"github.com/trialscout/trialscout/internal/store"
	anthropicpkg "github.com/trialscout/trialscout/pkg/anthropic"
)

// engineEnv holds the initialized store, extraction backend, and engine
// shared by the serve/match/competitor/extract commands.
type engineEnv struct {
	Store        store.Store
	Understander extractor.Understander
	Engine       *engine.Engine
}

// Close releases resources held by the environment.
func (e *engineEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEngine sets up the store and extraction backend and builds the Engine.
// Callers should defer env.Close().
func initEngine(ctx context.Context) (*engineEnv, error) {
	if err := matcher.ValidateConfig(cfg.Matcher); err != nil {
		return nil, err
	}
	if err := competitor.ValidateConfig(cfg.Similarity); err != nil {
		return nil, err
	}

	storeCfg := cfg.Store
	if storeCfg.Driver == "sqlite" && storeCfg.DatabaseURL == "" {
		storeCfg.DatabaseURL = "trialscout.db"
	}
	st, err := store.Open(ctx, storeCfg)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}

	var understander extractor.Understander
	if cfg.Anthropic.Key != "" {
		client := anthropicpkg.NewClient(cfg.Anthropic.Key)
		understander = extractor.NewClaudeUnderstander(client, cfg.Anthropic)
	} else {
		zap.L().Warn("no anthropic key configured; free-text extraction disabled")
	}

	return &engineEnv{
		Store:        st,
		Understander: understander,
		Engine:       engine.New(st, understander, cfg.Matcher, cfg.Similarity),
	}, nil
}

func requireExtraction(env *engineEnv) error {
	if env.Understander == nil {
		return eris.New("anthropic key is required (TRIALSCOUT_ANTHROPIC_KEY)")
	}
	return nil
}
