package main

import (
	"sync/atomic"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/trialscout/trialscout/internal/extractor"
	"github.com/trialscout/trialscout/internal/model"
)

var extractLimit int

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Backfill structured eligibility for trials lacking extraction",
	Long:  "Runs the eligibility extractor over catalog trials whose criteria text has not been extracted at the current version, and writes the results back to the store.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := requireExtraction(env); err != nil {
			return err
		}

		trials, err := env.Store.ListTrialsMissingEligibility(ctx, extractor.ExtractionVersion, extractLimit)
		if err != nil {
			return err
		}
		if len(trials) == 0 {
			zap.L().Info("extraction up to date", zap.String("version", extractor.ExtractionVersion))
			return nil
		}
		zap.L().Info("starting eligibility backfill",
			zap.Int("trials", len(trials)),
			zap.String("version", extractor.ExtractionVersion),
		)

		limiter := rate.NewLimiter(rate.Limit(cfg.Extract.RatePerSec), 1)
		var extracted, failed atomic.Int64

		g, ctx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.Extract.Concurrency)
		for _, trial := range trials {
			trial := trial
			g.Go(func() error {
				if err := limiter.Wait(ctx); err != nil {
					return err
				}

				elig, err := extractor.ExtractEligibility(ctx, env.Understander, trial.Title, trial.EligibilityCriteria)
				if err != nil {
					// An unreachable backend would fail every remaining
					// trial, so that stops the run.
					if model.IsExtractionUnavailable(err) {
						return err
					}
					failed.Add(1)
					zap.L().Warn("extraction failed",
						zap.String("nct_id", trial.NCTID),
						zap.Error(err),
					)
					return nil
				}

				if err := env.Store.UpdateTrialEligibility(ctx, trial.NCTID, elig, extractor.ExtractionVersion); err != nil {
					failed.Add(1)
					zap.L().Warn("eligibility write failed",
						zap.String("nct_id", trial.NCTID),
						zap.Error(err),
					)
					return nil
				}
				extracted.Add(1)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		zap.L().Info("eligibility backfill complete",
			zap.Int64("extracted", extracted.Load()),
			zap.Int64("failed", failed.Load()),
		)
		return nil
	},
}

func init() {
	extractCmd.Flags().IntVar(&extractLimit, "limit", 0, "maximum trials to process (0 = store default)")
	rootCmd.AddCommand(extractCmd)
}
