package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/trialscout/trialscout/internal/model"
)

var (
	loadTreatmentsPath string
	loadTrialsPath     string
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load treatment and trial corpus files into the store",
	Long:  "Reads JSON array files of treatments and trials and upserts them into the configured store. Re-running with updated files refreshes existing rows.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if loadTreatmentsPath == "" && loadTrialsPath == "" {
			return eris.New("--treatments and/or --trials is required")
		}

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if loadTreatmentsPath != "" {
			var treatments []model.Treatment
			if err := readJSONFile(loadTreatmentsPath, &treatments); err != nil {
				return err
			}
			for i := range treatments {
				if err := env.Store.UpsertTreatment(ctx, &treatments[i]); err != nil {
					return err
				}
			}
			zap.L().Info("treatments loaded",
				zap.Int("count", len(treatments)),
				zap.String("path", loadTreatmentsPath),
			)
		}

		if loadTrialsPath != "" {
			var trials []model.Trial
			if err := readJSONFile(loadTrialsPath, &trials); err != nil {
				return err
			}
			for i := range trials {
				if err := env.Store.UpsertTrial(ctx, &trials[i]); err != nil {
					return err
				}
			}
			zap.L().Info("trials loaded",
				zap.Int("count", len(trials)),
				zap.String("path", loadTrialsPath),
			)
		}

		return nil
	},
}

func readJSONFile(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "read %s", path)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return eris.Wrapf(err, "parse %s", path)
	}
	return nil
}

func init() {
	loadCmd.Flags().StringVar(&loadTreatmentsPath, "treatments", "", "path to a treatments JSON array file")
	loadCmd.Flags().StringVar(&loadTrialsPath, "trials", "", "path to a trials JSON array file")
	rootCmd.AddCommand(loadCmd)
}
