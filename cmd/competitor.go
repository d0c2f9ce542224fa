package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/trialscout/trialscout/internal/model"
	"github.com/trialscout/trialscout/internal/report"
)

var (
	competitorNCTID       string
	competitorProfilePath string
	competitorXLSXPath    string
)

var competitorCmd = &cobra.Command{
	Use:   "competitor [description]",
	Short: "Analyze competing trials for a planned or running study",
	Long:  "Scores catalog trials for similarity against a reference: a free-text description, a structured profile JSON file via --profile, or an existing trial via --nct.",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		var resp *model.CompetitorAnalysisResponse
		switch {
		case competitorNCTID != "":
			resp, err = env.Engine.AnalyzeCompetitorByReferenceID(ctx, competitorNCTID)
		case competitorProfilePath != "":
			data, readErr := os.ReadFile(competitorProfilePath)
			if readErr != nil {
				return eris.Wrap(readErr, "read profile")
			}
			profile := model.NewResearcherTrialProfile()
			if err := json.Unmarshal(data, &profile); err != nil {
				return eris.Wrap(err, "parse profile")
			}
			resp, err = env.Engine.AnalyzeCompetitorStructured(ctx, &profile)
		default:
			description := strings.Join(args, " ")
			if description == "" {
				return eris.New("a description argument, --profile, or --nct is required")
			}
			if err := requireExtraction(env); err != nil {
				return err
			}
			resp, err = env.Engine.AnalyzeCompetitorFreeText(ctx, description)
		}
		if err != nil {
			return err
		}

		if competitorXLSXPath != "" {
			if err := report.WriteCompetitorXLSX(competitorXLSXPath, resp); err != nil {
				return err
			}
			zap.L().Info("workbook written",
				zap.String("path", competitorXLSXPath),
				zap.Int("competitors", len(resp.Competitors)),
			)
			return nil
		}

		return printJSON(resp)
	},
}

func init() {
	competitorCmd.Flags().StringVar(&competitorNCTID, "nct", "", "NCT ID of an existing catalog trial to use as the reference")
	competitorCmd.Flags().StringVar(&competitorProfilePath, "profile", "", "path to a structured researcher profile JSON file")
	competitorCmd.Flags().StringVar(&competitorXLSXPath, "xlsx", "", "write results to an xlsx workbook instead of stdout")
	rootCmd.AddCommand(competitorCmd)
}
