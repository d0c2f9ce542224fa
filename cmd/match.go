package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/trialscout/trialscout/internal/model"
)

var (
	matchProfilePath string
	matchParseOnly   bool
	matchState       string
)

var matchCmd = &cobra.Command{
	Use:   "match [description]",
	Short: "Match a patient against treatments and open trials",
	Long:  "Matches a free-text clinical description, or a structured profile JSON file via --profile, against the corpus. Results print as JSON.",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if matchProfilePath != "" {
			data, err := os.ReadFile(matchProfilePath)
			if err != nil {
				return eris.Wrap(err, "read profile")
			}
			profile := model.NewPatientProfile()
			if err := json.Unmarshal(data, &profile); err != nil {
				return eris.Wrap(err, "parse profile")
			}

			resp, err := env.Engine.MatchStructured(ctx, &profile)
			if err != nil {
				return err
			}
			return printJSON(resp)
		}

		description := strings.Join(args, " ")
		if description == "" {
			return eris.New("a description argument or --profile is required")
		}
		if err := requireExtraction(env); err != nil {
			return err
		}

		if matchParseOnly {
			parsed, err := env.Engine.ParsePatient(ctx, description)
			if err != nil {
				return err
			}
			return printJSON(parsed)
		}

		var location *model.PatientLocation
		if matchState != "" {
			location = &model.PatientLocation{State: matchState}
		}
		resp, err := env.Engine.MatchFreeText(ctx, description, location)
		if err != nil {
			return err
		}
		return printJSON(resp)
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "encode output")
}

func init() {
	matchCmd.Flags().StringVar(&matchProfilePath, "profile", "", "path to a structured patient profile JSON file")
	matchCmd.Flags().BoolVar(&matchParseOnly, "parse-only", false, "extract and print the profile without matching")
	matchCmd.Flags().StringVar(&matchState, "state", "", "patient state, overrides any location in the description")
	rootCmd.AddCommand(matchCmd)
}
