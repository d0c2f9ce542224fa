package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/trialscout/trialscout/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "trialscout",
	Short: "Eligibility matching and similarity scoring for NSCLC trials",
	Long:  "Matches patient profiles against FDA-approved treatments and open clinical trials, and scores competing trials for researchers.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
