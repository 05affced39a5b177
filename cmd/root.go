package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hoopsight/hoopsync/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "hoopsync",
	Short: "NBA game data ingestion pipeline",
	Long:  "Ingests NBA schedules, play-by-play, box scores, betting odds and injury reports into a local store, tracks per-game finalization, and validates the result.",
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
