package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hoopsight/hoopsync/internal/finalize"
	"github.com/hoopsight/hoopsync/internal/pipeline"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run the staged ingestion pipeline",
	Long: `Run the staged ingestion pipeline.

By default, runs every stage in order: schedule, rosters, playbyplay,
gamestates, boxscores, odds, injuries, handoff.
Use --stages to run a subset (pipeline order is preserved).
Use --force to bypass freshness caches.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("command", "sync"))

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		// Ensure migrations are current.
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "sync: migrate")
		}

		stages, opts := parseSyncFlags(cmd)

		deps := pipeline.Deps{
			Store:   st,
			Gateway: initGateway(st),
			Machine: finalize.NewMachine(st),
		}
		orch := pipeline.NewOrchestrator(deps, pipeline.NewRegistry())

		log.Info("starting sync",
			zap.Strings("stages", stages),
			zap.String("season", opts.Season),
			zap.Bool("force", opts.Force),
			zap.Int("workers", opts.Workers),
		)

		summaries, err := orch.Run(ctx, stages, opts)
		if err != nil {
			return eris.Wrap(err, "sync")
		}

		printSummaries(summaries)
		return nil
	},
}

func init() {
	syncCmd.Flags().String("stages", "", "comma-separated stage names (default: all)")
	syncCmd.Flags().String("season", "", "season to sync, e.g. 2023-2024 (default: current)")
	syncCmd.Flags().Bool("force", false, "bypass freshness caches")
	syncCmd.Flags().Int("workers", 0, "per-stage worker count (default: config)")
	rootCmd.AddCommand(syncCmd)
}

func parseSyncFlags(cmd *cobra.Command) ([]string, pipeline.Options) {
	stagesStr, _ := cmd.Flags().GetString("stages")
	season, _ := cmd.Flags().GetString("season")
	force, _ := cmd.Flags().GetBool("force")
	workers, _ := cmd.Flags().GetInt("workers")

	if workers == 0 {
		workers = cfg.Sync.Workers
	}

	var stages []string
	if stagesStr != "" {
		stages = strings.Split(stagesStr, ",")
		for i := range stages {
			stages[i] = strings.TrimSpace(stages[i])
		}
	}

	return stages, pipeline.Options{
		Season:  season,
		Force:   force,
		Workers: workers,
	}
}

func printSummaries(summaries []*pipeline.Summary) {
	var failures int
	for _, s := range summaries {
		fmt.Printf("%-12s ok=%-4d failed=%-4d skipped=%-4d rows=%-6d %s\n",
			s.Stage, s.Succeeded, s.Failed, s.Skipped, s.Rows, s.Elapsed.Round(10*time.Millisecond))
		for _, f := range s.Failures {
			fmt.Printf("  %s: %v\n", f.GameID, f.Err)
			failures++
		}
	}
	if failures == 0 {
		fmt.Println("Sync complete")
	}
}
