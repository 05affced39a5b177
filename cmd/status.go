package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/hoopsight/hoopsync/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show finalization progress and recent sync runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		season, _ := cmd.Flags().GetString("season")

		evidence, err := st.ListGameEvidence(ctx, season)
		if err != nil {
			return eris.Wrap(err, "status: list games")
		}
		printSeasonStatus(evidence)

		entries, err := st.ListSyncLog(ctx, 10)
		if err != nil {
			return eris.Wrap(err, "status: sync log")
		}
		printSyncLog(entries)
		return nil
	},
}

func init() {
	statusCmd.Flags().String("season", "", "restrict to one season")
	rootCmd.AddCommand(statusCmd)
}

type seasonStatus struct {
	games int
	core  int
	box   int
	pred  int
}

func printSeasonStatus(evidence []store.GameEvidence) {
	bySeason := make(map[string]*seasonStatus)
	for _, ev := range evidence {
		s := bySeason[ev.Season]
		if s == nil {
			s = &seasonStatus{}
			bySeason[ev.Season] = s
		}
		s.games++
		if ev.CoreDataFinalized {
			s.core++
		}
		if ev.BoxDataFinalized {
			s.box++
		}
		if ev.PredDataFinalized {
			s.pred++
		}
	}

	seasons := make([]string, 0, len(bySeason))
	for season := range bySeason {
		seasons = append(seasons, season)
	}
	sort.Strings(seasons)

	if len(seasons) == 0 {
		fmt.Println("no games in store")
		return
	}

	fmt.Printf("%-10s %7s %7s %7s %7s\n", "season", "games", "core", "box", "pred")
	for _, season := range seasons {
		s := bySeason[season]
		fmt.Printf("%-10s %7d %7d %7d %7d\n", season, s.games, s.core, s.box, s.pred)
	}
}

func printSyncLog(entries []store.SyncEntry) {
	if len(entries) == 0 {
		return
	}
	fmt.Println("\nrecent syncs:")
	for _, e := range entries {
		line := fmt.Sprintf("  %s %-12s %-8s rows=%d",
			e.StartedAt.Format(time.RFC3339), e.Stage, e.Status, e.Rows)
		if e.Error != "" {
			line += " error=" + e.Error
		}
		fmt.Println(line)
	}
}
