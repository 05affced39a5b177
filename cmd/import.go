package main

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hoopsight/hoopsync/internal/model"
)

var importFilePath string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Backfill the schedule from a CSV export",
	Long: `Backfill games from a CSV file with the header:

  game_id,season,season_type,game_date,home_team,away_team,status

game_date is YYYY-MM-DD; status is scheduled, in_progress or final.
Rows upsert by game id, so re-importing the same file is harmless.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "import: migrate")
		}

		games, err := readScheduleCSV(importFilePath)
		if err != nil {
			return err
		}

		n, err := st.UpsertGames(ctx, games)
		if err != nil {
			return eris.Wrap(err, "import: upsert games")
		}

		zap.L().Info("import complete",
			zap.Int64("games", n),
			zap.String("file", importFilePath),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importFilePath, "file", "", "path to schedule CSV (required)")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}

var csvColumns = []string{"game_id", "season", "season_type", "game_date", "home_team", "away_team", "status"}

func readScheduleCSV(path string) ([]model.Game, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "import: open csv")
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, eris.Wrap(err, "import: read header")
	}
	if len(header) != len(csvColumns) {
		return nil, eris.Errorf("import: expected %d columns, got %d", len(csvColumns), len(header))
	}
	for i, want := range csvColumns {
		if header[i] != want {
			return nil, eris.Errorf("import: column %d is %q, expected %q", i, header[i], want)
		}
	}

	var games []model.Game
	for line := 2; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "import: line %d", line)
		}

		g, err := gameFromRecord(record)
		if err != nil {
			return nil, eris.Wrapf(err, "import: line %d", line)
		}
		games = append(games, g)
	}

	if len(games) == 0 {
		return nil, eris.New("import: no rows in csv")
	}
	return games, nil
}

func gameFromRecord(record []string) (model.Game, error) {
	season := record[1]
	if err := model.ValidateSeason(season); err != nil {
		return model.Game{}, err
	}

	date, err := time.Parse("2006-01-02", record[3])
	if err != nil {
		return model.Game{}, eris.Wrap(err, "parse game_date")
	}

	status, err := parseStatus(record[6])
	if err != nil {
		return model.Game{}, err
	}

	return model.Game{
		ID:         record[0],
		Season:     season,
		SeasonType: model.SeasonType(record[2]),
		DateTime:   date,
		HomeTeam:   record[4],
		AwayTeam:   record[5],
		Status:     status,
	}, nil
}

func parseStatus(s string) (model.GameStatus, error) {
	switch s {
	case "scheduled":
		return model.StatusScheduled, nil
	case "in_progress":
		return model.StatusInProgress, nil
	case "final":
		return model.StatusFinal, nil
	}
	// Raw status codes from the schedule feed are accepted too.
	if n, err := strconv.Atoi(s); err == nil && n >= 1 && n <= 3 {
		return model.GameStatus(n), nil
	}
	return 0, eris.Errorf("unknown status %q", s)
}
