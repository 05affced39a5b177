package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoopsight/hoopsync/internal/model"
)

func TestImportCmd_Metadata(t *testing.T) {
	assert.Equal(t, "import", importCmd.Use)
	assert.NotEmpty(t, importCmd.Short)

	fileFlag := importCmd.Flags().Lookup("file")
	require.NotNil(t, fileFlag)
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schedule.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadScheduleCSV(t *testing.T) {
	path := writeCSV(t, `game_id,season,season_type,game_date,home_team,away_team,status
0022300001,2023-2024,Regular Season,2023-10-24,DEN,LAL,final
0022300002,2023-2024,Regular Season,2023-10-24,GSW,PHX,scheduled
`)

	games, err := readScheduleCSV(path)
	require.NoError(t, err)
	require.Len(t, games, 2)

	assert.Equal(t, "0022300001", games[0].ID)
	assert.Equal(t, "2023-2024", games[0].Season)
	assert.Equal(t, model.SeasonRegular, games[0].SeasonType)
	assert.Equal(t, "DEN", games[0].HomeTeam)
	assert.Equal(t, "LAL", games[0].AwayTeam)
	assert.Equal(t, model.StatusFinal, games[0].Status)
	assert.Equal(t, "2023-10-24", games[0].DateTime.Format("2006-01-02"))
	assert.Equal(t, model.StatusScheduled, games[1].Status)
}

func TestReadScheduleCSV_NumericStatus(t *testing.T) {
	path := writeCSV(t, `game_id,season,season_type,game_date,home_team,away_team,status
0022300001,2023-2024,Regular Season,2023-10-24,DEN,LAL,3
`)

	games, err := readScheduleCSV(path)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFinal, games[0].Status)
}

func TestReadScheduleCSV_HeaderMismatch(t *testing.T) {
	path := writeCSV(t, `id,season,season_type,game_date,home_team,away_team,status
0022300001,2023-2024,Regular Season,2023-10-24,DEN,LAL,final
`)

	_, err := readScheduleCSV(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `column 0 is "id"`)
}

func TestReadScheduleCSV_BadRows(t *testing.T) {
	cases := map[string]string{
		"bad season": "0022300001,23-24,Regular Season,2023-10-24,DEN,LAL,final",
		"bad date":   "0022300001,2023-2024,Regular Season,Oct 24,DEN,LAL,final",
		"bad status": "0022300001,2023-2024,Regular Season,2023-10-24,DEN,LAL,postponed",
	}
	for name, row := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeCSV(t, "game_id,season,season_type,game_date,home_team,away_team,status\n"+row+"\n")
			_, err := readScheduleCSV(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "line 2")
		})
	}
}

func TestReadScheduleCSV_Empty(t *testing.T) {
	path := writeCSV(t, "game_id,season,season_type,game_date,home_team,away_team,status\n")
	_, err := readScheduleCSV(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no rows")
}

func TestReadScheduleCSV_MissingFile(t *testing.T) {
	_, err := readScheduleCSV("/nonexistent/schedule.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open csv")
}

func TestParseStatus(t *testing.T) {
	_, err := parseStatus("7")
	assert.Error(t, err)

	s, err := parseStatus("in_progress")
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, s)
}
