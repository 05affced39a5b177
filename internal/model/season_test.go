package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSeason(t *testing.T) {
	require.NoError(t, ValidateSeason("2023-2024"))
	assert.Error(t, ValidateSeason("2023-24"))
	assert.Error(t, ValidateSeason("2023-2025"))
	assert.Error(t, ValidateSeason("garbage"))
}

func TestCurrentSeason(t *testing.T) {
	// Mid-season: January 2024 belongs to 2023-2024.
	jan := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2023-2024", CurrentSeason(jan))

	// October rolls over to the new season.
	oct := time.Date(2024, time.October, 25, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-2025", CurrentSeason(oct))

	// September still counts as the previous season.
	sep := time.Date(2024, time.September, 30, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2023-2024", CurrentSeason(sep))
}

func TestSeasonWindow(t *testing.T) {
	start, end := SeasonWindow("2023-2024")
	assert.Equal(t, 2023, start.Year())
	assert.Equal(t, time.September, start.Month())
	assert.Equal(t, 2024, end.Year())
	assert.Equal(t, time.July, end.Month())
}

func TestExpectedGameCount(t *testing.T) {
	assert.Equal(t, 1230, ExpectedGameCount("2023-2024"))
	assert.Equal(t, 990, ExpectedGameCount("2011-2012"))
	assert.Equal(t, 1059, ExpectedGameCount("2019-2020"))
	assert.Equal(t, 1080, ExpectedGameCount("2020-2021"))
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "luka doncic", NormalizeName("Luka Dončić"))
	assert.Equal(t, "nikola jokic", NormalizeName("Nikola Jokić"))
	assert.Equal(t, "og anunoby", NormalizeName("O.G. Anunoby"))
	assert.Equal(t, "deaaron fox", NormalizeName("De'Aaron Fox"))
}

func TestGameFlagAccessors(t *testing.T) {
	g := &Game{}
	assert.False(t, g.FlagValue(FlagCoreData))

	g.SetFlagValue(FlagCoreData, true)
	assert.True(t, g.FlagValue(FlagCoreData))
	assert.False(t, g.FlagValue(FlagBoxData))
	assert.False(t, g.FlagValue(FlagPredData))

	g.SetFlagValue(FlagPredData, true)
	assert.True(t, g.FlagValue(FlagPredData))
}
