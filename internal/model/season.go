package model

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

var seasonRe = regexp.MustCompile(`^(\d{4})-(\d{4})$`)

// ValidateSeason checks the "YYYY-YYYY" season format and that the second
// year follows the first.
func ValidateSeason(season string) error {
	m := seasonRe.FindStringSubmatch(season)
	if m == nil {
		return eris.Errorf("model: invalid season format %q (want e.g. 2023-2024)", season)
	}
	first, _ := strconv.Atoi(m[1])
	second, _ := strconv.Atoi(m[2])
	if second != first+1 {
		return eris.Errorf("model: invalid season %q: years must be consecutive", season)
	}
	return nil
}

// SeasonStartYear returns the first calendar year of a season string.
// The season must already be validated.
func SeasonStartYear(season string) int {
	y, _ := strconv.Atoi(season[:4])
	return y
}

// CurrentSeason returns the season in effect at the given time. A new
// season begins in October; before that the previous season is current.
func CurrentSeason(now time.Time) string {
	y := now.Year()
	if now.Month() < time.October {
		y--
	}
	return fmt.Sprintf("%d-%d", y, y+1)
}

// SeasonWindow returns the earliest and latest plausible game dates for a
// season, used by the temporal sanity checks. Preseason starts in
// September; the finals never run past July.
func SeasonWindow(season string) (time.Time, time.Time) {
	y := SeasonStartYear(season)
	start := time.Date(y, time.September, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(y+1, time.July, 31, 23, 59, 59, 0, time.UTC)
	return start, end
}

// Regular seasons that did not run the full 1230-game slate.
var shortenedSeasons = map[string]int{
	"2011-2012": 990,  // lockout
	"2019-2020": 1059, // COVID stoppage
	"2020-2021": 1080, // 72-game schedule
}

// ExpectedGameCount returns the expected number of regular-season games for
// a season, accounting for known shortened seasons.
func ExpectedGameCount(season string) int {
	if n, ok := shortenedSeasons[season]; ok {
		return n
	}
	return 1230
}
