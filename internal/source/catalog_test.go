package source

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsSeasonParam(t *testing.T) {
	assert.Equal(t, "2023-24", statsSeasonParam("2023-2024"))
	assert.Equal(t, "1999-00", statsSeasonParam("1999-2000"))
	// Malformed input passes through untouched.
	assert.Equal(t, "bogus", statsSeasonParam("bogus"))
}

func TestCatalogRegistersAllKinds(t *testing.T) {
	g := NewCatalog(CatalogOptions{
		LiveBaseURL:   "https://live.test",
		StatsBaseURL:  "https://stats.test",
		ESPNBaseURL:   "https://espn.test",
		CoversBaseURL: "https://covers.test",
		InjuryURL:     "https://injury.test/report.json",
		RatePerSec:    10,
		LiveMaxAge:    48 * time.Hour,
		ESPNEventID: func(ctx context.Context, gameID string) (string, error) {
			return "", nil
		},
	})

	for _, kind := range []Kind{KindSchedule, KindRoster, KindPlayByPlay, KindBoxScore, KindOdds, KindInjury} {
		assert.NotEmpty(t, g.sources[kind], "kind %s", kind)
	}
	// Odds has espn then covers.
	require.Len(t, g.sources[KindOdds], 2)
	assert.Equal(t, "espn-odds", g.sources[KindOdds][0].Provider.Name())
	assert.Equal(t, "covers-odds", g.sources[KindOdds][1].Provider.Name())
	// Live play-by-play carries the validity window; the stats fallback
	// does not.
	require.Len(t, g.sources[KindPlayByPlay], 2)
	assert.Equal(t, 48*time.Hour, g.sources[KindPlayByPlay][0].Window.MaxAge)
	assert.Zero(t, g.sources[KindPlayByPlay][1].Window.MaxAge)
}

func TestCatalogWithoutEventResolver(t *testing.T) {
	g := NewCatalog(CatalogOptions{CoversBaseURL: "https://covers.test"})
	require.Len(t, g.sources[KindOdds], 1)
	assert.Equal(t, "covers-odds", g.sources[KindOdds][0].Provider.Name())
}

func TestESPNOddsProviderUnmappedGame(t *testing.T) {
	p := &espnOddsProvider{
		resolve: func(ctx context.Context, gameID string) (string, error) {
			return "", nil
		},
		http: NewHTTPProvider(HTTPProviderOptions{Name: "espn-odds", URLFor: func(ref EntityRef) string {
			return "https://espn.test/summary?event=" + ref.GameID
		}}),
	}

	_, err := p.Fetch(context.Background(), EntityRef{GameID: "0022300001"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no event mapping")
}
