package source

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/hoopsight/hoopsync/internal/model"
)

// CatalogOptions configures the standard provider set.
type CatalogOptions struct {
	UserAgent     string
	Timeout       time.Duration
	LiveBaseURL   string
	StatsBaseURL  string
	ESPNBaseURL   string
	CoversBaseURL string
	InjuryURL     string

	// RatePerSec and RateBurst apply per remote host.
	RatePerSec float64
	RateBurst  int

	// LiveMaxAge bounds the live CDN's validity window: games older than
	// this route straight to the archival stats endpoint.
	LiveMaxAge time.Duration

	// ESPNEventID resolves the cached espn event id for a game. Empty
	// result means the game is unmapped and the espn source is skipped.
	ESPNEventID func(ctx context.Context, gameID string) (string, error)
}

// statsHeaders are required by stats.nba.com; requests without them get
// silently dropped.
var statsHeaders = map[string]string{
	"Referer":            "https://www.nba.com/",
	"Origin":             "https://www.nba.com",
	"Accept":             "application/json",
	"x-nba-stats-origin": "stats",
	"x-nba-stats-token":  "true",
}

// NewCatalog builds a Gateway with the standard source set registered:
// the live CDN first for recent games, the stats API as archival
// fallback, and espn-then-covers for betting lines.
func NewCatalog(opts CatalogOptions, gwOpts ...Option) *Gateway {
	g := NewGateway(gwOpts...)

	limiter := func() *rate.Limiter {
		if opts.RatePerSec <= 0 {
			return nil
		}
		burst := opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		return rate.NewLimiter(rate.Limit(opts.RatePerSec), burst)
	}

	// One limiter per remote host, shared across the kinds that hit it.
	statsLimiter := limiter()
	liveLimiter := limiter()
	espnLimiter := limiter()
	coversLimiter := limiter()

	httpProvider := func(name string, urlFor func(EntityRef) string) *HTTPProvider {
		return NewHTTPProvider(HTTPProviderOptions{
			Name:      name,
			Timeout:   opts.Timeout,
			UserAgent: opts.UserAgent,
			URLFor:    urlFor,
		})
	}

	statsProvider := func(name string, urlFor func(EntityRef) string) *HTTPProvider {
		return NewHTTPProvider(HTTPProviderOptions{
			Name:      name,
			Timeout:   opts.Timeout,
			UserAgent: opts.UserAgent,
			Headers:   statsHeaders,
			URLFor:    urlFor,
		})
	}

	g.Register(KindSchedule, Source{
		Provider: statsProvider("nba-stats-schedule", func(ref EntityRef) string {
			return fmt.Sprintf("%s/scheduleleaguev2?LeagueID=00&Season=%s",
				opts.StatsBaseURL, statsSeasonParam(ref.Season))
		}),
		Limiter: statsLimiter,
	})

	g.Register(KindRoster, Source{
		Provider: statsProvider("nba-stats-roster", func(ref EntityRef) string {
			return fmt.Sprintf("%s/commonallplayers?LeagueID=00&Season=%s&IsOnlyCurrentSeason=1",
				opts.StatsBaseURL, statsSeasonParam(ref.Season))
		}),
		Limiter: statsLimiter,
	})

	g.Register(KindPlayByPlay,
		Source{
			Provider: httpProvider("nba-live-pbp", func(ref EntityRef) string {
				return fmt.Sprintf("%s/playbyplay/playbyplay_%s.json", opts.LiveBaseURL, ref.GameID)
			}),
			Window:  ValidityWindow{MaxAge: opts.LiveMaxAge},
			Limiter: liveLimiter,
		},
		Source{
			Provider: statsProvider("nba-stats-pbp", func(ref EntityRef) string {
				return fmt.Sprintf("%s/playbyplayv2?GameID=%s&StartPeriod=0&EndPeriod=14",
					opts.StatsBaseURL, ref.GameID)
			}),
			Limiter: statsLimiter,
		},
	)

	g.Register(KindBoxScore, Source{
		Provider: httpProvider("nba-live-boxscore", func(ref EntityRef) string {
			return fmt.Sprintf("%s/boxscore/boxscore_%s.json", opts.LiveBaseURL, ref.GameID)
		}),
		Limiter: liveLimiter,
	})

	if opts.ESPNEventID != nil {
		g.Register(KindOdds, Source{
			Provider: &espnOddsProvider{
				resolve: opts.ESPNEventID,
				http: httpProvider("espn-odds", func(ref EntityRef) string {
					// ref.GameID carries the resolved espn event id here.
					return fmt.Sprintf("%s/summary?event=%s", opts.ESPNBaseURL, ref.GameID)
				}),
			},
			Limiter: espnLimiter,
		})
	}
	g.Register(KindOdds, Source{
		Provider: httpProvider("covers-odds", func(ref EntityRef) string {
			return fmt.Sprintf("%s/matchups?selectedDate=%s",
				opts.CoversBaseURL, ref.GameDate.Format("2006-01-02"))
		}),
		Limiter: coversLimiter,
	})

	g.Register(KindInjury, Source{
		Provider: httpProvider("nba-injury-report", func(ref EntityRef) string {
			return opts.InjuryURL
		}),
		Limiter: liveLimiter,
	})

	return g
}

// espnOddsProvider resolves the cached espn event id for a game before
// delegating to the HTTP client. Games without a mapping fail fast so
// the gateway falls through to the covers source.
type espnOddsProvider struct {
	resolve func(ctx context.Context, gameID string) (string, error)
	http    *HTTPProvider
}

func (p *espnOddsProvider) Name() string { return p.http.Name() }

func (p *espnOddsProvider) Fetch(ctx context.Context, ref EntityRef) ([]byte, error) {
	eventID, err := p.resolve(ctx, ref.GameID)
	if err != nil {
		return nil, eris.Wrapf(err, "espn: resolve event id for game %s", ref.GameID)
	}
	if eventID == "" {
		return nil, eris.Errorf("espn: no event mapping for game %s", ref.GameID)
	}
	mapped := ref
	mapped.GameID = eventID
	return p.http.Fetch(ctx, mapped)
}

// statsSeasonParam converts "2023-2024" to the "2023-24" form the stats
// API expects.
func statsSeasonParam(season string) string {
	if model.ValidateSeason(season) != nil {
		return season
	}
	y := model.SeasonStartYear(season)
	return fmt.Sprintf("%d-%02d", y, (y+1)%100)
}
