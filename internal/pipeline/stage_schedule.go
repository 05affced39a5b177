package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/hoopsight/hoopsync/internal/model"
	"github.com/hoopsight/hoopsync/internal/source"
)

// scheduleCacheWindow is how long a fetched current-season schedule
// stays fresh before the stage refetches it.
const scheduleCacheWindow = 5 * time.Minute

// scheduleStage refreshes the season's game list. A historical season
// whose games are all Final is marked finalized in the schedule cache
// and never refetched.
type scheduleStage struct{}

func (s *scheduleStage) Name() string { return "schedule" }

func (s *scheduleStage) Run(ctx context.Context, deps Deps, opts Options) (*Summary, error) {
	log := zap.L().With(zap.String("stage", s.Name()))
	start := time.Now()
	summary := &Summary{Stage: s.Name()}

	now := opts.now()
	season := opts.Season
	if season == "" {
		season = model.CurrentSeason(now)
	}
	if err := model.ValidateSeason(season); err != nil {
		return nil, err
	}

	if !opts.Force {
		cache, err := deps.Store.GetScheduleCache(ctx, season)
		if err != nil {
			return nil, err
		}
		if cache != nil {
			if cache.Finalized {
				log.Debug("season finalized, skipping", zap.String("season", season))
				summary.Skipped = 1
				summary.Elapsed = time.Since(start)
				return summary, nil
			}
			if now.Sub(cache.LastUpdate) < scheduleCacheWindow {
				log.Debug("schedule fresh, skipping", zap.String("season", season))
				summary.Skipped = 1
				summary.Elapsed = time.Since(start)
				return summary, nil
			}
		}
	}

	games, _, err := source.FetchAs(ctx, deps.Gateway, source.KindSchedule,
		source.EntityRef{Season: season}, source.DecodeSchedule(season))
	if err != nil {
		return nil, eris.Wrapf(err, "schedule: fetch season %s", season)
	}

	n, err := deps.Store.UpsertGames(ctx, games)
	if err != nil {
		return nil, err
	}
	summary.Succeeded = len(games)
	summary.Rows = n

	// A past season with every game Final never changes again.
	finalized := season != model.CurrentSeason(now) && allFinal(games)
	if err := deps.Store.SetScheduleCache(ctx, season, finalized); err != nil {
		return nil, err
	}

	summary.Elapsed = time.Since(start)
	log.Info("schedule refreshed",
		zap.String("season", season),
		zap.Int("games", len(games)),
		zap.Bool("finalized", finalized),
	)
	return summary, nil
}

func allFinal(games []model.Game) bool {
	for _, g := range games {
		if !g.Status.Completed() {
			return false
		}
	}
	return len(games) > 0
}
