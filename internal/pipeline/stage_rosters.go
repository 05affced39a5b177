package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/hoopsight/hoopsync/internal/model"
	"github.com/hoopsight/hoopsync/internal/source"
)

const rosterCacheWindow = 24 * time.Hour

// Active player counts outside this band suggest a truncated or
// polluted roster payload.
const (
	minActivePlayers = 450
	maxActivePlayers = 600
)

// rostersStage refreshes the league-wide player index, at most once per
// cache window.
type rostersStage struct{}

func (s *rostersStage) Name() string { return "rosters" }

func (s *rostersStage) Run(ctx context.Context, deps Deps, opts Options) (*Summary, error) {
	log := zap.L().With(zap.String("stage", s.Name()))
	start := time.Now()
	summary := &Summary{Stage: s.Name()}

	now := opts.now()
	if !opts.Force {
		last, err := deps.Store.GetSyncMeta(ctx, "rosters")
		if err != nil {
			return nil, err
		}
		if last != nil && now.Sub(*last) < rosterCacheWindow {
			log.Debug("rosters fresh, skipping")
			summary.Skipped = 1
			summary.Elapsed = time.Since(start)
			return summary, nil
		}
	}

	season := opts.Season
	if season == "" {
		season = model.CurrentSeason(now)
	}
	players, _, err := source.FetchAs(ctx, deps.Gateway, source.KindRoster,
		source.EntityRef{Season: season}, source.DecodeRoster(model.SeasonStartYear(season)))
	if err != nil {
		return nil, eris.Wrap(err, "rosters: fetch")
	}

	n, err := deps.Store.UpsertPlayers(ctx, players)
	if err != nil {
		return nil, err
	}
	if err := deps.Store.SetSyncMeta(ctx, "rosters"); err != nil {
		return nil, err
	}

	active, err := deps.Store.CountActivePlayers(ctx)
	if err != nil {
		return nil, err
	}
	if active < minActivePlayers || active > maxActivePlayers {
		log.Warn("active player count outside expected band",
			zap.Int("active", active),
			zap.Int("min", minActivePlayers),
			zap.Int("max", maxActivePlayers),
		)
	}

	summary.Succeeded = len(players)
	summary.Rows = n
	summary.Elapsed = time.Since(start)
	log.Info("rosters refreshed", zap.Int("players", len(players)), zap.Int("active", active))
	return summary, nil
}
