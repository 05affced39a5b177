package pipeline

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/hoopsight/hoopsync/internal/model"
	"github.com/hoopsight/hoopsync/internal/source"
	"github.com/hoopsight/hoopsync/internal/store"
)

// pendingCoreGames returns completed games whose core flag is unset.
func pendingCoreGames(ctx context.Context, deps Deps, season string) ([]model.Game, error) {
	f := false
	return deps.Store.ListGames(ctx, store.GameFilter{
		Season:        season,
		Statuses:      []model.GameStatus{model.StatusFinal},
		CoreFinalized: &f,
	})
}

// playByPlayStage ingests raw play-by-play events for completed games
// still missing core data.
type playByPlayStage struct{}

func (s *playByPlayStage) Name() string { return "playbyplay" }

func (s *playByPlayStage) Run(ctx context.Context, deps Deps, opts Options) (*Summary, error) {
	games, err := pendingCoreGames(ctx, deps, opts.Season)
	if err != nil {
		return nil, err
	}

	return runPerGame(ctx, s.Name(), games, opts, func(ctx context.Context, g *model.Game) (int64, error) {
		ref := source.EntityRef{GameID: g.ID, Season: g.Season, GameDate: g.DateTime}
		feed, _, err := source.FetchAs(ctx, deps.Gateway, source.KindPlayByPlay, ref, source.DecodePlayByPlay(g.ID))
		if err != nil {
			return 0, eris.Wrapf(err, "playbyplay: game %s", g.ID)
		}
		return deps.Store.UpsertPlayByPlay(ctx, g.ID, feed.Events)
	}), nil
}

// gameStatesStage derives score snapshots from the play-by-play feed
// and advances the core flag once its predicate holds.
type gameStatesStage struct{}

func (s *gameStatesStage) Name() string { return "gamestates" }

func (s *gameStatesStage) Run(ctx context.Context, deps Deps, opts Options) (*Summary, error) {
	games, err := pendingCoreGames(ctx, deps, opts.Season)
	if err != nil {
		return nil, err
	}

	return runPerGame(ctx, s.Name(), games, opts, func(ctx context.Context, g *model.Game) (int64, error) {
		ref := source.EntityRef{GameID: g.ID, Season: g.Season, GameDate: g.DateTime}
		feed, _, err := source.FetchAs(ctx, deps.Gateway, source.KindPlayByPlay, ref, source.DecodePlayByPlay(g.ID))
		if err != nil {
			return 0, eris.Wrapf(err, "gamestates: game %s", g.ID)
		}
		n, err := deps.Store.UpsertGameStates(ctx, g.ID, feed.States)
		if err != nil {
			return 0, err
		}
		if _, err := deps.Machine.Advance(ctx, g, model.FlagCoreData); err != nil {
			return n, err
		}
		return n, nil
	}), nil
}

// boxScoresStage ingests per-player box rows for completed games still
// missing box data and advances the box flag.
type boxScoresStage struct{}

func (s *boxScoresStage) Name() string { return "boxscores" }

func (s *boxScoresStage) Run(ctx context.Context, deps Deps, opts Options) (*Summary, error) {
	f := false
	games, err := deps.Store.ListGames(ctx, store.GameFilter{
		Season:       opts.Season,
		Statuses:     []model.GameStatus{model.StatusFinal},
		BoxFinalized: &f,
	})
	if err != nil {
		return nil, err
	}

	return runPerGame(ctx, s.Name(), games, opts, func(ctx context.Context, g *model.Game) (int64, error) {
		ref := source.EntityRef{GameID: g.ID, Season: g.Season, GameDate: g.DateTime}
		rows, _, err := source.FetchAs(ctx, deps.Gateway, source.KindBoxScore, ref, source.DecodeBoxScore(g.ID))
		if err != nil {
			return 0, eris.Wrapf(err, "boxscores: game %s", g.ID)
		}
		n, err := deps.Store.UpsertBoxScoreRows(ctx, rows)
		if err != nil {
			return 0, err
		}
		if _, err := deps.Machine.Advance(ctx, g, model.FlagBoxData); err != nil {
			return n, err
		}
		return n, nil
	}), nil
}
