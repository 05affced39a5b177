package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hoopsight/hoopsync/internal/model"
	"github.com/hoopsight/hoopsync/internal/store"
)

// handoffStage is the boundary to the prediction engine. It does not
// generate predictions itself: it surfaces the work queue (core-final
// games with no prediction rows) and advances the pred flag for games
// whose predictions have since been written.
type handoffStage struct{}

func (s *handoffStage) Name() string { return "handoff" }

func (s *handoffStage) Run(ctx context.Context, deps Deps, opts Options) (*Summary, error) {
	log := zap.L().With(zap.String("stage", s.Name()))
	start := time.Now()

	tru := true
	queued, err := deps.Store.ListGames(ctx, store.GameFilter{
		Season:            opts.Season,
		CoreFinalized:     &tru,
		MissingPrediction: true,
	})
	if err != nil {
		return nil, err
	}
	if len(queued) > 0 {
		ids := make([]string, len(queued))
		for i, g := range queued {
			ids[i] = g.ID
		}
		log.Info("games awaiting predictions", zap.Int("count", len(queued)), zap.Strings("game_ids", ids))
	}

	f := false
	pending, err := deps.Store.ListGames(ctx, store.GameFilter{
		Season:        opts.Season,
		CoreFinalized: &tru,
		PredFinalized: &f,
	})
	if err != nil {
		return nil, err
	}

	summary := runPerGame(ctx, s.Name(), pending, opts, func(ctx context.Context, g *model.Game) (int64, error) {
		advanced, err := deps.Machine.Advance(ctx, g, model.FlagPredData)
		if err != nil {
			return 0, err
		}
		if advanced {
			return 1, nil
		}
		return 0, nil
	})
	summary.Elapsed = time.Since(start)
	return summary, nil
}
