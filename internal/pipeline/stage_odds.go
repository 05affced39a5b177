package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/hoopsight/hoopsync/internal/model"
	"github.com/hoopsight/hoopsync/internal/source"
	"github.com/hoopsight/hoopsync/internal/store"
)

// Odds fetch window. Lines for far-future games don't exist yet, and a
// game that finished days ago with finalized closing lines never
// changes again.
const (
	oddsMaxLead      = 7 * 24 * time.Hour
	oddsFinalizedAge = 3 * 24 * time.Hour
)

// oddsStage fetches betting lines for games inside the odds window and
// marks lines final once the game is over with both closing numbers
// present.
type oddsStage struct{}

func (s *oddsStage) Name() string { return "odds" }

func (s *oddsStage) Run(ctx context.Context, deps Deps, opts Options) (*Summary, error) {
	games, err := deps.Store.ListGames(ctx, store.GameFilter{Season: opts.Season})
	if err != nil {
		return nil, err
	}

	now := opts.now()
	var work []model.Game
	var skipped int
	for _, g := range games {
		fetch, err := shouldFetchOdds(ctx, deps.Store, &g, now)
		if err != nil {
			return nil, err
		}
		if !fetch {
			skipped++
			continue
		}
		work = append(work, g)
	}

	summary := runPerGame(ctx, s.Name(), work, opts, func(ctx context.Context, g *model.Game) (int64, error) {
		ref := source.EntityRef{GameID: g.ID, Season: g.Season, GameDate: g.DateTime}
		line, _, err := source.FetchAs(ctx, deps.Gateway, source.KindOdds, ref, source.DecodeOdds(g.ID))
		if err != nil {
			return 0, eris.Wrapf(err, "odds: game %s", g.ID)
		}

		// Closing lines: both numbers present after the final buzzer.
		if g.Status.Completed() && line.Spread != nil && line.Total != nil {
			line.LinesFinal = true
		}
		if err := deps.Store.UpsertOddsLine(ctx, *line); err != nil {
			return 0, err
		}
		return 1, nil
	})
	summary.Skipped += skipped
	return summary, nil
}

// shouldFetchOdds applies the odds window: skip games more than a week
// out, and skip finished games older than three days whose lines are
// already final.
func shouldFetchOdds(ctx context.Context, st store.Store, g *model.Game, now time.Time) (bool, error) {
	if g.DateTime.Sub(now) > oddsMaxLead {
		return false, nil
	}
	if g.Status.Completed() && now.Sub(g.DateTime) > oddsFinalizedAge {
		line, err := st.GetOddsLine(ctx, g.ID)
		if err != nil {
			return false, err
		}
		if line != nil && line.LinesFinal {
			return false, nil
		}
	}
	return true, nil
}
