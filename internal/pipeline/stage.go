// Package pipeline implements the staged ingestion orchestrator: a
// fixed stage order, per-stage work sets computed from finalization
// flags, bounded per-game parallelism, and per-game failure isolation.
package pipeline

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hoopsight/hoopsync/internal/finalize"
	"github.com/hoopsight/hoopsync/internal/model"
	"github.com/hoopsight/hoopsync/internal/source"
	"github.com/hoopsight/hoopsync/internal/store"
)

// Deps bundles the shared collaborators every stage uses.
type Deps struct {
	Store   store.Store
	Gateway *source.Gateway
	Machine *finalize.Machine
}

// Options configures a pipeline run.
type Options struct {
	Season  string // empty = current season
	Force   bool   // ignore freshness caches
	Workers int    // bounded per-game parallelism inside a stage
	Now     func() time.Time
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now().UTC()
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return 4
}

// Failure records one game that a stage could not process.
type Failure struct {
	GameID string
	Err    error
}

// Summary is the per-stage result report.
type Summary struct {
	Stage     string
	Succeeded int
	Failed    int
	Skipped   int
	Rows      int64
	Elapsed   time.Duration
	Failures  []Failure
}

// Stage is one step of the ingestion pipeline.
type Stage interface {
	Name() string
	Run(ctx context.Context, deps Deps, opts Options) (*Summary, error)
}

// runPerGame processes each game independently with a bounded worker
// pool. A game's error is captured in the summary and does not stop the
// others; only context cancellation aborts the whole set. fn returns
// the number of rows it wrote for the game.
func runPerGame(ctx context.Context, stage string, games []model.Game, opts Options, fn func(ctx context.Context, g *model.Game) (int64, error)) *Summary {
	log := zap.L().With(zap.String("stage", stage))
	start := time.Now()

	summary := &Summary{Stage: stage}
	var mu sync.Mutex

	grp, grpCtx := errgroup.WithContext(ctx)
	grp.SetLimit(opts.workers())

	for i := range games {
		g := games[i]
		grp.Go(func() error {
			if err := grpCtx.Err(); err != nil {
				return err
			}
			rows, err := fn(grpCtx, &g)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Warn("game failed", zap.String("game_id", g.ID), zap.Error(err))
				summary.Failed++
				summary.Failures = append(summary.Failures, Failure{GameID: g.ID, Err: err})
				return nil
			}
			summary.Succeeded++
			summary.Rows += rows
			return nil
		})
	}
	_ = grp.Wait()

	summary.Elapsed = time.Since(start)
	log.Info("stage complete",
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
		zap.Int64("rows", summary.Rows),
		zap.Duration("elapsed", summary.Elapsed),
	)
	return summary
}
