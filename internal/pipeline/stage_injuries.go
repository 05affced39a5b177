package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/hoopsight/hoopsync/internal/source"
)

const injuryCacheWindow = 6 * time.Hour

// injuriesStage ingests the league injury report. Injuries are an
// auxiliary input for downstream feature generation; they gate no
// finalization flag.
type injuriesStage struct{}

func (s *injuriesStage) Name() string { return "injuries" }

func (s *injuriesStage) Run(ctx context.Context, deps Deps, opts Options) (*Summary, error) {
	log := zap.L().With(zap.String("stage", s.Name()))
	start := time.Now()
	summary := &Summary{Stage: s.Name()}

	now := opts.now()
	if !opts.Force {
		last, err := deps.Store.GetSyncMeta(ctx, "injuries")
		if err != nil {
			return nil, err
		}
		if last != nil && now.Sub(*last) < injuryCacheWindow {
			log.Debug("injury report fresh, skipping")
			summary.Skipped = 1
			summary.Elapsed = time.Since(start)
			return summary, nil
		}
	}

	entries, _, err := source.FetchAs(ctx, deps.Gateway, source.KindInjury,
		source.EntityRef{Season: opts.Season}, source.DecodeInjuries())
	if err != nil {
		return nil, eris.Wrap(err, "injuries: fetch report")
	}

	n, err := deps.Store.UpsertInjuries(ctx, entries)
	if err != nil {
		return nil, err
	}
	if err := deps.Store.SetSyncMeta(ctx, "injuries"); err != nil {
		return nil, err
	}

	summary.Succeeded = len(entries)
	summary.Rows = n
	summary.Elapsed = time.Since(start)
	log.Info("injury report ingested", zap.Int("entries", len(entries)))
	return summary, nil
}
