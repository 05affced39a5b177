package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Orchestrator runs selected stages in pipeline order, records each run
// in the sync log, and isolates stage failures: a failing stage is
// reported and the remaining stages still run, since later stages only
// ever see work whose prerequisites are satisfied.
type Orchestrator struct {
	deps Deps
	reg  *Registry
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(deps Deps, reg *Registry) *Orchestrator {
	return &Orchestrator{deps: deps, reg: reg}
}

// Run executes the selected stages and returns their summaries. The
// returned error is non-nil only for selection errors or cancellation;
// per-stage failures are carried in the summaries.
func (o *Orchestrator) Run(ctx context.Context, stageNames []string, opts Options) ([]*Summary, error) {
	log := zap.L().With(zap.String("component", "pipeline"))

	stages, err := o.reg.Select(stageNames)
	if err != nil {
		return nil, err
	}
	if len(stages) == 0 {
		log.Info("no stages selected")
		return nil, nil
	}

	var summaries []*Summary
	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return summaries, eris.Wrap(err, "pipeline: run canceled")
		}

		stageLog := log.With(zap.String("stage", stage.Name()))
		stageLog.Info("starting stage")

		syncID, err := o.deps.Store.StartSync(ctx, stage.Name())
		if err != nil {
			return summaries, eris.Wrapf(err, "pipeline: start sync log for %s", stage.Name())
		}

		start := time.Now()
		summary, err := stage.Run(ctx, o.deps, opts)
		elapsed := time.Since(start)

		if err != nil {
			stageLog.Error("stage failed", zap.Error(err), zap.Duration("elapsed", elapsed))
			if logErr := o.deps.Store.FailSync(ctx, syncID, err.Error()); logErr != nil {
				stageLog.Error("failed to record stage failure", zap.Error(logErr))
			}
			summaries = append(summaries, &Summary{
				Stage:    stage.Name(),
				Failed:   1,
				Elapsed:  elapsed,
				Failures: []Failure{{Err: err}},
			})
			continue
		}

		if logErr := o.deps.Store.CompleteSync(ctx, syncID, summary.Rows); logErr != nil {
			stageLog.Error("failed to record stage completion", zap.Error(logErr))
		}
		summaries = append(summaries, summary)
	}

	return summaries, nil
}
