package validate

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/hoopsight/hoopsync/internal/store"
)

// Engine runs validation checks over one store.
type Engine struct {
	store  store.Store
	checks []Check
}

// NewEngine creates an Engine with the full check set.
func NewEngine(st store.Store) *Engine {
	return &Engine{store: st, checks: AllChecks()}
}

// RunOpts selects which checks run and whether fixes are applied.
type RunOpts struct {
	Season     string
	Categories []string // empty = all
	CheckID    string   // restrict to a single check
	Fix        bool
	Now        func() time.Time
}

// Run executes the selected checks and returns the report. With Fix
// set, each fixable check's fix is applied and the check re-run, so the
// report reflects the post-fix state and any finding it still carries
// genuinely survived the fix.
func (e *Engine) Run(ctx context.Context, opts RunOpts) (*Report, error) {
	log := zap.L().With(zap.String("component", "validate"))

	now := time.Now().UTC()
	if opts.Now != nil {
		now = opts.Now()
	}
	env := Env{Store: e.store, Season: opts.Season, Now: now}

	checks, err := e.selectChecks(opts)
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunID:     uuid.New().String(),
		StartedAt: now,
		Season:    opts.Season,
		Fixed:     make(map[string]int64),
	}

	for _, check := range checks {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "validate: run canceled")
		}

		findings, err := check.Run(ctx, env)
		if err != nil {
			return nil, eris.Wrapf(err, "validate: check %s", check.ID())
		}

		if opts.Fix && anyFixable(findings) {
			fixer, ok := check.(Fixer)
			if ok {
				n, err := fixer.Fix(ctx, env)
				if err != nil {
					return nil, eris.Wrapf(err, "validate: fix %s", check.ID())
				}
				log.Info("fix applied",
					zap.String("check_id", check.ID()),
					zap.Int64("mutations", n),
				)
				report.Fixed[check.ID()] = n

				findings, err = check.Run(ctx, env)
				if err != nil {
					return nil, eris.Wrapf(err, "validate: re-run %s after fix", check.ID())
				}
			}
		}

		report.Findings = append(report.Findings, findings...)
	}

	for _, f := range report.Findings {
		switch f.Severity {
		case SeverityCritical:
			report.Criticals++
		case SeverityWarning:
			report.Warnings++
		}
	}

	log.Info("validation complete",
		zap.String("run_id", report.RunID),
		zap.Int("checks", len(checks)),
		zap.Int("critical", report.Criticals),
		zap.Int("warnings", report.Warnings),
	)
	return report, nil
}

func (e *Engine) selectChecks(opts RunOpts) ([]Check, error) {
	if opts.CheckID != "" {
		for _, c := range e.checks {
			if c.ID() == opts.CheckID {
				return []Check{c}, nil
			}
		}
		return nil, eris.Errorf("validate: unknown check id %q", opts.CheckID)
	}

	if len(opts.Categories) == 0 {
		return e.checks, nil
	}

	want := make(map[Category]bool, len(opts.Categories))
	for _, name := range opts.Categories {
		cat := Category(name)
		if !knownCategory(cat) {
			return nil, eris.Errorf("validate: unknown category %q", name)
		}
		want[cat] = true
	}

	var selected []Check
	for _, c := range e.checks {
		if want[c.Category()] {
			selected = append(selected, c)
		}
	}
	return selected, nil
}

func knownCategory(c Category) bool {
	switch c {
	case CategoryFlags, CategoryXref, CategoryIntegrity, CategoryDomain, CategoryVolume, CategoryTemporal:
		return true
	default:
		return false
	}
}

func anyFixable(findings []Finding) bool {
	for _, f := range findings {
		if f.Fixable {
			return true
		}
	}
	return false
}
