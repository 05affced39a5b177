package validate

import (
	"context"
	"fmt"
	"time"

	"github.com/hoopsight/hoopsync/internal/model"
	"github.com/hoopsight/hoopsync/internal/store"
)

// coreFlagEvidenceCheck (flags-001) finds games promising complete core
// data without the evidence backing it: the game must have finished and
// carry events plus exactly one final state. The flag is provably
// wrong, so clearing it is a safe fix.
type coreFlagEvidenceCheck struct{}

func (c *coreFlagEvidenceCheck) ID() string         { return "flags-001" }
func (c *coreFlagEvidenceCheck) Category() Category { return CategoryFlags }
func (c *coreFlagEvidenceCheck) Description() string {
	return "core flag set without play-by-play events and exactly one final state"
}

func coreEvidenceHolds(ev store.GameEvidence) bool {
	return ev.Status.Completed() && ev.EventCount >= 1 && ev.FinalStateCount == 1
}

func (c *coreFlagEvidenceCheck) Run(ctx context.Context, env Env) ([]Finding, error) {
	evidence, err := env.Store.ListGameEvidence(ctx, env.Season)
	if err != nil {
		return nil, err
	}
	var findings []Finding
	for _, ev := range evidence {
		if ev.CoreDataFinalized && !coreEvidenceHolds(ev) {
			findings = append(findings, Finding{
				CheckID:  c.ID(),
				Category: c.Category(),
				Severity: SeverityCritical,
				Fixable:  true,
				GameID:   ev.GameID,
				Message: fmt.Sprintf("core flag set on %s game with %d events and %d final states",
					ev.Status, ev.EventCount, ev.FinalStateCount),
			})
		}
	}
	return findings, nil
}

func (c *coreFlagEvidenceCheck) Fix(ctx context.Context, env Env) (int64, error) {
	evidence, err := env.Store.ListGameEvidence(ctx, env.Season)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, ev := range evidence {
		if ev.CoreDataFinalized && !coreEvidenceHolds(ev) {
			if err := env.Store.SetFinalizationFlag(ctx, ev.GameID, model.FlagCoreData, false); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

// predBeforeCoreCheck (flags-002) finds the ordering invariant broken:
// a prediction flag set while the core flag is not.
type predBeforeCoreCheck struct{}

func (c *predBeforeCoreCheck) ID() string         { return "flags-002" }
func (c *predBeforeCoreCheck) Category() Category { return CategoryFlags }
func (c *predBeforeCoreCheck) Description() string {
	return "prediction flag set before core flag"
}

func (c *predBeforeCoreCheck) Run(ctx context.Context, env Env) ([]Finding, error) {
	evidence, err := env.Store.ListGameEvidence(ctx, env.Season)
	if err != nil {
		return nil, err
	}
	var findings []Finding
	for _, ev := range evidence {
		if ev.PredDataFinalized && !ev.CoreDataFinalized {
			findings = append(findings, Finding{
				CheckID:  c.ID(),
				Category: c.Category(),
				Severity: SeverityCritical,
				Fixable:  true,
				GameID:   ev.GameID,
				Message:  "prediction flag set while core flag is false",
			})
		}
	}
	return findings, nil
}

func (c *predBeforeCoreCheck) Fix(ctx context.Context, env Env) (int64, error) {
	evidence, err := env.Store.ListGameEvidence(ctx, env.Season)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, ev := range evidence {
		if ev.PredDataFinalized && !ev.CoreDataFinalized {
			if err := env.Store.SetFinalizationFlag(ctx, ev.GameID, model.FlagPredData, false); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

// laggingCoreCheck (flags-003) reports completed games whose core data
// is still unfinalized days later. Collection may simply be lagging, so
// this is a warning, never auto-fixed.
type laggingCoreCheck struct{}

const coreLagThreshold = 48 * time.Hour

func (c *laggingCoreCheck) ID() string         { return "flags-003" }
func (c *laggingCoreCheck) Category() Category { return CategoryFlags }
func (c *laggingCoreCheck) Description() string {
	return "completed game without core data days after the final buzzer"
}

func (c *laggingCoreCheck) Run(ctx context.Context, env Env) ([]Finding, error) {
	evidence, err := env.Store.ListGameEvidence(ctx, env.Season)
	if err != nil {
		return nil, err
	}
	var findings []Finding
	for _, ev := range evidence {
		if ev.Status.Completed() && !ev.CoreDataFinalized && env.Now.Sub(ev.DateTime) > coreLagThreshold {
			findings = append(findings, Finding{
				CheckID:  c.ID(),
				Category: c.Category(),
				Severity: SeverityWarning,
				GameID:   ev.GameID,
				Message: fmt.Sprintf("final since %s with no core data",
					ev.DateTime.Format("2006-01-02")),
			})
		}
	}
	return findings, nil
}

// boxFlagEvidenceCheck (flags-004) finds box flags set without a full
// both-sides box score.
type boxFlagEvidenceCheck struct{}

func (c *boxFlagEvidenceCheck) ID() string         { return "flags-004" }
func (c *boxFlagEvidenceCheck) Category() Category { return CategoryFlags }
func (c *boxFlagEvidenceCheck) Description() string {
	return "box flag set without full both-sides box score"
}

func boxEvidenceHolds(ev store.GameEvidence) bool {
	return ev.HomeBoxRows >= model.MinBoxRowsPerSide && ev.AwayBoxRows >= model.MinBoxRowsPerSide
}

func (c *boxFlagEvidenceCheck) Run(ctx context.Context, env Env) ([]Finding, error) {
	evidence, err := env.Store.ListGameEvidence(ctx, env.Season)
	if err != nil {
		return nil, err
	}
	var findings []Finding
	for _, ev := range evidence {
		if ev.BoxDataFinalized && !boxEvidenceHolds(ev) {
			findings = append(findings, Finding{
				CheckID:  c.ID(),
				Category: c.Category(),
				Severity: SeverityCritical,
				Fixable:  true,
				GameID:   ev.GameID,
				Message: fmt.Sprintf("box flag set with %d home and %d away rows",
					ev.HomeBoxRows, ev.AwayBoxRows),
			})
		}
	}
	return findings, nil
}

func (c *boxFlagEvidenceCheck) Fix(ctx context.Context, env Env) (int64, error) {
	evidence, err := env.Store.ListGameEvidence(ctx, env.Season)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, ev := range evidence {
		if ev.BoxDataFinalized && !boxEvidenceHolds(ev) {
			if err := env.Store.SetFinalizationFlag(ctx, ev.GameID, model.FlagBoxData, false); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}
