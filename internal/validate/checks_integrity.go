package validate

import (
	"context"
	"fmt"
)

// orphanBoxCheck (integrity-001) finds box score rows referencing a
// game that does not exist. Deleting an orphan is conservative: it
// cannot be served without its parent anyway.
type orphanBoxCheck struct{}

func (c *orphanBoxCheck) ID() string         { return "integrity-001" }
func (c *orphanBoxCheck) Category() Category { return CategoryIntegrity }
func (c *orphanBoxCheck) Description() string {
	return "box score rows without a parent game"
}

func (c *orphanBoxCheck) Run(ctx context.Context, env Env) ([]Finding, error) {
	keys, err := env.Store.OrphanBoxScoreKeys(ctx)
	if err != nil {
		return nil, err
	}
	var findings []Finding
	for _, key := range keys {
		findings = append(findings, Finding{
			CheckID:  c.ID(),
			Category: c.Category(),
			Severity: SeverityCritical,
			Fixable:  true,
			Message:  fmt.Sprintf("orphan box score row %s", key),
		})
	}
	return findings, nil
}

func (c *orphanBoxCheck) Fix(ctx context.Context, env Env) (int64, error) {
	return env.Store.DeleteOrphanBoxScoreRows(ctx)
}

// orphanChildCheck (integrity-002) finds play-by-play events and game
// states referencing a game that does not exist.
type orphanChildCheck struct{}

func (c *orphanChildCheck) ID() string         { return "integrity-002" }
func (c *orphanChildCheck) Category() Category { return CategoryIntegrity }
func (c *orphanChildCheck) Description() string {
	return "play-by-play and game state rows without a parent game"
}

func (c *orphanChildCheck) Run(ctx context.Context, env Env) ([]Finding, error) {
	events, err := env.Store.OrphanEventKeys(ctx)
	if err != nil {
		return nil, err
	}
	states, err := env.Store.OrphanGameStateKeys(ctx)
	if err != nil {
		return nil, err
	}

	var findings []Finding
	for _, k := range events {
		findings = append(findings, Finding{
			CheckID:  c.ID(),
			Category: c.Category(),
			Severity: SeverityCritical,
			Fixable:  true,
			GameID:   k.GameID,
			Message:  fmt.Sprintf("orphan play-by-play event %d", k.PlayID),
		})
	}
	for _, k := range states {
		findings = append(findings, Finding{
			CheckID:  c.ID(),
			Category: c.Category(),
			Severity: SeverityCritical,
			Fixable:  true,
			GameID:   k.GameID,
			Message:  fmt.Sprintf("orphan game state %d", k.PlayID),
		})
	}
	return findings, nil
}

func (c *orphanChildCheck) Fix(ctx context.Context, env Env) (int64, error) {
	events, err := env.Store.DeleteOrphanEvents(ctx)
	if err != nil {
		return events, err
	}
	states, err := env.Store.DeleteOrphanGameStates(ctx)
	return events + states, err
}

// duplicateEventCheck (integrity-003) finds duplicated play-by-play
// primary keys. The fix keeps the first occurrence and removes the
// rest.
type duplicateEventCheck struct{}

func (c *duplicateEventCheck) ID() string         { return "integrity-003" }
func (c *duplicateEventCheck) Category() Category { return CategoryIntegrity }
func (c *duplicateEventCheck) Description() string {
	return "duplicate play-by-play events for one (game, play) key"
}

func (c *duplicateEventCheck) Run(ctx context.Context, env Env) ([]Finding, error) {
	keys, err := env.Store.DuplicateEventKeys(ctx)
	if err != nil {
		return nil, err
	}
	var findings []Finding
	for _, k := range keys {
		findings = append(findings, Finding{
			CheckID:  c.ID(),
			Category: c.Category(),
			Severity: SeverityCritical,
			Fixable:  true,
			GameID:   k.GameID,
			Message:  fmt.Sprintf("duplicate rows for play %d", k.PlayID),
		})
	}
	return findings, nil
}

func (c *duplicateEventCheck) Fix(ctx context.Context, env Env) (int64, error) {
	return env.Store.DeleteDuplicateEvents(ctx)
}
