package validate

import (
	"context"
	"fmt"
	"strings"
)

// unmatchedStateCheck (xref-001) finds game states whose (game, play)
// key has no matching play-by-play event. A snapshot is derived from an
// event; one without its event is provably inconsistent, so deleting it
// is a safe fix.
type unmatchedStateCheck struct{}

func (c *unmatchedStateCheck) ID() string         { return "xref-001" }
func (c *unmatchedStateCheck) Category() Category { return CategoryXref }
func (c *unmatchedStateCheck) Description() string {
	return "game states without a matching play-by-play event"
}

func (c *unmatchedStateCheck) Run(ctx context.Context, env Env) ([]Finding, error) {
	keys, err := env.Store.UnmatchedGameStateKeys(ctx)
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
			Message:  fmt.Sprintf("game state %d has no matching event", k.PlayID),
		})
	}
	return findings, nil
}

func (c *unmatchedStateCheck) Fix(ctx context.Context, env Env) (int64, error) {
	return env.Store.DeleteUnmatchedGameStates(ctx)
}

// unmappedOddsCheck (xref-002) reports odds rows attributed to the
// primary provider without the cached event-id mapping that fetch path
// requires. The mapping may simply have been cleared, so this is
// report-only.
type unmappedOddsCheck struct{}

func (c *unmappedOddsCheck) ID() string         { return "xref-002" }
func (c *unmappedOddsCheck) Category() Category { return CategoryXref }
func (c *unmappedOddsCheck) Description() string {
	return "primary-provider odds rows without an event-id mapping"
}

func (c *unmappedOddsCheck) Run(ctx context.Context, env Env) ([]Finding, error) {
	evidence, err := env.Store.ListGameEvidence(ctx, env.Season)
	if err != nil {
		return nil, err
	}
	var findings []Finding
	for _, ev := range evidence {
		line, err := env.Store.GetOddsLine(ctx, ev.GameID)
		if err != nil {
			return nil, err
		}
		if line == nil || line.Source != "espn" {
			continue
		}
		eventID, err := env.Store.GetESPNEventID(ctx, ev.GameID)
		if err != nil {
			return nil, err
		}
		if eventID == "" {
			findings = append(findings, Finding{
				CheckID:  c.ID(),
				Category: c.Category(),
				Severity: SeverityWarning,
				GameID:   ev.GameID,
				Message:  "espn odds line without cached event id",
			})
		}
	}
	return findings, nil
}

// unknownBoxPlayerCheck (xref-003) reports box rows whose player id is
// missing from the roster table. The roster feed may simply lag the box
// feed, so this is report-only. Skipped entirely until rosters have
// synced at least once.
type unknownBoxPlayerCheck struct{}

func (c *unknownBoxPlayerCheck) ID() string         { return "xref-003" }
func (c *unknownBoxPlayerCheck) Category() Category { return CategoryXref }
func (c *unknownBoxPlayerCheck) Description() string {
	return "box rows referencing players missing from the roster"
}

func (c *unknownBoxPlayerCheck) Run(ctx context.Context, env Env) ([]Finding, error) {
	players, err := env.Store.CountActivePlayers(ctx)
	if err != nil {
		return nil, err
	}
	if players == 0 {
		return nil, nil
	}

	keys, err := env.Store.UnknownBoxScorePlayers(ctx)
	if err != nil {
		return nil, err
	}
	var findings []Finding
	for _, key := range keys {
		gameID, playerID, _ := strings.Cut(key, "/")
		findings = append(findings, Finding{
			CheckID:  c.ID(),
			Category: c.Category(),
			Severity: SeverityWarning,
			GameID:   gameID,
			Message:  fmt.Sprintf("box row for player %s not on any roster", playerID),
		})
	}
	return findings, nil
}
