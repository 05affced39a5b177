package validate

import (
	"context"
	"fmt"

	"github.com/hoopsight/hoopsync/internal/model"
)

// seasonWindowCheck (temporal-001) finds games dated outside their
// season's calendar window.
type seasonWindowCheck struct{}

func (c *seasonWindowCheck) ID() string         { return "temporal-001" }
func (c *seasonWindowCheck) Category() Category { return CategoryTemporal }
func (c *seasonWindowCheck) Description() string {
	return "game dated outside its season window"
}

func (c *seasonWindowCheck) Run(ctx context.Context, env Env) ([]Finding, error) {
	evidence, err := env.Store.ListGameEvidence(ctx, env.Season)
	if err != nil {
		return nil, err
	}
	var findings []Finding
	for _, ev := range evidence {
		if model.ValidateSeason(ev.Season) != nil {
			continue
		}
		from, to := model.SeasonWindow(ev.Season)
		if ev.DateTime.Before(from) || ev.DateTime.After(to) {
			findings = append(findings, Finding{
				CheckID:  c.ID(),
				Category: c.Category(),
				Severity: SeverityWarning,
				GameID:   ev.GameID,
				Message: fmt.Sprintf("dated %s, outside season %s",
					ev.DateTime.Format("2006-01-02"), ev.Season),
			})
		}
	}
	return findings, nil
}

// coldStartCheck (temporal-002) notes the expected cold-start gap: the
// earliest core-finalized games of a season have no prior history to
// predict from, so missing predictions there are normal.
type coldStartCheck struct{}

// Roughly the first night of a season.
const coldStartGames = 8

func (c *coldStartCheck) ID() string         { return "temporal-002" }
func (c *coldStartCheck) Category() Category { return CategoryTemporal }
func (c *coldStartCheck) Description() string {
	return "earliest games of a season lack prediction history (expected)"
}

func (c *coldStartCheck) Run(ctx context.Context, env Env) ([]Finding, error) {
	evidence, err := env.Store.ListGameEvidence(ctx, env.Season)
	if err != nil {
		return nil, err
	}

	// Evidence is ordered by game date; count per season as we go.
	position := make(map[string]int)
	var findings []Finding
	for _, ev := range evidence {
		position[ev.Season]++
		if position[ev.Season] > coldStartGames {
			continue
		}
		if ev.CoreDataFinalized && ev.PredictionCount == 0 {
			findings = append(findings, Finding{
				CheckID:  c.ID(),
				Category: c.Category(),
				Severity: SeverityWarning,
				GameID:   ev.GameID,
				Message: fmt.Sprintf("season opener %d/%d without predictions (cold start, expected)",
					position[ev.Season], coldStartGames),
			})
		}
	}
	return findings, nil
}
