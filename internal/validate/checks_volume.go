package validate

import (
	"context"
	"fmt"
	"sort"

	"github.com/hoopsight/hoopsync/internal/model"
)

// seasonVolumeCheck (volume-001) compares each season's regular-season
// game count against the league's expected count, accounting for known
// shortened seasons.
type seasonVolumeCheck struct{}

func (c *seasonVolumeCheck) ID() string         { return "volume-001" }
func (c *seasonVolumeCheck) Category() Category { return CategoryVolume }
func (c *seasonVolumeCheck) Description() string {
	return "season game count differs from the expected count"
}

func (c *seasonVolumeCheck) Run(ctx context.Context, env Env) ([]Finding, error) {
	seasons, err := seasonsInScope(ctx, env)
	if err != nil {
		return nil, err
	}

	var findings []Finding
	for _, season := range seasons {
		count, err := env.Store.CountGamesBySeason(ctx, season, []model.SeasonType{model.SeasonRegular})
		if err != nil {
			return nil, err
		}
		expected := model.ExpectedGameCount(season)
		// The in-progress season is naturally short of the full count.
		if season == model.CurrentSeason(env.Now) && count <= expected {
			continue
		}
		if count != expected {
			findings = append(findings, Finding{
				CheckID:  c.ID(),
				Category: c.Category(),
				Severity: SeverityWarning,
				Message: fmt.Sprintf("season %s has %d regular-season games, expected %d",
					season, count, expected),
			})
		}
	}
	return findings, nil
}

// playerVolumeCheck (volume-002) sanity-checks the active roster size.
type playerVolumeCheck struct{}

const (
	minActivePlayers = 450
	maxActivePlayers = 600
)

func (c *playerVolumeCheck) ID() string         { return "volume-002" }
func (c *playerVolumeCheck) Category() Category { return CategoryVolume }
func (c *playerVolumeCheck) Description() string {
	return "active player count outside the plausible league range"
}

func (c *playerVolumeCheck) Run(ctx context.Context, env Env) ([]Finding, error) {
	active, err := env.Store.CountActivePlayers(ctx)
	if err != nil {
		return nil, err
	}
	if active == 0 {
		// Rosters never synced; nothing to judge.
		return nil, nil
	}
	if active < minActivePlayers || active > maxActivePlayers {
		return []Finding{{
			CheckID:  c.ID(),
			Category: c.Category(),
			Severity: SeverityWarning,
			Message: fmt.Sprintf("%d active players, expected %d-%d",
				active, minActivePlayers, maxActivePlayers),
		}}, nil
	}
	return nil, nil
}

// seasonsInScope returns the seasons to validate: the configured season
// or every season present in the store, sorted.
func seasonsInScope(ctx context.Context, env Env) ([]string, error) {
	if env.Season != "" {
		return []string{env.Season}, nil
	}
	evidence, err := env.Store.ListGameEvidence(ctx, "")
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var seasons []string
	for _, ev := range evidence {
		if !seen[ev.Season] {
			seen[ev.Season] = true
			seasons = append(seasons, ev.Season)
		}
	}
	sort.Strings(seasons)
	return seasons, nil
}
