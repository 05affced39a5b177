package validate

import (
	"context"
	"fmt"
)

// scoreMonotonicityCheck (domain-001) finds negative scores or scores
// that decrease as the game progresses. Which snapshot holds the true
// score cannot be inferred, so this is never auto-fixed.
type scoreMonotonicityCheck struct{}

func (c *scoreMonotonicityCheck) ID() string         { return "domain-001" }
func (c *scoreMonotonicityCheck) Category() Category { return CategoryDomain }
func (c *scoreMonotonicityCheck) Description() string {
	return "negative or decreasing scores within a game"
}

func (c *scoreMonotonicityCheck) Run(ctx context.Context, env Env) ([]Finding, error) {
	evidence, err := env.Store.ListGameEvidence(ctx, env.Season)
	if err != nil {
		return nil, err
	}

	var findings []Finding
	for _, ev := range evidence {
		if ev.FinalStateCount == 0 && ev.EventCount == 0 {
			continue
		}
		states, err := env.Store.ListGameStates(ctx, ev.GameID)
		if err != nil {
			return nil, err
		}

		prevHome, prevAway := 0, 0
		for _, st := range states {
			if st.HomeScore < 0 || st.AwayScore < 0 {
				findings = append(findings, Finding{
					CheckID:  c.ID(),
					Category: c.Category(),
					Severity: SeverityCritical,
					GameID:   ev.GameID,
					Message:  fmt.Sprintf("negative score at play %d", st.PlayID),
				})
				continue
			}
			if st.HomeScore < prevHome || st.AwayScore < prevAway {
				findings = append(findings, Finding{
					CheckID:  c.ID(),
					Category: c.Category(),
					Severity: SeverityCritical,
					GameID:   ev.GameID,
					Message: fmt.Sprintf("score decreases at play %d (%d-%d after %d-%d)",
						st.PlayID, st.HomeScore, st.AwayScore, prevHome, prevAway),
				})
			}
			prevHome, prevAway = st.HomeScore, st.AwayScore
		}
	}
	return findings, nil
}

// multipleFinalStatesCheck (domain-002) finds games with more than one
// terminal snapshot. Picking the right one would require inference, so
// this stays manual.
type multipleFinalStatesCheck struct{}

func (c *multipleFinalStatesCheck) ID() string         { return "domain-002" }
func (c *multipleFinalStatesCheck) Category() Category { return CategoryDomain }
func (c *multipleFinalStatesCheck) Description() string {
	return "more than one final game state per game"
}

func (c *multipleFinalStatesCheck) Run(ctx context.Context, env Env) ([]Finding, error) {
	evidence, err := env.Store.ListGameEvidence(ctx, env.Season)
	if err != nil {
		return nil, err
	}
	var findings []Finding
	for _, ev := range evidence {
		if ev.FinalStateCount > 1 {
			findings = append(findings, Finding{
				CheckID:  c.ID(),
				Category: c.Category(),
				Severity: SeverityCritical,
				GameID:   ev.GameID,
				Message:  fmt.Sprintf("%d states marked final", ev.FinalStateCount),
			})
		}
	}
	return findings, nil
}

// scoreAgreementCheck (domain-003) compares the final snapshot's score
// against summed box score points. One of the two is provably wrong but
// which one cannot be inferred, so this is critical yet report-only:
// it blocks a clean run and waits for manual resolution.
type scoreAgreementCheck struct{}

func (c *scoreAgreementCheck) ID() string         { return "domain-003" }
func (c *scoreAgreementCheck) Category() Category { return CategoryDomain }
func (c *scoreAgreementCheck) Description() string {
	return "final state score disagrees with box score totals"
}

func (c *scoreAgreementCheck) Run(ctx context.Context, env Env) ([]Finding, error) {
	evidence, err := env.Store.ListGameEvidence(ctx, env.Season)
	if err != nil {
		return nil, err
	}

	var findings []Finding
	for _, ev := range evidence {
		if ev.FinalStateCount != 1 || ev.HomeBoxRows == 0 || ev.AwayBoxRows == 0 {
			continue
		}
		final, err := env.Store.FinalGameState(ctx, ev.GameID)
		if err != nil {
			return nil, err
		}
		if final == nil {
			continue
		}
		home, away, err := env.Store.BoxScoreTotals(ctx, ev.GameID)
		if err != nil {
			return nil, err
		}
		if final.HomeScore != home || final.AwayScore != away {
			findings = append(findings, Finding{
				CheckID:  c.ID(),
				Category: c.Category(),
				Severity: SeverityCritical,
				GameID:   ev.GameID,
				Message: fmt.Sprintf("final state %d-%d vs box totals %d-%d",
					final.HomeScore, final.AwayScore, home, away),
			})
		}
	}
	return findings, nil
}
