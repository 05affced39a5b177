package model

import "encoding/json"

// PlayByPlayEvent is one raw, ordered event in a game's timeline. The
// original provider payload is preserved verbatim so game states can be
// re-derived later without re-fetching.
//
// Logical primary key: (GameID, PlayID). Uniqueness is an upsert-enforced
// invariant, audited by the validator rather than a schema constraint,
// because historical imports predate the constraint.
type PlayByPlayEvent struct {
	GameID  string          `json:"game_id"`
	PlayID  int             `json:"play_id"`
	Payload json.RawMessage `json:"payload"`
}

// GameState is the structured projection derived 1:1 from a play-by-play
// event: scores, clock, and period at that moment. Exactly one state per
// game may carry IsFinal.
type GameState struct {
	GameID           string  `json:"game_id"`
	PlayID           int     `json:"play_id"`
	Period           int     `json:"period"`
	SecondsRemaining float64 `json:"seconds_remaining"` // within the period
	HomeScore        int     `json:"home_score"`
	AwayScore        int     `json:"away_score"`
	IsFinal          bool    `json:"is_final"`
}
