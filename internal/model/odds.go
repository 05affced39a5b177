package model

import "time"

// OddsLine holds the betting numbers collected for one game, from whichever
// source answered first (primary live provider, then the archival fallback).
type OddsLine struct {
	GameID        string    `json:"game_id"`
	Source        string    `json:"source"`           // provider name that supplied the line
	Spread        *float64  `json:"spread,omitempty"` // home-relative, negative = home favored
	Total         *float64  `json:"total,omitempty"`
	HomeMoneyline *int      `json:"home_moneyline,omitempty"`
	AwayMoneyline *int      `json:"away_moneyline,omitempty"`
	SpreadResult  string    `json:"spread_result,omitempty"` // "W", "L", "P"
	OUResult      string    `json:"ou_result,omitempty"`     // "O", "U", "P"
	LinesFinal    bool      `json:"lines_final"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Complete reports whether both closing numbers are present.
func (o *OddsLine) Complete() bool {
	return o.Spread != nil && o.Total != nil
}
