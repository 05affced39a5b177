package model

// BoxScoreRow is one player's totals for one game. A game's box score is
// complete when both sides have their full rotation present.
type BoxScoreRow struct {
	GameID   string `json:"game_id"`
	PlayerID int    `json:"player_id"`
	Team     string `json:"team"` // tricode
	Home     bool   `json:"home"`
	Minutes  string `json:"minutes"` // "MM:SS" as reported
	Points   int    `json:"points"`
	Rebounds int    `json:"rebounds"`
	Assists  int    `json:"assists"`
}

// MinBoxRowsPerSide is the smallest credible rotation for one team in a
// completed game. Fewer rows than this means the box score is partial.
const MinBoxRowsPerSide = 5
