package model

import "time"

// Prediction is a derived record produced by the downstream model engine
// from prior-history games. The pipeline never computes predictions itself;
// it only gates their generation behind FlagCoreData and records their
// existence for FlagPredData.
type Prediction struct {
	GameID        string    `json:"game_id"`
	ModelName     string    `json:"model_name"`
	HomeScorePred float64   `json:"home_score_pred"`
	AwayScorePred float64   `json:"away_score_pred"`
	HomeWinProb   float64   `json:"home_win_prob"`
	CreatedAt     time.Time `json:"created_at"`
}
