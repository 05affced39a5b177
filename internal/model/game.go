package model

import "time"

// GameStatus mirrors the status codes used by the league schedule feed.
type GameStatus int

const (
	StatusScheduled  GameStatus = 1
	StatusInProgress GameStatus = 2
	StatusFinal      GameStatus = 3
)

func (s GameStatus) String() string {
	switch s {
	case StatusScheduled:
		return "scheduled"
	case StatusInProgress:
		return "in_progress"
	case StatusFinal:
		return "final"
	default:
		return "unknown"
	}
}

// Completed reports whether the game has finished and its data can be
// collected in full.
func (s GameStatus) Completed() bool {
	return s == StatusFinal
}

// SeasonType distinguishes regular season from post season and exhibition play.
type SeasonType string

const (
	SeasonPre     SeasonType = "Pre Season"
	SeasonRegular SeasonType = "Regular Season"
	SeasonAllStar SeasonType = "All-Star"
	SeasonPost    SeasonType = "Post Season"
)

// Flag identifies one of the three independent finalization flags tracked
// per game. Flags are monotonic under normal pipeline operation: once set
// they are only ever cleared by a validator fix.
type Flag string

const (
	// FlagCoreData marks that play-by-play events and game states are
	// complete, including exactly one terminal state.
	FlagCoreData Flag = "core_data_finalized"

	// FlagBoxData marks that the full box score exists for both sides.
	FlagBoxData Flag = "box_data_finalized"

	// FlagPredData marks that derived prediction rows exist. Requires
	// FlagCoreData to already be set.
	FlagPredData Flag = "pred_data_finalized"
)

// Game is the central unit of ingestion: one scheduled game instance.
//
// The ID is the league's opaque identifier (e.g. "0022300456") encoding
// season type, season, and game sequence. Games are created when schedule
// ingestion discovers them and are never deleted by the pipeline.
type Game struct {
	ID         string     `json:"id"`
	Season     string     `json:"season"` // e.g. "2023-2024"
	SeasonType SeasonType `json:"season_type"`
	DateTime   time.Time  `json:"date_time"` // tip-off, UTC
	HomeTeam   string     `json:"home_team"` // tricode, e.g. "BOS"
	AwayTeam   string     `json:"away_team"`
	Status     GameStatus `json:"status"`

	CoreDataFinalized bool `json:"core_data_finalized"`
	BoxDataFinalized  bool `json:"box_data_finalized"`
	PredDataFinalized bool `json:"pred_data_finalized"`

	UpdatedAt time.Time `json:"updated_at"`
}

// FlagValue returns the current value of the given finalization flag.
func (g *Game) FlagValue(f Flag) bool {
	switch f {
	case FlagCoreData:
		return g.CoreDataFinalized
	case FlagBoxData:
		return g.BoxDataFinalized
	case FlagPredData:
		return g.PredDataFinalized
	default:
		return false
	}
}

// SetFlagValue updates the in-memory copy of the given flag.
func (g *Game) SetFlagValue(f Flag, v bool) {
	switch f {
	case FlagCoreData:
		g.CoreDataFinalized = v
	case FlagBoxData:
		g.BoxDataFinalized = v
	case FlagPredData:
		g.PredDataFinalized = v
	}
}
