// Package store provides the persistence layer for the ingestion pipeline
// and the validator. Every write is an idempotent upsert keyed by the
// record's logical primary key, so any stage can be safely re-run.
package store

import (
	"context"
	"time"

	"github.com/hoopsight/hoopsync/internal/model"
)

// GameFilter specifies criteria for listing games.
type GameFilter struct {
	Season            string
	Statuses          []model.GameStatus
	CoreFinalized     *bool
	BoxFinalized      *bool
	PredFinalized     *bool
	MissingPrediction bool // only games with no prediction rows
	PlayedBefore      time.Time
	Limit             int
}

// GameEvidence aggregates the per-game record counts the finalization
// predicates and the flag-consistency checks are computed from.
type GameEvidence struct {
	GameID            string
	Season            string
	Status            model.GameStatus
	DateTime          time.Time
	CoreDataFinalized bool
	BoxDataFinalized  bool
	PredDataFinalized bool
	EventCount        int
	FinalStateCount   int
	HomeBoxRows       int
	AwayBoxRows       int
	PredictionCount   int
}

// RecordKey identifies one child record of a game.
type RecordKey struct {
	GameID string
	PlayID int
}

// ScheduleCache records when a season's schedule was last refreshed and
// whether it is finalized (all games Final, never refetched again).
type ScheduleCache struct {
	Season     string
	LastUpdate time.Time
	Finalized  bool
}

// SyncEntry is one row of the pipeline sync log.
type SyncEntry struct {
	ID          string
	Stage       string
	Status      string // "running", "complete", "failed"
	StartedAt   time.Time
	CompletedAt *time.Time
	Rows        int64
	Error       string
}

// Store defines the persistence interface shared by the pipeline, the
// finalization state machine, and the validator.
type Store interface {
	// Games
	UpsertGames(ctx context.Context, games []model.Game) (int64, error)
	GetGame(ctx context.Context, id string) (*model.Game, error)
	ListGames(ctx context.Context, filter GameFilter) ([]model.Game, error)
	CountGamesBySeason(ctx context.Context, season string, types []model.SeasonType) (int, error)
	SetFinalizationFlag(ctx context.Context, gameID string, flag model.Flag, value bool) error

	// Play-by-play events
	UpsertPlayByPlay(ctx context.Context, gameID string, events []model.PlayByPlayEvent) (int64, error)
	ListPlayByPlay(ctx context.Context, gameID string) ([]model.PlayByPlayEvent, error)

	// Game states
	UpsertGameStates(ctx context.Context, gameID string, states []model.GameState) (int64, error)
	ListGameStates(ctx context.Context, gameID string) ([]model.GameState, error)
	FinalGameState(ctx context.Context, gameID string) (*model.GameState, error)

	// Box scores
	UpsertBoxScoreRows(ctx context.Context, rows []model.BoxScoreRow) (int64, error)
	ListBoxScoreRows(ctx context.Context, gameID string) ([]model.BoxScoreRow, error)
	BoxScoreTotals(ctx context.Context, gameID string) (home int, away int, err error)

	// Betting odds
	UpsertOddsLine(ctx context.Context, line model.OddsLine) error
	GetOddsLine(ctx context.Context, gameID string) (*model.OddsLine, error)
	GetESPNEventID(ctx context.Context, gameID string) (string, error)
	SetESPNEventID(ctx context.Context, gameID, eventID string) error

	// Predictions (written by the downstream model engine; read here to
	// evaluate FlagPredData and expose the handoff queue)
	UpsertPrediction(ctx context.Context, p model.Prediction) error
	CountPredictions(ctx context.Context, gameID string) (int, error)

	// Rosters and injuries
	UpsertPlayers(ctx context.Context, players []model.Player) (int64, error)
	CountActivePlayers(ctx context.Context) (int, error)
	UpsertInjuries(ctx context.Context, entries []model.InjuryEntry) (int64, error)

	// Freshness caches
	GetScheduleCache(ctx context.Context, season string) (*ScheduleCache, error)
	SetScheduleCache(ctx context.Context, season string, finalized bool) error
	GetSyncMeta(ctx context.Context, key string) (*time.Time, error)
	SetSyncMeta(ctx context.Context, key string) error

	// Sync log
	StartSync(ctx context.Context, stage string) (string, error)
	CompleteSync(ctx context.Context, id string, rows int64) error
	FailSync(ctx context.Context, id string, errMsg string) error
	ListSyncLog(ctx context.Context, limit int) ([]SyncEntry, error)

	// Validator queries. Each Delete* applies exactly the predicate of its
	// matching key query, so fixes never touch records the check did not
	// flag, and re-running a fix is a no-op.
	ListGameEvidence(ctx context.Context, season string) ([]GameEvidence, error)
	OrphanBoxScoreKeys(ctx context.Context) ([]string, error)
	DeleteOrphanBoxScoreRows(ctx context.Context) (int64, error)
	OrphanEventKeys(ctx context.Context) ([]RecordKey, error)
	DeleteOrphanEvents(ctx context.Context) (int64, error)
	OrphanGameStateKeys(ctx context.Context) ([]RecordKey, error)
	DeleteOrphanGameStates(ctx context.Context) (int64, error)
	DuplicateEventKeys(ctx context.Context) ([]RecordKey, error)
	DeleteDuplicateEvents(ctx context.Context) (int64, error)
	UnmatchedGameStateKeys(ctx context.Context) ([]RecordKey, error)
	DeleteUnmatchedGameStates(ctx context.Context) (int64, error)
	UnknownBoxScorePlayers(ctx context.Context) ([]string, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
