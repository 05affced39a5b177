package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/hoopsight/hoopsync/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// play_by_play and game_states carry no schema-level primary key: rows
// imported from the legacy database predate the constraint, and the
// validator owns duplicate detection instead. Per-game upserts replace the
// whole game's rows inside one transaction, which keeps re-runs idempotent.
const sqliteMigration = `
CREATE TABLE IF NOT EXISTS games (
	id                  TEXT PRIMARY KEY,
	season              TEXT NOT NULL,
	season_type         TEXT NOT NULL,
	game_date           DATETIME NOT NULL,
	home_team           TEXT NOT NULL,
	away_team           TEXT NOT NULL,
	status              INTEGER NOT NULL DEFAULT 1,
	core_data_finalized INTEGER NOT NULL DEFAULT 0,
	box_data_finalized  INTEGER NOT NULL DEFAULT 0,
	pred_data_finalized INTEGER NOT NULL DEFAULT 0,
	updated_at          DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS play_by_play (
	game_id TEXT NOT NULL,
	play_id INTEGER NOT NULL,
	payload TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS game_states (
	game_id           TEXT NOT NULL,
	play_id           INTEGER NOT NULL,
	period            INTEGER NOT NULL,
	seconds_remaining REAL NOT NULL,
	home_score        INTEGER NOT NULL,
	away_score        INTEGER NOT NULL,
	is_final          INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS box_scores (
	game_id   TEXT NOT NULL,
	player_id INTEGER NOT NULL,
	team      TEXT NOT NULL,
	home      INTEGER NOT NULL,
	minutes   TEXT NOT NULL DEFAULT '',
	points    INTEGER NOT NULL DEFAULT 0,
	rebounds  INTEGER NOT NULL DEFAULT 0,
	assists   INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (game_id, player_id)
);

CREATE TABLE IF NOT EXISTS odds (
	game_id        TEXT PRIMARY KEY,
	source         TEXT NOT NULL,
	spread         REAL,
	total          REAL,
	home_moneyline INTEGER,
	away_moneyline INTEGER,
	spread_result  TEXT NOT NULL DEFAULT '',
	ou_result      TEXT NOT NULL DEFAULT '',
	lines_final    INTEGER NOT NULL DEFAULT 0,
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS espn_event_map (
	game_id       TEXT PRIMARY KEY,
	espn_event_id TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS predictions (
	game_id         TEXT NOT NULL,
	model_name      TEXT NOT NULL,
	home_score_pred REAL NOT NULL,
	away_score_pred REAL NOT NULL,
	home_win_prob   REAL NOT NULL,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (game_id, model_name)
);

CREATE TABLE IF NOT EXISTS players (
	id              INTEGER PRIMARY KEY,
	name            TEXT NOT NULL,
	normalized_name TEXT NOT NULL,
	team            TEXT NOT NULL DEFAULT '',
	active          INTEGER NOT NULL DEFAULT 0,
	from_year       INTEGER NOT NULL DEFAULT 0,
	to_year         INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS injuries (
	report_date TEXT NOT NULL,
	team        TEXT NOT NULL,
	player_name TEXT NOT NULL,
	status      TEXT NOT NULL,
	reason      TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (report_date, team, player_name)
);

CREATE TABLE IF NOT EXISTS schedule_cache (
	season      TEXT PRIMARY KEY,
	last_update DATETIME NOT NULL,
	finalized   INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS sync_meta (
	key        TEXT PRIMARY KEY,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS sync_log (
	id           TEXT PRIMARY KEY,
	stage        TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	started_at   DATETIME NOT NULL,
	completed_at DATETIME,
	rows_synced  INTEGER NOT NULL DEFAULT 0,
	error        TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_games_season ON games(season);
CREATE INDEX IF NOT EXISTS idx_games_status ON games(status);
CREATE INDEX IF NOT EXISTS idx_pbp_game ON play_by_play(game_id);
CREATE INDEX IF NOT EXISTS idx_states_game ON game_states(game_id);
CREATE INDEX IF NOT EXISTS idx_players_normalized ON players(normalized_name);
CREATE INDEX IF NOT EXISTS idx_sync_log_started ON sync_log(started_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// UpsertGames inserts or refreshes schedule rows. Finalization flags are
// deliberately left untouched on conflict: schedule refreshes must never
// reset a promise the state machine has already made.
func (s *SQLiteStore) UpsertGames(ctx context.Context, games []model.Game) (int64, error) {
	if len(games) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert games: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO games (id, season, season_type, game_date, home_team, away_team, status, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			season      = excluded.season,
			season_type = excluded.season_type,
			game_date   = excluded.game_date,
			home_team   = excluded.home_team,
			away_team   = excluded.away_team,
			status      = excluded.status,
			updated_at  = excluded.updated_at`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert games: prepare")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	var n int64
	for _, g := range games {
		if _, err := stmt.ExecContext(ctx,
			g.ID, g.Season, string(g.SeasonType), g.DateTime.UTC(), g.HomeTeam, g.AwayTeam, int(g.Status), now,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert game %s", g.ID)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert games: commit")
	}
	return n, nil
}

const gameColumns = `id, season, season_type, game_date, home_team, away_team, status,
	core_data_finalized, box_data_finalized, pred_data_finalized, updated_at`

func scanGame(row interface{ Scan(...any) error }) (*model.Game, error) {
	var g model.Game
	var seasonType string
	var status int
	err := row.Scan(&g.ID, &g.Season, &seasonType, &g.DateTime, &g.HomeTeam, &g.AwayTeam, &status,
		&g.CoreDataFinalized, &g.BoxDataFinalized, &g.PredDataFinalized, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	g.SeasonType = model.SeasonType(seasonType)
	g.Status = model.GameStatus(status)
	return &g, nil
}

func (s *SQLiteStore) GetGame(ctx context.Context, id string) (*model.Game, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+gameColumns+` FROM games WHERE id = ?`, id)
	g, err := scanGame(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get game %s", id)
	}
	return g, nil
}

func (s *SQLiteStore) ListGames(ctx context.Context, filter GameFilter) ([]model.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games g WHERE 1=1`
	var args []any

	if filter.Season != "" {
		query += ` AND season = ?`
		args = append(args, filter.Season)
	}
	if len(filter.Statuses) > 0 {
		query += ` AND status IN (`
		for i, st := range filter.Statuses {
			if i > 0 {
				query += `,`
			}
			query += `?`
			args = append(args, int(st))
		}
		query += `)`
	}
	if filter.CoreFinalized != nil {
		query += ` AND core_data_finalized = ?`
		args = append(args, boolToInt(*filter.CoreFinalized))
	}
	if filter.BoxFinalized != nil {
		query += ` AND box_data_finalized = ?`
		args = append(args, boolToInt(*filter.BoxFinalized))
	}
	if filter.PredFinalized != nil {
		query += ` AND pred_data_finalized = ?`
		args = append(args, boolToInt(*filter.PredFinalized))
	}
	if filter.MissingPrediction {
		query += ` AND NOT EXISTS (SELECT 1 FROM predictions p WHERE p.game_id = g.id)`
	}
	if !filter.PlayedBefore.IsZero() {
		query += ` AND game_date < ?`
		args = append(args, filter.PlayedBefore.UTC())
	}
	query += ` ORDER BY game_date, id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list games")
	}
	defer rows.Close()

	var games []model.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan game")
		}
		games = append(games, *g)
	}
	return games, eris.Wrap(rows.Err(), "sqlite: list games iterate")
}

func (s *SQLiteStore) CountGamesBySeason(ctx context.Context, season string, types []model.SeasonType) (int, error) {
	query := `SELECT COUNT(*) FROM games WHERE season = ?`
	args := []any{season}
	if len(types) > 0 {
		query += ` AND season_type IN (`
		for i, t := range types {
			if i > 0 {
				query += `,`
			}
			query += `?`
			args = append(args, string(t))
		}
		query += `)`
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, eris.Wrapf(err, "sqlite: count games for %s", season)
	}
	return n, nil
}

var flagColumns = map[model.Flag]string{
	model.FlagCoreData: "core_data_finalized",
	model.FlagBoxData:  "box_data_finalized",
	model.FlagPredData: "pred_data_finalized",
}

func (s *SQLiteStore) SetFinalizationFlag(ctx context.Context, gameID string, flag model.Flag, value bool) error {
	col, ok := flagColumns[flag]
	if !ok {
		return eris.Errorf("sqlite: unknown finalization flag %q", flag)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE games SET `+col+` = ?, updated_at = ? WHERE id = ?`,
		boolToInt(value), time.Now().UTC(), gameID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set %s for game %s", col, gameID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: set flag rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: game %s not found", gameID)
	}
	return nil
}

// UpsertPlayByPlay replaces the game's event rows in one transaction, so a
// crashed or repeated run converges to the same state and readers never see
// a partially written game.
func (s *SQLiteStore) UpsertPlayByPlay(ctx context.Context, gameID string, events []model.PlayByPlayEvent) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert pbp: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM play_by_play WHERE game_id = ?`, gameID); err != nil {
		return 0, eris.Wrapf(err, "sqlite: upsert pbp: clear game %s", gameID)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO play_by_play (game_id, play_id, payload) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert pbp: prepare")
	}
	defer stmt.Close()

	var n int64
	for _, ev := range events {
		if _, err := stmt.ExecContext(ctx, gameID, ev.PlayID, string(ev.Payload)); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert pbp event %s/%d", gameID, ev.PlayID)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert pbp: commit")
	}
	return n, nil
}

func (s *SQLiteStore) ListPlayByPlay(ctx context.Context, gameID string) ([]model.PlayByPlayEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT game_id, play_id, payload FROM play_by_play WHERE game_id = ? ORDER BY play_id`, gameID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list pbp for %s", gameID)
	}
	defer rows.Close()

	var events []model.PlayByPlayEvent
	for rows.Next() {
		var ev model.PlayByPlayEvent
		var payload string
		if err := rows.Scan(&ev.GameID, &ev.PlayID, &payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan pbp event")
		}
		ev.Payload = []byte(payload)
		events = append(events, ev)
	}
	return events, eris.Wrap(rows.Err(), "sqlite: list pbp iterate")
}

func (s *SQLiteStore) UpsertGameStates(ctx context.Context, gameID string, states []model.GameState) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert states: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM game_states WHERE game_id = ?`, gameID); err != nil {
		return 0, eris.Wrapf(err, "sqlite: upsert states: clear game %s", gameID)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO game_states (game_id, play_id, period, seconds_remaining, home_score, away_score, is_final)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert states: prepare")
	}
	defer stmt.Close()

	var n int64
	for _, st := range states {
		if _, err := stmt.ExecContext(ctx,
			gameID, st.PlayID, st.Period, st.SecondsRemaining, st.HomeScore, st.AwayScore, boolToInt(st.IsFinal),
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert state %s/%d", gameID, st.PlayID)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert states: commit")
	}
	return n, nil
}

func (s *SQLiteStore) ListGameStates(ctx context.Context, gameID string) ([]model.GameState, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT game_id, play_id, period, seconds_remaining, home_score, away_score, is_final
		FROM game_states WHERE game_id = ? ORDER BY play_id`, gameID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list states for %s", gameID)
	}
	defer rows.Close()

	var states []model.GameState
	for rows.Next() {
		var st model.GameState
		if err := rows.Scan(&st.GameID, &st.PlayID, &st.Period, &st.SecondsRemaining,
			&st.HomeScore, &st.AwayScore, &st.IsFinal); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan game state")
		}
		states = append(states, st)
	}
	return states, eris.Wrap(rows.Err(), "sqlite: list states iterate")
}

func (s *SQLiteStore) FinalGameState(ctx context.Context, gameID string) (*model.GameState, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT game_id, play_id, period, seconds_remaining, home_score, away_score, is_final
		FROM game_states WHERE game_id = ? AND is_final = 1 ORDER BY play_id DESC LIMIT 1`, gameID)

	var st model.GameState
	err := row.Scan(&st.GameID, &st.PlayID, &st.Period, &st.SecondsRemaining,
		&st.HomeScore, &st.AwayScore, &st.IsFinal)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: final state for %s", gameID)
	}
	return &st, nil
}

func (s *SQLiteStore) UpsertBoxScoreRows(ctx context.Context, boxRows []model.BoxScoreRow) (int64, error) {
	if len(boxRows) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert box: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO box_scores (game_id, player_id, team, home, minutes, points, rebounds, assists)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(game_id, player_id) DO UPDATE SET
			team     = excluded.team,
			home     = excluded.home,
			minutes  = excluded.minutes,
			points   = excluded.points,
			rebounds = excluded.rebounds,
			assists  = excluded.assists`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert box: prepare")
	}
	defer stmt.Close()

	var n int64
	for _, r := range boxRows {
		if _, err := stmt.ExecContext(ctx,
			r.GameID, r.PlayerID, r.Team, boolToInt(r.Home), r.Minutes, r.Points, r.Rebounds, r.Assists,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert box row %s/%d", r.GameID, r.PlayerID)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert box: commit")
	}
	return n, nil
}

func (s *SQLiteStore) ListBoxScoreRows(ctx context.Context, gameID string) ([]model.BoxScoreRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT game_id, player_id, team, home, minutes, points, rebounds, assists
		FROM box_scores WHERE game_id = ? ORDER BY home DESC, player_id`, gameID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list box for %s", gameID)
	}
	defer rows.Close()

	var result []model.BoxScoreRow
	for rows.Next() {
		var r model.BoxScoreRow
		if err := rows.Scan(&r.GameID, &r.PlayerID, &r.Team, &r.Home, &r.Minutes,
			&r.Points, &r.Rebounds, &r.Assists); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan box row")
		}
		result = append(result, r)
	}
	return result, eris.Wrap(rows.Err(), "sqlite: list box iterate")
}

func (s *SQLiteStore) BoxScoreTotals(ctx context.Context, gameID string) (int, int, error) {
	var home, away int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE WHEN home = 1 THEN points ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN home = 0 THEN points ELSE 0 END), 0)
		FROM box_scores WHERE game_id = ?`, gameID).Scan(&home, &away)
	if err != nil {
		return 0, 0, eris.Wrapf(err, "sqlite: box totals for %s", gameID)
	}
	return home, away, nil
}

func (s *SQLiteStore) UpsertOddsLine(ctx context.Context, line model.OddsLine) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO odds (game_id, source, spread, total, home_moneyline, away_moneyline,
			spread_result, ou_result, lines_final, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(game_id) DO UPDATE SET
			source         = excluded.source,
			spread         = excluded.spread,
			total          = excluded.total,
			home_moneyline = excluded.home_moneyline,
			away_moneyline = excluded.away_moneyline,
			spread_result  = excluded.spread_result,
			ou_result      = excluded.ou_result,
			lines_final    = excluded.lines_final,
			updated_at     = excluded.updated_at`,
		line.GameID, line.Source, line.Spread, line.Total, line.HomeMoneyline, line.AwayMoneyline,
		line.SpreadResult, line.OUResult, boolToInt(line.LinesFinal), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: upsert odds for %s", line.GameID)
}

func (s *SQLiteStore) GetOddsLine(ctx context.Context, gameID string) (*model.OddsLine, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT game_id, source, spread, total, home_moneyline, away_moneyline,
			spread_result, ou_result, lines_final, updated_at
		FROM odds WHERE game_id = ?`, gameID)

	var line model.OddsLine
	err := row.Scan(&line.GameID, &line.Source, &line.Spread, &line.Total,
		&line.HomeMoneyline, &line.AwayMoneyline, &line.SpreadResult, &line.OUResult,
		&line.LinesFinal, &line.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get odds for %s", gameID)
	}
	return &line, nil
}

func (s *SQLiteStore) GetESPNEventID(ctx context.Context, gameID string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT espn_event_id FROM espn_event_map WHERE game_id = ?`, gameID).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: get espn event id for %s", gameID)
	}
	return id, nil
}

func (s *SQLiteStore) SetESPNEventID(ctx context.Context, gameID, eventID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO espn_event_map (game_id, espn_event_id) VALUES (?, ?)
		ON CONFLICT(game_id) DO UPDATE SET espn_event_id = excluded.espn_event_id`,
		gameID, eventID)
	return eris.Wrapf(err, "sqlite: set espn event id for %s", gameID)
}

func (s *SQLiteStore) UpsertPrediction(ctx context.Context, p model.Prediction) error {
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO predictions (game_id, model_name, home_score_pred, away_score_pred, home_win_prob, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(game_id, model_name) DO UPDATE SET
			home_score_pred = excluded.home_score_pred,
			away_score_pred = excluded.away_score_pred,
			home_win_prob   = excluded.home_win_prob,
			created_at      = excluded.created_at`,
		p.GameID, p.ModelName, p.HomeScorePred, p.AwayScorePred, p.HomeWinProb, createdAt)
	return eris.Wrapf(err, "sqlite: upsert prediction for %s", p.GameID)
}

func (s *SQLiteStore) CountPredictions(ctx context.Context, gameID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM predictions WHERE game_id = ?`, gameID).Scan(&n)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: count predictions for %s", gameID)
	}
	return n, nil
}

func (s *SQLiteStore) UpsertPlayers(ctx context.Context, players []model.Player) (int64, error) {
	if len(players) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert players: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO players (id, name, normalized_name, team, active, from_year, to_year)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name            = excluded.name,
			normalized_name = excluded.normalized_name,
			team            = excluded.team,
			active          = excluded.active,
			from_year       = excluded.from_year,
			to_year         = excluded.to_year`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert players: prepare")
	}
	defer stmt.Close()

	var n int64
	for _, p := range players {
		if _, err := stmt.ExecContext(ctx,
			p.ID, p.Name, p.NormalizedName, p.Team, boolToInt(p.Active), p.FromYear, p.ToYear,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert player %d", p.ID)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert players: commit")
	}
	return n, nil
}

func (s *SQLiteStore) CountActivePlayers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM players WHERE active = 1`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "sqlite: count active players")
	}
	return n, nil
}

func (s *SQLiteStore) UpsertInjuries(ctx context.Context, entries []model.InjuryEntry) (int64, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert injuries: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO injuries (report_date, team, player_name, status, reason)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(report_date, team, player_name) DO UPDATE SET
			status = excluded.status,
			reason = excluded.reason`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert injuries: prepare")
	}
	defer stmt.Close()

	var n int64
	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx,
			e.ReportDate.UTC().Format("2006-01-02"), e.Team, e.PlayerName, e.Status, e.Reason,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert injury %s/%s", e.Team, e.PlayerName)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert injuries: commit")
	}
	return n, nil
}

func (s *SQLiteStore) GetScheduleCache(ctx context.Context, season string) (*ScheduleCache, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT season, last_update, finalized FROM schedule_cache WHERE season = ?`, season)

	var c ScheduleCache
	err := row.Scan(&c.Season, &c.LastUpdate, &c.Finalized)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: schedule cache for %s", season)
	}
	return &c, nil
}

// SetScheduleCache stamps the season's refresh time. A season once
// finalized stays finalized even if a later refresh passes false.
func (s *SQLiteStore) SetScheduleCache(ctx context.Context, season string, finalized bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO schedule_cache (season, last_update, finalized) VALUES (?, ?, ?)
		ON CONFLICT(season) DO UPDATE SET
			last_update = excluded.last_update,
			finalized   = CASE WHEN excluded.finalized = 1 THEN 1 ELSE finalized END`,
		season, time.Now().UTC(), boolToInt(finalized))
	return eris.Wrapf(err, "sqlite: set schedule cache for %s", season)
}

func (s *SQLiteStore) GetSyncMeta(ctx context.Context, key string) (*time.Time, error) {
	var t time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT updated_at FROM sync_meta WHERE key = ?`, key).Scan(&t)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: sync meta %s", key)
	}
	return &t, nil
}

func (s *SQLiteStore) SetSyncMeta(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_meta (key, updated_at) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET updated_at = excluded.updated_at`,
		key, time.Now().UTC())
	return eris.Wrapf(err, "sqlite: set sync meta %s", key)
}

func (s *SQLiteStore) StartSync(ctx context.Context, stage string) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_log (id, stage, status, started_at) VALUES (?, ?, 'running', ?)`,
		id, stage, time.Now().UTC())
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: start sync for %s", stage)
	}
	return id, nil
}

func (s *SQLiteStore) CompleteSync(ctx context.Context, id string, rows int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sync_log SET status = 'complete', completed_at = ?, rows_synced = ? WHERE id = ?`,
		time.Now().UTC(), rows, id)
	return eris.Wrapf(err, "sqlite: complete sync %s", id)
}

func (s *SQLiteStore) FailSync(ctx context.Context, id string, errMsg string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sync_log SET status = 'failed', completed_at = ?, error = ? WHERE id = ?`,
		time.Now().UTC(), errMsg, id)
	return eris.Wrapf(err, "sqlite: fail sync %s", id)
}

func (s *SQLiteStore) ListSyncLog(ctx context.Context, limit int) ([]SyncEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, stage, status, started_at, completed_at, rows_synced, error
		FROM sync_log ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list sync log")
	}
	defer rows.Close()

	var entries []SyncEntry
	for rows.Next() {
		var e SyncEntry
		if err := rows.Scan(&e.ID, &e.Stage, &e.Status, &e.StartedAt, &e.CompletedAt, &e.Rows, &e.Error); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan sync entry")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: list sync log iterate")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
