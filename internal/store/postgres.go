package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/hoopsight/hoopsync/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock implements it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// PostgresStore implements Store using pgx.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS games (
	id                  TEXT PRIMARY KEY,
	season              TEXT NOT NULL,
	season_type         TEXT NOT NULL,
	game_date           TIMESTAMPTZ NOT NULL,
	home_team           TEXT NOT NULL,
	away_team           TEXT NOT NULL,
	status              INT NOT NULL DEFAULT 1,
	core_data_finalized BOOLEAN NOT NULL DEFAULT FALSE,
	box_data_finalized  BOOLEAN NOT NULL DEFAULT FALSE,
	pred_data_finalized BOOLEAN NOT NULL DEFAULT FALSE,
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS play_by_play (
	game_id TEXT NOT NULL,
	play_id INT NOT NULL,
	payload JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS game_states (
	game_id           TEXT NOT NULL,
	play_id           INT NOT NULL,
	period            INT NOT NULL,
	seconds_remaining DOUBLE PRECISION NOT NULL,
	home_score        INT NOT NULL,
	away_score        INT NOT NULL,
	is_final          BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS box_scores (
	game_id   TEXT NOT NULL,
	player_id INT NOT NULL,
	team      TEXT NOT NULL,
	home      BOOLEAN NOT NULL,
	minutes   TEXT NOT NULL DEFAULT '',
	points    INT NOT NULL DEFAULT 0,
	rebounds  INT NOT NULL DEFAULT 0,
	assists   INT NOT NULL DEFAULT 0,
	PRIMARY KEY (game_id, player_id)
);

CREATE TABLE IF NOT EXISTS odds (
	game_id        TEXT PRIMARY KEY,
	source         TEXT NOT NULL,
	spread         DOUBLE PRECISION,
	total          DOUBLE PRECISION,
	home_moneyline INT,
	away_moneyline INT,
	spread_result  TEXT NOT NULL DEFAULT '',
	ou_result      TEXT NOT NULL DEFAULT '',
	lines_final    BOOLEAN NOT NULL DEFAULT FALSE,
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS espn_event_map (
	game_id       TEXT PRIMARY KEY,
	espn_event_id TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS predictions (
	game_id         TEXT NOT NULL,
	model_name      TEXT NOT NULL,
	home_score_pred DOUBLE PRECISION NOT NULL,
	away_score_pred DOUBLE PRECISION NOT NULL,
	home_win_prob   DOUBLE PRECISION NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (game_id, model_name)
);

CREATE TABLE IF NOT EXISTS players (
	id              INT PRIMARY KEY,
	name            TEXT NOT NULL,
	normalized_name TEXT NOT NULL,
	team            TEXT NOT NULL DEFAULT '',
	active          BOOLEAN NOT NULL DEFAULT FALSE,
	from_year       INT NOT NULL DEFAULT 0,
	to_year         INT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS injuries (
	report_date DATE NOT NULL,
	team        TEXT NOT NULL,
	player_name TEXT NOT NULL,
	status      TEXT NOT NULL,
	reason      TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (report_date, team, player_name)
);

CREATE TABLE IF NOT EXISTS schedule_cache (
	season      TEXT PRIMARY KEY,
	last_update TIMESTAMPTZ NOT NULL,
	finalized   BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS sync_meta (
	key        TEXT PRIMARY KEY,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS sync_log (
	id           TEXT PRIMARY KEY,
	stage        TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	started_at   TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ,
	rows_synced  BIGINT NOT NULL DEFAULT 0,
	error        TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_games_season ON games(season);
CREATE INDEX IF NOT EXISTS idx_games_status ON games(status);
CREATE INDEX IF NOT EXISTS idx_pbp_game ON play_by_play(game_id);
CREATE INDEX IF NOT EXISTS idx_states_game ON game_states(game_id);
CREATE INDEX IF NOT EXISTS idx_players_normalized ON players(normalized_name);
CREATE INDEX IF NOT EXISTS idx_sync_log_started ON sync_log(started_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) UpsertGames(ctx context.Context, games []model.Game) (int64, error) {
	if len(games) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert games: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()
	var n int64
	for _, g := range games {
		if _, err := tx.Exec(ctx, `
			INSERT INTO games (id, season, season_type, game_date, home_team, away_team, status, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO UPDATE SET
				season      = excluded.season,
				season_type = excluded.season_type,
				game_date   = excluded.game_date,
				home_team   = excluded.home_team,
				away_team   = excluded.away_team,
				status      = excluded.status,
				updated_at  = excluded.updated_at`,
			g.ID, g.Season, string(g.SeasonType), g.DateTime.UTC(), g.HomeTeam, g.AwayTeam, int(g.Status), now,
		); err != nil {
			return 0, eris.Wrapf(err, "postgres: upsert game %s", g.ID)
		}
		n++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: upsert games: commit")
	}
	return n, nil
}

const pgGameColumns = `id, season, season_type, game_date, home_team, away_team, status,
	core_data_finalized, box_data_finalized, pred_data_finalized, updated_at`

func scanPGGame(row pgx.Row) (*model.Game, error) {
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

func (s *PostgresStore) GetGame(ctx context.Context, id string) (*model.Game, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+pgGameColumns+` FROM games WHERE id = $1`, id)
	g, err := scanPGGame(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get game %s", id)
	}
	return g, nil
}

func (s *PostgresStore) ListGames(ctx context.Context, filter GameFilter) ([]model.Game, error) {
	query := `SELECT ` + pgGameColumns + ` FROM games g WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Season != "" {
		query += ` AND season = ` + arg(filter.Season)
	}
	if len(filter.Statuses) > 0 {
		query += ` AND status IN (`
		for i, st := range filter.Statuses {
			if i > 0 {
				query += `,`
			}
			query += arg(int(st))
		}
		query += `)`
	}
	if filter.CoreFinalized != nil {
		query += ` AND core_data_finalized = ` + arg(*filter.CoreFinalized)
	}
	if filter.BoxFinalized != nil {
		query += ` AND box_data_finalized = ` + arg(*filter.BoxFinalized)
	}
	if filter.PredFinalized != nil {
		query += ` AND pred_data_finalized = ` + arg(*filter.PredFinalized)
	}
	if filter.MissingPrediction {
		query += ` AND NOT EXISTS (SELECT 1 FROM predictions p WHERE p.game_id = g.id)`
	}
	if !filter.PlayedBefore.IsZero() {
		query += ` AND game_date < ` + arg(filter.PlayedBefore.UTC())
	}
	query += ` ORDER BY game_date, id`
	if filter.Limit > 0 {
		query += ` LIMIT ` + arg(filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list games")
	}
	defer rows.Close()

	var games []model.Game
	for rows.Next() {
		g, err := scanPGGame(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan game")
		}
		games = append(games, *g)
	}
	return games, eris.Wrap(rows.Err(), "postgres: list games iterate")
}

func (s *PostgresStore) CountGamesBySeason(ctx context.Context, season string, types []model.SeasonType) (int, error) {
	query := `SELECT COUNT(*) FROM games WHERE season = $1`
	args := []any{season}
	if len(types) > 0 {
		query += ` AND season_type = ANY($2)`
		strs := make([]string, len(types))
		for i, t := range types {
			strs[i] = string(t)
		}
		args = append(args, strs)
	}
	var n int
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, eris.Wrapf(err, "postgres: count games for %s", season)
	}
	return n, nil
}

func (s *PostgresStore) SetFinalizationFlag(ctx context.Context, gameID string, flag model.Flag, value bool) error {
	col, ok := flagColumns[flag]
	if !ok {
		return eris.Errorf("postgres: unknown finalization flag %q", flag)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE games SET `+col+` = $1, updated_at = $2 WHERE id = $3`,
		value, time.Now().UTC(), gameID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set %s for game %s", col, gameID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: game %s not found", gameID)
	}
	return nil
}

func (s *PostgresStore) UpsertPlayByPlay(ctx context.Context, gameID string, events []model.PlayByPlayEvent) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert pbp: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM play_by_play WHERE game_id = $1`, gameID); err != nil {
		return 0, eris.Wrapf(err, "postgres: upsert pbp: clear game %s", gameID)
	}

	rows := make([][]any, len(events))
	for i, ev := range events {
		rows[i] = []any{gameID, ev.PlayID, []byte(ev.Payload)}
	}
	n, err := tx.CopyFrom(ctx, pgx.Identifier{"play_by_play"},
		[]string{"game_id", "play_id", "payload"}, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: upsert pbp: copy for %s", gameID)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: upsert pbp: commit")
	}
	return n, nil
}

func (s *PostgresStore) ListPlayByPlay(ctx context.Context, gameID string) ([]model.PlayByPlayEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT game_id, play_id, payload FROM play_by_play WHERE game_id = $1 ORDER BY play_id`, gameID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list pbp for %s", gameID)
	}
	defer rows.Close()

	var events []model.PlayByPlayEvent
	for rows.Next() {
		var ev model.PlayByPlayEvent
		var payload []byte
		if err := rows.Scan(&ev.GameID, &ev.PlayID, &payload); err != nil {
			return nil, eris.Wrap(err, "postgres: scan pbp event")
		}
		ev.Payload = payload
		events = append(events, ev)
	}
	return events, eris.Wrap(rows.Err(), "postgres: list pbp iterate")
}

func (s *PostgresStore) UpsertGameStates(ctx context.Context, gameID string, states []model.GameState) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert states: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM game_states WHERE game_id = $1`, gameID); err != nil {
		return 0, eris.Wrapf(err, "postgres: upsert states: clear game %s", gameID)
	}

	rows := make([][]any, len(states))
	for i, st := range states {
		rows[i] = []any{gameID, st.PlayID, st.Period, st.SecondsRemaining, st.HomeScore, st.AwayScore, st.IsFinal}
	}
	n, err := tx.CopyFrom(ctx, pgx.Identifier{"game_states"},
		[]string{"game_id", "play_id", "period", "seconds_remaining", "home_score", "away_score", "is_final"},
		pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: upsert states: copy for %s", gameID)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: upsert states: commit")
	}
	return n, nil
}

func (s *PostgresStore) ListGameStates(ctx context.Context, gameID string) ([]model.GameState, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT game_id, play_id, period, seconds_remaining, home_score, away_score, is_final
		FROM game_states WHERE game_id = $1 ORDER BY play_id`, gameID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list states for %s", gameID)
	}
	defer rows.Close()

	var states []model.GameState
	for rows.Next() {
		var st model.GameState
		if err := rows.Scan(&st.GameID, &st.PlayID, &st.Period, &st.SecondsRemaining,
			&st.HomeScore, &st.AwayScore, &st.IsFinal); err != nil {
			return nil, eris.Wrap(err, "postgres: scan game state")
		}
		states = append(states, st)
	}
	return states, eris.Wrap(rows.Err(), "postgres: list states iterate")
}

func (s *PostgresStore) FinalGameState(ctx context.Context, gameID string) (*model.GameState, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT game_id, play_id, period, seconds_remaining, home_score, away_score, is_final
		FROM game_states WHERE game_id = $1 AND is_final ORDER BY play_id DESC LIMIT 1`, gameID)

	var st model.GameState
	err := row.Scan(&st.GameID, &st.PlayID, &st.Period, &st.SecondsRemaining,
		&st.HomeScore, &st.AwayScore, &st.IsFinal)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: final state for %s", gameID)
	}
	return &st, nil
}

func (s *PostgresStore) UpsertBoxScoreRows(ctx context.Context, boxRows []model.BoxScoreRow) (int64, error) {
	if len(boxRows) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert box: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var n int64
	for _, r := range boxRows {
		if _, err := tx.Exec(ctx, `
			INSERT INTO box_scores (game_id, player_id, team, home, minutes, points, rebounds, assists)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (game_id, player_id) DO UPDATE SET
				team     = excluded.team,
				home     = excluded.home,
				minutes  = excluded.minutes,
				points   = excluded.points,
				rebounds = excluded.rebounds,
				assists  = excluded.assists`,
			r.GameID, r.PlayerID, r.Team, r.Home, r.Minutes, r.Points, r.Rebounds, r.Assists,
		); err != nil {
			return 0, eris.Wrapf(err, "postgres: upsert box row %s/%d", r.GameID, r.PlayerID)
		}
		n++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: upsert box: commit")
	}
	return n, nil
}

func (s *PostgresStore) ListBoxScoreRows(ctx context.Context, gameID string) ([]model.BoxScoreRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT game_id, player_id, team, home, minutes, points, rebounds, assists
		FROM box_scores WHERE game_id = $1 ORDER BY home DESC, player_id`, gameID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list box for %s", gameID)
	}
	defer rows.Close()

	var result []model.BoxScoreRow
	for rows.Next() {
		var r model.BoxScoreRow
		if err := rows.Scan(&r.GameID, &r.PlayerID, &r.Team, &r.Home, &r.Minutes,
			&r.Points, &r.Rebounds, &r.Assists); err != nil {
			return nil, eris.Wrap(err, "postgres: scan box row")
		}
		result = append(result, r)
	}
	return result, eris.Wrap(rows.Err(), "postgres: list box iterate")
}

func (s *PostgresStore) BoxScoreTotals(ctx context.Context, gameID string) (int, int, error) {
	var home, away int
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(points) FILTER (WHERE home), 0),
		       COALESCE(SUM(points) FILTER (WHERE NOT home), 0)
		FROM box_scores WHERE game_id = $1`, gameID).Scan(&home, &away)
	if err != nil {
		return 0, 0, eris.Wrapf(err, "postgres: box totals for %s", gameID)
	}
	return home, away, nil
}

func (s *PostgresStore) UpsertOddsLine(ctx context.Context, line model.OddsLine) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO odds (game_id, source, spread, total, home_moneyline, away_moneyline,
			spread_result, ou_result, lines_final, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (game_id) DO UPDATE SET
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
		line.SpreadResult, line.OUResult, line.LinesFinal, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: upsert odds for %s", line.GameID)
}

func (s *PostgresStore) GetOddsLine(ctx context.Context, gameID string) (*model.OddsLine, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT game_id, source, spread, total, home_moneyline, away_moneyline,
			spread_result, ou_result, lines_final, updated_at
		FROM odds WHERE game_id = $1`, gameID)

	var line model.OddsLine
	err := row.Scan(&line.GameID, &line.Source, &line.Spread, &line.Total,
		&line.HomeMoneyline, &line.AwayMoneyline, &line.SpreadResult, &line.OUResult,
		&line.LinesFinal, &line.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get odds for %s", gameID)
	}
	return &line, nil
}

func (s *PostgresStore) GetESPNEventID(ctx context.Context, gameID string) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx,
		`SELECT espn_event_id FROM espn_event_map WHERE game_id = $1`, gameID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrapf(err, "postgres: get espn event id for %s", gameID)
	}
	return id, nil
}

func (s *PostgresStore) SetESPNEventID(ctx context.Context, gameID, eventID string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO espn_event_map (game_id, espn_event_id) VALUES ($1, $2)
		ON CONFLICT (game_id) DO UPDATE SET espn_event_id = excluded.espn_event_id`,
		gameID, eventID)
	return eris.Wrapf(err, "postgres: set espn event id for %s", gameID)
}

func (s *PostgresStore) UpsertPrediction(ctx context.Context, p model.Prediction) error {
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO predictions (game_id, model_name, home_score_pred, away_score_pred, home_win_prob, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (game_id, model_name) DO UPDATE SET
			home_score_pred = excluded.home_score_pred,
			away_score_pred = excluded.away_score_pred,
			home_win_prob   = excluded.home_win_prob,
			created_at      = excluded.created_at`,
		p.GameID, p.ModelName, p.HomeScorePred, p.AwayScorePred, p.HomeWinProb, createdAt)
	return eris.Wrapf(err, "postgres: upsert prediction for %s", p.GameID)
}

func (s *PostgresStore) CountPredictions(ctx context.Context, gameID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM predictions WHERE game_id = $1`, gameID).Scan(&n)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: count predictions for %s", gameID)
	}
	return n, nil
}

func (s *PostgresStore) UpsertPlayers(ctx context.Context, players []model.Player) (int64, error) {
	if len(players) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert players: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var n int64
	for _, p := range players {
		if _, err := tx.Exec(ctx, `
			INSERT INTO players (id, name, normalized_name, team, active, from_year, to_year)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				name            = excluded.name,
				normalized_name = excluded.normalized_name,
				team            = excluded.team,
				active          = excluded.active,
				from_year       = excluded.from_year,
				to_year         = excluded.to_year`,
			p.ID, p.Name, p.NormalizedName, p.Team, p.Active, p.FromYear, p.ToYear,
		); err != nil {
			return 0, eris.Wrapf(err, "postgres: upsert player %d", p.ID)
		}
		n++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: upsert players: commit")
	}
	return n, nil
}

func (s *PostgresStore) CountActivePlayers(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM players WHERE active`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "postgres: count active players")
	}
	return n, nil
}

func (s *PostgresStore) UpsertInjuries(ctx context.Context, entries []model.InjuryEntry) (int64, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert injuries: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var n int64
	for _, e := range entries {
		if _, err := tx.Exec(ctx, `
			INSERT INTO injuries (report_date, team, player_name, status, reason)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (report_date, team, player_name) DO UPDATE SET
				status = excluded.status,
				reason = excluded.reason`,
			e.ReportDate.UTC(), e.Team, e.PlayerName, e.Status, e.Reason,
		); err != nil {
			return 0, eris.Wrapf(err, "postgres: upsert injury %s/%s", e.Team, e.PlayerName)
		}
		n++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: upsert injuries: commit")
	}
	return n, nil
}

func (s *PostgresStore) GetScheduleCache(ctx context.Context, season string) (*ScheduleCache, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT season, last_update, finalized FROM schedule_cache WHERE season = $1`, season)

	var c ScheduleCache
	err := row.Scan(&c.Season, &c.LastUpdate, &c.Finalized)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: schedule cache for %s", season)
	}
	return &c, nil
}

func (s *PostgresStore) SetScheduleCache(ctx context.Context, season string, finalized bool) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO schedule_cache (season, last_update, finalized) VALUES ($1, $2, $3)
		ON CONFLICT (season) DO UPDATE SET
			last_update = excluded.last_update,
			finalized   = schedule_cache.finalized OR excluded.finalized`,
		season, time.Now().UTC(), finalized)
	return eris.Wrapf(err, "postgres: set schedule cache for %s", season)
}

func (s *PostgresStore) GetSyncMeta(ctx context.Context, key string) (*time.Time, error) {
	var t time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT updated_at FROM sync_meta WHERE key = $1`, key).Scan(&t)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: sync meta %s", key)
	}
	return &t, nil
}

func (s *PostgresStore) SetSyncMeta(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sync_meta (key, updated_at) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET updated_at = excluded.updated_at`,
		key, time.Now().UTC())
	return eris.Wrapf(err, "postgres: set sync meta %s", key)
}

func (s *PostgresStore) StartSync(ctx context.Context, stage string) (string, error) {
	id := uuid.New().String()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sync_log (id, stage, status, started_at) VALUES ($1, $2, 'running', $3)`,
		id, stage, time.Now().UTC())
	if err != nil {
		return "", eris.Wrapf(err, "postgres: start sync for %s", stage)
	}
	return id, nil
}

func (s *PostgresStore) CompleteSync(ctx context.Context, id string, rows int64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE sync_log SET status = 'complete', completed_at = $1, rows_synced = $2 WHERE id = $3`,
		time.Now().UTC(), rows, id)
	return eris.Wrapf(err, "postgres: complete sync %s", id)
}

func (s *PostgresStore) FailSync(ctx context.Context, id string, errMsg string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE sync_log SET status = 'failed', completed_at = $1, error = $2 WHERE id = $3`,
		time.Now().UTC(), errMsg, id)
	return eris.Wrapf(err, "postgres: fail sync %s", id)
}

func (s *PostgresStore) ListSyncLog(ctx context.Context, limit int) ([]SyncEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, stage, status, started_at, completed_at, rows_synced, error
		FROM sync_log ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list sync log")
	}
	defer rows.Close()

	var entries []SyncEntry
	for rows.Next() {
		var e SyncEntry
		if err := rows.Scan(&e.ID, &e.Stage, &e.Status, &e.StartedAt, &e.CompletedAt, &e.Rows, &e.Error); err != nil {
			return nil, eris.Wrap(err, "postgres: scan sync entry")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: list sync log iterate")
}
