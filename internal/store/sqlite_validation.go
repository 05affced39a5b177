package store

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/hoopsight/hoopsync/internal/model"
)

// Validator-facing queries. The Delete* statements repeat the exact
// predicate of their matching key query so a fix removes only what the
// check reported, and running a fix twice is a no-op.

func (s *SQLiteStore) ListGameEvidence(ctx context.Context, season string) ([]GameEvidence, error) {
	query := `
		SELECT g.id, g.season, g.status, g.game_date,
			g.core_data_finalized, g.box_data_finalized, g.pred_data_finalized,
			(SELECT COUNT(*) FROM play_by_play p WHERE p.game_id = g.id),
			(SELECT COUNT(*) FROM game_states st WHERE st.game_id = g.id AND st.is_final = 1),
			(SELECT COUNT(*) FROM box_scores b WHERE b.game_id = g.id AND b.home = 1),
			(SELECT COUNT(*) FROM box_scores b WHERE b.game_id = g.id AND b.home = 0),
			(SELECT COUNT(*) FROM predictions pr WHERE pr.game_id = g.id)
		FROM games g`
	var args []any
	if season != "" {
		query += ` WHERE g.season = ?`
		args = append(args, season)
	}
	query += ` ORDER BY g.game_date, g.id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list game evidence")
	}
	defer rows.Close()

	var result []GameEvidence
	for rows.Next() {
		var ev GameEvidence
		var status int
		if err := rows.Scan(&ev.GameID, &ev.Season, &status, &ev.DateTime,
			&ev.CoreDataFinalized, &ev.BoxDataFinalized, &ev.PredDataFinalized,
			&ev.EventCount, &ev.FinalStateCount, &ev.HomeBoxRows, &ev.AwayBoxRows,
			&ev.PredictionCount); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan game evidence")
		}
		ev.Status = model.GameStatus(status)
		result = append(result, ev)
	}
	return result, eris.Wrap(rows.Err(), "sqlite: list game evidence iterate")
}

const orphanBoxPredicate = `NOT EXISTS (SELECT 1 FROM games g WHERE g.id = box_scores.game_id)`

func (s *SQLiteStore) OrphanBoxScoreKeys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT game_id, player_id FROM box_scores WHERE `+orphanBoxPredicate+` ORDER BY game_id, player_id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: orphan box keys")
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var gameID string
		var playerID int
		if err := rows.Scan(&gameID, &playerID); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan orphan box key")
		}
		keys = append(keys, fmt.Sprintf("%s/%d", gameID, playerID))
	}
	return keys, eris.Wrap(rows.Err(), "sqlite: orphan box keys iterate")
}

func (s *SQLiteStore) DeleteOrphanBoxScoreRows(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM box_scores WHERE `+orphanBoxPredicate)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete orphan box rows")
	}
	return res.RowsAffected()
}

const orphanEventPredicate = `NOT EXISTS (SELECT 1 FROM games g WHERE g.id = play_by_play.game_id)`

func (s *SQLiteStore) OrphanEventKeys(ctx context.Context) ([]RecordKey, error) {
	return s.recordKeys(ctx,
		`SELECT game_id, play_id FROM play_by_play WHERE `+orphanEventPredicate+` ORDER BY game_id, play_id`)
}

func (s *SQLiteStore) DeleteOrphanEvents(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM play_by_play WHERE `+orphanEventPredicate)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete orphan events")
	}
	return res.RowsAffected()
}

const orphanStatePredicate = `NOT EXISTS (SELECT 1 FROM games g WHERE g.id = game_states.game_id)`

func (s *SQLiteStore) OrphanGameStateKeys(ctx context.Context) ([]RecordKey, error) {
	return s.recordKeys(ctx,
		`SELECT game_id, play_id FROM game_states WHERE `+orphanStatePredicate+` ORDER BY game_id, play_id`)
}

func (s *SQLiteStore) DeleteOrphanGameStates(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM game_states WHERE `+orphanStatePredicate)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete orphan states")
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) DuplicateEventKeys(ctx context.Context) ([]RecordKey, error) {
	return s.recordKeys(ctx, `
		SELECT game_id, play_id FROM play_by_play
		GROUP BY game_id, play_id HAVING COUNT(*) > 1
		ORDER BY game_id, play_id`)
}

// DeleteDuplicateEvents keeps the first-inserted row of each duplicated
// (game_id, play_id) pair and removes the rest.
func (s *SQLiteStore) DeleteDuplicateEvents(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM play_by_play WHERE rowid NOT IN (
			SELECT MIN(rowid) FROM play_by_play GROUP BY game_id, play_id
		)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete duplicate events")
	}
	return res.RowsAffected()
}

const unmatchedStatePredicate = `NOT EXISTS (
	SELECT 1 FROM play_by_play p
	WHERE p.game_id = game_states.game_id AND p.play_id = game_states.play_id
)`

func (s *SQLiteStore) UnmatchedGameStateKeys(ctx context.Context) ([]RecordKey, error) {
	return s.recordKeys(ctx,
		`SELECT game_id, play_id FROM game_states WHERE `+unmatchedStatePredicate+` ORDER BY game_id, play_id`)
}

func (s *SQLiteStore) DeleteUnmatchedGameStates(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM game_states WHERE `+unmatchedStatePredicate)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete unmatched states")
	}
	return res.RowsAffected()
}

// UnknownBoxScorePlayers reports box rows whose player id is missing from
// the roster table. Report-only: the roster feed may simply lag.
func (s *SQLiteStore) UnknownBoxScorePlayers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT b.game_id, b.player_id FROM box_scores b
		WHERE NOT EXISTS (SELECT 1 FROM players p WHERE p.id = b.player_id)
		ORDER BY b.game_id, b.player_id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: unknown box players")
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var gameID string
		var playerID int
		if err := rows.Scan(&gameID, &playerID); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan unknown box player")
		}
		keys = append(keys, fmt.Sprintf("%s/%d", gameID, playerID))
	}
	return keys, eris.Wrap(rows.Err(), "sqlite: unknown box players iterate")
}

func (s *SQLiteStore) recordKeys(ctx context.Context, query string) ([]RecordKey, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: record keys")
	}
	defer rows.Close()

	var keys []RecordKey
	for rows.Next() {
		var k RecordKey
		if err := rows.Scan(&k.GameID, &k.PlayID); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan record key")
		}
		keys = append(keys, k)
	}
	return keys, eris.Wrap(rows.Err(), "sqlite: record keys iterate")
}
