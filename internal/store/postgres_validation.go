package store

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/hoopsight/hoopsync/internal/model"
)

func (s *PostgresStore) ListGameEvidence(ctx context.Context, season string) ([]GameEvidence, error) {
	query := `
		SELECT g.id, g.season, g.status, g.game_date,
			g.core_data_finalized, g.box_data_finalized, g.pred_data_finalized,
			(SELECT COUNT(*) FROM play_by_play p WHERE p.game_id = g.id),
			(SELECT COUNT(*) FROM game_states st WHERE st.game_id = g.id AND st.is_final),
			(SELECT COUNT(*) FROM box_scores b WHERE b.game_id = g.id AND b.home),
			(SELECT COUNT(*) FROM box_scores b WHERE b.game_id = g.id AND NOT b.home),
			(SELECT COUNT(*) FROM predictions pr WHERE pr.game_id = g.id)
		FROM games g`
	var args []any
	if season != "" {
		query += ` WHERE g.season = $1`
		args = append(args, season)
	}
	query += ` ORDER BY g.game_date, g.id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list game evidence")
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
			return nil, eris.Wrap(err, "postgres: scan game evidence")
		}
		ev.Status = model.GameStatus(status)
		result = append(result, ev)
	}
	return result, eris.Wrap(rows.Err(), "postgres: list game evidence iterate")
}

func (s *PostgresStore) OrphanBoxScoreKeys(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT game_id, player_id FROM box_scores WHERE `+orphanBoxPredicate+` ORDER BY game_id, player_id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: orphan box keys")
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var gameID string
		var playerID int
		if err := rows.Scan(&gameID, &playerID); err != nil {
			return nil, eris.Wrap(err, "postgres: scan orphan box key")
		}
		keys = append(keys, fmt.Sprintf("%s/%d", gameID, playerID))
	}
	return keys, eris.Wrap(rows.Err(), "postgres: orphan box keys iterate")
}

func (s *PostgresStore) DeleteOrphanBoxScoreRows(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM box_scores WHERE `+orphanBoxPredicate)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete orphan box rows")
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) OrphanEventKeys(ctx context.Context) ([]RecordKey, error) {
	return s.recordKeys(ctx,
		`SELECT game_id, play_id FROM play_by_play WHERE `+orphanEventPredicate+` ORDER BY game_id, play_id`)
}

func (s *PostgresStore) DeleteOrphanEvents(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM play_by_play WHERE `+orphanEventPredicate)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete orphan events")
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) OrphanGameStateKeys(ctx context.Context) ([]RecordKey, error) {
	return s.recordKeys(ctx,
		`SELECT game_id, play_id FROM game_states WHERE `+orphanStatePredicate+` ORDER BY game_id, play_id`)
}

func (s *PostgresStore) DeleteOrphanGameStates(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM game_states WHERE `+orphanStatePredicate)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete orphan states")
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) DuplicateEventKeys(ctx context.Context) ([]RecordKey, error) {
	return s.recordKeys(ctx, `
		SELECT game_id, play_id FROM play_by_play
		GROUP BY game_id, play_id HAVING COUNT(*) > 1
		ORDER BY game_id, play_id`)
}

// DeleteDuplicateEvents keeps one physical row per duplicated
// (game_id, play_id) pair and removes the rest.
func (s *PostgresStore) DeleteDuplicateEvents(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM play_by_play a USING play_by_play b
		WHERE a.game_id = b.game_id AND a.play_id = b.play_id AND a.ctid > b.ctid`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete duplicate events")
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) UnmatchedGameStateKeys(ctx context.Context) ([]RecordKey, error) {
	return s.recordKeys(ctx,
		`SELECT game_id, play_id FROM game_states WHERE `+unmatchedStatePredicate+` ORDER BY game_id, play_id`)
}

func (s *PostgresStore) DeleteUnmatchedGameStates(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM game_states WHERE `+unmatchedStatePredicate)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete unmatched states")
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) UnknownBoxScorePlayers(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT b.game_id, b.player_id FROM box_scores b
		WHERE NOT EXISTS (SELECT 1 FROM players p WHERE p.id = b.player_id)
		ORDER BY b.game_id, b.player_id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: unknown box players")
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var gameID string
		var playerID int
		if err := rows.Scan(&gameID, &playerID); err != nil {
			return nil, eris.Wrap(err, "postgres: scan unknown box player")
		}
		keys = append(keys, fmt.Sprintf("%s/%d", gameID, playerID))
	}
	return keys, eris.Wrap(rows.Err(), "postgres: unknown box players iterate")
}

func (s *PostgresStore) recordKeys(ctx context.Context, query string) ([]RecordKey, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: record keys")
	}
	defer rows.Close()

	var keys []RecordKey
	for rows.Next() {
		var k RecordKey
		if err := rows.Scan(&k.GameID, &k.PlayID); err != nil {
			return nil, eris.Wrap(err, "postgres: scan record key")
		}
		keys = append(keys, k)
	}
	return keys, eris.Wrap(rows.Err(), "postgres: record keys iterate")
}
