package repository

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"

	"esports_v1/ingestion/internal/models"
)

// MatchStatsRepository handles match_stats database operations
type MatchStatsRepository struct {
	db *Database
}

// InsertMany queues every row in one batch. Rows that already exist for
// (match_id, team_id) are skipped. It returns the number of rows inserted.
func (r *MatchStatsRepository) InsertMany(ctx context.Context, stats []*models.MatchStats) (int64, error) {
	if len(stats) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO match_stats (match_id, team_id, stats_json)
		VALUES ($1, $2, $3)
		ON CONFLICT (match_id, team_id) DO NOTHING
	`

	batch := &pgx.Batch{}
	for _, s := range stats {
		doc, err := sonic.Marshal(s.Stats)
		if err != nil {
			return 0, errors.Wrapf(err, "encode stats for match %d team %d", s.MatchID, s.TeamID)
		}
		batch.Queue(query, s.MatchID, s.TeamID, string(doc))
	}

	start := time.Now()
	br := r.db.q(ctx).SendBatch(ctx, batch)
	var inserted int64
	var err error
	for _, s := range stats {
		tag, execErr := br.Exec()
		if execErr != nil {
			err = errors.Wrapf(execErr, "match %d team %d", s.MatchID, s.TeamID)
			break
		}
		inserted += tag.RowsAffected()
	}
	if cerr := br.Close(); err == nil {
		err = cerr
	}
	observe("insert", "match_stats", start, err)

	if err != nil {
		return 0, classify(err, "insert match stats")
	}
	return inserted, nil
}

// ListByMatch returns the stats rows of a match
func (r *MatchStatsRepository) ListByMatch(ctx context.Context, matchID int64) ([]*models.MatchStats, error) {
	query := `
		SELECT match_id, team_id, stats_json, created_at
		FROM match_stats
		WHERE match_id = $1
		ORDER BY team_id
	`

	rows, err := r.db.q(ctx).Query(ctx, query, matchID)
	if err != nil {
		return nil, classify(err, "list match stats")
	}
	defer rows.Close()

	var out []*models.MatchStats
	for rows.Next() {
		var s models.MatchStats
		var doc []byte
		if err := rows.Scan(&s.MatchID, &s.TeamID, &doc, &s.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan match stats")
		}
		if err := sonic.Unmarshal(doc, &s.Stats); err != nil {
			return nil, errors.Wrapf(err, "decode stats for match %d", matchID)
		}
		out = append(out, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating match stats")
	}

	return out, nil
}
