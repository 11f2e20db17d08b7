package repository

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"

	"esports_v1/ingestion/internal/models"
)

// PlayerRepository handles player database operations
type PlayerRepository struct {
	db *Database
}

const upsertPlayerQuery = `
	INSERT INTO players (
		id, nickname, real_name, role, image_url, upstream_player_id, upstream_team_id
	) VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (upstream_player_id) WHERE upstream_player_id IS NOT NULL
	DO UPDATE SET
		nickname = EXCLUDED.nickname,
		real_name = EXCLUDED.real_name,
		role = EXCLUDED.role,
		image_url = EXCLUDED.image_url,
		upstream_team_id = EXCLUDED.upstream_team_id,
		updated_at = NOW()
`

// UpsertMany upserts players in a single batch keyed by upstream player id.
// Run it inside WithinTx to make the roster write atomic.
func (r *PlayerRepository) UpsertMany(ctx context.Context, players []*models.Player) (int, error) {
	if len(players) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, p := range players {
		batch.Queue(upsertPlayerQuery,
			p.ID, p.Nickname, p.RealName, p.Role, p.ImageURL,
			p.UpstreamPlayerID, p.UpstreamTeamID,
		)
	}

	start := time.Now()
	br := r.db.q(ctx).SendBatch(ctx, batch)
	var err error
	for _, p := range players {
		if _, err = br.Exec(); err != nil {
			err = errors.Wrapf(err, "player %d", p.UpstreamPlayerID)
			break
		}
	}
	if cerr := br.Close(); err == nil {
		err = cerr
	}
	observe("upsert", "players", start, err)

	if err != nil {
		return 0, classify(err, "upsert players")
	}
	return len(players), nil
}

// ListByTeam returns the players rostered on an upstream team
func (r *PlayerRepository) ListByTeam(ctx context.Context, teamID int64) ([]*models.Player, error) {
	query := `
		SELECT id, nickname, real_name, role, image_url,
		       upstream_player_id, upstream_team_id, created_at, updated_at
		FROM players
		WHERE upstream_team_id = $1
		ORDER BY nickname
	`

	rows, err := r.db.q(ctx).Query(ctx, query, teamID)
	if err != nil {
		return nil, classify(err, "list players")
	}
	defer rows.Close()

	var players []*models.Player
	for rows.Next() {
		var p models.Player
		if err := rows.Scan(
			&p.ID, &p.Nickname, &p.RealName, &p.Role, &p.ImageURL,
			&p.UpstreamPlayerID, &p.UpstreamTeamID, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan player")
		}
		players = append(players, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating players")
	}

	return players, nil
}

// Count returns the total number of players
func (r *PlayerRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.q(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM players`).Scan(&count); err != nil {
		return 0, classify(err, "count players")
	}
	return count, nil
}
