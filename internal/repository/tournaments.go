package repository

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"

	"esports_v1/ingestion/internal/models"
)

// TournamentRepository handles tournament database operations
type TournamentRepository struct {
	db *Database
}

// Upsert inserts or updates a tournament keyed by its upstream id
func (r *TournamentRepository) Upsert(ctx context.Context, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments (id, name, slug, game_id, tier, last_synced_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			slug = EXCLUDED.slug,
			tier = EXCLUDED.tier,
			last_synced_at = NOW(),
			updated_at = NOW()
		RETURNING last_synced_at, created_at, updated_at
	`

	start := time.Now()
	err := r.db.q(ctx).QueryRow(
		ctx, query,
		t.ID, t.Name, t.Slug, t.GameID, t.Tier,
	).Scan(&t.LastSyncedAt, &t.CreatedAt, &t.UpdatedAt)
	observe("upsert", "tournaments", start, err)

	if err != nil {
		return classify(err, "upsert tournament")
	}
	return nil
}

// GetByID retrieves a tournament by its upstream id
func (r *TournamentRepository) GetByID(ctx context.Context, id int64) (*models.Tournament, error) {
	query := `
		SELECT id, name, slug, game_id, tier, last_synced_at, created_at, updated_at
		FROM tournaments
		WHERE id = $1
	`

	var t models.Tournament
	err := r.db.q(ctx).QueryRow(ctx, query, id).Scan(
		&t.ID, &t.Name, &t.Slug, &t.GameID, &t.Tier,
		&t.LastSyncedAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrapf(ErrNotFound, "tournament id=%d", id)
	}
	if err != nil {
		return nil, classify(err, "get tournament")
	}

	return &t, nil
}
