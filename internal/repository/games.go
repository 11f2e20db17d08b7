package repository

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"esports_v1/ingestion/internal/models"
)

// ErrNotFound is returned when a row looked up by key does not exist
var ErrNotFound = errors.New("not found")

// GameRepository handles game database operations
type GameRepository struct {
	db *Database
}

// Ensure returns the id of the game with slug, inserting it if missing.
// The no-op update makes RETURNING yield the id on conflict too.
func (r *GameRepository) Ensure(ctx context.Context, slug string) (int, error) {
	query := `
		INSERT INTO games (slug, name)
		VALUES ($1, $2)
		ON CONFLICT (slug) DO UPDATE SET slug = EXCLUDED.slug
		RETURNING id
	`

	start := time.Now()
	var id int
	err := r.db.q(ctx).QueryRow(ctx, query, slug, models.GameName(slug)).Scan(&id)
	observe("upsert", "games", start, err)
	if err != nil {
		return 0, classify(err, "ensure game "+slug)
	}

	log.Debug().Str("slug", slug).Int("id", id).Msg("Game resolved")
	return id, nil
}

// GetBySlug retrieves a game by its slug
func (r *GameRepository) GetBySlug(ctx context.Context, slug string) (*models.Game, error) {
	query := `SELECT id, slug, name, created_at FROM games WHERE slug = $1`

	var game models.Game
	err := r.db.q(ctx).QueryRow(ctx, query, slug).Scan(
		&game.ID, &game.Slug, &game.Name, &game.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrapf(ErrNotFound, "game slug=%s", slug)
	}
	if err != nil {
		return nil, classify(err, "get game")
	}

	return &game, nil
}

// List retrieves all games
func (r *GameRepository) List(ctx context.Context) ([]*models.Game, error) {
	query := `SELECT id, slug, name, created_at FROM games ORDER BY id`

	rows, err := r.db.q(ctx).Query(ctx, query)
	if err != nil {
		return nil, classify(err, "list games")
	}
	defer rows.Close()

	var games []*models.Game
	for rows.Next() {
		var game models.Game
		if err := rows.Scan(&game.ID, &game.Slug, &game.Name, &game.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan game")
		}
		games = append(games, &game)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating games")
	}

	return games, nil
}
