package repository

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"esports_v1/ingestion/internal/models"
)

// TeamRepository handles team database operations
type TeamRepository struct {
	db *Database
}

const teamColumns = `id, name, slug, acronym, logo_url, game_id, last_synced_at, created_at, updated_at`

// Upsert inserts or updates a team keyed by its upstream id.
// game_id is set on insert only.
func (r *TeamRepository) Upsert(ctx context.Context, team *models.Team) error {
	query := `
		INSERT INTO teams (id, name, slug, acronym, logo_url, game_id, last_synced_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			slug = EXCLUDED.slug,
			acronym = EXCLUDED.acronym,
			logo_url = EXCLUDED.logo_url,
			last_synced_at = NOW(),
			updated_at = NOW()
		RETURNING last_synced_at, created_at, updated_at
	`

	start := time.Now()
	err := r.db.q(ctx).QueryRow(
		ctx, query,
		team.ID, team.Name, team.Slug, team.Acronym, team.LogoURL, team.GameID,
	).Scan(&team.LastSyncedAt, &team.CreatedAt, &team.UpdatedAt)
	observe("upsert", "teams", start, err)

	if err != nil {
		return classify(err, "upsert team")
	}

	log.Debug().
		Int64("team_id", team.ID).
		Str("name", team.Name).
		Msg("Team upserted")

	return nil
}

// GetByID retrieves a team by its upstream id
func (r *TeamRepository) GetByID(ctx context.Context, id int64) (*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE id = $1`

	team, err := scanTeam(r.db.q(ctx).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrapf(ErrNotFound, "team id=%d", id)
	}
	if err != nil {
		return nil, classify(err, "get team")
	}

	return team, nil
}

// ListWithoutPlayers returns teams with no rostered players, lowest id first
func (r *TeamRepository) ListWithoutPlayers(ctx context.Context, limit int) ([]*models.Team, error) {
	query := `
		SELECT ` + teamColumns + `
		FROM teams t
		WHERE NOT EXISTS (
			SELECT 1 FROM players p WHERE p.upstream_team_id = t.id
		)
		ORDER BY t.id
		LIMIT $1
	`

	start := time.Now()
	rows, err := r.db.q(ctx).Query(ctx, query, limit)
	observe("select", "teams", start, err)
	if err != nil {
		return nil, classify(err, "list teams without players")
	}
	defer rows.Close()

	var teams []*models.Team
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan team")
		}
		teams = append(teams, team)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating teams")
	}

	return teams, nil
}

// Count returns the total number of teams
func (r *TeamRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.q(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM teams`).Scan(&count); err != nil {
		return 0, classify(err, "count teams")
	}
	return count, nil
}

func scanTeam(row pgx.Row) (*models.Team, error) {
	var team models.Team
	err := row.Scan(
		&team.ID, &team.Name, &team.Slug, &team.Acronym, &team.LogoURL,
		&team.GameID, &team.LastSyncedAt, &team.CreatedAt, &team.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &team, nil
}
