package repository

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"esports_v1/ingestion/internal/models"
)

// MatchRepository handles match database operations
type MatchRepository struct {
	db *Database
}

// Upsert inserts or updates a match keyed by its upstream id.
// Identity columns (game and teams) are written on insert only and the
// prediction columns are never touched here.
func (r *MatchRepository) Upsert(ctx context.Context, m *models.Match) error {
	query := `
		INSERT INTO matches (
			id, game_id, tournament_id, serie_id, team_a_id, team_b_id,
			status, scheduled_at, match_type, number_of_games,
			winner_id, team_a_score, team_b_score, raw_payload, last_synced_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW())
		ON CONFLICT (id) DO UPDATE SET
			tournament_id = EXCLUDED.tournament_id,
			serie_id = EXCLUDED.serie_id,
			status = EXCLUDED.status,
			scheduled_at = EXCLUDED.scheduled_at,
			match_type = EXCLUDED.match_type,
			number_of_games = EXCLUDED.number_of_games,
			winner_id = EXCLUDED.winner_id,
			team_a_score = EXCLUDED.team_a_score,
			team_b_score = EXCLUDED.team_b_score,
			raw_payload = EXCLUDED.raw_payload,
			last_synced_at = NOW(),
			updated_at = NOW()
		RETURNING last_synced_at, created_at, updated_at
	`

	start := time.Now()
	err := r.db.q(ctx).QueryRow(
		ctx, query,
		m.ID, m.GameID, m.TournamentID, m.SerieID, m.TeamAID, m.TeamBID,
		string(m.Status), m.ScheduledAt, m.MatchType, m.NumberOfGames,
		m.WinnerID, m.TeamAScore, m.TeamBScore, jsonOrNil(m.RawPayload),
	).Scan(&m.LastSyncedAt, &m.CreatedAt, &m.UpdatedAt)
	observe("upsert", "matches", start, err)

	if err != nil {
		return classify(err, "upsert match")
	}

	log.Debug().
		Int64("match_id", m.ID).
		Str("status", string(m.Status)).
		Msg("Match upserted")

	return nil
}

// GetByID retrieves a match with its tournament tier
func (r *MatchRepository) GetByID(ctx context.Context, id int64) (*models.Match, error) {
	query := `
		SELECT m.id, m.game_id, m.tournament_id, m.serie_id, m.team_a_id, m.team_b_id,
		       m.status, m.scheduled_at, m.match_type, m.number_of_games,
		       m.winner_id, m.team_a_score, m.team_b_score,
		       m.prediction_team_a, m.prediction_team_b, m.prediction_confidence,
		       m.raw_payload, m.last_synced_at, m.created_at, m.updated_at,
		       t.tier
		FROM matches m
		LEFT JOIN tournaments t ON t.id = m.tournament_id
		WHERE m.id = $1
	`

	var m models.Match
	var status string
	err := r.db.q(ctx).QueryRow(ctx, query, id).Scan(
		&m.ID, &m.GameID, &m.TournamentID, &m.SerieID, &m.TeamAID, &m.TeamBID,
		&status, &m.ScheduledAt, &m.MatchType, &m.NumberOfGames,
		&m.WinnerID, &m.TeamAScore, &m.TeamBScore,
		&m.PredictionTeamA, &m.PredictionTeamB, &m.PredictionConfidence,
		&m.RawPayload, &m.LastSyncedAt, &m.CreatedAt, &m.UpdatedAt,
		&m.TournamentTier,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrapf(ErrNotFound, "match id=%d", id)
	}
	if err != nil {
		return nil, classify(err, "get match")
	}
	m.Status = models.MatchStatus(status)

	return &m, nil
}

// TeamForm summarises a team's finished matches with a winner that were
// scheduled strictly before the cutoff.
func (r *MatchRepository) TeamForm(ctx context.Context, teamID int64, before time.Time) (models.TeamForm, error) {
	query := `
		WITH decided AS (
			SELECT winner_id,
			       ROW_NUMBER() OVER (ORDER BY scheduled_at DESC, id DESC) AS rn
			FROM matches
			WHERE (team_a_id = $1 OR team_b_id = $1)
			  AND status = 'finished'
			  AND winner_id IS NOT NULL
			  AND scheduled_at < $2
		)
		SELECT
			COUNT(*) FILTER (WHERE rn <= $3),
			COUNT(*) FILTER (WHERE rn <= $3 AND winner_id = $1),
			COUNT(*),
			COUNT(*) FILTER (WHERE winner_id = $1)
		FROM decided
	`

	start := time.Now()
	var form models.TeamForm
	err := r.db.q(ctx).QueryRow(ctx, query, teamID, before, models.RecentWindow).Scan(
		&form.RecentPlayed, &form.RecentWins, &form.TotalPlayed, &form.TotalWins,
	)
	observe("select", "matches", start, err)
	if err != nil {
		return models.TeamForm{}, classify(err, "load team form")
	}

	return form, nil
}

// HeadToHead summarises finished matches with a winner between exactly
// teamA and teamB scheduled strictly before the cutoff.
func (r *MatchRepository) HeadToHead(ctx context.Context, teamA, teamB int64, before time.Time) (models.HeadToHead, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE winner_id = $1),
			COUNT(*) FILTER (WHERE winner_id = $2)
		FROM matches
		WHERE ((team_a_id = $1 AND team_b_id = $2) OR (team_a_id = $2 AND team_b_id = $1))
		  AND status = 'finished'
		  AND winner_id IS NOT NULL
		  AND scheduled_at < $3
	`

	start := time.Now()
	var h2h models.HeadToHead
	err := r.db.q(ctx).QueryRow(ctx, query, teamA, teamB, before).Scan(
		&h2h.Played, &h2h.TeamAWins, &h2h.TeamBWins,
	)
	observe("select", "matches", start, err)
	if err != nil {
		return models.HeadToHead{}, classify(err, "load head to head")
	}

	return h2h, nil
}

// SavePrediction writes the prediction columns of a match. Unless overwrite
// is set an already predicted match is left alone. It reports whether the
// row was updated.
func (r *MatchRepository) SavePrediction(ctx context.Context, p *models.Prediction, overwrite bool) (bool, error) {
	query := `
		UPDATE matches SET
			prediction_team_a = $2,
			prediction_team_b = $3,
			prediction_confidence = $4,
			updated_at = NOW()
		WHERE id = $1
		  AND ($5 OR prediction_team_a IS NULL)
	`

	start := time.Now()
	tag, err := r.db.q(ctx).Exec(ctx, query, p.MatchID, p.TeamA, p.TeamB, p.Confidence, overwrite)
	observe("update", "matches", start, err)
	if err != nil {
		return false, classify(err, "save prediction")
	}

	return tag.RowsAffected() > 0, nil
}

// ListUpcomingUnpredicted returns ids of not-started future matches without
// a prediction, soonest first.
func (r *MatchRepository) ListUpcomingUnpredicted(ctx context.Context, limit int) ([]int64, error) {
	query := `
		SELECT id
		FROM matches
		WHERE status = 'not_started'
		  AND scheduled_at > NOW()
		  AND prediction_team_a IS NULL
		ORDER BY scheduled_at ASC
		LIMIT $1
	`
	return r.listIDs(ctx, query, limit)
}

// ListFinished returns ids of finished matches, most recent first. When
// includePredicted is false already predicted matches are skipped.
func (r *MatchRepository) ListFinished(ctx context.Context, limit int, includePredicted bool) ([]int64, error) {
	query := `
		SELECT id
		FROM matches
		WHERE status = 'finished'
		  AND ($2 OR prediction_team_a IS NULL)
		ORDER BY scheduled_at DESC
		LIMIT $1
	`
	return r.listIDs(ctx, query, limit, includePredicted)
}

// ListFinishedWithoutStats returns finished matches with a stored payload and
// no match_stats rows, newest id first.
func (r *MatchRepository) ListFinishedWithoutStats(ctx context.Context, limit int) ([]*models.Match, error) {
	query := `
		SELECT m.id, m.team_a_id, m.team_b_id, m.raw_payload
		FROM matches m
		WHERE m.status = 'finished'
		  AND m.raw_payload IS NOT NULL
		  AND NOT EXISTS (
			  SELECT 1 FROM match_stats ms WHERE ms.match_id = m.id
		  )
		ORDER BY m.id DESC
		LIMIT $1
	`

	start := time.Now()
	rows, err := r.db.q(ctx).Query(ctx, query, limit)
	observe("select", "matches", start, err)
	if err != nil {
		return nil, classify(err, "list finished matches without stats")
	}
	defer rows.Close()

	var matches []*models.Match
	for rows.Next() {
		m := &models.Match{Status: models.StatusFinished}
		if err := rows.Scan(&m.ID, &m.TeamAID, &m.TeamBID, &m.RawPayload); err != nil {
			return nil, errors.Wrap(err, "failed to scan match")
		}
		matches = append(matches, m)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating matches")
	}

	return matches, nil
}

// Count returns the total number of matches
func (r *MatchRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.q(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM matches`).Scan(&count); err != nil {
		return 0, classify(err, "count matches")
	}
	return count, nil
}

func (r *MatchRepository) listIDs(ctx context.Context, query string, args ...any) ([]int64, error) {
	start := time.Now()
	rows, err := r.db.q(ctx).Query(ctx, query, args...)
	observe("select", "matches", start, err)
	if err != nil {
		return nil, classify(err, "list match ids")
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, errors.Wrap(err, "failed to collect match ids")
	}
	return ids, nil
}

// jsonOrNil maps an empty payload to SQL NULL
func jsonOrNil(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
