//go:build integration

package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esports_v1/ingestion/internal/apperr"
	"esports_v1/ingestion/internal/models"
)

func seedTeams(t *testing.T, ctx context.Context, db *Database, gameID int, ids ...int64) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, db.UpsertTeam(ctx, &models.Team{ID: id, Name: "Team", GameID: gameID}))
	}
}

func finished(id, a, b, winner int64, at time.Time, gameID int) *models.Match {
	return &models.Match{
		ID:            id,
		GameID:        gameID,
		TeamAID:       a,
		TeamBID:       b,
		Status:        models.StatusFinished,
		ScheduledAt:   at,
		MatchType:     "best_of",
		NumberOfGames: 3,
		WinnerID:      sql.NullInt64{Int64: winner, Valid: true},
		RawPayload:    []byte(`{"results":[{"team_id":1,"score":2}],"games":[]}`),
	}
}

func TestMatchRepository_UpsertIdempotent(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)
	gameID := valorantID(t, ctx, db)
	seedTeams(t, ctx, db, gameID, 1, 2)

	tour := &models.Tournament{ID: 50, Name: "Masters", GameID: gameID, Tier: sql.NullString{String: "S", Valid: true}}
	require.NoError(t, db.UpsertTournament(ctx, tour))

	m := &models.Match{
		ID:            900,
		GameID:        gameID,
		TournamentID:  sql.NullInt64{Int64: 50, Valid: true},
		TeamAID:       1,
		TeamBID:       2,
		Status:        models.StatusNotStarted,
		ScheduledAt:   time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second),
		MatchType:     "best_of",
		NumberOfGames: 3,
		RawPayload:    []byte(`{"id":900}`),
	}
	require.NoError(t, db.UpsertMatch(ctx, m))
	require.NoError(t, db.UpsertMatch(ctx, m))

	count, err := db.Matches.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := db.GetMatch(ctx, 900)
	require.NoError(t, err)
	assert.Equal(t, models.StatusNotStarted, got.Status)
	assert.Equal(t, "S", got.TournamentTier.String)
	assert.True(t, m.ScheduledAt.Equal(got.ScheduledAt))
	assert.JSONEq(t, `{"id":900}`, string(got.RawPayload))
	assert.False(t, got.IsPredicted())

	// A later sync finishes the match
	m.Status = models.StatusFinished
	m.WinnerID = sql.NullInt64{Int64: 2, Valid: true}
	m.TeamAScore = sql.NullInt32{Int32: 1, Valid: true}
	m.TeamBScore = sql.NullInt32{Int32: 2, Valid: true}
	require.NoError(t, db.UpsertMatch(ctx, m))

	got, err = db.GetMatch(ctx, 900)
	require.NoError(t, err)
	assert.True(t, got.IsDecided())
	assert.Equal(t, int32(2), got.TeamBScore.Int32)
}

func TestMatchRepository_ConstraintViolationIsPersistence(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)
	gameID := valorantID(t, ctx, db)
	seedTeams(t, ctx, db, gameID, 1)

	// team 2 does not exist
	err := db.UpsertMatch(ctx, finished(1, 1, 2, 1, time.Now(), gameID))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrPersistence))
}

func TestMatchRepository_WithinTxRollsBack(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)
	gameID := valorantID(t, ctx, db)

	err := db.WithinTx(ctx, func(ctx context.Context) error {
		seedTeams(t, ctx, db, gameID, 1, 2)
		return db.UpsertMatch(ctx, finished(1, 1, 3, 1, time.Now(), gameID))
	})
	require.Error(t, err)

	count, err := db.Teams.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count, "Teams written in the failed transaction must be rolled back")
}

func TestMatchRepository_FormAndHeadToHead(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)
	gameID := valorantID(t, ctx, db)
	seedTeams(t, ctx, db, gameID, 1, 2, 3)

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	// team 1: six wins over team 2, then loses to team 3
	for i := int64(0); i < 6; i++ {
		require.NoError(t, db.UpsertMatch(ctx, finished(100+i, 1, 2, 1, base.Add(time.Duration(i)*time.Hour), gameID)))
	}
	require.NoError(t, db.UpsertMatch(ctx, finished(200, 3, 1, 3, base.Add(10*time.Hour), gameID)))

	// undecided and future matches never count
	pending := finished(300, 1, 2, 0, base.Add(11*time.Hour), gameID)
	pending.Status = models.StatusNotStarted
	pending.WinnerID = sql.NullInt64{}
	require.NoError(t, db.UpsertMatch(ctx, pending))

	cutoff := base.Add(24 * time.Hour)
	form, err := db.TeamForm(ctx, 1, cutoff)
	require.NoError(t, err)
	assert.Equal(t, models.TeamForm{RecentPlayed: 5, RecentWins: 4, TotalPlayed: 7, TotalWins: 6}, form)

	// cutoff hides the loss to team 3
	early, err := db.TeamForm(ctx, 1, base.Add(10*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 6, early.TotalPlayed)
	assert.Equal(t, 6, early.TotalWins)

	h2h, err := db.HeadToHead(ctx, 2, 1, cutoff)
	require.NoError(t, err)
	assert.Equal(t, models.HeadToHead{Played: 6, TeamAWins: 0, TeamBWins: 6}, h2h)

	none, err := db.TeamForm(ctx, 999, cutoff)
	require.NoError(t, err)
	assert.Zero(t, none.TotalPlayed)
}

func TestMatchRepository_SavePrediction(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)
	gameID := valorantID(t, ctx, db)
	seedTeams(t, ctx, db, gameID, 1, 2)
	require.NoError(t, db.UpsertMatch(ctx, finished(1, 1, 2, 1, time.Now().Add(-time.Hour), gameID)))

	p := &models.Prediction{MatchID: 1, TeamA: 0.7, TeamB: 0.3, Confidence: 0.4}
	ok, err := db.SavePrediction(ctx, p, false)
	require.NoError(t, err)
	assert.True(t, ok)

	// default policy never recomputes
	ok, err = db.SavePrediction(ctx, &models.Prediction{MatchID: 1, TeamA: 0.5, TeamB: 0.5}, false)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := db.GetMatch(ctx, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.7, got.PredictionTeamA.Float64, 1e-9)

	ok, err = db.SavePrediction(ctx, &models.Prediction{MatchID: 1, TeamA: 0.5, TeamB: 0.5}, true)
	require.NoError(t, err)
	assert.True(t, ok)

	ids, err := db.FinishedMatches(ctx, 10, false)
	require.NoError(t, err)
	assert.Empty(t, ids)
	ids, err = db.FinishedMatches(ctx, 10, true)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids)
}

func TestMatchRepository_UpcomingUnpredicted(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)
	gameID := valorantID(t, ctx, db)
	seedTeams(t, ctx, db, gameID, 1, 2)

	later := finished(2, 1, 2, 0, time.Now().Add(72*time.Hour), gameID)
	sooner := finished(3, 2, 1, 0, time.Now().Add(24*time.Hour), gameID)
	for _, m := range []*models.Match{later, sooner} {
		m.Status = models.StatusNotStarted
		m.WinnerID = sql.NullInt64{}
		require.NoError(t, db.UpsertMatch(ctx, m))
	}

	ids, err := db.UpcomingUnpredicted(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 2}, ids)
}

func TestMatchStats_InsertManyIsIdempotent(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)
	gameID := valorantID(t, ctx, db)
	seedTeams(t, ctx, db, gameID, 1, 2)
	require.NoError(t, db.UpsertMatch(ctx, finished(1, 1, 2, 1, time.Now().Add(-time.Hour), gameID)))

	pending, err := db.FinishedMatchesWithoutStats(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	two := 2
	rows := []*models.MatchStats{
		{MatchID: 1, TeamID: 1, Stats: models.TeamMatchStats{Score: &two, GamesDetail: []models.GameDetail{}}},
		{MatchID: 1, TeamID: 2, Stats: models.TeamMatchStats{GamesDetail: []models.GameDetail{}}},
	}
	n, err := db.InsertMatchStats(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = db.InsertMatchStats(ctx, rows)
	require.NoError(t, err)
	assert.Zero(t, n, "Unique conflict must be a no-op")

	stored, err := db.MatchStats.ListByMatch(ctx, 1)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, 2, *stored[0].Stats.Score)

	pending, err = db.FinishedMatchesWithoutStats(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestPlayerRepository_UpsertManyIsIdempotent(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	a, b := "TenZ", "Sick"
	players := []*models.Player{
		(&models.PlayerInput{ID: 7, Name: &a}).ToPlayer(42),
		(&models.PlayerInput{ID: 8, Name: &b}).ToPlayer(42),
	}

	for i := 0; i < 2; i++ {
		err := db.WithinTx(ctx, func(ctx context.Context) error {
			_, err := db.UpsertPlayers(ctx, players)
			return err
		})
		require.NoError(t, err)
	}

	count, err := db.Players.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	roster, err := db.Players.ListByTeam(ctx, 42)
	require.NoError(t, err)
	require.Len(t, roster, 2)
	assert.Equal(t, models.PlayerID(8), roster[0].ID)
}
