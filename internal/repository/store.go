package repository

import (
	"context"
	"time"

	"esports_v1/ingestion/internal/models"
)

// The methods below give *Database the flat shape the sync and prediction
// engines consume through their own small interfaces.

func (db *Database) EnsureGame(ctx context.Context, slug string) (int, error) {
	return db.Games.Ensure(ctx, slug)
}

func (db *Database) UpsertTeam(ctx context.Context, team *models.Team) error {
	return db.Teams.Upsert(ctx, team)
}

func (db *Database) UpsertTournament(ctx context.Context, t *models.Tournament) error {
	return db.Tournaments.Upsert(ctx, t)
}

func (db *Database) UpsertMatch(ctx context.Context, m *models.Match) error {
	return db.Matches.Upsert(ctx, m)
}

func (db *Database) TeamsWithoutPlayers(ctx context.Context, limit int) ([]*models.Team, error) {
	return db.Teams.ListWithoutPlayers(ctx, limit)
}

func (db *Database) UpsertPlayers(ctx context.Context, players []*models.Player) (int, error) {
	return db.Players.UpsertMany(ctx, players)
}

func (db *Database) FinishedMatchesWithoutStats(ctx context.Context, limit int) ([]*models.Match, error) {
	return db.Matches.ListFinishedWithoutStats(ctx, limit)
}

func (db *Database) InsertMatchStats(ctx context.Context, stats []*models.MatchStats) (int64, error) {
	return db.MatchStats.InsertMany(ctx, stats)
}

func (db *Database) GetMatch(ctx context.Context, id int64) (*models.Match, error) {
	return db.Matches.GetByID(ctx, id)
}

func (db *Database) TeamForm(ctx context.Context, teamID int64, before time.Time) (models.TeamForm, error) {
	return db.Matches.TeamForm(ctx, teamID, before)
}

func (db *Database) HeadToHead(ctx context.Context, teamA, teamB int64, before time.Time) (models.HeadToHead, error) {
	return db.Matches.HeadToHead(ctx, teamA, teamB, before)
}

func (db *Database) SavePrediction(ctx context.Context, p *models.Prediction, overwrite bool) (bool, error) {
	return db.Matches.SavePrediction(ctx, p, overwrite)
}

func (db *Database) UpcomingUnpredicted(ctx context.Context, limit int) ([]int64, error) {
	return db.Matches.ListUpcomingUnpredicted(ctx, limit)
}

func (db *Database) FinishedMatches(ctx context.Context, limit int, includePredicted bool) ([]int64, error) {
	return db.Matches.ListFinished(ctx, limit, includePredicted)
}
