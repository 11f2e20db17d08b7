package models

import "time"

// MatchStats holds per-team statistics extracted from a finished match payload.
// Unique on (match_id, team_id).
type MatchStats struct {
	MatchID   int64          `db:"match_id"`
	TeamID    int64          `db:"team_id"`
	Stats     TeamMatchStats `db:"stats_json"`
	CreatedAt time.Time      `db:"created_at"`
}

// TeamMatchStats is the JSONB document stored in match_stats.stats_json
type TeamMatchStats struct {
	Score       *int         `json:"score"`
	GamesDetail []GameDetail `json:"games_detail"`
}

// GameDetail summarises one map/game of a series
type GameDetail struct {
	Position      *int    `json:"position"`
	WinnerID      *int64  `json:"winner_id"`
	LengthSeconds *int    `json:"length_seconds"`
	Status        *string `json:"status"`
}
