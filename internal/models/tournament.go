package models

import (
	"database/sql"
	"strings"
	"time"
)

// Tournament represents a tournament (or the league it falls back to)
type Tournament struct {
	ID           int64          `db:"id"`
	Name         string         `db:"name"`
	Slug         sql.NullString `db:"slug"`
	GameID       int            `db:"game_id"`
	Tier         sql.NullString `db:"tier"`
	LastSyncedAt time.Time      `db:"last_synced_at"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

// TournamentInput is the tournament object embedded in an upstream match
type TournamentInput struct {
	ID   *int64  `json:"id"`
	Name *string `json:"name"`
	Slug *string `json:"slug"`
	Tier *string `json:"tier"`
}

// LeagueInput is the league object embedded in an upstream match
type LeagueInput struct {
	ID   *int64  `json:"id"`
	Name *string `json:"name"`
	Slug *string `json:"slug"`
}

// CanonicalTournament is a validated tournament taken from a match payload
type CanonicalTournament struct {
	ID   int64  `validate:"required,gt=0"`
	Name string `validate:"required"`
	Slug string
	Tier string `validate:"omitempty,oneof=S A B C"`
}

// ToTournament converts a CanonicalTournament into a Tournament row for gameID
func (ct *CanonicalTournament) ToTournament(gameID int) *Tournament {
	return &Tournament{
		ID:     ct.ID,
		Name:   ct.Name,
		Slug:   nullString(ct.Slug),
		GameID: gameID,
		Tier:   nullString(ct.Tier),
	}
}

// NormalizeTier maps upstream tier labels onto S/A/B/C.
// Anything else (d, unranked, empty) becomes "" and is stored as NULL.
func NormalizeTier(raw string) string {
	tier := strings.ToUpper(strings.TrimSpace(raw))
	switch tier {
	case "S", "A", "B", "C":
		return tier
	default:
		return ""
	}
}
