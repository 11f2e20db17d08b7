package models

import (
	"database/sql"
	"time"
)

// Team represents an esports team. ID comes from the upstream source.
type Team struct {
	ID           int64          `db:"id"`
	Name         string         `db:"name"`
	Slug         sql.NullString `db:"slug"`
	Acronym      string         `db:"acronym"`
	LogoURL      sql.NullString `db:"logo_url"`
	GameID       int            `db:"game_id"`
	LastSyncedAt time.Time      `db:"last_synced_at"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

// TeamInput is the opponent object embedded in an upstream match
type TeamInput struct {
	ID       *int64  `json:"id"`
	Name     *string `json:"name"`
	Slug     *string `json:"slug"`
	Acronym  *string `json:"acronym"`
	ImageURL *string `json:"image_url"`
}

// OpponentInput wraps a TeamInput the way the upstream API nests it
type OpponentInput struct {
	Type     string     `json:"type"`
	Opponent *TeamInput `json:"opponent"`
}

// CanonicalTeam is a validated team taken from a match payload
type CanonicalTeam struct {
	ID      int64  `validate:"required,gt=0"`
	Name    string `validate:"required"`
	Slug    string
	Acronym string
	LogoURL string
}

// ToTeam converts a CanonicalTeam into a Team row for gameID
func (ct *CanonicalTeam) ToTeam(gameID int) *Team {
	return &Team{
		ID:      ct.ID,
		Name:    ct.Name,
		Slug:    nullString(ct.Slug),
		Acronym: ct.Acronym,
		LogoURL: nullString(ct.LogoURL),
		GameID:  gameID,
	}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
