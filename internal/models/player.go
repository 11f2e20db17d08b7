package models

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Player represents a rostered player.
// ID is derived from the upstream player id, see PlayerID.
type Player struct {
	ID               uuid.UUID      `db:"id"`
	Nickname         string         `db:"nickname"`
	RealName         sql.NullString `db:"real_name"`
	Role             sql.NullString `db:"role"`
	ImageURL         sql.NullString `db:"image_url"`
	UpstreamPlayerID int64          `db:"upstream_player_id"`
	UpstreamTeamID   int64          `db:"upstream_team_id"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

// PlayerID derives the stable surrogate key for an upstream player id.
// It is a name-based UUIDv5 in the URL namespace over "ps-player-<id>",
// so every layer that knows the upstream id computes the same key.
func PlayerID(upstreamID int64) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("ps-player-%d", upstreamID)))
}

// PlayerInput is a player entry of an upstream team roster
type PlayerInput struct {
	ID        int64   `json:"id"`
	Name      *string `json:"name"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Role      *string `json:"role"`
	ImageURL  *string `json:"image_url"`
}

// TeamRosterInput is the upstream team object returned by teams/{id}
type TeamRosterInput struct {
	ID      int64         `json:"id"`
	Name    string        `json:"name"`
	Players []PlayerInput `json:"players"`
}

// ToPlayer converts a PlayerInput into a Player row belonging to teamID
func (pi *PlayerInput) ToPlayer(teamID int64) *Player {
	player := &Player{
		ID:               PlayerID(pi.ID),
		Nickname:         "Unknown",
		UpstreamPlayerID: pi.ID,
		UpstreamTeamID:   teamID,
	}

	if pi.Name != nil && *pi.Name != "" {
		player.Nickname = *pi.Name
	}

	var parts []string
	for _, p := range []*string{pi.FirstName, pi.LastName} {
		if p != nil && strings.TrimSpace(*p) != "" {
			parts = append(parts, strings.TrimSpace(*p))
		}
	}
	player.RealName = nullString(strings.Join(parts, " "))

	if pi.Role != nil {
		player.Role = nullString(*pi.Role)
	}
	if pi.ImageURL != nil {
		player.ImageURL = nullString(*pi.ImageURL)
	}

	return player
}
