package models

import "time"

// Game represents a video game title (valorant, csgo, lol)
// Slug is the natural key; ID is assigned by the store
type Game struct {
	ID        int       `db:"id"`
	Slug      string    `db:"slug"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

// gameNames holds display names for the titles we seed
var gameNames = map[string]string{
	"valorant": "Valorant",
	"csgo":     "Counter-Strike",
	"lol":      "League of Legends",
}

// GameName returns a display name for slug, falling back to the slug itself
func GameName(slug string) string {
	if name, ok := gameNames[slug]; ok {
		return name
	}
	return slug
}
