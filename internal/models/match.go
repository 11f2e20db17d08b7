package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// MatchStatus is the lifecycle state of a match
type MatchStatus string

const (
	StatusNotStarted MatchStatus = "not_started"
	StatusRunning    MatchStatus = "running"
	StatusFinished   MatchStatus = "finished"
	StatusCanceled   MatchStatus = "canceled"
	StatusPostponed  MatchStatus = "postponed"
)

// ParseMatchStatus maps an upstream status, defaulting unknown values to not_started
func ParseMatchStatus(raw string) MatchStatus {
	switch s := MatchStatus(raw); s {
	case StatusNotStarted, StatusRunning, StatusFinished, StatusCanceled, StatusPostponed:
		return s
	default:
		return StatusNotStarted
	}
}

// Match represents a persisted match row
type Match struct {
	ID            int64         `db:"id"`
	GameID        int           `db:"game_id"`
	TournamentID  sql.NullInt64 `db:"tournament_id"`
	SerieID       sql.NullInt64 `db:"serie_id"`
	TeamAID       int64         `db:"team_a_id"`
	TeamBID       int64         `db:"team_b_id"`
	Status        MatchStatus   `db:"status"`
	ScheduledAt   time.Time     `db:"scheduled_at"`
	MatchType     string        `db:"match_type"`
	NumberOfGames int           `db:"number_of_games"`
	WinnerID      sql.NullInt64 `db:"winner_id"`
	TeamAScore    sql.NullInt32 `db:"team_a_score"`
	TeamBScore    sql.NullInt32 `db:"team_b_score"`

	// Prediction fields stay NULL until the predictor writes them
	PredictionTeamA      sql.NullFloat64 `db:"prediction_team_a"`
	PredictionTeamB      sql.NullFloat64 `db:"prediction_team_b"`
	PredictionConfidence sql.NullFloat64 `db:"prediction_confidence"`

	RawPayload json.RawMessage `db:"raw_payload"`

	// Joined from tournaments when loading a prediction target
	TournamentTier sql.NullString `db:"-"`

	LastSyncedAt time.Time `db:"last_synced_at"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// IsPredicted returns true once prediction fields are set
func (m *Match) IsPredicted() bool {
	return m.PredictionTeamA.Valid && m.PredictionTeamB.Valid
}

// IsFinal returns true if the match is finished
func (m *Match) IsFinal() bool {
	return m.Status == StatusFinished
}

// IsDecided returns true if the match is finished with a winner
func (m *Match) IsDecided() bool {
	return m.IsFinal() && m.WinnerID.Valid
}

// ResultInput is one entry of the upstream results array
type ResultInput struct {
	TeamID *int64 `json:"team_id"`
	Score  *int   `json:"score"`
}

// WinnerInput identifies the winner of a single map/game
type WinnerInput struct {
	ID   *int64 `json:"id"`
	Type string `json:"type"`
}

// MatchGameInput is one map/game inside a series
type MatchGameInput struct {
	ID       *int64       `json:"id"`
	Position *int         `json:"position"`
	Status   *string      `json:"status"`
	Length   *int         `json:"length"`
	Winner   *WinnerInput `json:"winner"`
}

// VideogameInput identifies the title a match belongs to
type VideogameInput struct {
	ID   *int64  `json:"id"`
	Name *string `json:"name"`
	Slug *string `json:"slug"`
}

// MatchInput is a raw match as returned by the upstream API.
// Raw keeps the upstream payload bytes for audit and stats extraction.
type MatchInput struct {
	ID            *int64           `json:"id"`
	Name          *string          `json:"name"`
	Status        *string          `json:"status"`
	ScheduledAt   *string          `json:"scheduled_at"`
	BeginAt       *string          `json:"begin_at"`
	MatchType     *string          `json:"match_type"`
	NumberOfGames *int             `json:"number_of_games"`
	WinnerID      *int64           `json:"winner_id"`
	SerieID       *int64           `json:"serie_id"`
	Videogame     *VideogameInput  `json:"videogame"`
	Tournament    *TournamentInput `json:"tournament"`
	League        *LeagueInput     `json:"league"`
	Opponents     []OpponentInput  `json:"opponents"`
	Results       []ResultInput    `json:"results"`
	Games         []MatchGameInput `json:"games"`

	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the payload and retains a copy of the raw bytes
func (mi *MatchInput) UnmarshalJSON(data []byte) error {
	type alias MatchInput
	var decoded alias
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*mi = MatchInput(decoded)
	mi.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// CanonicalMatch is the validated, normalized representation of a match
type CanonicalMatch struct {
	ID            int64                `validate:"required,gt=0"`
	GameSlug      string
	SerieID       *int64
	Tournament    *CanonicalTournament `validate:"omitempty"`
	TeamA         CanonicalTeam        `validate:"required"`
	TeamB         CanonicalTeam        `validate:"required"`
	ScheduledAt   time.Time            `validate:"required"`
	Status        MatchStatus          `validate:"required,oneof=not_started running finished canceled postponed"`
	MatchType     string
	NumberOfGames int    `validate:"gte=0"`
	WinnerID      *int64
	TeamAScore    *int
	TeamBScore    *int
	Raw           json.RawMessage
}

// ToMatch converts the canonical record into a Match row for gameID
func (cm *CanonicalMatch) ToMatch(gameID int) *Match {
	match := &Match{
		ID:            cm.ID,
		GameID:        gameID,
		TeamAID:       cm.TeamA.ID,
		TeamBID:       cm.TeamB.ID,
		Status:        cm.Status,
		ScheduledAt:   cm.ScheduledAt,
		MatchType:     cm.MatchType,
		NumberOfGames: cm.NumberOfGames,
		RawPayload:    cm.Raw,
	}

	if cm.Tournament != nil {
		match.TournamentID = sql.NullInt64{Int64: cm.Tournament.ID, Valid: true}
	}
	if cm.SerieID != nil {
		match.SerieID = sql.NullInt64{Int64: *cm.SerieID, Valid: true}
	}
	if cm.WinnerID != nil {
		match.WinnerID = sql.NullInt64{Int64: *cm.WinnerID, Valid: true}
	}
	if cm.TeamAScore != nil {
		match.TeamAScore = sql.NullInt32{Int32: int32(*cm.TeamAScore), Valid: true}
	}
	if cm.TeamBScore != nil {
		match.TeamBScore = sql.NullInt32{Int32: int32(*cm.TeamBScore), Valid: true}
	}

	return match
}
