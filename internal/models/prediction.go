package models

// TeamForm summarises a team's finished, decided matches before a cutoff
type TeamForm struct {
	RecentWins   int // wins among the last RecentWindow decided matches
	RecentPlayed int
	TotalWins    int
	TotalPlayed  int
}

// RecentWindow is how many decided matches count as recent form
const RecentWindow = 5

// HeadToHead summarises decided matches between exactly two teams.
// TeamAWins and TeamBWins are from the perspective of the match being predicted.
type HeadToHead struct {
	Played    int
	TeamAWins int
	TeamBWins int
}

// Prediction is the outcome distribution derived for a match
type Prediction struct {
	MatchID    int64   `json:"match_id"`
	TeamA      float64 `json:"team_a"`
	TeamB      float64 `json:"team_b"`
	Confidence float64 `json:"confidence"`

	// Inputs, kept for logging and backtest reports
	StrengthA float64 `json:"strength_a"`
	StrengthB float64 `json:"strength_b"`
	BonusA    float64 `json:"bonus_a"`
	BonusB    float64 `json:"bonus_b"`
}

// FavoriteIsA reports whether team A is the predicted favourite.
// A tie is not a pick for either side.
func (p *Prediction) FavoriteIsA() (isA bool, decided bool) {
	switch {
	case p.TeamA > p.TeamB:
		return true, true
	case p.TeamB > p.TeamA:
		return false, true
	default:
		return false, false
	}
}
