// Package cleaner turns raw upstream match payloads into canonical records.
//
// Rules run in order and stop at the first failure:
//
//  1. the record carries a source identifier
//  2. exactly two opponents, each with a team identifier
//  3. a parseable schedule time (scheduled_at, falling back to begin_at)
//  4. canonical invariants: distinct teams, winner is one of them
package cleaner

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"esports_v1/ingestion/internal/apperr"
	"esports_v1/ingestion/internal/models"
)

const (
	UnknownTeam       = "Unknown Team"
	UnknownTournament = "Unknown Tournament"
	UnknownGame       = "unknown"

	defaultMatchType     = "best_of"
	defaultNumberOfGames = 1
)

// Rule identifies which check rejected a record
type Rule int

const (
	RuleSourceID Rule = iota + 1
	RuleOpponents
	RuleSchedule
	RuleInvariants
)

// Rejection explains why a raw record was excluded
type Rejection struct {
	Rule    Rule
	MatchID int64 // 0 when the record had no identifier
	Reason  string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("match %d rejected by rule %d: %s", r.MatchID, r.Rule, r.Reason)
}

// Unwrap lets errors.Is(err, apperr.ErrValidation) hold for every rejection
func (r *Rejection) Unwrap() error {
	return apperr.ErrValidation
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(matchInvariants, models.CanonicalMatch{})
	return v
}

func matchInvariants(sl validator.StructLevel) {
	m := sl.Current().Interface().(models.CanonicalMatch)
	if m.TeamA.ID == m.TeamB.ID {
		sl.ReportError(m.TeamB.ID, "TeamB", "TeamB", "distinct_teams", "")
	}
	if m.WinnerID != nil && *m.WinnerID != m.TeamA.ID && *m.WinnerID != m.TeamB.ID {
		sl.ReportError(*m.WinnerID, "WinnerID", "WinnerID", "winner_in_match", "")
	}
}

// Clean validates raw and maps it to a canonical record.
// The returned error, when non-nil, is a *Rejection.
func Clean(raw *models.MatchInput) (*models.CanonicalMatch, error) {
	if raw == nil || raw.ID == nil || *raw.ID <= 0 {
		return nil, &Rejection{Rule: RuleSourceID, Reason: "missing source identifier"}
	}
	id := *raw.ID

	if len(raw.Opponents) != 2 {
		return nil, &Rejection{Rule: RuleOpponents, MatchID: id,
			Reason: fmt.Sprintf("expected 2 opponents, got %d", len(raw.Opponents))}
	}
	for i, op := range raw.Opponents {
		if op.Opponent == nil || op.Opponent.ID == nil {
			return nil, &Rejection{Rule: RuleOpponents, MatchID: id,
				Reason: fmt.Sprintf("opponent %d has no team identifier", i)}
		}
	}

	scheduledAt, ok := scheduleTime(raw)
	if !ok {
		return nil, &Rejection{Rule: RuleSchedule, MatchID: id, Reason: "no parseable schedule time"}
	}

	teamA := canonicalTeam(raw.Opponents[0].Opponent)
	teamB := canonicalTeam(raw.Opponents[1].Opponent)

	cm := &models.CanonicalMatch{
		ID:            id,
		GameSlug:      gameSlug(raw.Videogame),
		SerieID:       raw.SerieID,
		Tournament:    canonicalTournament(raw.Tournament, raw.League),
		TeamA:         teamA,
		TeamB:         teamB,
		ScheduledAt:   scheduledAt,
		Status:        models.ParseMatchStatus(deref(raw.Status)),
		MatchType:     defaultMatchType,
		NumberOfGames: defaultNumberOfGames,
		WinnerID:      raw.WinnerID,
		Raw:           raw.Raw,
	}
	if raw.MatchType != nil && *raw.MatchType != "" {
		cm.MatchType = *raw.MatchType
	}
	if raw.NumberOfGames != nil {
		cm.NumberOfGames = *raw.NumberOfGames
	}
	cm.TeamAScore, cm.TeamBScore = scores(raw.Results, teamA.ID, teamB.ID)

	if err := validate.Struct(cm); err != nil {
		return nil, &Rejection{Rule: RuleInvariants, MatchID: id, Reason: err.Error()}
	}

	return cm, nil
}

// CleanBatch cleans every record and returns the accepted ones with a count
// of rejections. Individual rejections are only logged at debug level.
func CleanBatch(raws []*models.MatchInput) ([]*models.CanonicalMatch, int) {
	accepted := make([]*models.CanonicalMatch, 0, len(raws))
	rejected := 0

	for _, raw := range raws {
		cm, err := Clean(raw)
		if err != nil {
			rejected++
			log.Debug().Err(err).Msg("Match rejected")
			continue
		}
		accepted = append(accepted, cm)
	}

	if rejected > 0 {
		log.Warn().
			Int("rejected", rejected).
			Int("accepted", len(accepted)).
			Msg("Skipped invalid matches (missing teams or schedule)")
	}

	return accepted, rejected
}

func scheduleTime(raw *models.MatchInput) (time.Time, bool) {
	for _, s := range []*string{raw.ScheduledAt, raw.BeginAt} {
		if s == nil || strings.TrimSpace(*s) == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, strings.TrimSpace(*s)); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func canonicalTeam(in *models.TeamInput) models.CanonicalTeam {
	return models.CanonicalTeam{
		ID:      *in.ID,
		Name:    orDefault(in.Name, UnknownTeam),
		Slug:    deref(in.Slug),
		Acronym: deref(in.Acronym),
		LogoURL: deref(in.ImageURL),
	}
}

// canonicalTournament prefers the tournament object and falls back to the
// league when the tournament is missing or has no identifier.
func canonicalTournament(t *models.TournamentInput, l *models.LeagueInput) *models.CanonicalTournament {
	if t != nil && t.ID != nil && *t.ID > 0 {
		return &models.CanonicalTournament{
			ID:   *t.ID,
			Name: orDefault(t.Name, UnknownTournament),
			Slug: deref(t.Slug),
			Tier: models.NormalizeTier(deref(t.Tier)),
		}
	}
	if l != nil && l.ID != nil && *l.ID > 0 {
		return &models.CanonicalTournament{
			ID:   *l.ID,
			Name: orDefault(l.Name, UnknownTournament),
			Slug: deref(l.Slug),
		}
	}
	return nil
}

// scores pairs the results array with the two teams. Entries carrying a
// team_id are matched by id; otherwise the array position is used.
func scores(results []models.ResultInput, teamA, teamB int64) (*int, *int) {
	var a, b *int
	for i, r := range results {
		switch {
		case r.TeamID != nil && *r.TeamID == teamA:
			a = r.Score
		case r.TeamID != nil && *r.TeamID == teamB:
			b = r.Score
		case r.TeamID == nil && i == 0:
			a = r.Score
		case r.TeamID == nil && i == 1:
			b = r.Score
		}
	}
	return a, b
}

func gameSlug(vg *models.VideogameInput) string {
	if vg == nil {
		return UnknownGame
	}
	return orDefault(vg.Slug, UnknownGame)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func orDefault(s *string, def string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return def
	}
	return *s
}
