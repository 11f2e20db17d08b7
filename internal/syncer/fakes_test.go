package syncer

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"

	"esports_v1/ingestion/internal/apperr"
	"esports_v1/ingestion/internal/client"
	"esports_v1/ingestion/internal/models"
)

type statsKey struct {
	match, team int64
}

// fakeStore keeps rows in maps and restores a snapshot when a transaction fails
type fakeStore struct {
	mu sync.Mutex

	games       map[string]int
	teams       map[int64]models.Team
	tournaments map[int64]models.Tournament
	matches     map[int64]models.Match
	players     map[int64]models.Player // keyed by upstream id
	stats       map[statsKey]models.MatchStats

	failMatch  map[int64]bool
	ensureErr  error
	calls      []string
	statsFlush []int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		games:       map[string]int{},
		teams:       map[int64]models.Team{},
		tournaments: map[int64]models.Tournament{},
		matches:     map[int64]models.Match{},
		players:     map[int64]models.Player{},
		stats:       map[statsKey]models.MatchStats{},
		failMatch:   map[int64]bool{},
	}
}

type snapshot struct {
	teams       map[int64]models.Team
	tournaments map[int64]models.Tournament
	matches     map[int64]models.Match
	players     map[int64]models.Player
	stats       map[statsKey]models.MatchStats
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *fakeStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	snap := snapshot{copyMap(s.teams), copyMap(s.tournaments), copyMap(s.matches), copyMap(s.players), copyMap(s.stats)}
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.teams, s.tournaments, s.matches, s.players, s.stats = snap.teams, snap.tournaments, snap.matches, snap.players, snap.stats
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *fakeStore) EnsureGame(ctx context.Context, slug string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ensureErr != nil {
		return 0, s.ensureErr
	}
	if id, ok := s.games[slug]; ok {
		return id, nil
	}
	s.games[slug] = len(s.games) + 1
	return s.games[slug], nil
}

func (s *fakeStore) UpsertTeam(ctx context.Context, team *models.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "team")
	if existing, ok := s.teams[team.ID]; ok {
		team.GameID = existing.GameID
	}
	s.teams[team.ID] = *team
	return nil
}

func (s *fakeStore) UpsertTournament(ctx context.Context, t *models.Tournament) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "tournament")
	s.tournaments[t.ID] = *t
	return nil
}

func (s *fakeStore) UpsertMatch(ctx context.Context, m *models.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "match")
	if s.failMatch[m.ID] {
		return apperr.Persistence(errors.Newf("check constraint violated for match %d", m.ID))
	}
	if _, ok := s.teams[m.TeamAID]; !ok {
		return apperr.Persistence(errors.Newf("team %d missing", m.TeamAID))
	}
	if _, ok := s.teams[m.TeamBID]; !ok {
		return apperr.Persistence(errors.Newf("team %d missing", m.TeamBID))
	}
	if m.TournamentID.Valid {
		if _, ok := s.tournaments[m.TournamentID.Int64]; !ok {
			return apperr.Persistence(errors.Newf("tournament %d missing", m.TournamentID.Int64))
		}
	}
	s.matches[m.ID] = *m
	return nil
}

func (s *fakeStore) TeamsWithoutPlayers(ctx context.Context, limit int) ([]*models.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rostered := map[int64]bool{}
	for _, p := range s.players {
		rostered[p.UpstreamTeamID] = true
	}

	var out []*models.Team
	for id := int64(1); len(out) < limit && id <= maxID(s.teams); id++ {
		team, ok := s.teams[id]
		if !ok || rostered[id] {
			continue
		}
		t := team
		out = append(out, &t)
	}
	return out, nil
}

func maxID(m map[int64]models.Team) int64 {
	var max int64
	for id := range m {
		if id > max {
			max = id
		}
	}
	return max
}

func (s *fakeStore) UpsertPlayers(ctx context.Context, players []*models.Player) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range players {
		s.players[p.UpstreamPlayerID] = *p
	}
	return len(players), nil
}

func (s *fakeStore) FinishedMatchesWithoutStats(ctx context.Context, limit int) ([]*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	has := map[int64]bool{}
	for k := range s.stats {
		has[k.match] = true
	}

	var out []*models.Match
	for _, m := range s.matches {
		if len(out) >= limit {
			break
		}
		if m.Status != models.StatusFinished || len(m.RawPayload) == 0 || has[m.ID] {
			continue
		}
		mm := m
		out = append(out, &mm)
	}
	return out, nil
}

func (s *fakeStore) InsertMatchStats(ctx context.Context, stats []*models.MatchStats) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statsFlush = append(s.statsFlush, len(stats))

	var inserted int64
	for _, st := range stats {
		k := statsKey{st.MatchID, st.TeamID}
		if _, ok := s.stats[k]; ok {
			continue
		}
		s.stats[k] = *st
		inserted++
	}
	return inserted, nil
}

// fakeFetcher serves canned matches and rosters
type fakeFetcher struct {
	mu sync.Mutex

	matches   []*models.MatchInput
	fetchErr  error
	rosters   map[int64]*models.TeamRosterInput
	rosterErr map[int64]error

	matchCalls  int
	rosterCalls []int64
}

func (f *fakeFetcher) FetchMatches(ctx context.Context, gameSlug string, window client.Window, pageSize, page int) ([]*models.MatchInput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.matchCalls++
	if f.fetchErr != nil {
		return []*models.MatchInput{}, f.fetchErr
	}
	return f.matches, nil
}

func (f *fakeFetcher) FetchTeamRoster(ctx context.Context, teamID int64) (*models.TeamRosterInput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rosterCalls = append(f.rosterCalls, teamID)
	if err := f.rosterErr[teamID]; err != nil {
		return nil, err
	}
	if r, ok := f.rosters[teamID]; ok {
		return r, nil
	}
	return &models.TeamRosterInput{ID: teamID}, nil
}

// fakeCache is an in-memory RosterCache
type fakeCache struct {
	rosters map[int64]*models.TeamRosterInput
}

func (c *fakeCache) Get(ctx context.Context, teamID int64) (*models.TeamRosterInput, bool) {
	r, ok := c.rosters[teamID]
	return r, ok
}

func (c *fakeCache) Set(ctx context.Context, roster *models.TeamRosterInput) {
	c.rosters[roster.ID] = roster
}
