// Package syncer persists canonical match records and derives players and
// per-match statistics from them.
//
// Every write path is an upsert or an existence-checked insert, so a pass
// that is interrupted can simply be run again.
package syncer

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	"esports_v1/ingestion/internal/apperr"
	"esports_v1/ingestion/internal/cleaner"
	"esports_v1/ingestion/internal/client"
	"esports_v1/ingestion/internal/metrics"
	"esports_v1/ingestion/internal/models"
)

// Fetcher is the upstream API surface the engine needs
type Fetcher interface {
	FetchMatches(ctx context.Context, gameSlug string, window client.Window, pageSize, page int) ([]*models.MatchInput, error)
	FetchTeamRoster(ctx context.Context, teamID int64) (*models.TeamRosterInput, error)
}

// Store is the persistence surface the engine needs
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error

	EnsureGame(ctx context.Context, slug string) (int, error)
	UpsertTeam(ctx context.Context, team *models.Team) error
	UpsertTournament(ctx context.Context, t *models.Tournament) error
	UpsertMatch(ctx context.Context, m *models.Match) error

	TeamsWithoutPlayers(ctx context.Context, limit int) ([]*models.Team, error)
	UpsertPlayers(ctx context.Context, players []*models.Player) (int, error)

	FinishedMatchesWithoutStats(ctx context.Context, limit int) ([]*models.Match, error)
	InsertMatchStats(ctx context.Context, stats []*models.MatchStats) (int64, error)
}

// RosterCache remembers roster responses between player sync runs
type RosterCache interface {
	Get(ctx context.Context, teamID int64) (*models.TeamRosterInput, bool)
	Set(ctx context.Context, roster *models.TeamRosterInput)
}

// DefaultPlayerDelay is the pause between upstream roster calls
const DefaultPlayerDelay = 100 * time.Millisecond

// Engine runs sync passes against a store
type Engine struct {
	store       Store
	fetcher     Fetcher
	cache       RosterCache
	playerDelay time.Duration
}

// Option customises an Engine
type Option func(*Engine)

// WithRosterCache enables roster caching for player sync
func WithRosterCache(c RosterCache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithPlayerDelay overrides the pause between roster calls
func WithPlayerDelay(d time.Duration) Option {
	return func(e *Engine) { e.playerDelay = d }
}

// NewEngine creates a sync engine
func NewEngine(store Store, fetcher Fetcher, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		fetcher:     fetcher,
		playerDelay: DefaultPlayerDelay,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SyncRequest selects one page of one window for one game
type SyncRequest struct {
	GameSlug string
	Window   client.Window
	Limit    int
	Page     int
}

// Result reports the counts of a match sync pass
type Result struct {
	Game     string
	Window   client.Window
	Fetched  int
	Cleaned  int
	Rejected int
	Synced   int
	Failed   int

	// FetchErr is set when the upstream call failed and nothing was fetched
	FetchErr error
}

// SyncGame fetches, cleans and persists one page of matches for a game.
// A failed fetch is reported through Result.FetchErr and is not an error;
// only a failure to resolve the game row is returned.
func (e *Engine) SyncGame(ctx context.Context, req SyncRequest) (Result, error) {
	start := time.Now()
	result := Result{Game: req.GameSlug, Window: req.Window}

	gameID, err := e.store.EnsureGame(ctx, req.GameSlug)
	if err != nil {
		metrics.RecordSync("matches", "error", time.Since(start).Seconds())
		return result, errors.Wrapf(err, "resolve game %s", req.GameSlug)
	}

	log.Info().
		Str("game", req.GameSlug).
		Str("window", string(req.Window)).
		Int("limit", req.Limit).
		Int("page", req.Page).
		Msg("Fetching matches")

	raws, err := e.fetcher.FetchMatches(ctx, req.GameSlug, req.Window, req.Limit, req.Page)
	if err != nil {
		log.Warn().Err(err).Str("game", req.GameSlug).Msg("Fetch failed, no data this round")
		metrics.RecordError("client", string(apperr.KindOf(err)))
		metrics.RecordSync("matches", "fetch_error", time.Since(start).Seconds())
		result.FetchErr = err
		return result, nil
	}
	result.Fetched = len(raws)

	cleaned, rejected := cleaner.CleanBatch(raws)
	result.Rejected = rejected

	synced := e.Sync(ctx, cleaned, gameID)
	result.Cleaned = synced.Cleaned
	result.Synced = synced.Synced
	result.Failed = synced.Failed

	metrics.RecordRecords(req.GameSlug, result.Fetched, result.Cleaned, result.Synced, result.Rejected)
	metrics.RecordSync("matches", "success", time.Since(start).Seconds())

	log.Info().
		Str("game", req.GameSlug).
		Int("fetched", result.Fetched).
		Int("cleaned", result.Cleaned).
		Int("synced", result.Synced).
		Int("failed", result.Failed).
		Dur("duration", time.Since(start)).
		Msg("Match sync complete")

	return result, nil
}

// Sync persists canonical records for gameID. Each record is written in its
// own transaction in dependency order: teams, tournament, match. A failing
// record is logged and skipped.
func (e *Engine) Sync(ctx context.Context, records []*models.CanonicalMatch, gameID int) Result {
	result := Result{Cleaned: len(records)}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			log.Warn().Err(err).Msg("Sync interrupted")
			result.Failed += len(records) - result.Synced - result.Failed
			break
		}

		if err := e.store.WithinTx(ctx, func(ctx context.Context) error {
			return e.syncRecord(ctx, rec, gameID)
		}); err != nil {
			result.Failed++
			metrics.RecordError("syncer", string(apperr.KindOf(err)))
			log.Error().
				Err(err).
				Int64("match_id", rec.ID).
				Str("kind", string(apperr.KindOf(err))).
				Msg("Failed to sync match")
			continue
		}
		result.Synced++
	}

	return result
}

func (e *Engine) syncRecord(ctx context.Context, rec *models.CanonicalMatch, gameID int) error {
	if err := e.store.UpsertTeam(ctx, rec.TeamA.ToTeam(gameID)); err != nil {
		return errors.Wrapf(err, "team %d", rec.TeamA.ID)
	}
	if err := e.store.UpsertTeam(ctx, rec.TeamB.ToTeam(gameID)); err != nil {
		return errors.Wrapf(err, "team %d", rec.TeamB.ID)
	}
	if rec.Tournament != nil {
		if err := e.store.UpsertTournament(ctx, rec.Tournament.ToTournament(gameID)); err != nil {
			return errors.Wrapf(err, "tournament %d", rec.Tournament.ID)
		}
	}
	if err := e.store.UpsertMatch(ctx, rec.ToMatch(gameID)); err != nil {
		return errors.Wrapf(err, "match %d", rec.ID)
	}
	return nil
}
