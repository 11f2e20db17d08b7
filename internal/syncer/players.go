package syncer

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	"esports_v1/ingestion/internal/apperr"
	"esports_v1/ingestion/internal/metrics"
	"esports_v1/ingestion/internal/models"
)

// PlayerResult reports the counts of a player sync pass
type PlayerResult struct {
	Teams       int // teams without players considered
	TeamsSynced int
	EmptyTeams  int
	Failed      int
	Players     int
	CacheHits   int
}

// SyncPlayers loads rosters for up to teamLimit teams that have no players
// yet. Upstream calls are spaced by the player delay.
func (e *Engine) SyncPlayers(ctx context.Context, teamLimit int) (PlayerResult, error) {
	start := time.Now()
	var result PlayerResult

	teams, err := e.store.TeamsWithoutPlayers(ctx, teamLimit)
	if err != nil {
		metrics.RecordSync("players", "error", time.Since(start).Seconds())
		return result, errors.Wrap(err, "list teams without players")
	}
	result.Teams = len(teams)

	if len(teams) == 0 {
		log.Info().Msg("All teams already have players")
		return result, nil
	}

	log.Info().Int("teams", len(teams)).Msg("Fetching team rosters")

	calledUpstream := false
	for _, team := range teams {
		roster, cached := e.cachedRoster(ctx, team.ID)
		if cached {
			result.CacheHits++
		} else {
			if calledUpstream {
				if err := sleep(ctx, e.playerDelay); err != nil {
					return result, err
				}
			}
			calledUpstream = true

			roster, err = e.fetcher.FetchTeamRoster(ctx, team.ID)
			if err != nil {
				result.Failed++
				metrics.RecordError("client", string(apperr.KindOf(err)))
				log.Warn().Err(err).Int64("team_id", team.ID).Str("team", team.Name).Msg("Failed to fetch roster")
				continue
			}
			if e.cache != nil {
				e.cache.Set(ctx, roster)
			}
		}

		if len(roster.Players) == 0 {
			result.EmptyTeams++
			continue
		}

		players := make([]*models.Player, 0, len(roster.Players))
		for i := range roster.Players {
			players = append(players, roster.Players[i].ToPlayer(team.ID))
		}

		var n int
		err := e.store.WithinTx(ctx, func(ctx context.Context) error {
			var err error
			n, err = e.store.UpsertPlayers(ctx, players)
			return err
		})
		if err != nil {
			result.Failed++
			metrics.RecordError("syncer", string(apperr.KindOf(err)))
			log.Error().Err(err).Int64("team_id", team.ID).Msg("Failed to save players")
			continue
		}

		result.TeamsSynced++
		result.Players += n
		log.Debug().Int64("team_id", team.ID).Str("team", team.Name).Int("players", n).Msg("Roster saved")
	}

	metrics.RecordSync("players", "success", time.Since(start).Seconds())
	log.Info().
		Int("players", result.Players).
		Int("teams_synced", result.TeamsSynced).
		Int("empty_teams", result.EmptyTeams).
		Int("failed", result.Failed).
		Int("cache_hits", result.CacheHits).
		Msg("Player sync complete")

	return result, nil
}

func (e *Engine) cachedRoster(ctx context.Context, teamID int64) (*models.TeamRosterInput, bool) {
	if e.cache == nil {
		return nil, false
	}
	return e.cache.Get(ctx, teamID)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
