package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	"esports_v1/ingestion/internal/metrics"
	"esports_v1/ingestion/internal/models"
)

// Store is the byte-level key/value surface the roster cache sits on.
// *RedisCache satisfies it.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RosterCache keeps team roster responses, empty ones included, so repeated
// player syncs skip the upstream call. Cache failures degrade to a miss.
type RosterCache struct {
	store Store
	ttl   time.Duration
}

// NewRosterCache creates a roster cache with the given entry lifetime
func NewRosterCache(store Store, ttl time.Duration) *RosterCache {
	return &RosterCache{store: store, ttl: ttl}
}

func rosterKey(teamID int64) string {
	return fmt.Sprintf("esports:roster:%d", teamID)
}

// Get returns the cached roster for teamID
func (c *RosterCache) Get(ctx context.Context, teamID int64) (*models.TeamRosterInput, bool) {
	raw, err := c.store.Get(ctx, rosterKey(teamID))
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			log.Warn().Err(err).Int64("team_id", teamID).Msg("Roster cache read failed")
		}
		metrics.RecordCacheMiss()
		return nil, false
	}

	var roster models.TeamRosterInput
	if err := sonic.Unmarshal(raw, &roster); err != nil {
		log.Warn().Err(err).Int64("team_id", teamID).Msg("Discarding unreadable cached roster")
		metrics.RecordCacheMiss()
		return nil, false
	}

	metrics.RecordCacheHit()
	return &roster, true
}

// Set stores roster under its team id
func (c *RosterCache) Set(ctx context.Context, roster *models.TeamRosterInput) {
	raw, err := sonic.Marshal(roster)
	if err != nil {
		log.Warn().Err(err).Int64("team_id", roster.ID).Msg("Failed to encode roster for cache")
		return
	}
	if err := c.store.Set(ctx, rosterKey(roster.ID), raw, c.ttl); err != nil {
		log.Warn().Err(err).Int64("team_id", roster.ID).Msg("Roster cache write failed")
	}
}
