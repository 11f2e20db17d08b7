package cache

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esports_v1/ingestion/internal/models"
)

type memStore struct {
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, ErrMiss
	}
	return v, nil
}

func (m *memStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func TestRosterCache_RoundTrip(t *testing.T) {
	store := newMemStore()
	c := NewRosterCache(store, time.Hour)
	ctx := context.Background()

	_, ok := c.Get(ctx, 42)
	assert.False(t, ok)

	name := "TenZ"
	c.Set(ctx, &models.TeamRosterInput{ID: 42, Name: "Sentinels", Players: []models.PlayerInput{{ID: 7, Name: &name}}})

	assert.Equal(t, time.Hour, store.ttls["esports:roster:42"])

	got, ok := c.Get(ctx, 42)
	require.True(t, ok)
	assert.Equal(t, int64(42), got.ID)
	require.Len(t, got.Players, 1)
	assert.Equal(t, "TenZ", *got.Players[0].Name)
}

func TestRosterCache_EmptyRosterIsCached(t *testing.T) {
	c := NewRosterCache(newMemStore(), time.Hour)
	ctx := context.Background()

	c.Set(ctx, &models.TeamRosterInput{ID: 5})
	got, ok := c.Get(ctx, 5)
	require.True(t, ok)
	assert.Empty(t, got.Players)
}

func TestRosterCache_FailuresDegradeToMiss(t *testing.T) {
	store := newMemStore()
	c := NewRosterCache(store, time.Minute)
	ctx := context.Background()

	store.data[rosterKey(1)] = []byte("{not json")
	_, ok := c.Get(ctx, 1)
	assert.False(t, ok)

	store.getErr = errors.New("connection refused")
	_, ok = c.Get(ctx, 1)
	assert.False(t, ok)

	store.setErr = errors.New("connection refused")
	assert.NotPanics(t, func() { c.Set(ctx, &models.TeamRosterInput{ID: 2}) })
}

func TestNewRedisCache_RequiresAddr(t *testing.T) {
	_, err := NewRedisCache(Config{})
	assert.Error(t, err)
}
