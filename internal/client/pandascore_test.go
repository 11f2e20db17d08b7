package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esports_v1/ingestion/internal/apperr"
)

const matchesJSON = `[
  {
    "id": 101,
    "status": "not_started",
    "scheduled_at": "2026-01-25T15:00:00Z",
    "opponents": [
      {"type": "Team", "opponent": {"id": 1, "name": "Team Liquid", "acronym": "TL"}},
      {"type": "Team", "opponent": {"id": 2, "name": "Fnatic", "acronym": "FNC"}}
    ],
    "results": [{"team_id": 1, "score": 0}, {"team_id": 2, "score": 0}]
  }
]`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-token", 5*time.Second, 2, WithRetryDelay(time.Millisecond))
}

func TestFetchMatches_Upcoming(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/valorant/matches/upcoming", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "begin_at", r.URL.Query().Get("sort"))
		assert.Equal(t, "50", r.URL.Query().Get("per_page"))
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(matchesJSON))
	})

	matches, err := c.FetchMatches(context.Background(), "valorant", WindowUpcoming, 50, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)

	m := matches[0]
	require.NotNil(t, m.ID)
	assert.Equal(t, int64(101), *m.ID)
	require.Len(t, m.Opponents, 2)
	assert.Equal(t, "Fnatic", *m.Opponents[1].Opponent.Name)
	assert.NotEmpty(t, m.Raw, "raw payload should be retained")
}

func TestFetchMatches_PastSortsDescendingAndClampsPaging(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/csgo/matches/past", r.URL.Path)
		assert.Equal(t, "-begin_at", r.URL.Query().Get("sort"))
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		_, _ = w.Write([]byte(`[]`))
	})

	matches, err := c.FetchMatches(context.Background(), "csgo", WindowPast, 500, 0)
	require.NoError(t, err)
	assert.NotNil(t, matches)
	assert.Empty(t, matches)
}

func TestFetchMatches_RetriesTransientStatus(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(matchesJSON))
	})

	matches, err := c.FetchMatches(context.Background(), "lol", WindowRunning, 10, 1)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetchMatches_FailureReturnsEmptyAndTransportError(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	matches, err := c.FetchMatches(context.Background(), "valorant", WindowUpcoming, 10, 1)
	require.Error(t, err)
	assert.NotNil(t, matches)
	assert.Empty(t, matches)
	assert.Equal(t, apperr.KindTransport, apperr.KindOf(err))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls), "initial attempt plus two retries")
}

func TestFetchMatches_AuthErrorNotRetried(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	matches, err := c.FetchMatches(context.Background(), "valorant", WindowUpcoming, 10, 1)
	require.Error(t, err)
	assert.Empty(t, matches)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchMatches_InvalidJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not": "an array"`))
	})

	matches, err := c.FetchMatches(context.Background(), "valorant", WindowUpcoming, 10, 1)
	require.Error(t, err)
	assert.Empty(t, matches)
	assert.Equal(t, apperr.KindTransport, apperr.KindOf(err))
}

func TestFetchMatches_UnknownWindow(t *testing.T) {
	c := NewClient("http://127.0.0.1:0", "t", time.Second, 0)

	matches, err := c.FetchMatches(context.Background(), "valorant", Window("tomorrow"), 10, 1)
	require.Error(t, err)
	assert.Empty(t, matches)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestFetchTeamRoster(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/teams/42", r.URL.Path)
		_, _ = w.Write([]byte(`{"id": 42, "name": "Sentinels", "players": [
			{"id": 7, "name": "TenZ", "first_name": "Tyson", "last_name": "Ngo", "role": "duelist"}
		]}`))
	})

	roster, err := c.FetchTeamRoster(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), roster.ID)
	require.Len(t, roster.Players, 1)
	assert.Equal(t, int64(7), roster.Players[0].ID)
}

func TestFetchTeamRoster_NotFoundIsEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	roster, err := c.FetchTeamRoster(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, int64(9), roster.ID)
	assert.Empty(t, roster.Players)
}

func TestParseWindow(t *testing.T) {
	w, err := ParseWindow("Past")
	require.NoError(t, err)
	assert.Equal(t, WindowPast, w)

	_, err = ParseWindow("later")
	assert.Error(t, err)
}
