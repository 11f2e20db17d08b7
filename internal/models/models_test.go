package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayerID_MatchesPythonUUID5(t *testing.T) {
	// uuid.uuid5(uuid.NAMESPACE_URL, "ps-player-<id>")
	assert.Equal(t, "49fad221-0e3e-581c-8455-dbcc16bed81b", PlayerID(1).String())
	assert.Equal(t, "bfe6f359-e080-534b-bffd-8545eb41c0fe", PlayerID(17452).String())
	assert.Equal(t, PlayerID(17452), PlayerID(17452))
	assert.NotEqual(t, PlayerID(1), PlayerID(2))
}

func TestPlayerInput_ToPlayer(t *testing.T) {
	name, first, last, role := "TenZ", "Tyson", " ", "duelist"
	pi := PlayerInput{ID: 7, Name: &name, FirstName: &first, LastName: &last, Role: &role}

	p := pi.ToPlayer(42)
	assert.Equal(t, PlayerID(7), p.ID)
	assert.Equal(t, "TenZ", p.Nickname)
	assert.Equal(t, "Tyson", p.RealName.String)
	assert.True(t, p.Role.Valid)
	assert.False(t, p.ImageURL.Valid)
	assert.Equal(t, int64(42), p.UpstreamTeamID)

	anon := PlayerInput{ID: 8}
	ap := anon.ToPlayer(42)
	assert.Equal(t, "Unknown", ap.Nickname)
	assert.False(t, ap.RealName.Valid)
}

func TestParseMatchStatus(t *testing.T) {
	assert.Equal(t, StatusFinished, ParseMatchStatus("finished"))
	assert.Equal(t, StatusCanceled, ParseMatchStatus("canceled"))
	assert.Equal(t, StatusNotStarted, ParseMatchStatus("delayed"))
	assert.Equal(t, StatusNotStarted, ParseMatchStatus(""))
}

func TestNormalizeTier(t *testing.T) {
	assert.Equal(t, "S", NormalizeTier("s"))
	assert.Equal(t, "A", NormalizeTier(" a "))
	assert.Equal(t, "", NormalizeTier("d"))
	assert.Equal(t, "", NormalizeTier("unranked"))
	assert.Equal(t, "", NormalizeTier(""))
}

func TestMatchInput_RetainsRaw(t *testing.T) {
	payload := `{"id": 5, "status": "finished", "winner_id": 1, "games": [{"position": 1, "length": 1800, "winner": {"id": 1}}]}`

	var mi MatchInput
	require.NoError(t, json.Unmarshal([]byte(payload), &mi))
	require.NotNil(t, mi.ID)
	assert.Equal(t, int64(5), *mi.ID)
	require.Len(t, mi.Games, 1)
	assert.Equal(t, int64(1), *mi.Games[0].Winner.ID)
	assert.JSONEq(t, payload, string(mi.Raw))
}

func TestCanonicalMatch_ToMatch(t *testing.T) {
	winner := int64(1)
	scoreA, scoreB := 2, 1
	cm := CanonicalMatch{
		ID:         9,
		Tournament: &CanonicalTournament{ID: 3, Name: "Masters"},
		TeamA:      CanonicalTeam{ID: 1, Name: "A"},
		TeamB:      CanonicalTeam{ID: 2, Name: "B"},
		Status:     StatusFinished,
		WinnerID:   &winner,
		TeamAScore: &scoreA,
		TeamBScore: &scoreB,
	}

	m := cm.ToMatch(4)
	assert.Equal(t, 4, m.GameID)
	assert.Equal(t, int64(3), m.TournamentID.Int64)
	assert.True(t, m.IsDecided())
	assert.Equal(t, int32(2), m.TeamAScore.Int32)
	assert.False(t, m.SerieID.Valid)
	assert.False(t, m.IsPredicted())
}

func TestPrediction_FavoriteIsA(t *testing.T) {
	isA, decided := (&Prediction{TeamA: 0.7, TeamB: 0.3}).FavoriteIsA()
	assert.True(t, isA)
	assert.True(t, decided)

	_, decided = (&Prediction{TeamA: 0.5, TeamB: 0.5}).FavoriteIsA()
	assert.False(t, decided)
}

func TestGameName(t *testing.T) {
	assert.Equal(t, "Valorant", GameName("valorant"))
}
