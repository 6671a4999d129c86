package tracker_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holocron/tracker/tracker"
)

func game(id int64, players int, inPerson bool, winner tracker.Alignment, scriptID int64) tracker.Game {
	return tracker.Game{
		ID:          id,
		PlayerCount: players,
		Date:        tracker.NewDate(2024, time.May, int(id)),
		IsInPerson:  inPerson,
		WinningTeam: winner,
		ScriptID:    scriptID,
	}
}

func TestComputeStats(t *testing.T) {
	// GIVEN: Three full games and one small game
	imp := tracker.Role{ID: 1, Name: "Imp", Team: tracker.TeamDemon}
	chef := tracker.Role{ID: 2, Name: "Chef", Team: tracker.TeamTownsfolk}
	monk := tracker.Role{ID: 3, Name: "Monk", Team: tracker.TeamTownsfolk}
	scripts := []tracker.Script{{ID: 1, Name: "Trouble Brewing"}, {ID: 2, Name: "Bad Moon Rising"}}

	drunk := monk.ID
	g1 := game(1, 7, true, tracker.AlignmentEvil, 1)
	g1.DrunkSawRoleID = &drunk
	games := []tracker.Game{
		g1,
		game(2, 7, false, tracker.AlignmentGood, 1),
		game(3, 10, true, tracker.AlignmentGood, 2),
		game(4, 5, true, tracker.AlignmentEvil, 1),
	}
	gameRoles := map[int64][]tracker.Role{
		1: {imp, chef},
		2: {imp, chef},
		3: {imp, monk},
		4: {imp},
	}

	// WHEN: Aggregating
	st := tracker.ComputeStats(games, scripts, []tracker.Role{imp, chef, monk}, gameRoles)

	// THEN: The 5-player game counts nowhere
	assert.Equal(t, 3, st.FullGames)
	assert.Equal(t, 1, st.Teams.Evil)
	assert.Equal(t, 2, st.Teams.Good)
	assert.True(t, decimal.RequireFromString("0.6667").Equal(st.Teams.GoodWinRate), st.Teams.GoodWinRate.String())

	require.Len(t, st.Locations, 2)
	assert.Equal(t, "Online", st.Locations[0].Location)
	assert.Equal(t, 1, st.Locations[0].Games)
	assert.Equal(t, 2, st.Locations[1].Games)

	require.Len(t, st.PlayerCounts, tracker.MaxPlayerCount-tracker.MinFullPlayerCount+1)
	assert.Equal(t, 7, st.PlayerCounts[0].PlayerCount)
	assert.Equal(t, 2, st.PlayerCounts[0].Games)
	assert.Equal(t, 1, st.PlayerCounts[3].Games)

	require.Len(t, st.Scripts, 2)
	assert.Equal(t, "Trouble Brewing", st.Scripts[0].Script)
	assert.Equal(t, 2, st.Scripts[0].Games)
	assert.True(t, decimal.RequireFromString("0.5").Equal(st.Scripts[0].EvilWinRate))

	// roles grouped by team in display order
	require.Len(t, st.Roles, 4)
	assert.Equal(t, tracker.TeamDemon, st.Roles[0].Team)
	require.Len(t, st.Roles[0].Roles, 1)
	assert.Equal(t, 1, st.Roles[0].Roles[0].Wins)
	assert.Equal(t, 2, st.Roles[0].Roles[0].Losses)

	townsfolk := st.Roles[3]
	assert.Equal(t, tracker.TeamTownsfolk, townsfolk.Team)
	require.Len(t, townsfolk.Roles, 2)
	assert.Equal(t, "Chef", townsfolk.Roles[0].Role)
	assert.Equal(t, 1, townsfolk.Roles[0].Wins)
	assert.Equal(t, 1, townsfolk.Roles[0].Losses)
	assert.Equal(t, "Monk", townsfolk.Roles[1].Role)
	assert.True(t, decimal.NewFromInt(1).Equal(townsfolk.Roles[1].WinRate))

	require.Len(t, st.Drunk, 1)
	assert.Equal(t, tracker.DrunkTally{RoleID: 3, Role: "Monk", Count: 1}, st.Drunk[0])
}

func TestComputeStats_Empty(t *testing.T) {
	st := tracker.ComputeStats(nil, nil, nil, nil)
	assert.Zero(t, st.FullGames)
	assert.True(t, st.Teams.EvilWinRate.IsZero())
	assert.NotNil(t, st.Scripts)
	assert.NotNil(t, st.Drunk)
	for _, team := range st.Roles {
		assert.Empty(t, team.Roles)
	}
}
