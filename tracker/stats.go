/*
stats.go - Win statistics over recorded games

PURPOSE:
  Aggregates the tallies the dashboard charts show. Most tallies only count
  "full" games (MinFullPlayerCount players or more); the player-count tally
  covers each count from 7 to 15 directly.

ROLE WINS:
  A role wins a game when its team's alignment is the winning alignment
  (demons and minions are evil, townsfolk and outsiders good).

RATES:
  Rates are decimal fractions rounded to RatePlaces. A tally with no games
  has zero rates.
*/
package tracker

import (
	"context"

	"github.com/shopspring/decimal"
)

const (
	MinFullPlayerCount = 7
	MaxPlayerCount     = 15
	RatePlaces         = 4
)

// =============================================================================
// TALLIES
// =============================================================================

// Tally counts wins by alignment.
type Tally struct {
	Evil        int             `json:"evil"`
	Good        int             `json:"good"`
	Games       int             `json:"games"`
	EvilWinRate decimal.Decimal `json:"evilWinRate"`
	GoodWinRate decimal.Decimal `json:"goodWinRate"`
}

func (t *Tally) add(winner Alignment) {
	t.Games++
	if winner == AlignmentEvil {
		t.Evil++
	} else {
		t.Good++
	}
	t.EvilWinRate = rate(t.Evil, t.Games)
	t.GoodWinRate = rate(t.Good, t.Games)
}

type LocationTally struct {
	Location string `json:"location"`
	Tally
}

type PlayerCountTally struct {
	PlayerCount int `json:"playerCount"`
	Tally
}

type ScriptTally struct {
	ScriptID int64  `json:"scriptId"`
	Script   string `json:"script"`
	Tally
}

// RoleRecord is one role's wins and losses across full games.
type RoleRecord struct {
	RoleID  int64           `json:"roleId"`
	Role    string          `json:"role"`
	Wins    int             `json:"wins"`
	Losses  int             `json:"losses"`
	WinRate decimal.Decimal `json:"winRate"`
}

type TeamRecords struct {
	Team  Team         `json:"team"`
	Roles []RoleRecord `json:"roles"`
}

type DrunkTally struct {
	RoleID int64  `json:"roleId"`
	Role   string `json:"role"`
	Count  int    `json:"count"`
}

// Stats is the full report.
type Stats struct {
	FullGames    int                `json:"fullGames"`
	Teams        Tally              `json:"teams"`
	Locations    []LocationTally    `json:"locations"`
	PlayerCounts []PlayerCountTally `json:"playerCounts"`
	Scripts      []ScriptTally      `json:"scripts"`
	Roles        []TeamRecords      `json:"roles"`
	Drunk        []DrunkTally       `json:"drunk"`
}

// =============================================================================
// COMPUTATION
// =============================================================================

// LoadStats reads what ComputeStats needs from tx.
func LoadStats(ctx context.Context, tx Tx) (Stats, error) {
	games, err := tx.Games().List(ctx)
	if err != nil {
		return Stats{}, err
	}
	scripts, err := tx.Scripts().List(ctx)
	if err != nil {
		return Stats{}, err
	}
	roles, err := tx.Roles().List(ctx)
	if err != nil {
		return Stats{}, err
	}
	gameRoles, err := tx.GameRoles().RolesByOwner(ctx)
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(games, scripts, roles, gameRoles), nil
}

// ComputeStats aggregates games. gameRoles maps game id to linked roles.
func ComputeStats(games []Game, scripts []Script, roles []Role, gameRoles map[int64][]Role) Stats {
	scriptNames := make(map[int64]string, len(scripts))
	for _, s := range scripts {
		scriptNames[s.ID] = s.Name
	}
	roleNames := make(map[int64]string, len(roles))
	for _, r := range roles {
		roleNames[r.ID] = r.Name
	}

	st := Stats{
		Locations: []LocationTally{{Location: "Online"}, {Location: "In Person"}},
		Scripts:   []ScriptTally{},
		Drunk:     []DrunkTally{},
	}
	for n := MinFullPlayerCount; n <= MaxPlayerCount; n++ {
		st.PlayerCounts = append(st.PlayerCounts, PlayerCountTally{PlayerCount: n})
	}

	scriptIdx := map[int64]int{}
	teamIdx := map[Team]int{}
	for _, t := range Teams {
		teamIdx[t] = len(st.Roles)
		st.Roles = append(st.Roles, TeamRecords{Team: t, Roles: []RoleRecord{}})
	}
	roleIdx := map[int64]int{}
	drunkIdx := map[int64]int{}

	for _, g := range games {
		if g.PlayerCount >= MinFullPlayerCount && g.PlayerCount <= MaxPlayerCount {
			st.PlayerCounts[g.PlayerCount-MinFullPlayerCount].add(g.WinningTeam)
		}
		if g.PlayerCount < MinFullPlayerCount {
			continue
		}
		st.FullGames++
		st.Teams.add(g.WinningTeam)

		if g.IsInPerson {
			st.Locations[1].add(g.WinningTeam)
		} else {
			st.Locations[0].add(g.WinningTeam)
		}

		i, ok := scriptIdx[g.ScriptID]
		if !ok {
			i = len(st.Scripts)
			scriptIdx[g.ScriptID] = i
			st.Scripts = append(st.Scripts, ScriptTally{ScriptID: g.ScriptID, Script: scriptNames[g.ScriptID]})
		}
		st.Scripts[i].add(g.WinningTeam)

		for _, r := range gameRoles[g.ID] {
			if !r.Team.Valid() {
				continue
			}
			records := &st.Roles[teamIdx[r.Team]].Roles
			j, ok := roleIdx[r.ID]
			if !ok {
				j = len(*records)
				roleIdx[r.ID] = j
				*records = append(*records, RoleRecord{RoleID: r.ID, Role: r.Name})
			}
			rec := &(*records)[j]
			if r.Team.Alignment() == g.WinningTeam {
				rec.Wins++
			} else {
				rec.Losses++
			}
			rec.WinRate = rate(rec.Wins, rec.Wins+rec.Losses)
		}

		if g.DrunkSawRoleID != nil {
			id := *g.DrunkSawRoleID
			k, ok := drunkIdx[id]
			if !ok {
				k = len(st.Drunk)
				drunkIdx[id] = k
				st.Drunk = append(st.Drunk, DrunkTally{RoleID: id, Role: roleNames[id]})
			}
			st.Drunk[k].Count++
		}
	}
	return st
}

func rate(n, total int) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(n)).Div(decimal.NewFromInt(int64(total))).Round(RatePlaces)
}
