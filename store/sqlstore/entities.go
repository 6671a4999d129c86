package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/holocron/tracker/tracker"
)

// =============================================================================
// SCRIPTS
// =============================================================================

func newScripts(b base) *crud[tracker.Script] {
	return &crud[tracker.Script]{
		base:    b,
		table:   "scripts",
		entity:  "Script",
		columns: []string{"name"},
		values: func(s tracker.Script) []any {
			return []any{s.Name}
		},
		scan: func(row scanner) (tracker.Script, error) {
			var s tracker.Script
			err := row.Scan(&s.ID, &s.Name)
			return s, err
		},
		id:     func(s tracker.Script) int64 { return s.ID },
		withID: func(s tracker.Script, id int64) tracker.Script { s.ID = id; return s },
		rules: func(tracker.Script) rules {
			return rules{unique: "name"}
		},
	}
}

// =============================================================================
// ROLES
// =============================================================================

type roleRepo struct {
	*crud[tracker.Role]
}

func newRoles(b base) *roleRepo {
	return &roleRepo{crud: &crud[tracker.Role]{
		base:    b,
		table:   "roles",
		entity:  "Role",
		columns: []string{"name", "team"},
		values: func(r tracker.Role) []any {
			return []any{r.Name, string(r.Team)}
		},
		scan:   scanRole,
		id:     func(r tracker.Role) int64 { return r.ID },
		withID: func(r tracker.Role, id int64) tracker.Role { r.ID = id; return r },
		rules: func(tracker.Role) rules {
			return rules{unique: "name"}
		},
	}}
}

func scanRole(row scanner) (tracker.Role, error) {
	var r tracker.Role
	var team string
	if err := row.Scan(&r.ID, &r.Name, &team); err != nil {
		return r, err
	}
	r.Team = tracker.Team(team)
	return r, nil
}

func (r *roleRepo) GetByName(ctx context.Context, name string) (tracker.Role, error) {
	role, err := scanRole(r.queryRow(ctx, r.selectSQL()+" WHERE name = ?", name))
	if errors.Is(err, sql.ErrNoRows) {
		return role, fmt.Errorf("role %q: %w", name, tracker.ErrNotFound)
	}
	if err != nil {
		return role, fmt.Errorf("failed to get role %q: %w", name, err)
	}
	return role, nil
}

// =============================================================================
// GAMES
// =============================================================================

func newGames(b base) *crud[tracker.Game] {
	return &crud[tracker.Game]{
		base:   b,
		table:  "games",
		entity: "Game",
		columns: []string{
			"player_count", "date", "is_in_person", "notes",
			"winning_team", "script_id", "drunk_saw_role_id",
		},
		values: func(g tracker.Game) []any {
			var notes sql.NullString
			if g.Notes != nil {
				notes = sql.NullString{String: *g.Notes, Valid: true}
			}
			var drunk sql.NullInt64
			if g.DrunkSawRoleID != nil {
				drunk = sql.NullInt64{Int64: *g.DrunkSawRoleID, Valid: true}
			}
			return []any{
				g.PlayerCount, g.Date, g.IsInPerson, notes,
				string(g.WinningTeam), g.ScriptID, drunk,
			}
		},
		scan:   scanGame,
		id:     func(g tracker.Game) int64 { return g.ID },
		withID: func(g tracker.Game, id int64) tracker.Game { g.ID = id; return g },
		rules: func(g tracker.Game) rules {
			fk := "script_id"
			if g.DrunkSawRoleID != nil {
				fk = "script_id or drunk_saw_role_id"
			}
			return rules{unique: "id", foreignKey: fk}
		},
	}
}

func scanGame(row scanner) (tracker.Game, error) {
	var (
		g      tracker.Game
		notes  sql.NullString
		winner string
		drunk  sql.NullInt64
	)
	err := row.Scan(&g.ID, &g.PlayerCount, &g.Date, &g.IsInPerson, &notes,
		&winner, &g.ScriptID, &drunk)
	if err != nil {
		return g, err
	}
	if notes.Valid {
		g.Notes = &notes.String
	}
	if drunk.Valid {
		g.DrunkSawRoleID = &drunk.Int64
	}
	g.WinningTeam = tracker.Alignment(winner)
	return g, nil
}
