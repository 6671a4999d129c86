/*
dump.go - Whole-database export and import

PURPOSE:
  A dump is every role, every script with its linked roles and every game
  with its linked roles. Loading a dump recreates the rows with their ids, in
  dependency order, through the bulk repositories.

LOAD ORDER:
  roles -> scripts -> script links -> games -> game links

  Nested roles are matched by id, or by name when the id is zero. Link rows
  are inserted raw (the dump is trusted to be duplicate free).

ATOMICITY:
  Import runs inside the caller's transaction. A failure anywhere rolls the
  whole load back.
*/
package tracker

import (
	"context"
	"errors"
)

// ScriptRecord is a script with its linked roles.
type ScriptRecord struct {
	Script
	Roles []Role
}

// GameRecord is a game with its linked roles.
type GameRecord struct {
	Game
	Roles []Role
}

// Snapshot is the complete dataset.
type Snapshot struct {
	Games   []GameRecord
	Roles   []Role
	Scripts []ScriptRecord
}

// ImportSummary counts the rows written by Import.
type ImportSummary struct {
	Roles       int `json:"roles"`
	Scripts     int `json:"scripts"`
	ScriptRoles int `json:"scriptsRoles"`
	Games       int `json:"games"`
	GameRoles   int `json:"gamesRoles"`
}

// Export reads the complete dataset.
func Export(ctx context.Context, tx Tx) (Snapshot, error) {
	var snap Snapshot
	var err error

	if snap.Roles, err = tx.Roles().List(ctx); err != nil {
		return snap, err
	}

	scripts, err := tx.Scripts().List(ctx)
	if err != nil {
		return snap, err
	}
	scriptRoles, err := tx.ScriptRoles().RolesByOwner(ctx)
	if err != nil {
		return snap, err
	}
	for _, s := range scripts {
		snap.Scripts = append(snap.Scripts, ScriptRecord{Script: s, Roles: scriptRoles[s.ID]})
	}

	games, err := tx.Games().List(ctx)
	if err != nil {
		return snap, err
	}
	gameRoles, err := tx.GameRoles().RolesByOwner(ctx)
	if err != nil {
		return snap, err
	}
	for _, g := range games {
		snap.Games = append(snap.Games, GameRecord{Game: g, Roles: gameRoles[g.ID]})
	}
	return snap, nil
}

// Import writes snap into tx.
func Import(ctx context.Context, tx Tx, snap Snapshot) (ImportSummary, error) {
	var sum ImportSummary

	roles, err := tx.Roles().CreateBulk(ctx, snap.Roles)
	if err != nil {
		return sum, err
	}
	sum.Roles = len(roles)

	scripts := make([]Script, len(snap.Scripts))
	for i, s := range snap.Scripts {
		scripts[i] = s.Script
	}
	if scripts, err = tx.Scripts().CreateBulk(ctx, scripts); err != nil {
		return sum, err
	}
	sum.Scripts = len(scripts)

	var scriptLinks []Association
	for i, s := range snap.Scripts {
		for _, r := range s.Roles {
			roleID, err := nestedRoleID(ctx, tx.Roles(), r)
			if err != nil {
				return sum, err
			}
			scriptLinks = append(scriptLinks, Association{OwnerID: scripts[i].ID, RoleID: roleID})
		}
	}
	if scriptLinks, err = tx.ScriptRoles().CreateBulk(ctx, scriptLinks); err != nil {
		return sum, err
	}
	sum.ScriptRoles = len(scriptLinks)

	games := make([]Game, len(snap.Games))
	for i, g := range snap.Games {
		games[i] = g.Game
	}
	if games, err = tx.Games().CreateBulk(ctx, games); err != nil {
		return sum, err
	}
	sum.Games = len(games)

	var gameLinks []Association
	for i, g := range snap.Games {
		for _, r := range g.Roles {
			roleID, err := nestedRoleID(ctx, tx.Roles(), r)
			if err != nil {
				return sum, err
			}
			gameLinks = append(gameLinks, Association{OwnerID: games[i].ID, RoleID: roleID})
		}
	}
	if gameLinks, err = tx.GameRoles().CreateBulk(ctx, gameLinks); err != nil {
		return sum, err
	}
	sum.GameRoles = len(gameLinks)

	return sum, nil
}

// Reset deletes every row. Script links go first because they restrict
// script and role deletes; deleting a script takes its games along.
func Reset(ctx context.Context, tx Tx) error {
	links, err := tx.ScriptRoles().List(ctx)
	if err != nil {
		return err
	}
	for _, a := range links {
		if err := tx.ScriptRoles().Delete(ctx, a.ID); err != nil {
			return err
		}
	}
	games, err := tx.Games().List(ctx)
	if err != nil {
		return err
	}
	for _, g := range games {
		if err := tx.Games().Delete(ctx, g.ID); err != nil {
			return err
		}
	}
	scripts, err := tx.Scripts().List(ctx)
	if err != nil {
		return err
	}
	for _, s := range scripts {
		if err := tx.Scripts().Delete(ctx, s.ID); err != nil {
			return err
		}
	}
	roles, err := tx.Roles().List(ctx)
	if err != nil {
		return err
	}
	for _, r := range roles {
		if err := tx.Roles().Delete(ctx, r.ID); err != nil {
			return err
		}
	}
	return nil
}

func nestedRoleID(ctx context.Context, roles RoleRepository, r Role) (int64, error) {
	if r.ID != 0 {
		return r.ID, nil
	}
	found, err := roles.GetByName(ctx, r.Name)
	if errors.Is(err, ErrNotFound) {
		return 0, &UnknownRoleError{Name: r.Name}
	}
	return found.ID, err
}
