/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for demos. Each scenario creates roles, a script with its role list
	and a handful of recorded games.

AVAILABLE SCENARIOS:

	trouble-brewing: The base script, its 22 roles and four games
	empty:           Clears every table

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create roles in bulk
 3. Create the script, reconcile its roles by name
 4. Create games, reconcile each game's roles by name

 All steps run in one transaction; a failed load leaves the old data.

USAGE VIA API:

	POST /api/scenarios/load
	{"id": "trouble-brewing"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Add a scenarioData entry to 'scenarioLoaders'

NOTE:

	Scenarios reset the database. Only use in development/demo environments.
*/
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/holocron/tracker/tracker"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "trouble-brewing",
		Name:        "Trouble Brewing",
		Description: "Base script with its 22 roles and four recorded games",
	},
	{
		ID:          "empty",
		Name:        "Empty",
		Description: "No scripts, roles or games",
	},
}

type scenarioGame struct {
	game  tracker.Game
	roles []string
	drunk string // role the drunk thought they were, "" for none
}

type scenarioData struct {
	roles  []tracker.Role
	script string
	games  []scenarioGame
}

var troubleBrewingRoles = []tracker.Role{
	{Name: "Washerwoman", Team: tracker.TeamTownsfolk},
	{Name: "Librarian", Team: tracker.TeamTownsfolk},
	{Name: "Investigator", Team: tracker.TeamTownsfolk},
	{Name: "Chef", Team: tracker.TeamTownsfolk},
	{Name: "Empath", Team: tracker.TeamTownsfolk},
	{Name: "Fortune Teller", Team: tracker.TeamTownsfolk},
	{Name: "Undertaker", Team: tracker.TeamTownsfolk},
	{Name: "Monk", Team: tracker.TeamTownsfolk},
	{Name: "Ravenkeeper", Team: tracker.TeamTownsfolk},
	{Name: "Virgin", Team: tracker.TeamTownsfolk},
	{Name: "Slayer", Team: tracker.TeamTownsfolk},
	{Name: "Soldier", Team: tracker.TeamTownsfolk},
	{Name: "Mayor", Team: tracker.TeamTownsfolk},
	{Name: "Butler", Team: tracker.TeamOutsider},
	{Name: "Drunk", Team: tracker.TeamOutsider},
	{Name: "Recluse", Team: tracker.TeamOutsider},
	{Name: "Saint", Team: tracker.TeamOutsider},
	{Name: "Poisoner", Team: tracker.TeamMinion},
	{Name: "Spy", Team: tracker.TeamMinion},
	{Name: "Scarlet Woman", Team: tracker.TeamMinion},
	{Name: "Baron", Team: tracker.TeamMinion},
	{Name: "Imp", Team: tracker.TeamDemon},
}

var scenarioLoaders = map[string]scenarioData{
	"empty": {},
	"trouble-brewing": {
		roles:  troubleBrewingRoles,
		script: "Trouble Brewing",
		games: []scenarioGame{
			{
				game: tracker.Game{
					PlayerCount: 7, Date: tracker.NewDate(2023, time.March, 4),
					IsInPerson: true, WinningTeam: tracker.AlignmentGood,
				},
				roles: []string{"Washerwoman", "Empath", "Monk", "Slayer", "Drunk", "Poisoner", "Imp"},
				drunk: "Ravenkeeper",
			},
			{
				game: tracker.Game{
					PlayerCount: 9, Date: tracker.NewDate(2023, time.March, 11),
					IsInPerson: true, WinningTeam: tracker.AlignmentEvil,
				},
				roles: []string{"Librarian", "Investigator", "Chef", "Fortune Teller", "Undertaker", "Virgin", "Butler", "Scarlet Woman", "Imp"},
			},
			{
				game: tracker.Game{
					PlayerCount: 12, Date: tracker.NewDate(2023, time.April, 1),
					IsInPerson: false, WinningTeam: tracker.AlignmentEvil,
				},
				roles: []string{"Washerwoman", "Librarian", "Empath", "Fortune Teller", "Ravenkeeper", "Soldier", "Mayor", "Recluse", "Saint", "Spy", "Baron", "Imp"},
			},
			{
				game: tracker.Game{
					PlayerCount: 5, Date: tracker.NewDate(2023, time.April, 8),
					IsInPerson: false, WinningTeam: tracker.AlignmentGood,
					Notes: strPtr("Teensy game, not counted in stats"),
				},
				roles: []string{"Chef", "Empath", "Slayer", "Poisoner", "Imp"},
			},
		},
	},
}

func strPtr(s string) *string {
	return &s
}

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ListResponse[ScenarioDTO]{Result: scenarios})
}

// LoadScenario resets the store and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	data, ok := scenarioLoaders[req.ID]
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"id": "Unknown scenario: " + req.ID})
		return
	}

	ctx := r.Context()
	err := h.Store.WithTx(ctx, func(tx tracker.Tx) error {
		if err := tracker.Reset(ctx, tx); err != nil {
			return err
		}
		return data.load(ctx, tx)
	})
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}

	h.Log.InfoContext(ctx, "scenario loaded", "scenario", req.ID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ID})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	err := h.Store.WithTx(ctx, func(tx tracker.Tx) error {
		return tracker.Reset(ctx, tx)
	})
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// SCENARIO LOADER
// =============================================================================

func (d scenarioData) load(ctx context.Context, tx tracker.Tx) error {
	if len(d.roles) > 0 {
		if _, err := tx.Roles().CreateBulk(ctx, d.roles); err != nil {
			return err
		}
	}
	if d.script == "" {
		return nil
	}

	script, err := tx.Scripts().Create(ctx, tracker.Script{Name: d.script})
	if err != nil {
		return err
	}
	names := make([]string, len(d.roles))
	for i, r := range d.roles {
		names[i] = r.Name
	}
	if _, err := tracker.ReconcileRoles(ctx, tx, tracker.OwnerScript, script.ID, names); err != nil {
		return err
	}

	for _, sg := range d.games {
		g := sg.game
		g.ScriptID = script.ID
		if sg.drunk != "" {
			role, err := tx.Roles().GetByName(ctx, sg.drunk)
			if err != nil {
				return err
			}
			g.DrunkSawRoleID = &role.ID
		}
		created, err := tx.Games().Create(ctx, g)
		if err != nil {
			return err
		}
		if _, err := tracker.ReconcileRoles(ctx, tx, tracker.OwnerGame, created.ID, sg.roles); err != nil {
			return err
		}
	}
	return nil
}
