/*
handlers_test.go - HTTP tests for the tracker API

Tests for:
- CRUD status codes and error bodies
- Request validation messages
- Bulk creation
- Role reconciliation (POST /api/{games|scripts}/{id}/roles)
- Raw link rows
- Dump / load round trip, stats, scenarios
- Health and metrics endpoints
*/
package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holocron/tracker/api"
	"github.com/holocron/tracker/metrics"
	"github.com/holocron/tracker/store/memory"
	"github.com/holocron/tracker/store/sqlstore"
	"github.com/holocron/tracker/tracker"
)

// =============================================================================
// HELPERS
// =============================================================================

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type backend struct {
	name string
	open func(t *testing.T) tracker.Store
}

var backends = []backend{
	{"memory", func(t *testing.T) tracker.Store { return memory.New() }},
	{"sqlite", func(t *testing.T) tracker.Store {
		s, err := sqlstore.OpenSQLite(":memory:")
		require.NoError(t, err)
		return s.WithLogger(discard)
	}},
}

func newRouter(t *testing.T, st tracker.Store) http.Handler {
	t.Helper()
	t.Cleanup(func() { st.Close() })
	h := api.NewHandler(st, metrics.New(), discard)
	return api.NewRouter(h, api.RouterOptions{RequestIPHeader: "X-Forwarded-For"})
}

func newMemoryRouter(t *testing.T) http.Handler {
	return newRouter(t, memory.New())
}

// forEachBackend runs fn once per store implementation.
func forEachBackend(t *testing.T, fn func(t *testing.T, r http.Handler)) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			fn(t, newRouter(t, b.open(t)))
		})
	}
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func roleNames(roles []api.RoleDTO) []string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = r.Name
	}
	return names
}

// seed creates Imp, Chef and Monk, a script and one game on it.
func seed(t *testing.T, r http.Handler) {
	t.Helper()
	rec := do(t, r, "POST", "/api/roles/bulk", `[
		{"name": "Imp", "team": "DEMON"},
		{"name": "Chef", "team": "TOWNSFOLK"},
		{"name": "Monk", "team": "TOWNSFOLK"}
	]`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = do(t, r, "POST", "/api/scripts", `{"name": "Trouble Brewing"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = do(t, r, "POST", "/api/games", `{
		"playerCount": 8, "date": "2024-01-06", "isInPerson": true,
		"winningTeam": "GOOD", "scriptId": 1
	}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

// =============================================================================
// CRUD
// =============================================================================

func TestRoles_CreateGetList(t *testing.T) {
	forEachBackend(t, func(t *testing.T, r http.Handler) {
		// GIVEN: An empty store
		// WHEN: Creating a role
		rec := do(t, r, "POST", "/api/roles", `{"name": "Imp", "team": "DEMON"}`)

		// THEN: It is returned with its id
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, api.RoleDTO{ID: 1, Name: "Imp", Team: "DEMON"}, decode[api.RoleDTO](t, rec))

		rec = do(t, r, "GET", "/api/roles/1", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Imp", decode[api.RoleDTO](t, rec).Name)

		rec = do(t, r, "GET", "/api/roles", "")
		require.Equal(t, http.StatusOK, rec.Code)
		list := decode[api.ListResponse[api.RoleDTO]](t, rec)
		assert.Len(t, list.Result, 1)
	})
}

func TestRoles_DuplicateName(t *testing.T) {
	forEachBackend(t, func(t *testing.T, r http.Handler) {
		// GIVEN: An existing role
		require.Equal(t, http.StatusCreated, do(t, r, "POST", "/api/roles", `{"name": "Imp", "team": "DEMON"}`).Code)

		// WHEN: Creating it again
		rec := do(t, r, "POST", "/api/roles", `{"name": "Imp", "team": "MINION"}`)

		// THEN: 400 names the field
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"name": "already in use"}`, rec.Body.String())
	})
}

func TestGet_Missing(t *testing.T) {
	r := newMemoryRouter(t)

	for _, path := range []string{"/api/games/99", "/api/scripts/1", "/api/roles/abc"} {
		rec := do(t, r, "GET", path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Equal(t, "Resource not found", rec.Body.String(), path)
	}
}

func TestUpdate(t *testing.T) {
	forEachBackend(t, func(t *testing.T, r http.Handler) {
		seed(t, r)

		rec := do(t, r, "PUT", "/api/scripts/1", `{"name": "Sects and Violets"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "Sects and Violets", decode[api.ScriptDTO](t, rec).Name)

		// missing id answers 400 with the id message
		rec = do(t, r, "PUT", "/api/roles/42", `{"name": "Spy", "team": "MINION"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"Role id": "Invalid id: 42"}`, rec.Body.String())

		rec = do(t, r, "PUT", "/api/roles/2", `{"name": "Imp", "team": "TOWNSFOLK"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"name": "already in use"}`, rec.Body.String())
	})
}

func TestDelete(t *testing.T) {
	forEachBackend(t, func(t *testing.T, r http.Handler) {
		// GIVEN: A game linked to Imp
		seed(t, r)
		require.Equal(t, http.StatusOK, do(t, r, "POST", "/api/games/1/roles", `["Imp"]`).Code)

		// WHEN/THEN: The linked role cannot go
		rec := do(t, r, "DELETE", "/api/roles/1", "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"id": "still referenced"}`, rec.Body.String())

		// deleting the game takes its links along
		assert.Equal(t, http.StatusNoContent, do(t, r, "DELETE", "/api/games/1", "").Code)
		assert.Equal(t, http.StatusNoContent, do(t, r, "DELETE", "/api/roles/1", "").Code)

		// absent ids are a no-op
		assert.Equal(t, http.StatusNoContent, do(t, r, "DELETE", "/api/games/1", "").Code)
	})
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestCreateGame_MissingFields(t *testing.T) {
	r := newMemoryRouter(t)

	rec := do(t, r, "POST", "/api/games", `{}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{
		"playerCount": ["Missing data for required field."],
		"date": ["Missing data for required field."],
		"isInPerson": ["Missing data for required field."],
		"winningTeam": ["Missing data for required field."],
		"scriptId": ["Missing data for required field."]
	}`, rec.Body.String())
}

func TestCreateGame_BadValues(t *testing.T) {
	r := newMemoryRouter(t)

	rec := do(t, r, "POST", "/api/games", `{
		"playerCount": 7, "date": "2024-13-45", "isInPerson": false,
		"winningTeam": "NEUTRAL", "scriptId": 1
	}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{
		"date": ["Not a valid date."],
		"winningTeam": ["Must be one of: EVIL, GOOD."]
	}`, rec.Body.String())
}

func TestCreateGame_UnknownScript(t *testing.T) {
	forEachBackend(t, func(t *testing.T, r http.Handler) {
		rec := do(t, r, "POST", "/api/games", `{
			"playerCount": 7, "date": "2024-01-01", "isInPerson": false,
			"winningTeam": "EVIL", "scriptId": 9
		}`)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"script_id": "not found"}`, rec.Body.String())
	})
}

func TestCreate_MalformedBody(t *testing.T) {
	r := newMemoryRouter(t)

	rec := do(t, r, "POST", "/api/roles", `{"name": 3`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"_schema": ["Invalid input type."]}`, rec.Body.String())
}

// =============================================================================
// BULK
// =============================================================================

func TestGames_Bulk(t *testing.T) {
	forEachBackend(t, func(t *testing.T, r http.Handler) {
		seed(t, r)

		rec := do(t, r, "POST", "/api/games/bulk", `[
			{"playerCount": 10, "date": "2024-02-01", "isInPerson": false, "winningTeam": "EVIL", "scriptId": 1},
			{"playerCount": 12, "date": "2024-02-08", "isInPerson": true, "winningTeam": "GOOD", "scriptId": 1, "notes": "close one"}
		]`)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		list := decode[api.ListResponse[api.GameDTO]](t, rec)
		require.Len(t, list.Result, 2)
		assert.Equal(t, int64(2), list.Result[0].ID)
		assert.Equal(t, "2024-02-08", list.Result[1].Date)
		require.NotNil(t, list.Result[1].Notes)
		assert.Equal(t, "close one", *list.Result[1].Notes)
		assert.NotNil(t, list.Result[0].Roles)
	})
}

func TestRoles_BulkValidationIndexed(t *testing.T) {
	r := newMemoryRouter(t)

	rec := do(t, r, "POST", "/api/roles/bulk", `[
		{"name": "Imp", "team": "DEMON"},
		{"team": "LUNATIC"}
	]`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{
		"1.name": ["Missing data for required field."],
		"1.team": ["Must be one of: DEMON, MINION, OUTSIDER, TOWNSFOLK."]
	}`, rec.Body.String())
	assert.Empty(t, decode[api.ListResponse[api.RoleDTO]](t, do(t, r, "GET", "/api/roles", "")).Result)
}

func TestRoles_BulkDuplicateRollsBack(t *testing.T) {
	forEachBackend(t, func(t *testing.T, r http.Handler) {
		rec := do(t, r, "POST", "/api/roles/bulk", `[
			{"name": "Imp", "team": "DEMON"},
			{"name": "Imp", "team": "DEMON"}
		]`)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"name": "duplicate detected"}`, rec.Body.String())
		assert.Empty(t, decode[api.ListResponse[api.RoleDTO]](t, do(t, r, "GET", "/api/roles", "")).Result)
	})
}

// =============================================================================
// RECONCILE
// =============================================================================

func TestSetGameRoles(t *testing.T) {
	forEachBackend(t, func(t *testing.T, r http.Handler) {
		// GIVEN: A game with no roles
		seed(t, r)

		// WHEN: Setting roles by bare name and by object
		rec := do(t, r, "POST", "/api/games/1/roles", `["Imp", {"name": "Chef"}]`)

		// THEN: The game comes back with both
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		game := decode[api.GameDTO](t, rec)
		assert.Equal(t, int64(1), game.ID)
		assert.Equal(t, []string{"Imp", "Chef"}, roleNames(game.Roles))

		// WHEN: Replacing Imp with Monk
		rec = do(t, r, "POST", "/api/games/1/roles", `["Chef", "Monk"]`)

		// THEN: Chef keeps its row, Monk is appended
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"Chef", "Monk"}, roleNames(decode[api.GameDTO](t, rec).Roles))

		// WHEN: Clearing
		rec = do(t, r, "POST", "/api/games/1/roles", `[]`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, decode[api.GameDTO](t, rec).Roles)
	})
}

func TestSetScriptRoles(t *testing.T) {
	forEachBackend(t, func(t *testing.T, r http.Handler) {
		seed(t, r)

		rec := do(t, r, "POST", "/api/scripts/1/roles", `["Monk", "Imp", "Monk"]`)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		script := decode[api.ScriptDTO](t, rec)
		assert.Equal(t, "Trouble Brewing", script.Name)
		assert.Equal(t, []string{"Monk", "Imp"}, roleNames(script.Roles))
	})
}

func TestSetGameRoles_UnknownRole(t *testing.T) {
	forEachBackend(t, func(t *testing.T, r http.Handler) {
		// GIVEN: A game linked to Imp
		seed(t, r)
		require.Equal(t, http.StatusOK, do(t, r, "POST", "/api/games/1/roles", `["Imp"]`).Code)

		// WHEN: One name does not resolve
		rec := do(t, r, "POST", "/api/games/1/roles", `["Chef", "Lunatic"]`)

		// THEN: 400 and nothing changed
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"Role name": "Invalid name: Lunatic"}`, rec.Body.String())

		rec = do(t, r, "GET", "/api/games/1", "")
		assert.Equal(t, []string{"Imp"}, roleNames(decode[api.GameDTO](t, rec).Roles))
	})
}

func TestSetGameRoles_MissingGame(t *testing.T) {
	forEachBackend(t, func(t *testing.T, r http.Handler) {
		seed(t, r)

		// an empty list writes nothing, then the re-read misses
		rec := do(t, r, "POST", "/api/games/77/roles", `[]`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Resource not found", rec.Body.String())

		// a non-empty list fails on the first insert
		rec = do(t, r, "POST", "/api/games/77/roles", `["Imp"]`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"game_id or role_id": "not found"}`, rec.Body.String())
	})
}

func TestSetGameRoles_BadBody(t *testing.T) {
	r := newMemoryRouter(t)

	rec := do(t, r, "POST", "/api/games/1/roles", `{"name": "Imp"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"_schema": ["Invalid input type."]}`, rec.Body.String())

	rec = do(t, r, "POST", "/api/games/1/roles", `["Imp", {"team": "DEMON"}]`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"1.name": ["Missing data for required field."]}`, rec.Body.String())
}

func TestSetGameRoles_NullBodyKeepsRoles(t *testing.T) {
	forEachBackend(t, func(t *testing.T, r http.Handler) {
		// GIVEN: A game linked to Imp and Chef
		seed(t, r)
		require.Equal(t, http.StatusOK, do(t, r, "POST", "/api/games/1/roles", `["Imp", "Chef"]`).Code)

		// WHEN: Posting a null body
		rec := do(t, r, "POST", "/api/games/1/roles", `null`)

		// THEN: It is rejected and the links survive
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"_schema": ["Invalid input type."]}`, rec.Body.String())

		rec = do(t, r, "GET", "/api/games/1", "")
		assert.Equal(t, []string{"Imp", "Chef"}, roleNames(decode[api.GameDTO](t, rec).Roles))
	})
}

func TestRoleNames_Null(t *testing.T) {
	var names api.RoleNames
	err := json.Unmarshal([]byte(`null`), &names)
	assert.Nil(t, names)

	var verr *tracker.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, map[string]any{"_schema": []string{"Invalid input type."}}, verr.Messages())

	require.NoError(t, json.Unmarshal([]byte(`[]`), &names))
	assert.NotNil(t, names)
	assert.Empty(t, names)
}

// =============================================================================
// RAW LINKS
// =============================================================================

func TestCreateLink_DuplicatesAccepted(t *testing.T) {
	forEachBackend(t, func(t *testing.T, r http.Handler) {
		// GIVEN: A game and a role
		seed(t, r)

		// WHEN: Linking the same pair twice
		first := do(t, r, "POST", "/api/games/roles", `{"gameId": 1, "roleId": 1}`)
		second := do(t, r, "POST", "/api/games/roles", `{"gameId": 1, "roleId": 1}`)

		// THEN: Both rows exist
		require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
		require.Equal(t, http.StatusCreated, second.Code)
		assert.JSONEq(t, `{"id": 1, "gameId": 1, "roleId": 1}`, first.Body.String())
		assert.JSONEq(t, `{"id": 2, "gameId": 1, "roleId": 1}`, second.Body.String())

		rec := do(t, r, "GET", "/api/games/1", "")
		assert.Equal(t, []string{"Imp", "Imp"}, roleNames(decode[api.GameDTO](t, rec).Roles))

		// reconciling to the same name leaves both rows alone
		rec = do(t, r, "POST", "/api/games/1/roles", `["Imp"]`)
		assert.Equal(t, []string{"Imp", "Imp"}, roleNames(decode[api.GameDTO](t, rec).Roles))
	})
}

func TestCreateLinks_Bulk(t *testing.T) {
	forEachBackend(t, func(t *testing.T, r http.Handler) {
		seed(t, r)

		rec := do(t, r, "POST", "/api/scripts/roles/bulk", `[
			{"scriptId": 1, "roleId": 2},
			{"scriptId": 1, "roleId": 3}
		]`)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Len(t, decode[api.ListResponse[api.LinkDTO]](t, rec).Result, 2)

		rec = do(t, r, "POST", "/api/scripts/roles/bulk", `[{"roleId": 2}]`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"0.scriptId": ["Missing data for required field."]}`, rec.Body.String())
	})
}

// =============================================================================
// DATA
// =============================================================================

func TestDumpLoad_RoundTrip(t *testing.T) {
	forEachBackend(t, func(t *testing.T, r http.Handler) {
		// GIVEN: The demo scenario
		require.Equal(t, http.StatusOK, do(t, r, "POST", "/api/scenarios/load", `{"id": "trouble-brewing"}`).Code)
		before := do(t, r, "GET", "/api/dump", "")
		require.Equal(t, http.StatusOK, before.Code)

		// WHEN: Resetting and loading the dump back
		require.Equal(t, http.StatusOK, do(t, r, "POST", "/api/scenarios/reset", "").Code)
		rec := do(t, r, "POST", "/api/load", before.Body.String())

		// THEN: Every row is back
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, tracker.ImportSummary{
			Roles: 22, Scripts: 1, ScriptRoles: 22, Games: 4, GameRoles: 33,
		}, decode[tracker.ImportSummary](t, rec))

		after := do(t, r, "GET", "/api/dump", "")
		assert.JSONEq(t, before.Body.String(), after.Body.String())
	})
}

func TestLoad_UnknownNestedRole(t *testing.T) {
	forEachBackend(t, func(t *testing.T, r http.Handler) {
		rec := do(t, r, "POST", "/api/load", `{
			"roles": [{"name": "Imp", "team": "DEMON"}],
			"scripts": [{"name": "Trouble Brewing", "roles": [{"name": "Imp"}, {"name": "Lunatic"}]}],
			"games": []
		}`)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"Role name": "Invalid name: Lunatic"}`, rec.Body.String())
		assert.Empty(t, decode[api.ListResponse[api.RoleDTO]](t, do(t, r, "GET", "/api/roles", "")).Result)
	})
}

func TestStats(t *testing.T) {
	forEachBackend(t, func(t *testing.T, r http.Handler) {
		require.Equal(t, http.StatusOK, do(t, r, "POST", "/api/scenarios/load", `{"id": "trouble-brewing"}`).Code)

		rec := do(t, r, "GET", "/api/stats", "")

		require.Equal(t, http.StatusOK, rec.Code)
		var st struct {
			FullGames int `json:"fullGames"`
			Teams     struct {
				Evil int `json:"evil"`
				Good int `json:"good"`
			} `json:"teams"`
			Drunk []tracker.DrunkTally `json:"drunk"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
		assert.Equal(t, 3, st.FullGames)
		assert.Equal(t, 2, st.Teams.Evil)
		assert.Equal(t, 1, st.Teams.Good)
		require.Len(t, st.Drunk, 1)
		assert.Equal(t, "Ravenkeeper", st.Drunk[0].Role)
	})
}

func TestReports_WireKeys(t *testing.T) {
	r := newMemoryRouter(t)
	require.Equal(t, http.StatusOK, do(t, r, "POST", "/api/scenarios/load", `{"id": "trouble-brewing"}`).Code)

	stats := decode[map[string]any](t, do(t, r, "GET", "/api/stats", ""))
	for _, key := range []string{"fullGames", "teams", "locations", "playerCounts", "scripts", "roles", "drunk"} {
		assert.Contains(t, stats, key)
	}

	dump := do(t, r, "GET", "/api/dump", "")
	require.Equal(t, http.StatusOK, do(t, r, "POST", "/api/scenarios/reset", "").Code)
	sum := decode[map[string]any](t, do(t, r, "POST", "/api/load", dump.Body.String()))
	assert.Equal(t, map[string]any{
		"roles": 22.0, "scripts": 1.0, "scriptsRoles": 22.0, "games": 4.0, "gamesRoles": 33.0,
	}, sum)
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestScenarios(t *testing.T) {
	r := newMemoryRouter(t)

	rec := do(t, r, "GET", "/api/scenarios", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[api.ListResponse[api.ScenarioDTO]](t, rec).Result, 2)

	rec = do(t, r, "POST", "/api/scenarios/load", `{"id": "nope"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"id": "Unknown scenario: nope"}`, rec.Body.String())

	// loading twice replaces rather than duplicates
	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, do(t, r, "POST", "/api/scenarios/load", `{"id": "trouble-brewing"}`).Code)
	}
	rec = do(t, r, "GET", "/api/scripts", "")
	scripts := decode[api.ListResponse[api.ScriptDTO]](t, rec).Result
	require.Len(t, scripts, 1)
	assert.Len(t, scripts[0].Roles, 22)

	require.Equal(t, http.StatusOK, do(t, r, "POST", "/api/scenarios/load", `{"id": "empty"}`).Code)
	assert.Empty(t, decode[api.ListResponse[api.GameDTO]](t, do(t, r, "GET", "/api/games", "")).Result)
}

// =============================================================================
// OPERATIONS
// =============================================================================

func TestHealth(t *testing.T) {
	r := newMemoryRouter(t)

	rec := do(t, r, "GET", "/healthz", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}

func TestMetrics(t *testing.T) {
	r := newMemoryRouter(t)
	seed(t, r)
	require.Equal(t, http.StatusOK, do(t, r, "POST", "/api/games/1/roles", `["Imp", "Chef"]`).Code)
	require.Equal(t, http.StatusBadRequest, do(t, r, "POST", "/api/games/1/roles", `["Lunatic"]`).Code)

	rec := do(t, r, "GET", "/metrics", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `holocron_http_requests_total{method="POST",route="/api/games/{id}/roles",status="200"} 1`)
	assert.Contains(t, body, `holocron_reconcile_total{outcome="ok",owner="game"} 1`)
	assert.Contains(t, body, `holocron_reconcile_total{outcome="rejected",owner="game"} 1`)
	assert.Contains(t, body, `holocron_reconcile_rows_total{op="added",owner="game"} 2`)
}

func TestRequestLogger_ClientIP(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	h := api.NewHandler(memory.New(), metrics.New(), log)
	r := api.NewRouter(h, api.RouterOptions{RequestIPHeader: "X-Real-Ip"})

	req := httptest.NewRequest("GET", "/api/roles", nil)
	req.Header.Set("X-Real-Ip", "203.0.113.7, 10.0.0.1")
	r.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line), buf.String())
	assert.Equal(t, "203.0.113.7", line["ip"])
	assert.Equal(t, "/api/roles", line["path"])
	assert.Equal(t, float64(http.StatusOK), line["status"])
}
