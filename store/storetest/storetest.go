/*
Package storetest is the behaviour suite every tracker.Store must pass.

USAGE:

	func TestStore(t *testing.T) {
	    storetest.Run(t, func(t *testing.T) tracker.Store {
	        s, err := sqlstore.OpenSQLite(":memory:")
	        require.NoError(t, err)
	        t.Cleanup(func() { s.Close() })
	        return s
	    })
	}

Each subtest gets a fresh store from open.
*/
package storetest

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holocron/tracker/tracker"
)

// Opener returns an empty store.
type Opener func(t *testing.T) tracker.Store

// Run runs the suite.
func Run(t *testing.T, open Opener) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s tracker.Store)
	}{
		{"CreateAssignsIDs", testCreateAssignsIDs},
		{"GetMissing", testGetMissing},
		{"DuplicateName", testDuplicateName},
		{"BulkDuplicateRollsBack", testBulkDuplicateRollsBack},
		{"BulkBumpsSequence", testBulkBumpsSequence},
		{"UpdateMissing", testUpdateMissing},
		{"UpdateNameConflict", testUpdateNameConflict},
		{"GameUnknownScript", testGameUnknownScript},
		{"GameRoundTrip", testGameRoundTrip},
		{"DeleteMissingIsNoop", testDeleteMissingIsNoop},
		{"DeleteGameCascadesLinks", testDeleteGameCascadesLinks},
		{"DeleteScriptCascadesGames", testDeleteScriptCascadesGames},
		{"DeleteReferencedRole", testDeleteReferencedRole},
		{"DeleteDrunkRole", testDeleteDrunkRole},
		{"LinkUnknownOwner", testLinkUnknownOwner},
		{"RawLinksAllowDuplicates", testRawLinksAllowDuplicates},
		{"RolesByOwner", testRolesByOwner},
		{"ErrorRollsBack", testErrorRollsBack},
		{"ReconcileTroubleBrewing", testReconcileTroubleBrewing},
		{"ReconcileMatchesDesired", testReconcileMatchesDesired},
		{"ReconcileIdempotent", testReconcileIdempotent},
		{"ReconcileEmptyRemovesAll", testReconcileEmptyRemovesAll},
		{"ReconcileSameSetIsNoop", testReconcileSameSetIsNoop},
		{"ReconcileUnknownRole", testReconcileUnknownRole},
		{"ReconcileMissingOwner", testReconcileMissingOwner},
		{"ReconcileKeepsDuplicates", testReconcileKeepsDuplicates},
		{"ExportImport", testExportImport},
		{"Reset", testReset},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, open(t))
		})
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func tx(t *testing.T, s tracker.Store, fn func(ctx context.Context, tx tracker.Tx) error) error {
	t.Helper()
	ctx := context.Background()
	return s.WithTx(ctx, func(tx tracker.Tx) error { return fn(ctx, tx) })
}

func mustTx(t *testing.T, s tracker.Store, fn func(ctx context.Context, tx tracker.Tx) error) {
	t.Helper()
	require.NoError(t, tx(t, s, fn))
}

func seedRoles(t *testing.T, s tracker.Store, names ...string) map[string]tracker.Role {
	t.Helper()
	out := map[string]tracker.Role{}
	mustTx(t, s, func(ctx context.Context, tx tracker.Tx) error {
		for _, n := range names {
			r, err := tx.Roles().Create(ctx, tracker.Role{Name: n, Team: tracker.TeamTownsfolk})
			if err != nil {
				return err
			}
			out[n] = r
		}
		return nil
	})
	return out
}

func seedScript(t *testing.T, s tracker.Store, name string) tracker.Script {
	t.Helper()
	var script tracker.Script
	mustTx(t, s, func(ctx context.Context, tx tracker.Tx) error {
		var err error
		script, err = tx.Scripts().Create(ctx, tracker.Script{Name: name})
		return err
	})
	return script
}

func seedGame(t *testing.T, s tracker.Store, scriptID int64) tracker.Game {
	t.Helper()
	var g tracker.Game
	mustTx(t, s, func(ctx context.Context, tx tracker.Tx) error {
		var err error
		g, err = tx.Games().Create(ctx, newGame(scriptID))
		return err
	})
	return g
}

func newGame(scriptID int64) tracker.Game {
	return tracker.Game{
		PlayerCount: 8,
		Date:        tracker.NewDate(2024, time.January, 6),
		IsInPerson:  true,
		WinningTeam: tracker.AlignmentGood,
		ScriptID:    scriptID,
	}
}

func reconcile(t *testing.T, s tracker.Store, kind tracker.OwnerKind, owner int64, names ...string) (tracker.Result, error) {
	t.Helper()
	var res tracker.Result
	err := tx(t, s, func(ctx context.Context, tx tracker.Tx) error {
		var err error
		res, err = tracker.ReconcileRoles(ctx, tx, kind, owner, names)
		return err
	})
	return res, err
}

func links(t *testing.T, s tracker.Store, kind tracker.OwnerKind, owner int64) []tracker.Association {
	t.Helper()
	var out []tracker.Association
	mustTx(t, s, func(ctx context.Context, tx tracker.Tx) error {
		var err error
		out, err = tracker.Links(tx, kind).ListByOwner(ctx, owner)
		return err
	})
	return out
}

func roleNames(t *testing.T, s tracker.Store, kind tracker.OwnerKind, owner int64) []string {
	t.Helper()
	var names []string
	mustTx(t, s, func(ctx context.Context, tx tracker.Tx) error {
		roles, err := tracker.Links(tx, kind).RolesOf(ctx, owner)
		for _, r := range roles {
			names = append(names, r.Name)
		}
		return err
	})
	sort.Strings(names)
	return names
}

func assertField(t *testing.T, err error, kind error, field, message string) {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, kind)
	var fe *tracker.FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, field, fe.Field)
	assert.Equal(t, message, fe.Message)
}

// =============================================================================
// REPOSITORIES
// =============================================================================

func testCreateAssignsIDs(t *testing.T, s tracker.Store) {
	roles := seedRoles(t, s, "Imp", "Chef")
	assert.NotZero(t, roles["Imp"].ID)
	assert.Greater(t, roles["Chef"].ID, roles["Imp"].ID)

	mustTx(t, s, func(ctx context.Context, tx tracker.Tx) error {
		got, err := tx.Roles().Get(ctx, roles["Chef"].ID)
		require.NoError(t, err)
		assert.Equal(t, roles["Chef"], got)

		all, err := tx.Roles().List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)
		return nil
	})
}

func testGetMissing(t *testing.T, s tracker.Store) {
	err := tx(t, s, func(ctx context.Context, tx tracker.Tx) error {
		_, err := tx.Games().Get(ctx, 42)
		return err
	})
	var nf *tracker.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Game", nf.Entity)
	assert.Equal(t, map[string]any{"Game id": "Invalid id: 42"}, nf.Messages())
}

func testDuplicateName(t *testing.T, s tracker.Store) {
	seedRoles(t, s, "Imp")

	err := tx(t, s, func(ctx context.Context, tx tracker.Tx) error {
		_, err := tx.Roles().Create(ctx, tracker.Role{Name: "Imp", Team: tracker.TeamDemon})
		return err
	})
	assertField(t, err, tracker.ErrConflict, "name", tracker.MsgAlreadyInUse)
}

func testBulkDuplicateRollsBack(t *testing.T, s tracker.Store) {
	// GIVEN: A bulk batch whose third row repeats the first name
	batch := []tracker.Script{{Name: "Trouble Brewing"}, {Name: "Bad Moon Rising"}, {Name: "Trouble Brewing"}}

	// WHEN: Creating it
	err := tx(t, s, func(ctx context.Context, tx tracker.Tx) error {
		_, err := tx.Scripts().CreateBulk(ctx, batch)
		return err
	})

	// THEN: The batch fails as a bulk duplicate and nothing is stored
	assertField(t, err, tracker.ErrConflict, "name", tracker.MsgDuplicateDetected)
	mustTx(t, s, func(ctx context.Context, tx tracker.Tx) error {
		all, err := tx.Scripts().List(ctx)
		assert.Empty(t, all)
		return err
	})
}

func testBulkBumpsSequence(t *testing.T, s tracker.Store) {
	// GIVEN: Roles bulk created with explicit ids 5, 7, 2
	mustTx(t, s, func(ctx context.Context, tx tracker.Tx) error {
		_, err := tx.Roles().CreateBulk(ctx, []tracker.Role{
			{ID: 5, Name: "Imp", Team: tracker.TeamDemon},
			{ID: 7, Name: "Baron", Team: tracker.TeamMinion},
			{ID: 2, Name: "Saint", Team: tracker.TeamOutsider},
		})
		return err
	})

	// WHEN: A role is created without an id
	var created tracker.Role
	mustTx(t, s, func(ctx context.Context, tx tracker.Tx) error {
		var err error
		created, err = tx.Roles().Create(ctx, tracker.Role{Name: "Chef", Team: tracker.TeamTownsfolk})
		return err
	})

	// THEN: It gets the id after the largest explicit one
	assert.Equal(t, int64(8), created.ID)
}

func testUpdateMissing(t *testing.T, s tracker.Store) {
	err := tx(t, s, func(ctx context.Context, tx tracker.Tx) error {
		_, err := tx.Scripts().Update(ctx, 9, tracker.Script{Name: "Sects and Violets"})
		return err
	})
	assert.True(t, tracker.IsNotFound(err))
}

func testUpdateNameConflict(t *testing.T, s tracker.Store) {
	seedScript(t, s, "Trouble Brewing")
	other := seedScript(t, s, "Bad Moon Rising")

	err := tx(t, s, func(ctx context.Context, tx tracker.Tx) error {
		_, err := tx.Scripts().Update(ctx, other.ID, tracker.Script{Name: "Trouble Brewing"})
		return err
	})
	assertField(t, err, tracker.ErrConflict, "name", tracker.MsgAlreadyInUse)

	// renaming to its own name is fine
	mustTx(t, s, func(ctx context.Context, tx tracker.Tx) error {
		got, err := tx.Scripts().Update(ctx, other.ID, tracker.Script{Name: "Bad Moon Rising"})
		assert.Equal(t, other.ID, got.ID)
		return err
	})
}

func testGameUnknownScript(t *testing.T, s tracker.Store) {
	err := tx(t, s, func(ctx context.Context, tx tracker.Tx) error {
		_, err := tx.Games().Create(ctx, newGame(99))
		return err
	})
	assertField(t, err, tracker.ErrIntegrity, "script_id", tracker.MsgNotFound)
}

func testGameRoundTrip(t *testing.T, s tracker.Store) {
	script := seedScript(t, s, "Trouble Brewing")
	roles := seedRoles(t, s, "Ravenkeeper")

	notes := "the drunk thought they were the Ravenkeeper"
	drunk := roles["Ravenkeeper"].ID
	g := newGame(script.ID)
	g.Notes = &notes
	g.DrunkSawRoleID = &drunk
	g.WinningTeam = tracker.AlignmentEvil

	var created tracker.Game
	mustTx(t, s, func(ctx context.Context, tx tracker.Tx) error {
		var err error
		created, err = tx.Games().Create(ctx, g)
		return err
	})

	mustTx(t, s, func(ctx context.Context, tx tracker.Tx) error {
		got, err := tx.Games().Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, "2024-01-06", got.Date.String())
		assert.Equal(t, tracker.AlignmentEvil, got.WinningTeam)
		require.NotNil(t, got.Notes)
		assert.Equal(t, notes, *got.Notes)
		require.NotNil(t, got.DrunkSawRoleID)
		assert.Equal(t, drunk, *got.DrunkSawRoleID)
		assert.True(t, got.IsInPerson)
		return nil
	})

	// clearing optional fields
	g.Notes, g.DrunkSawRoleID = nil, nil
	mustTx(t, s, func(ctx context.Context, tx tracker.Tx) error {
		if _, err := tx.Games().Update(ctx, created.ID, g); err != nil {
			return err
		}
		got, err := tx.Games().Get(ctx, created.ID)
		assert.Nil(t, got.Notes)
		assert.Nil(t, got.DrunkSawRoleID)
		return err
	})
}

func testDeleteMissingIsNoop(t *testing.T, s tracker.Store) {
	mustTx(t, s, func(ctx context.Context, tx tracker.Tx) error {
		return tx.Roles().Delete(ctx, 123)
	})
}

func testDeleteGameCascadesLinks(t *testing.T, s tracker.Store) {
	// GIVEN: A game with two linked roles
	seedRoles(t, s, "Imp", "Chef")
	g := seedGame(t, s, seedScript(t, s, "Trouble Brewing").ID)
	_, err := reconcile(t, s, tracker.OwnerGame, g.ID, "Imp", "Chef")
	require.NoError(t, err)

	// WHEN: The game is deleted
	mustTx(t, s, func(ctx context.Context, tx tracker.Tx) error {
		return tx.Games().Delete(ctx, g.ID)
	})

	// THEN: Its game-role rows are gone too
	mustTx(t, s, func(ctx context.Context, tx tracker.Tx) error {
		all, err := tx.GameRoles().List(ctx)
		assert.Empty(t, all)
		return err
	})
}

func testDeleteScriptCascadesGames(t *testing.T, s tracker.Store) {
	script := seedScript(t, s, "Trouble Brewing")
	seedGame(t, s, script.ID)

	mustTx(t, s, func(ctx context.Context, tx tracker.Tx) error {
		return tx.Scripts().Delete(ctx, script.ID)
	})

	mustTx(t, s, func(ctx context.Context, tx tracker.Tx) error {
		games, err := tx.Games().List(ctx)
		assert.Empty(t, games)
		return err
	})
}

func testDeleteReferencedRole(t *testing.T, s tracker.Store) {
	// GIVEN: A role linked to a script
	roles := seedRoles(t, s, "Imp")
	script := seedScript(t, s, "Trouble Brewing")
	_, err := reconcile(t, s, tracker.OwnerScript, script.ID, "Imp")
	require.NoError(t, err)

	// WHEN: Deleting the role
	err = tx(t, s, func(ctx context.Context, tx tracker.Tx) error {
		return tx.Roles().Delete(ctx, roles["Imp"].ID)
	})

	// THEN: The delete is refused and the role survives
	assertField(t, err, tracker.ErrIntegrity, "id", tracker.MsgStillReferenced)
	mustTx(t, s, func(ctx context.Context, tx tracker.Tx) error {
		_, err := tx.Roles().Get(ctx, roles["Imp"].ID)
		return err
	})

	// same for the script, which its script-role row references
	err = tx(t, s, func(ctx context.Context, tx tracker.Tx) error {
		return tx.Scripts().Delete(ctx, script.ID)
	})
	assertField(t, err, tracker.ErrIntegrity, "id", tracker.MsgStillReferenced)
}

func testDeleteDrunkRole(t *testing.T, s tracker.Store) {
	roles := seedRoles(t, s, "Monk")
	script := seedScript(t, s, "Trouble Brewing")
	g := newGame(script.ID)
	drunk := roles["Monk"].ID
	g.DrunkSawRoleID = &drunk
	mustTx(t, s, func(ctx context.Context, tx tracker.Tx) error {
		_, err := tx.Games().Create(ctx, g)
		return err
	})

	err := tx(t, s, func(ctx context.Context, tx tracker.Tx) error {
		return tx.Roles().Delete(ctx, drunk)
	})
	assertField(t, err, tracker.ErrIntegrity, "id", tracker.MsgStillReferenced)
}

func testLinkUnknownOwner(t *testing.T, s tracker.Store) {
	roles := seedRoles(t, s, "Imp")

	err := tx(t, s, func(ctx context.Context, tx tracker.Tx) error {
		_, err := tx.GameRoles().Create(ctx, tracker.Association{OwnerID: 77, RoleID: roles["Imp"].ID})
		return err
	})
	assertField(t, err, tracker.ErrIntegrity, "game_id or role_id", tracker.MsgNotFound)

	script := seedScript(t, s, "Trouble Brewing")
	err = tx(t, s, func(ctx context.Context, tx tracker.Tx) error {
		_, err := tx.ScriptRoles().Create(ctx, tracker.Association{OwnerID: script.ID, RoleID: 404})
		return err
	})
	assertField(t, err, tracker.ErrIntegrity, "script_id or role_id", tracker.MsgNotFound)
}

func testRawLinksAllowDuplicates(t *testing.T, s tracker.Store) {
	// GIVEN: A script and a role
	roles := seedRoles(t, s, "Imp")
	script := seedScript(t, s, "Trouble Brewing")
	link := tracker.Association{OwnerID: script.ID, RoleID: roles["Imp"].ID}

	// WHEN: The same raw link is created twice
	mustTx(t, s, func(ctx context.Context, tx tracker.Tx) error {
		if _, err := tx.ScriptRoles().Create(ctx, link); err != nil {
			return err
		}
		_, err := tx.ScriptRoles().Create(ctx, link)
		return err
	})

	// THEN: Both rows exist; raw creation does not police duplicates
	assert.Len(t, links(t, s, tracker.OwnerScript, script.ID), 2)
}

func testRolesByOwner(t *testing.T, s tracker.Store) {
	seedRoles(t, s, "Imp", "Chef", "Monk")
	a := seedScript(t, s, "A")
	b := seedScript(t, s, "B")
	_, err := reconcile(t, s, tracker.OwnerScript, a.ID, "Monk", "Imp")
	require.NoError(t, err)
	_, err = reconcile(t, s, tracker.OwnerScript, b.ID, "Chef")
	require.NoError(t, err)

	mustTx(t, s, func(ctx context.Context, tx tracker.Tx) error {
		byOwner, err := tx.ScriptRoles().RolesByOwner(ctx)
		require.NoError(t, err)
		require.Len(t, byOwner[a.ID], 2)
		// link id order, which is input order here
		assert.Equal(t, "Monk", byOwner[a.ID][0].Name)
		assert.Equal(t, "Imp", byOwner[a.ID][1].Name)
		require.Len(t, byOwner[b.ID], 1)
		assert.Equal(t, "Chef", byOwner[b.ID][0].Name)

		none, err := tx.ScriptRoles().RolesOf(ctx, 999)
		assert.Empty(t, none)
		return err
	})
}

func testErrorRollsBack(t *testing.T, s tracker.Store) {
	boom := errors.New("boom")
	err := tx(t, s, func(ctx context.Context, tx tracker.Tx) error {
		if _, err := tx.Scripts().Create(ctx, tracker.Script{Name: "Trouble Brewing"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	mustTx(t, s, func(ctx context.Context, tx tracker.Tx) error {
		all, err := tx.Scripts().List(ctx)
		assert.Empty(t, all)
		return err
	})
}

// =============================================================================
// RECONCILIATION
// =============================================================================

func testReconcileTroubleBrewing(t *testing.T, s tracker.Store) {
	// GIVEN: Script 1 "Trouble Brewing" linked to Washerwoman and Imp
	roles := seedRoles(t, s, "Washerwoman", "Imp", "Poisoner")
	var script tracker.Script
	mustTx(t, s, func(ctx context.Context, tx tracker.Tx) error {
		var err error
		script, err = tx.Scripts().Create(ctx, tracker.Script{ID: 1, Name: "Trouble Brewing"})
		return err
	})
	_, err := reconcile(t, s, tracker.OwnerScript, script.ID, "Washerwoman", "Imp")
	require.NoError(t, err)

	var impRow tracker.Association
	for _, a := range links(t, s, tracker.OwnerScript, script.ID) {
		if a.RoleID == roles["Imp"].ID {
			impRow = a
		}
	}
	require.NotZero(t, impRow.ID)

	// WHEN: Reconciling to Imp and Poisoner
	res, err := reconcile(t, s, tracker.OwnerScript, script.ID, "Imp", "Poisoner")
	require.NoError(t, err)

	// THEN: Washerwoman removed, Poisoner added, Imp row untouched
	assert.Equal(t, []string{"Imp", "Poisoner"}, roleNames(t, s, tracker.OwnerScript, script.ID))
	require.Len(t, res.Added, 1)
	assert.Equal(t, roles["Poisoner"].ID, res.Added[0].RoleID)
	require.Len(t, res.Removed, 1)
	assert.Equal(t, roles["Washerwoman"].ID, res.Removed[0].RoleID)
	assert.Equal(t, []tracker.Association{impRow}, res.Kept)

	var stillImp bool
	for _, a := range links(t, s, tracker.OwnerScript, script.ID) {
		if a.ID == impRow.ID {
			stillImp = a.RoleID == roles["Imp"].ID
		}
	}
	assert.True(t, stillImp, "Imp row keeps its id")
}

func testReconcileMatchesDesired(t *testing.T, s tracker.Store) {
	seedRoles(t, s, "Imp", "Chef", "Monk", "Saint", "Baron")
	g := seedGame(t, s, seedScript(t, s, "Trouble Brewing").ID)

	steps := [][]string{
		{"Imp", "Chef"},
		{"Chef", "Monk", "Saint"},
		{"Baron", "Baron", "Imp"},
		{"Saint"},
	}
	for _, desired := range steps {
		_, err := reconcile(t, s, tracker.OwnerGame, g.ID, desired...)
		require.NoError(t, err)

		want := map[string]bool{}
		for _, n := range desired {
			want[n] = true
		}
		var wantNames []string
		for n := range want {
			wantNames = append(wantNames, n)
		}
		sort.Strings(wantNames)
		assert.Equal(t, wantNames, roleNames(t, s, tracker.OwnerGame, g.ID), "after %v", desired)
	}
}

func testReconcileIdempotent(t *testing.T, s tracker.Store) {
	seedRoles(t, s, "Imp", "Chef")
	g := seedGame(t, s, seedScript(t, s, "Trouble Brewing").ID)

	_, err := reconcile(t, s, tracker.OwnerGame, g.ID, "Imp", "Chef")
	require.NoError(t, err)
	first := links(t, s, tracker.OwnerGame, g.ID)

	res, err := reconcile(t, s, tracker.OwnerGame, g.ID, "Imp", "Chef")
	require.NoError(t, err)

	assert.Empty(t, res.Added)
	assert.Empty(t, res.Removed)
	assert.Equal(t, first, links(t, s, tracker.OwnerGame, g.ID))
}

func testReconcileEmptyRemovesAll(t *testing.T, s tracker.Store) {
	seedRoles(t, s, "Imp", "Chef")
	script := seedScript(t, s, "Trouble Brewing")
	_, err := reconcile(t, s, tracker.OwnerScript, script.ID, "Imp", "Chef")
	require.NoError(t, err)

	res, err := reconcile(t, s, tracker.OwnerScript, script.ID)
	require.NoError(t, err)

	assert.Len(t, res.Removed, 2)
	assert.Empty(t, res.Added)
	assert.Empty(t, links(t, s, tracker.OwnerScript, script.ID))
}

func testReconcileSameSetIsNoop(t *testing.T, s tracker.Store) {
	seedRoles(t, s, "Imp", "Chef", "Monk")
	script := seedScript(t, s, "Trouble Brewing")
	_, err := reconcile(t, s, tracker.OwnerScript, script.ID, "Imp", "Chef", "Monk")
	require.NoError(t, err)

	res, err := reconcile(t, s, tracker.OwnerScript, script.ID, "Monk", "Imp", "Chef")
	require.NoError(t, err)

	assert.Empty(t, res.Added)
	assert.Empty(t, res.Removed)
	assert.Len(t, res.Kept, 3)
}

func testReconcileUnknownRole(t *testing.T, s tracker.Store) {
	// GIVEN: A script linked to Imp
	seedRoles(t, s, "Imp", "Chef")
	script := seedScript(t, s, "Trouble Brewing")
	_, err := reconcile(t, s, tracker.OwnerScript, script.ID, "Imp")
	require.NoError(t, err)
	before := links(t, s, tracker.OwnerScript, script.ID)

	// WHEN: The desired list names a role that does not exist
	_, err = reconcile(t, s, tracker.OwnerScript, script.ID, "Chef", "Lunatic")

	// THEN: Nothing changes and the first unknown name is reported
	var ur *tracker.UnknownRoleError
	require.ErrorAs(t, err, &ur)
	assert.Equal(t, "Lunatic", ur.Name)
	assert.ErrorIs(t, err, tracker.ErrUnknownRole)
	assert.Equal(t, before, links(t, s, tracker.OwnerScript, script.ID))
}

func testReconcileMissingOwner(t *testing.T, s tracker.Store) {
	seedRoles(t, s, "Imp")

	_, err := reconcile(t, s, tracker.OwnerGame, 55, "Imp")
	assertField(t, err, tracker.ErrIntegrity, "game_id or role_id", tracker.MsgNotFound)

	// nothing to insert, nothing to fail
	_, err = reconcile(t, s, tracker.OwnerGame, 55)
	assert.NoError(t, err)
}

func testReconcileKeepsDuplicates(t *testing.T, s tracker.Store) {
	// GIVEN: Two raw rows linking the same role, plus one other role
	roles := seedRoles(t, s, "Imp", "Chef")
	script := seedScript(t, s, "Trouble Brewing")
	mustTx(t, s, func(ctx context.Context, tx tracker.Tx) error {
		_, err := tx.ScriptRoles().CreateBulk(ctx, []tracker.Association{
			{OwnerID: script.ID, RoleID: roles["Imp"].ID},
			{OwnerID: script.ID, RoleID: roles["Imp"].ID},
			{OwnerID: script.ID, RoleID: roles["Chef"].ID},
		})
		return err
	})

	// WHEN: Reconciling to Imp only
	res, err := reconcile(t, s, tracker.OwnerScript, script.ID, "Imp")
	require.NoError(t, err)

	// THEN: Both Imp rows survive, Chef is removed
	assert.Len(t, res.Kept, 2)
	assert.Len(t, res.Removed, 1)
	assert.Len(t, links(t, s, tracker.OwnerScript, script.ID), 2)
}

// =============================================================================
// DUMP / LOAD
// =============================================================================

func testExportImport(t *testing.T, s tracker.Store) {
	// GIVEN: A snapshot with explicit ids and nested roles
	snap := tracker.Snapshot{
		Roles: []tracker.Role{
			{ID: 3, Name: "Imp", Team: tracker.TeamDemon},
			{ID: 4, Name: "Chef", Team: tracker.TeamTownsfolk},
		},
		Scripts: []tracker.ScriptRecord{
			{Script: tracker.Script{ID: 2, Name: "Trouble Brewing"}, Roles: []tracker.Role{{ID: 3}, {Name: "Chef"}}},
		},
	}
	g := newGame(2)
	g.ID = 10
	snap.Games = []tracker.GameRecord{{Game: g, Roles: []tracker.Role{{ID: 4}}}}

	// WHEN: Importing, then exporting
	var sum tracker.ImportSummary
	mustTx(t, s, func(ctx context.Context, tx tracker.Tx) error {
		var err error
		sum, err = tracker.Import(ctx, tx, snap)
		return err
	})
	var out tracker.Snapshot
	mustTx(t, s, func(ctx context.Context, tx tracker.Tx) error {
		var err error
		out, err = tracker.Export(ctx, tx)
		return err
	})

	// THEN: Counts and ids survive
	assert.Equal(t, tracker.ImportSummary{Roles: 2, Scripts: 1, ScriptRoles: 2, Games: 1, GameRoles: 1}, sum)
	require.Len(t, out.Scripts, 1)
	assert.Equal(t, int64(2), out.Scripts[0].ID)
	assert.Len(t, out.Scripts[0].Roles, 2)
	require.Len(t, out.Games, 1)
	assert.Equal(t, int64(10), out.Games[0].ID)
	require.Len(t, out.Games[0].Roles, 1)
	assert.Equal(t, "Chef", out.Games[0].Roles[0].Name)

	// a second import of the same ids fails as a whole
	err := tx(t, s, func(ctx context.Context, tx tracker.Tx) error {
		_, err := tracker.Import(ctx, tx, snap)
		return err
	})
	assert.ErrorIs(t, err, tracker.ErrConflict)
}

func testReset(t *testing.T, s tracker.Store) {
	seedRoles(t, s, "Imp")
	script := seedScript(t, s, "Trouble Brewing")
	g := seedGame(t, s, script.ID)
	_, err := reconcile(t, s, tracker.OwnerScript, script.ID, "Imp")
	require.NoError(t, err)
	_, err = reconcile(t, s, tracker.OwnerGame, g.ID, "Imp")
	require.NoError(t, err)

	mustTx(t, s, func(ctx context.Context, tx tracker.Tx) error {
		return tracker.Reset(ctx, tx)
	})

	mustTx(t, s, func(ctx context.Context, tx tracker.Tx) error {
		snap, err := tracker.Export(ctx, tx)
		assert.Empty(t, snap.Roles)
		assert.Empty(t, snap.Scripts)
		assert.Empty(t, snap.Games)
		return err
	})
}
