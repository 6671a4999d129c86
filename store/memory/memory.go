// Package memory provides an in-process tracker.Store for development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/holocron/tracker/tracker"
)

// Compile-time contract assertion.
var _ tracker.Store = (*Store)(nil)

// =============================================================================
// TABLE - id-keyed rows with an auto-increment counter
// =============================================================================

type table[T any] struct {
	rows map[int64]T
	next int64 // last assigned id
}

func newTable[T any]() table[T] {
	return table[T]{rows: make(map[int64]T)}
}

func (t table[T]) clone() table[T] {
	c := table[T]{rows: make(map[int64]T, len(t.rows)), next: t.next}
	for k, v := range t.rows {
		c.rows[k] = v
	}
	return c
}

// sorted returns rows in id order.
func (t *table[T]) sorted() []T {
	ids := make([]int64, 0, len(t.rows))
	for id := range t.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.rows[id])
	}
	return out
}

// assign returns id when set, else the next counter value. The counter never
// falls behind the largest id seen.
func (t *table[T]) assign(id int64) int64 {
	if id == 0 {
		t.next++
		return t.next
	}
	if id > t.next {
		t.next = id
	}
	return id
}

// =============================================================================
// STORE
// =============================================================================

type state struct {
	scripts     table[tracker.Script]
	roles       table[tracker.Role]
	games       table[tracker.Game]
	scriptRoles table[tracker.Association]
	gameRoles   table[tracker.Association]
}

func (s *state) clone() *state {
	return &state{
		scripts:     s.scripts.clone(),
		roles:       s.roles.clone(),
		games:       s.games.clone(),
		scriptRoles: s.scriptRoles.clone(),
		gameRoles:   s.gameRoles.clone(),
	}
}

// Store keeps every table in memory. Transactions are serialized.
type Store struct {
	mu sync.Mutex
	st *state
}

func New() *Store {
	return &Store{st: &state{
		scripts:     newTable[tracker.Script](),
		roles:       newTable[tracker.Role](),
		games:       newTable[tracker.Game](),
		scriptRoles: newTable[tracker.Association](),
		gameRoles:   newTable[tracker.Association](),
	}}
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + restore on error.
func (s *Store) WithTx(ctx context.Context, fn func(tx tracker.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	committed := false
	defer func() {
		if !committed {
			s.st = snapshot
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fn(&view{st: s.st}); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() error { return nil }

// view is the tracker.Tx handed to WithTx callbacks. It writes straight to
// the live state; WithTx restores the snapshot on failure.
type view struct {
	st *state
}

func (v *view) Scripts() tracker.Repository[tracker.Script] { return scripts{v.st} }
func (v *view) Roles() tracker.RoleRepository                { return roles{v.st} }
func (v *view) Games() tracker.Repository[tracker.Game]     { return games{v.st} }
func (v *view) ScriptRoles() tracker.AssociationRepository {
	return links{st: v.st, kind: tracker.OwnerScript, owner: "script_id"}
}
func (v *view) GameRoles() tracker.AssociationRepository {
	return links{st: v.st, kind: tracker.OwnerGame, owner: "game_id"}
}

func uniqueMessage(bulk bool) string {
	if bulk {
		return tracker.MsgDuplicateDetected
	}
	return tracker.MsgAlreadyInUse
}

// =============================================================================
// SCRIPTS
// =============================================================================

type scripts struct{ st *state }

func (r scripts) List(context.Context) ([]tracker.Script, error) {
	return r.st.scripts.sorted(), nil
}

func (r scripts) Get(_ context.Context, id int64) (tracker.Script, error) {
	s, ok := r.st.scripts.rows[id]
	if !ok {
		return s, &tracker.NotFoundError{Entity: "Script", ID: id}
	}
	return s, nil
}

func (r scripts) Create(_ context.Context, s tracker.Script) (tracker.Script, error) {
	return r.insert(s, false)
}

func (r scripts) CreateBulk(_ context.Context, vs []tracker.Script) ([]tracker.Script, error) {
	out := make([]tracker.Script, 0, len(vs))
	for _, s := range vs {
		created, err := r.insert(s, true)
		if err != nil {
			return nil, err
		}
		out = append(out, created)
	}
	return out, nil
}

func (r scripts) insert(s tracker.Script, bulk bool) (tracker.Script, error) {
	t := &r.st.scripts
	if _, taken := t.rows[s.ID]; s.ID != 0 && taken {
		return s, tracker.Conflict("id", uniqueMessage(bulk), nil)
	}
	if r.nameTaken(s.Name, 0) {
		return s, tracker.Conflict("name", uniqueMessage(bulk), nil)
	}
	s.ID = t.assign(s.ID)
	t.rows[s.ID] = s
	return s, nil
}

func (r scripts) nameTaken(name string, except int64) bool {
	for id, s := range r.st.scripts.rows {
		if s.Name == name && id != except {
			return true
		}
	}
	return false
}

func (r scripts) Update(_ context.Context, id int64, s tracker.Script) (tracker.Script, error) {
	if _, ok := r.st.scripts.rows[id]; !ok {
		return s, &tracker.NotFoundError{Entity: "Script", ID: id}
	}
	if r.nameTaken(s.Name, id) {
		return s, tracker.Conflict("name", tracker.MsgAlreadyInUse, nil)
	}
	s.ID = id
	r.st.scripts.rows[id] = s
	return s, nil
}

func (r scripts) Delete(ctx context.Context, id int64) error {
	if _, ok := r.st.scripts.rows[id]; !ok {
		return nil
	}
	for _, a := range r.st.scriptRoles.rows {
		if a.OwnerID == id {
			return tracker.Integrity("id", tracker.MsgStillReferenced, nil)
		}
	}
	g := games{r.st}
	for gid, game := range r.st.games.rows {
		if game.ScriptID == id {
			if err := g.Delete(ctx, gid); err != nil {
				return err
			}
		}
	}
	delete(r.st.scripts.rows, id)
	return nil
}

// =============================================================================
// ROLES
// =============================================================================

type roles struct{ st *state }

func (r roles) List(context.Context) ([]tracker.Role, error) {
	return r.st.roles.sorted(), nil
}

func (r roles) Get(_ context.Context, id int64) (tracker.Role, error) {
	role, ok := r.st.roles.rows[id]
	if !ok {
		return role, &tracker.NotFoundError{Entity: "Role", ID: id}
	}
	return role, nil
}

func (r roles) GetByName(_ context.Context, name string) (tracker.Role, error) {
	for _, role := range r.st.roles.rows {
		if role.Name == name {
			return role, nil
		}
	}
	return tracker.Role{}, fmt.Errorf("role %q: %w", name, tracker.ErrNotFound)
}

func (r roles) Create(_ context.Context, role tracker.Role) (tracker.Role, error) {
	return r.insert(role, false)
}

func (r roles) CreateBulk(_ context.Context, vs []tracker.Role) ([]tracker.Role, error) {
	out := make([]tracker.Role, 0, len(vs))
	for _, role := range vs {
		created, err := r.insert(role, true)
		if err != nil {
			return nil, err
		}
		out = append(out, created)
	}
	return out, nil
}

func (r roles) insert(role tracker.Role, bulk bool) (tracker.Role, error) {
	t := &r.st.roles
	if _, taken := t.rows[role.ID]; role.ID != 0 && taken {
		return role, tracker.Conflict("id", uniqueMessage(bulk), nil)
	}
	if r.nameTaken(role.Name, 0) {
		return role, tracker.Conflict("name", uniqueMessage(bulk), nil)
	}
	role.ID = t.assign(role.ID)
	t.rows[role.ID] = role
	return role, nil
}

func (r roles) nameTaken(name string, except int64) bool {
	for id, role := range r.st.roles.rows {
		if role.Name == name && id != except {
			return true
		}
	}
	return false
}

func (r roles) Update(_ context.Context, id int64, role tracker.Role) (tracker.Role, error) {
	if _, ok := r.st.roles.rows[id]; !ok {
		return role, &tracker.NotFoundError{Entity: "Role", ID: id}
	}
	if r.nameTaken(role.Name, id) {
		return role, tracker.Conflict("name", tracker.MsgAlreadyInUse, nil)
	}
	role.ID = id
	r.st.roles.rows[id] = role
	return role, nil
}

func (r roles) Delete(_ context.Context, id int64) error {
	if _, ok := r.st.roles.rows[id]; !ok {
		return nil
	}
	referenced := func(t table[tracker.Association]) bool {
		for _, a := range t.rows {
			if a.RoleID == id {
				return true
			}
		}
		return false
	}
	if referenced(r.st.scriptRoles) || referenced(r.st.gameRoles) {
		return tracker.Integrity("id", tracker.MsgStillReferenced, nil)
	}
	for _, g := range r.st.games.rows {
		if g.DrunkSawRoleID != nil && *g.DrunkSawRoleID == id {
			return tracker.Integrity("id", tracker.MsgStillReferenced, nil)
		}
	}
	delete(r.st.roles.rows, id)
	return nil
}

// =============================================================================
// GAMES
// =============================================================================

type games struct{ st *state }

func (r games) List(context.Context) ([]tracker.Game, error) {
	return r.st.games.sorted(), nil
}

func (r games) Get(_ context.Context, id int64) (tracker.Game, error) {
	g, ok := r.st.games.rows[id]
	if !ok {
		return g, &tracker.NotFoundError{Entity: "Game", ID: id}
	}
	return g, nil
}

func (r games) Create(_ context.Context, g tracker.Game) (tracker.Game, error) {
	return r.insert(g, false)
}

func (r games) CreateBulk(_ context.Context, vs []tracker.Game) ([]tracker.Game, error) {
	out := make([]tracker.Game, 0, len(vs))
	for _, g := range vs {
		created, err := r.insert(g, true)
		if err != nil {
			return nil, err
		}
		out = append(out, created)
	}
	return out, nil
}

// checkRefs reports a missing script or drunk role the way the SQL store does.
func (r games) checkRefs(g tracker.Game) error {
	field := "script_id"
	if g.DrunkSawRoleID != nil {
		field = "script_id or drunk_saw_role_id"
	}
	if _, ok := r.st.scripts.rows[g.ScriptID]; !ok {
		return tracker.Integrity(field, tracker.MsgNotFound, nil)
	}
	if g.DrunkSawRoleID != nil {
		if _, ok := r.st.roles.rows[*g.DrunkSawRoleID]; !ok {
			return tracker.Integrity(field, tracker.MsgNotFound, nil)
		}
	}
	return nil
}

func (r games) insert(g tracker.Game, bulk bool) (tracker.Game, error) {
	t := &r.st.games
	if _, taken := t.rows[g.ID]; g.ID != 0 && taken {
		return g, tracker.Conflict("id", uniqueMessage(bulk), nil)
	}
	if err := r.checkRefs(g); err != nil {
		return g, err
	}
	g.ID = t.assign(g.ID)
	t.rows[g.ID] = g
	return g, nil
}

func (r games) Update(_ context.Context, id int64, g tracker.Game) (tracker.Game, error) {
	if _, ok := r.st.games.rows[id]; !ok {
		return g, &tracker.NotFoundError{Entity: "Game", ID: id}
	}
	if err := r.checkRefs(g); err != nil {
		return g, err
	}
	g.ID = id
	r.st.games.rows[id] = g
	return g, nil
}

func (r games) Delete(_ context.Context, id int64) error {
	if _, ok := r.st.games.rows[id]; !ok {
		return nil
	}
	for lid, a := range r.st.gameRoles.rows {
		if a.OwnerID == id {
			delete(r.st.gameRoles.rows, lid)
		}
	}
	delete(r.st.games.rows, id)
	return nil
}

// =============================================================================
// ASSOCIATIONS
// =============================================================================

type links struct {
	st    *state
	kind  tracker.OwnerKind
	owner string
}

func (l links) table() *table[tracker.Association] {
	if l.kind == tracker.OwnerScript {
		return &l.st.scriptRoles
	}
	return &l.st.gameRoles
}

func (l links) ownerExists(id int64) bool {
	if l.kind == tracker.OwnerScript {
		_, ok := l.st.scripts.rows[id]
		return ok
	}
	_, ok := l.st.games.rows[id]
	return ok
}

func (l links) Kind() tracker.OwnerKind { return l.kind }

func (l links) List(context.Context) ([]tracker.Association, error) {
	return l.table().sorted(), nil
}

func (l links) ListByOwner(_ context.Context, ownerID int64) ([]tracker.Association, error) {
	out := []tracker.Association{}
	for _, a := range l.table().sorted() {
		if a.OwnerID == ownerID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (l links) Create(_ context.Context, a tracker.Association) (tracker.Association, error) {
	return l.insert(a, false)
}

func (l links) CreateBulk(_ context.Context, as []tracker.Association) ([]tracker.Association, error) {
	out := make([]tracker.Association, 0, len(as))
	for _, a := range as {
		created, err := l.insert(a, true)
		if err != nil {
			return nil, err
		}
		out = append(out, created)
	}
	return out, nil
}

func (l links) insert(a tracker.Association, bulk bool) (tracker.Association, error) {
	t := l.table()
	if _, taken := t.rows[a.ID]; a.ID != 0 && taken {
		return a, tracker.Conflict("id", uniqueMessage(bulk), nil)
	}
	_, roleOK := l.st.roles.rows[a.RoleID]
	if !roleOK || !l.ownerExists(a.OwnerID) {
		return a, tracker.Integrity(l.owner+" or role_id", tracker.MsgNotFound, nil)
	}
	a.ID = t.assign(a.ID)
	t.rows[a.ID] = a
	return a, nil
}

func (l links) Delete(_ context.Context, id int64) error {
	delete(l.table().rows, id)
	return nil
}

func (l links) RolesOf(_ context.Context, ownerID int64) ([]tracker.Role, error) {
	out := []tracker.Role{}
	for _, a := range l.table().sorted() {
		if a.OwnerID == ownerID {
			out = append(out, l.st.roles.rows[a.RoleID])
		}
	}
	return out, nil
}

func (l links) RolesByOwner(context.Context) (map[int64][]tracker.Role, error) {
	out := map[int64][]tracker.Role{}
	for _, a := range l.table().sorted() {
		out[a.OwnerID] = append(out[a.OwnerID], l.st.roles.rows[a.RoleID])
	}
	return out, nil
}
