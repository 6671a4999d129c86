package sqlstore

import (
	"context"
	"fmt"

	"github.com/holocron/tracker/tracker"
)

// linkTable describes one association table.
type linkTable struct {
	kind   tracker.OwnerKind
	table  string
	entity string
	owner  string // owner foreign key column
}

var (
	scriptLinks = linkTable{kind: tracker.OwnerScript, table: "scripts_roles", entity: "ScriptRole", owner: "script_id"}
	gameLinks   = linkTable{kind: tracker.OwnerGame, table: "games_roles", entity: "GameRole", owner: "game_id"}
)

// linkRepo implements tracker.AssociationRepository.
type linkRepo struct {
	*crud[tracker.Association]
	t linkTable
}

func newLinks(b base, t linkTable) *linkRepo {
	return &linkRepo{t: t, crud: &crud[tracker.Association]{
		base:    b,
		table:   t.table,
		entity:  t.entity,
		columns: []string{t.owner, "role_id"},
		values: func(a tracker.Association) []any {
			return []any{a.OwnerID, a.RoleID}
		},
		scan: func(row scanner) (tracker.Association, error) {
			var a tracker.Association
			err := row.Scan(&a.ID, &a.OwnerID, &a.RoleID)
			return a, err
		},
		id:     func(a tracker.Association) int64 { return a.ID },
		withID: func(a tracker.Association, id int64) tracker.Association { a.ID = id; return a },
		rules: func(tracker.Association) rules {
			return rules{unique: "id", foreignKey: t.owner + " or role_id"}
		},
	}}
}

func (l *linkRepo) Kind() tracker.OwnerKind { return l.t.kind }

func (l *linkRepo) ListByOwner(ctx context.Context, ownerID int64) ([]tracker.Association, error) {
	return l.list(ctx, l.selectSQL()+" WHERE "+l.t.owner+" = ? ORDER BY id", ownerID)
}

func (l *linkRepo) rolesSQL() string {
	return fmt.Sprintf(
		"SELECT l.%s, r.id, r.name, r.team FROM %s l JOIN roles r ON r.id = l.role_id",
		l.t.owner, l.t.table)
}

func (l *linkRepo) RolesOf(ctx context.Context, ownerID int64) ([]tracker.Role, error) {
	byOwner, err := l.joinRoles(ctx, l.rolesSQL()+" WHERE l."+l.t.owner+" = ? ORDER BY l.id", ownerID)
	if err != nil {
		return nil, err
	}
	roles := byOwner[ownerID]
	if roles == nil {
		roles = []tracker.Role{}
	}
	return roles, nil
}

func (l *linkRepo) RolesByOwner(ctx context.Context) (map[int64][]tracker.Role, error) {
	return l.joinRoles(ctx, l.rolesSQL()+" ORDER BY l.id")
}

func (l *linkRepo) joinRoles(ctx context.Context, query string, args ...any) (map[int64][]tracker.Role, error) {
	rows, err := l.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s roles: %w", l.t.table, err)
	}
	defer rows.Close()

	out := map[int64][]tracker.Role{}
	for rows.Next() {
		var (
			ownerID int64
			r       tracker.Role
			team    string
		)
		if err := rows.Scan(&ownerID, &r.ID, &r.Name, &team); err != nil {
			return nil, fmt.Errorf("failed to scan %s roles: %w", l.t.table, err)
		}
		r.Team = tracker.Team(team)
		out[ownerID] = append(out[ownerID], r)
	}
	return out, rows.Err()
}
