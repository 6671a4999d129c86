/*
reconcile.go - Association reconciliation

PURPOSE:
  Makes the set of roles linked to one owner (a game or a script) equal to a
  caller-supplied list of role names, with the fewest inserts and deletes.

ALGORITHM:
  1. Resolve every name to a role id, in input order. The first name with no
     matching role fails the whole call with *UnknownRoleError.
  2. Load the owner's existing link rows.
  3. Diff:
       add    = desired ids not linked yet (duplicates in input collapse)
       remove = every existing row whose role is no longer desired
       kept   = existing rows whose role is still desired, untouched, even
                when two rows already point at the same role
  4. Insert add, delete remove.

ATOMICITY:
  The reconciler runs on repositories bound to the caller's transaction
  (Store.WithTx). Any failure returns an error, the caller's callback returns
  it, and the store rolls back every insert and delete made so far.

CONCURRENCY:
  Two reconciliations of the same owner are not coordinated here. The
  store's isolation level is the only protection; last commit wins.

EXAMPLE:
  err := store.WithTx(ctx, func(tx tracker.Tx) error {
      _, err := tracker.ReconcileRoles(ctx, tx, tracker.OwnerScript, 1,
          []string{"Imp", "Poisoner"})
      return err
  })

SEE ALSO:
  - store.go: RoleRepository, AssociationRepository
  - api/handlers.go: SetGameRoles, SetScriptRoles
*/
package tracker

import (
	"context"
	"errors"
)

// =============================================================================
// DIFF - Pure set difference
// =============================================================================

// Diff is the change set that turns current links into desired links.
type Diff struct {
	Add    []int64       // role ids to link, first-seen input order
	Remove []Association // existing rows to delete
	Kept   []Association // existing rows left alone
}

// Empty reports whether applying d would write nothing.
func (d Diff) Empty() bool {
	return len(d.Add) == 0 && len(d.Remove) == 0
}

// Plan computes the diff between current link rows and desired role ids.
func Plan(current []Association, desired []int64) Diff {
	want := make(map[int64]bool, len(desired))
	for _, id := range desired {
		want[id] = true
	}
	have := make(map[int64]bool, len(current))
	for _, a := range current {
		have[a.RoleID] = true
	}

	var d Diff
	queued := make(map[int64]bool, len(desired))
	for _, id := range desired {
		if have[id] || queued[id] {
			continue
		}
		queued[id] = true
		d.Add = append(d.Add, id)
	}
	for _, a := range current {
		if want[a.RoleID] {
			d.Kept = append(d.Kept, a)
		} else {
			d.Remove = append(d.Remove, a)
		}
	}
	return d
}

// =============================================================================
// RECONCILER
// =============================================================================

// Result reports what a reconciliation wrote.
type Result struct {
	Kind    OwnerKind
	OwnerID int64
	Added   []Association // inserted rows with their new ids
	Removed []Association
	Kept    []Association
}

// Reconciler applies Plan against one association table.
type Reconciler struct {
	roles RoleRepository
	links AssociationRepository
}

func NewReconciler(roles RoleRepository, links AssociationRepository) *Reconciler {
	return &Reconciler{roles: roles, links: links}
}

// ReconcileRoles reconciles the links of kind for ownerID inside tx.
func ReconcileRoles(ctx context.Context, tx Tx, kind OwnerKind, ownerID int64, names []string) (Result, error) {
	return NewReconciler(tx.Roles(), Links(tx, kind)).Reconcile(ctx, ownerID, names)
}

// Resolve maps role names to ids in input order. Duplicates resolve to the
// same id and are kept; Plan collapses them.
func (r *Reconciler) Resolve(ctx context.Context, names []string) ([]int64, error) {
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		role, err := r.roles.GetByName(ctx, name)
		if errors.Is(err, ErrNotFound) {
			return nil, &UnknownRoleError{Name: name}
		}
		if err != nil {
			return nil, err
		}
		ids = append(ids, role.ID)
	}
	return ids, nil
}

// Reconcile makes ownerID's links match names. The owner is not checked up
// front: inserting a link for a missing owner fails with ErrIntegrity, and
// an empty desired list for a missing owner is a successful no-op.
func (r *Reconciler) Reconcile(ctx context.Context, ownerID int64, names []string) (Result, error) {
	res := Result{Kind: r.links.Kind(), OwnerID: ownerID}

	desired, err := r.Resolve(ctx, names)
	if err != nil {
		return res, err
	}

	current, err := r.links.ListByOwner(ctx, ownerID)
	if err != nil {
		return res, err
	}

	diff := Plan(current, desired)
	res.Kept = diff.Kept

	for _, roleID := range diff.Add {
		row, err := r.links.Create(ctx, Association{OwnerID: ownerID, RoleID: roleID})
		if err != nil {
			return res, err
		}
		res.Added = append(res.Added, row)
	}
	for _, row := range diff.Remove {
		if err := r.links.Delete(ctx, row.ID); err != nil {
			return res, err
		}
		res.Removed = append(res.Removed, row)
	}
	return res, nil
}
