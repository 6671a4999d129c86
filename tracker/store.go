/*
store.go - Persistence interfaces for scripts, roles, games and associations

PURPOSE:
  Defines the boundary between the domain and the database. One generic
  Repository contract covers the three owned entities; roles and association
  tables add the few lookups the reconciler and response shaping need.

TRANSACTIONS:
  Every request runs inside exactly one Store.WithTx call. The Tx handed to
  the callback scopes all repositories to that transaction: returning nil
  commits, returning an error (or panicking) rolls back. Nothing done inside
  a failed callback is observable afterwards.

IDS:
  Create honors a caller-supplied id (non-zero) and otherwise lets the store
  assign one. CreateBulk additionally advances the id counter to the largest
  id in the batch, so later auto-assigned ids never collide with imported ones.

DELETE:
  Delete of an absent id is a no-op. Deleting a row that association rows
  still reference fails with ErrIntegrity. Deleting a game removes its
  game-role rows; deleting a script removes its games.

IMPLEMENTATIONS:
  - store/sqlstore: SQLite and PostgreSQL through database/sql
  - store/memory:   In-process, for development and tests

SEE ALSO:
  - reconcile.go: Uses RoleRepository + AssociationRepository
  - errors.go: Error kinds every implementation must return
*/
package tracker

import "context"

// =============================================================================
// REPOSITORIES
// =============================================================================

// Repository is the CRUD contract shared by scripts, roles and games.
type Repository[T any] interface {
	// List returns every row in insertion (id) order.
	List(ctx context.Context) ([]T, error)

	// Get returns the row with id, or a *NotFoundError.
	Get(ctx context.Context, id int64) (T, error)

	// Create inserts one row and returns it with its id set.
	Create(ctx context.Context, v T) (T, error)

	// CreateBulk inserts all rows or none.
	CreateBulk(ctx context.Context, vs []T) ([]T, error)

	// Update replaces the mutable fields of row id.
	Update(ctx context.Context, id int64, v T) (T, error)

	// Delete removes row id. Absent ids are ignored.
	Delete(ctx context.Context, id int64) error
}

// RoleRepository adds name lookup for reconciliation.
type RoleRepository interface {
	Repository[Role]

	// GetByName returns the role with exactly this name, or ErrNotFound.
	GetByName(ctx context.Context, name string) (Role, error)
}

// AssociationRepository manages the rows of one link table
// (scripts_roles or games_roles).
type AssociationRepository interface {
	Kind() OwnerKind

	List(ctx context.Context) ([]Association, error)

	// ListByOwner returns every row for ownerID, duplicates included.
	ListByOwner(ctx context.Context, ownerID int64) ([]Association, error)

	// Create inserts a raw link. It does NOT check for an existing link
	// between the same owner and role; only the reconciler keeps links unique.
	Create(ctx context.Context, a Association) (Association, error)

	CreateBulk(ctx context.Context, as []Association) ([]Association, error)

	Delete(ctx context.Context, id int64) error

	// RolesOf joins ownerID's links to their roles, in link id order.
	RolesOf(ctx context.Context, ownerID int64) ([]Role, error)

	// RolesByOwner does the same join for every owner at once.
	RolesByOwner(ctx context.Context) (map[int64][]Role, error)
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// Tx exposes repositories bound to one transaction.
type Tx interface {
	Scripts() Repository[Script]
	Roles() RoleRepository
	Games() Repository[Game]
	ScriptRoles() AssociationRepository
	GameRoles() AssociationRepository
}

// Links returns the association repository for kind.
func Links(tx Tx, kind OwnerKind) AssociationRepository {
	if kind == OwnerScript {
		return tx.ScriptRoles()
	}
	return tx.GameRoles()
}

// Store opens transactions. Implementations are safe for concurrent use.
type Store interface {
	// WithTx executes fn within a transaction.
	// If fn returns error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Ping(ctx context.Context) error
	Close() error
}
