/*
Package sqlstore provides a database/sql implementation of the tracker repositories.

PURPOSE:
  Implements tracker.Store on SQLite (default, github.com/mattn/go-sqlite3)
  or PostgreSQL (github.com/jackc/pgx/v5 stdlib driver). Queries are written
  once with ? placeholders; the dialect rebinds them and supplies the schema,
  the id sequence statement and constraint classification.

KEY TABLES:
  scripts:       id, name UNIQUE
  roles:         id, name UNIQUE, team
  games:         id, ..., script_id -> scripts ON DELETE CASCADE,
                 drunk_saw_role_id -> roles (nullable)
  scripts_roles: id, script_id -> scripts, role_id -> roles
  games_roles:   id, game_id -> games ON DELETE CASCADE, role_id -> roles

  Link tables carry no (owner, role) unique index. Raw link creation may
  duplicate a link; the reconciler never does.

TRANSACTIONS:
  WithTx opens one *sql.Tx and binds every repository to it. Commit on nil,
  rollback on error or panic (deferred Rollback is a no-op after Commit).

SQLITE CONNECTIONS:
  Foreign keys are enabled per connection through the DSN. The pool is
  limited to one connection, which serializes writers and makes ":memory:"
  a single database instead of one per connection.

USAGE:
  store, err := sqlstore.OpenSQLite("./data/holocron.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is created on open with CREATE TABLE IF NOT EXISTS. There are no
  versioned migrations.

SEE ALSO:
  - tracker/store.go: Interface definitions
  - store/memory: In-memory implementation
*/
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/holocron/tracker/tracker"
)

// Compile-time contract assertion.
var _ tracker.Store = (*Store)(nil)

// Store implements tracker.Store over database/sql.
type Store struct {
	db      *sql.DB
	dialect dialect
	log     *slog.Logger
}

// OpenSQLite opens (creating if needed) a SQLite database at path.
// Use ":memory:" for an in-memory database.
func OpenSQLite(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := path + "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"
	s, err := open(sqliteDialect{}, dsn)
	if err != nil {
		return nil, err
	}
	s.db.SetMaxOpenConns(1)
	return s, nil
}

// OpenPostgres connects to the PostgreSQL database at dsn.
func OpenPostgres(dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	return open(postgresDialect{}, dsn)
}

func open(d dialect, dsn string) (*Store, error) {
	db, err := sql.Open(d.driver(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", d.name(), err)
	}

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", d.name(), err)
	}

	s := &Store{db: db, dialect: d, log: slog.Default().With("store", d.name())}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// WithLogger replaces the logger used for uncategorized store errors.
func (s *Store) WithLogger(l *slog.Logger) *Store {
	s.log = l.With("store", s.dialect.name())
	return s
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, s.dialect.schema())
	return err
}

// Dialect names the SQL engine ("sqlite" or "postgres").
func (s *Store) Dialect() string {
	return s.dialect.name()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx tracker.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(s.bind(sqlTx)); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		s.log.Error("commit failed", "error", err)
		return tracker.UnknownIntegrity(err)
	}
	return nil
}

// querier is the part of *sql.Tx the repositories use.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txRepos struct {
	scripts     *crud[tracker.Script]
	roles       *roleRepo
	games       *crud[tracker.Game]
	scriptRoles *linkRepo
	gameRoles   *linkRepo
}

func (s *Store) bind(q querier) *txRepos {
	b := base{q: q, d: s.dialect, log: s.log}
	return &txRepos{
		scripts:     newScripts(b),
		roles:       newRoles(b),
		games:       newGames(b),
		scriptRoles: newLinks(b, scriptLinks),
		gameRoles:   newLinks(b, gameLinks),
	}
}

func (t *txRepos) Scripts() tracker.Repository[tracker.Script] { return t.scripts }
func (t *txRepos) Roles() tracker.RoleRepository                { return t.roles }
func (t *txRepos) Games() tracker.Repository[tracker.Game]     { return t.games }
func (t *txRepos) ScriptRoles() tracker.AssociationRepository  { return t.scriptRoles }
func (t *txRepos) GameRoles() tracker.AssociationRepository    { return t.gameRoles }
