package sqlstore

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/mattn/go-sqlite3"
)

// =============================================================================
// DIALECT - The few places SQLite and PostgreSQL differ
// =============================================================================

type dialect interface {
	name() string
	driver() string
	schema() string

	// rebind rewrites ? placeholders into the dialect's form.
	rebind(query string) string

	// bumpSequence returns the statement that moves table's id counter to
	// its max id, or "" when the engine does this by itself.
	bumpSequence(table string) string

	// classify reports which constraint, if any, err violated.
	classify(err error) violation
}

// =============================================================================
// SQLITE
// =============================================================================

type sqliteDialect struct{}

func (sqliteDialect) name() string   { return "sqlite" }
func (sqliteDialect) driver() string { return "sqlite3" }

func (sqliteDialect) schema() string { return sqliteSchema }

func (sqliteDialect) rebind(query string) string { return query }

// INTEGER PRIMARY KEY picks max(rowid)+1, so explicit ids are never reused.
func (sqliteDialect) bumpSequence(string) string { return "" }

func (sqliteDialect) classify(err error) violation {
	var se sqlite3.Error
	if !errors.As(err, &se) || se.Code != sqlite3.ErrConstraint {
		return violation{}
	}
	v := violation{column: sqliteColumn(se.Error())}
	switch se.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		v.kind = violationUnique
	case sqlite3.ErrConstraintForeignKey:
		v.kind = violationForeignKey
	case sqlite3.ErrConstraintCheck, sqlite3.ErrConstraintNotNull:
		v.kind = violationCheck
	}
	return v
}

// sqliteColumn extracts "name" from "UNIQUE constraint failed: roles.name".
func sqliteColumn(msg string) string {
	i := strings.LastIndex(msg, ": ")
	if i < 0 {
		return ""
	}
	target := msg[i+2:]
	if j := strings.IndexByte(target, ','); j >= 0 {
		target = target[:j]
	}
	if j := strings.LastIndexByte(target, '.'); j >= 0 {
		return target[j+1:]
	}
	return ""
}

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS scripts (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS roles (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		team TEXT NOT NULL CHECK (team IN ('DEMON', 'MINION', 'OUTSIDER', 'TOWNSFOLK'))
	);

	CREATE TABLE IF NOT EXISTS games (
		id INTEGER PRIMARY KEY,
		player_count INTEGER NOT NULL,
		date DATE NOT NULL,
		is_in_person BOOLEAN NOT NULL,
		notes TEXT,
		winning_team TEXT NOT NULL CHECK (winning_team IN ('EVIL', 'GOOD')),
		script_id INTEGER NOT NULL REFERENCES scripts(id) ON DELETE CASCADE,
		drunk_saw_role_id INTEGER REFERENCES roles(id)
	);

	CREATE INDEX IF NOT EXISTS idx_games_script ON games(script_id);

	CREATE TABLE IF NOT EXISTS scripts_roles (
		id INTEGER PRIMARY KEY,
		script_id INTEGER NOT NULL REFERENCES scripts(id),
		role_id INTEGER NOT NULL REFERENCES roles(id)
	);

	CREATE INDEX IF NOT EXISTS idx_scripts_roles_script ON scripts_roles(script_id);
	CREATE INDEX IF NOT EXISTS idx_scripts_roles_role ON scripts_roles(role_id);

	CREATE TABLE IF NOT EXISTS games_roles (
		id INTEGER PRIMARY KEY,
		game_id INTEGER NOT NULL REFERENCES games(id) ON DELETE CASCADE,
		role_id INTEGER NOT NULL REFERENCES roles(id)
	);

	CREATE INDEX IF NOT EXISTS idx_games_roles_game ON games_roles(game_id);
	CREATE INDEX IF NOT EXISTS idx_games_roles_role ON games_roles(role_id);
	`

// =============================================================================
// POSTGRES
// =============================================================================

type postgresDialect struct{}

func (postgresDialect) name() string   { return "postgres" }
func (postgresDialect) driver() string { return "pgx" }

func (postgresDialect) schema() string { return postgresSchema }

func (postgresDialect) rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (postgresDialect) bumpSequence(table string) string {
	return fmt.Sprintf(
		`SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE(MAX(id), 1), MAX(id) IS NOT NULL) FROM %s`,
		table, table)
}

func (postgresDialect) classify(err error) violation {
	var pe *pgconn.PgError
	if !errors.As(err, &pe) {
		return violation{}
	}
	v := violation{column: postgresColumn(pe)}
	switch pe.Code {
	case "23505":
		v.kind = violationUnique
	case "23503":
		v.kind = violationForeignKey
	case "23514", "23502":
		v.kind = violationCheck
	}
	return v
}

// postgresColumn derives the column from default constraint names
// ("roles_pkey", "roles_name_key", "games_script_id_fkey").
func postgresColumn(pe *pgconn.PgError) string {
	if pe.ColumnName != "" {
		return pe.ColumnName
	}
	c := pe.ConstraintName
	if strings.HasSuffix(c, "_pkey") {
		return "id"
	}
	c = strings.TrimSuffix(c, "_key")
	c = strings.TrimSuffix(c, "_fkey")
	c = strings.TrimSuffix(c, "_check")
	return strings.TrimPrefix(c, pe.TableName+"_")
}

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS scripts (
		id SERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS roles (
		id SERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		team TEXT NOT NULL CHECK (team IN ('DEMON', 'MINION', 'OUTSIDER', 'TOWNSFOLK'))
	);

	CREATE TABLE IF NOT EXISTS games (
		id SERIAL PRIMARY KEY,
		player_count INTEGER NOT NULL,
		date DATE NOT NULL,
		is_in_person BOOLEAN NOT NULL,
		notes TEXT,
		winning_team TEXT NOT NULL CHECK (winning_team IN ('EVIL', 'GOOD')),
		script_id INTEGER NOT NULL REFERENCES scripts(id) ON DELETE CASCADE,
		drunk_saw_role_id INTEGER REFERENCES roles(id)
	);

	CREATE INDEX IF NOT EXISTS idx_games_script ON games(script_id);

	CREATE TABLE IF NOT EXISTS scripts_roles (
		id SERIAL PRIMARY KEY,
		script_id INTEGER NOT NULL REFERENCES scripts(id),
		role_id INTEGER NOT NULL REFERENCES roles(id)
	);

	CREATE INDEX IF NOT EXISTS idx_scripts_roles_script ON scripts_roles(script_id);
	CREATE INDEX IF NOT EXISTS idx_scripts_roles_role ON scripts_roles(role_id);

	CREATE TABLE IF NOT EXISTS games_roles (
		id SERIAL PRIMARY KEY,
		game_id INTEGER NOT NULL REFERENCES games(id) ON DELETE CASCADE,
		role_id INTEGER NOT NULL REFERENCES roles(id)
	);

	CREATE INDEX IF NOT EXISTS idx_games_roles_game ON games_roles(game_id);
	CREATE INDEX IF NOT EXISTS idx_games_roles_role ON games_roles(role_id);
	`
