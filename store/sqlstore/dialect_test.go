package sqlstore

import (
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestPostgresRebind(t *testing.T) {
	d := postgresDialect{}
	assert.Equal(t,
		"UPDATE games SET player_count = $1, notes = $2 WHERE id = $3",
		d.rebind("UPDATE games SET player_count = ?, notes = ? WHERE id = ?"))
	assert.Equal(t, "SELECT 1", d.rebind("SELECT 1"))
}

func TestPostgresClassify(t *testing.T) {
	d := postgresDialect{}
	tests := []struct {
		name string
		err  *pgconn.PgError
		want violation
	}{
		{
			name: "unique name",
			err:  &pgconn.PgError{Code: "23505", TableName: "roles", ConstraintName: "roles_name_key"},
			want: violation{kind: violationUnique, column: "name"},
		},
		{
			name: "primary key",
			err:  &pgconn.PgError{Code: "23505", TableName: "games", ConstraintName: "games_pkey"},
			want: violation{kind: violationUnique, column: "id"},
		},
		{
			name: "foreign key",
			err:  &pgconn.PgError{Code: "23503", TableName: "games", ConstraintName: "games_script_id_fkey"},
			want: violation{kind: violationForeignKey, column: "script_id"},
		},
		{
			name: "check",
			err:  &pgconn.PgError{Code: "23514", TableName: "roles", ConstraintName: "roles_team_check"},
			want: violation{kind: violationCheck, column: "team"},
		},
		{
			name: "other",
			err:  &pgconn.PgError{Code: "40001"},
			want: violation{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.classify(tt.err))
		})
	}
}

func TestSQLiteColumn(t *testing.T) {
	assert.Equal(t, "name", sqliteColumn("UNIQUE constraint failed: roles.name"))
	assert.Equal(t, "id", sqliteColumn("UNIQUE constraint failed: games.id"))
	assert.Equal(t, "script_id", sqliteColumn("UNIQUE constraint failed: scripts_roles.script_id, scripts_roles.role_id"))
	assert.Equal(t, "", sqliteColumn("FOREIGN KEY constraint failed"))
}

func TestPostgresBumpSequence(t *testing.T) {
	assert.Contains(t, postgresDialect{}.bumpSequence("roles"), "pg_get_serial_sequence('roles', 'id')")
	assert.Empty(t, sqliteDialect{}.bumpSequence("roles"))
}
