package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/holocron/tracker/tracker"
)

// base is what every repository shares: the transaction, the dialect and
// the logger for uncategorized errors.
type base struct {
	q   querier
	d   dialect
	log *slog.Logger
}

func (b base) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return b.q.ExecContext(ctx, b.d.rebind(query), args...)
}

func (b base) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return b.q.QueryContext(ctx, b.d.rebind(query), args...)
}

func (b base) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return b.q.QueryRowContext(ctx, b.d.rebind(query), args...)
}

type scanner interface {
	Scan(dest ...any) error
}

// =============================================================================
// CRUD - One table, one entity type
// =============================================================================

// crud implements tracker.Repository[T] for a table whose first column is id.
type crud[T any] struct {
	base
	table   string
	entity  string   // rendered in NotFoundError, e.g. "Game"
	columns []string // every column except id, in values() order

	values func(T) []any
	scan   func(scanner) (T, error) // id first, then columns
	id     func(T) int64
	withID func(T, int64) T

	// rules returns the blamed fields for a failed write of v.
	rules func(v T) rules
}

func (c *crud[T]) selectSQL() string {
	return "SELECT id, " + strings.Join(c.columns, ", ") + " FROM " + c.table
}

func (c *crud[T]) List(ctx context.Context) ([]T, error) {
	return c.list(ctx, c.selectSQL()+" ORDER BY id")
}

func (c *crud[T]) list(ctx context.Context, query string, args ...any) ([]T, error) {
	rows, err := c.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", c.table, err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		v, err := c.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", c.table, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (c *crud[T]) Get(ctx context.Context, id int64) (T, error) {
	v, err := c.scan(c.queryRow(ctx, c.selectSQL()+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return v, &tracker.NotFoundError{Entity: c.entity, ID: id}
	}
	if err != nil {
		return v, fmt.Errorf("failed to get %s %d: %w", c.table, id, err)
	}
	return v, nil
}

func (c *crud[T]) Create(ctx context.Context, v T) (T, error) {
	created, err := c.insert(ctx, v, opCreate)
	if err != nil {
		return created, err
	}
	if c.id(v) != 0 {
		if err := c.bumpSequence(ctx, opCreate); err != nil {
			return created, err
		}
	}
	return created, nil
}

func (c *crud[T]) CreateBulk(ctx context.Context, vs []T) ([]T, error) {
	out := make([]T, 0, len(vs))
	for _, v := range vs {
		created, err := c.insert(ctx, v, opBulk)
		if err != nil {
			return nil, err
		}
		out = append(out, created)
	}
	if err := c.bumpSequence(ctx, opBulk); err != nil {
		return nil, err
	}
	return out, nil
}

// insert writes v, including its id column when the id is set.
func (c *crud[T]) insert(ctx context.Context, v T, o op) (T, error) {
	cols := c.columns
	args := c.values(v)
	if id := c.id(v); id != 0 {
		cols = append([]string{"id"}, cols...)
		args = append([]any{id}, args...)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		c.table, strings.Join(cols, ", "), placeholders(len(cols)))

	var id int64
	if err := c.queryRow(ctx, query, args...).Scan(&id); err != nil {
		return v, translate(c.log, c.d, c.rules(v), o, err)
	}
	return c.withID(v, id), nil
}

func (c *crud[T]) bumpSequence(ctx context.Context, o op) error {
	stmt := c.d.bumpSequence(c.table)
	if stmt == "" {
		return nil
	}
	if _, err := c.q.ExecContext(ctx, stmt); err != nil {
		return translate(c.log, c.d, rules{}, o, err)
	}
	return nil
}

func (c *crud[T]) Update(ctx context.Context, id int64, v T) (T, error) {
	sets := make([]string, len(c.columns))
	for i, col := range c.columns {
		sets[i] = col + " = ?"
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", c.table, strings.Join(sets, ", "))

	result, err := c.exec(ctx, query, append(c.values(v), id)...)
	if err != nil {
		return v, translate(c.log, c.d, c.rules(v), opUpdate, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return v, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return v, &tracker.NotFoundError{Entity: c.entity, ID: id}
	}
	return c.withID(v, id), nil
}

func (c *crud[T]) Delete(ctx context.Context, id int64) error {
	_, err := c.exec(ctx, "DELETE FROM "+c.table+" WHERE id = ?", id)
	if err != nil {
		var zero T
		return translate(c.log, c.d, c.rules(zero), opDelete, err)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
