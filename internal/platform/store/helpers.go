package store

import (
	"context"
	"errors"
	"fmt"

	perr "shipledger/internal/platform/errors"
)

// ExecOne runs a write that must touch exactly one row. Idempotent
// upserts rely on this to tell a clean write from a silent no-op.
func ExecOne(ctx context.Context, q RowQuerier, sql string, args ...any) error {
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return errors.New("expected exactly one row affected")
	}
	return nil
}

// Scalar reads the first column of the first row into T
func Scalar[T any](ctx context.Context, q RowQuerier, sql string, args ...any) (T, error) {
	var v T
	if err := q.QueryRow(ctx, sql, args...).Scan(&v); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// One maps a single row through scan. No rows becomes perr.ErrNotFound
// and a second row is an error, so callers never silently truncate.
func One[T any](ctx context.Context, q RowQuerier, scan func(Row) (T, error), sql string, args ...any) (T, error) {
	var zero T

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return zero, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return zero, err
		}
		return zero, perr.ErrNotFound
	}

	item, err := scan(&rowCursor{rows: rows})
	if err != nil {
		return zero, err
	}
	if rows.Next() {
		return zero, fmt.Errorf("expected 1 row, got more")
	}
	return item, rows.Err()
}

// Many maps every row through scan into a slice
func Many[T any](ctx context.Context, q RowQuerier, scan func(Row) (T, error), sql string, args ...any) ([]T, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cur := &rowCursor{rows: rows}
	var out []T
	for rows.Next() {
		item, err := scan(cur)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// rowCursor presents the current Rows position as a single Row
type rowCursor struct{ rows Rows }

func (r *rowCursor) Scan(dest ...any) error { return r.rows.Scan(dest...) }
