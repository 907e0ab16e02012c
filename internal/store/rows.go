package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fernledger/fern/internal/entity"
)

// Row holds a stored entity row keyed by column name. Values are the
// driver's native types: string, int64, float64 or nil.
type Row map[string]any

// String returns the named column as a string, empty when NULL or absent.
func (r Row) String(col string) string {
	if v, ok := r[col].(string); ok {
		return v
	}
	return ""
}

// selectColumns lists the columns read for an entity: id, the registered
// fields, then the bookkeeping timestamps. user_id never leaves the store.
func selectColumns(spec entity.Spec) []string {
	cols := make([]string, 0, len(spec.Fields)+3)
	cols = append(cols, "id")
	for _, f := range spec.Fields {
		cols = append(cols, f.Name)
	}
	cols = append(cols, "created_at", "updated_at")
	return cols
}

func scanRow(scanner interface{ Scan(...any) error }, cols []string) (Row, error) {
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := scanner.Scan(ptrs...); err != nil {
		return nil, err
	}
	row := make(Row, len(cols))
	for i, c := range cols {
		if b, ok := vals[i].([]byte); ok {
			row[c] = string(b)
		} else {
			row[c] = vals[i]
		}
	}
	return row, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// InsertEntity writes a new row. cols holds already-coerced SQL values
// keyed by field name; fields absent from cols fall back to the schema
// defaults (or fail the insert when the column is NOT NULL, which the
// caller's savepoint isolates).
func InsertEntity(ctx context.Context, q DBTX, spec entity.Spec, id, userID string, cols map[string]any, now string) error {
	names := []string{"id", "user_id"}
	args := []any{id, userID}
	for _, f := range spec.Fields {
		if v, ok := cols[f.Name]; ok {
			names = append(names, f.Name)
			args = append(args, v)
		}
	}
	names = append(names, "created_at", "updated_at")
	args = append(args, now, now)

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		spec.Table, strings.Join(names, ", "), placeholders(len(names)))
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert %s: %w", spec.Type, err)
	}
	return nil
}

// UpdateEntity overwrites the fields present in cols and bumps
// updated_at. Returns ErrNotFound when no row matches.
func UpdateEntity(ctx context.Context, q DBTX, spec entity.Spec, id, userID string, cols map[string]any, now string) error {
	sets := make([]string, 0, len(cols)+1)
	args := make([]any, 0, len(cols)+3)
	for _, f := range spec.Fields {
		if v, ok := cols[f.Name]; ok {
			sets = append(sets, f.Name+" = ?")
			args = append(args, v)
		}
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, now, id, userID)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ? AND user_id = ?",
		spec.Table, strings.Join(sets, ", "))
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", spec.Type, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteEntity removes a row. Returns ErrNotFound when no row matches,
// which the caller treats as an already-deleted entity.
func DeleteEntity(ctx context.Context, q DBTX, spec entity.Spec, id, userID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ? AND user_id = ?", spec.Table)
	res, err := q.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("delete %s: %w", spec.Type, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetEntity loads one row scoped to its owner.
func GetEntity(ctx context.Context, q DBTX, spec entity.Spec, id, userID string) (Row, error) {
	cols := selectColumns(spec)
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ? AND user_id = ?",
		strings.Join(cols, ", "), spec.Table)
	row, err := scanRow(q.QueryRowContext(ctx, query, id, userID), cols)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s: %w", spec.Type, err)
	}
	return row, nil
}

// EntityExists reports whether the owner has a row with this id.
func EntityExists(ctx context.Context, q DBTX, spec entity.Spec, id, userID string) (bool, error) {
	query := fmt.Sprintf("SELECT 1 FROM %s WHERE id = ? AND user_id = ?", spec.Table)
	var one int
	err := q.QueryRowContext(ctx, query, id, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", spec.Type, err)
	}
	return true, nil
}
