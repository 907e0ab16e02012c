package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ClaimAccount promotes the transaction to the database writer by touching
// the account row before a balance read-modify-write. With SQLite's single
// writer this is the exclusive claim the balance arithmetic runs under.
func ClaimAccount(ctx context.Context, tx DBTX, id, userID string) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE accounts SET updated_at = updated_at WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("claim account: %w", err)
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

// AccountBalance reads the stored balance as an exact decimal.
func AccountBalance(ctx context.Context, q DBTX, id, userID string) (decimal.Decimal, error) {
	var raw string
	err := q.QueryRowContext(ctx,
		"SELECT balance FROM accounts WHERE id = ? AND user_id = ?", id, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, ErrNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("read balance: %w", err)
	}
	bal, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse stored balance %q: %w", raw, err)
	}
	return bal, nil
}

// SetAccountBalance writes the balance back and bumps updated_at so the
// change reaches other devices on their next pull.
func SetAccountBalance(ctx context.Context, q DBTX, id, userID string, balance decimal.Decimal, now string) error {
	res, err := q.ExecContext(ctx,
		"UPDATE accounts SET balance = ?, updated_at = ? WHERE id = ? AND user_id = ?",
		balance.String(), now, id, userID)
	if err != nil {
		return fmt.Errorf("set balance: %w", err)
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
