package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Default entities are created lazily the first time a pushed transaction
// omits a required reference. Creation is idempotent within the push
// transaction: the lookup and insert run under the same writer.

// EnsureDefaultBook returns the user's default book, creating it when
// absent.
func EnsureDefaultBook(ctx context.Context, q DBTX, userID, now string) (string, error) {
	var id string
	err := q.QueryRowContext(ctx,
		"SELECT id FROM books WHERE user_id = ? AND is_default = 1 LIMIT 1", userID).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("find default book: %w", err)
	}

	id = uuid.NewString()
	_, err = q.ExecContext(ctx, `
		INSERT INTO books (id, user_id, name, book_type, is_default, created_at, updated_at)
		VALUES (?, ?, 'Default Book', 0, 1, ?, ?)
	`, id, userID, now, now)
	if err != nil {
		return "", fmt.Errorf("create default book: %w", err)
	}
	return id, nil
}

// EnsureDefaultAccount returns the user's default cash account, creating
// it when absent.
func EnsureDefaultAccount(ctx context.Context, q DBTX, userID, now string) (string, error) {
	var id string
	err := q.QueryRowContext(ctx,
		"SELECT id FROM accounts WHERE user_id = ? AND is_default = 1 LIMIT 1", userID).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("find default account: %w", err)
	}

	id = uuid.NewString()
	_, err = q.ExecContext(ctx, `
		INSERT INTO accounts (id, user_id, name, account_type, balance, is_default, created_at, updated_at)
		VALUES (?, ?, 'Cash', 1, '0', 1, ?, ?)
	`, id, userID, now, now)
	if err != nil {
		return "", fmt.Errorf("create default account: %w", err)
	}
	return id, nil
}

// EnsureDefaultCategory returns the user's catch-all category for the
// given category type (1 expense, 2 income), creating it when absent.
func EnsureDefaultCategory(ctx context.Context, q DBTX, userID string, categoryType int, now string) (string, error) {
	var id string
	err := q.QueryRowContext(ctx, `
		SELECT id FROM categories
		WHERE user_id = ? AND is_system = 1 AND category_type = ?
		LIMIT 1
	`, userID, categoryType).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("find default category: %w", err)
	}

	id = uuid.NewString()
	_, err = q.ExecContext(ctx, `
		INSERT INTO categories (id, user_id, name, category_type, is_system, created_at, updated_at)
		VALUES (?, ?, 'Other', ?, 1, ?, ?)
	`, id, userID, categoryType, now, now)
	if err != nil {
		return "", fmt.Errorf("create default category: %w", err)
	}
	return id, nil
}
