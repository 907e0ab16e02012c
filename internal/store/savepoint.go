package store

import (
	"context"
	"fmt"
)

// Savepoint isolates one change inside the outer push transaction.
// Rolling back a savepoint undoes only that change; the batch commits
// once at the end.
//
// database/sql has no savepoint API, so the statements are issued as raw
// SQL on the transaction. Names are generated by the caller (sp_change_N)
// and never come from client input.
type Savepoint struct {
	tx   DBTX
	name string
	done bool
}

// NewSavepoint opens a savepoint with the given name on tx.
func NewSavepoint(ctx context.Context, tx DBTX, name string) (*Savepoint, error) {
	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return nil, fmt.Errorf("open savepoint %s: %w", name, err)
	}
	return &Savepoint{tx: tx, name: name}, nil
}

// Release commits the savepoint's writes into the outer transaction.
func (sp *Savepoint) Release(ctx context.Context) error {
	if sp.done {
		return nil
	}
	sp.done = true
	if _, err := sp.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+sp.name); err != nil {
		return fmt.Errorf("release savepoint %s: %w", sp.name, err)
	}
	return nil
}

// Rollback undoes everything since the savepoint was opened, then
// releases it so the name can be reused.
func (sp *Savepoint) Rollback(ctx context.Context) error {
	if sp.done {
		return nil
	}
	sp.done = true
	if _, err := sp.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+sp.name); err != nil {
		return fmt.Errorf("rollback to savepoint %s: %w", sp.name, err)
	}
	if _, err := sp.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+sp.name); err != nil {
		return fmt.Errorf("release savepoint %s: %w", sp.name, err)
	}
	return nil
}
