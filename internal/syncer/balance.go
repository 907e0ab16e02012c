package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/fernledger/fern/internal/store"
	"github.com/shopspring/decimal"
)

// Transaction type codes shared with clients.
const (
	txExpense  = 1
	txIncome   = 2
	txTransfer = 3
)

// balanceEffect holds the fields of a transaction that determine its
// account-balance impact.
type balanceEffect struct {
	txType    int64
	amount    decimal.Decimal
	fee       decimal.Decimal
	accountID string
	targetID  string
}

// effectFromValues reads the balance-relevant fields out of effective
// column values, which use the stored representation (decimals as TEXT,
// ints as int64) whether they come from a coerced payload or a loaded row.
func effectFromValues(vals map[string]any) (balanceEffect, error) {
	e := balanceEffect{
		txType:    asInt(vals["transaction_type"]),
		accountID: asString(vals["account_id"]),
		targetID:  asString(vals["target_account_id"]),
	}
	if e.txType == 0 {
		e.txType = txExpense
	}
	var err error
	if e.amount, err = asDecimal(vals["amount"]); err != nil {
		return e, fmt.Errorf("amount: %w", err)
	}
	if e.fee, err = asDecimal(vals["fee"]); err != nil {
		return e, fmt.Errorf("fee: %w", err)
	}
	return e, nil
}

// applyBalance adjusts account balances for one transaction write.
// reverse applies the exact inverse, used before updates and deletes.
// Both sides of a transfer are adjusted back-to-back inside the caller's
// savepoint so no reader observes an intermediate balance.
func (s *Service) applyBalance(ctx context.Context, tx store.DBTX, userID string, e balanceEffect, reverse bool, now string) error {
	var source, target decimal.Decimal
	switch e.txType {
	case txExpense:
		source = e.amount.Add(e.fee).Neg()
	case txIncome:
		source = e.amount
	case txTransfer:
		source = e.amount.Add(e.fee).Neg()
		target = e.amount
	default:
		return fmt.Errorf("unknown transaction type %d", e.txType)
	}
	if reverse {
		source = source.Neg()
		target = target.Neg()
	}

	err := s.adjustBalance(ctx, tx, userID, e.accountID, source, now)
	if errors.Is(err, store.ErrNotFound) {
		// Lenient: a source account that no longer exists skips the
		// adjustment instead of failing the change.
		s.logger.Warn("source account not found, skipping balance adjustment",
			"component", "syncer", "account_id", e.accountID)
	} else if err != nil {
		return fmt.Errorf("adjust source account: %w", err)
	}

	if e.txType == txTransfer && !target.IsZero() {
		if e.targetID == "" {
			s.logger.Warn("transfer without target account, source side only",
				"component", "syncer", "account_id", e.accountID)
			return nil
		}
		err := s.adjustBalance(ctx, tx, userID, e.targetID, target, now)
		if errors.Is(err, store.ErrNotFound) {
			// Lenient: an unresolvable transfer target skips only the
			// target-side adjustment.
			s.logger.Warn("transfer target account not found, source side only",
				"component", "syncer", "target_account_id", e.targetID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("adjust target account: %w", err)
		}
	}
	return nil
}

// adjustBalance performs one read-modify-write on an account balance
// under an exclusive claim on the row.
func (s *Service) adjustBalance(ctx context.Context, tx store.DBTX, userID, accountID string, delta decimal.Decimal, now string) error {
	if accountID == "" {
		return store.ErrNotFound
	}
	if err := store.ClaimAccount(ctx, tx, accountID, userID); err != nil {
		return err
	}
	bal, err := store.AccountBalance(ctx, tx, accountID, userID)
	if err != nil {
		return err
	}
	return store.SetAccountBalance(ctx, tx, accountID, userID, bal.Add(delta), now)
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	}
	return 0
}

func asDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case nil:
		return decimal.Zero, nil
	case string:
		if x == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(x)
	case float64:
		return decimal.NewFromFloat(x), nil
	}
	return decimal.Zero, fmt.Errorf("unsupported value %T", v)
}
