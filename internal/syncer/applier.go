package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/fernledger/fern/internal/entity"
	"github.com/fernledger/fern/internal/store"
	"github.com/fernledger/fern/internal/sync"
	"github.com/google/uuid"
)

// applyChange runs one change through validation, conflict detection and
// the applier, inside its own savepoint. The returned error is reserved
// for store-level failures that must abort the whole batch; per-change
// problems come back as a Failed or Conflicted outcome.
func (s *Service) applyChange(ctx context.Context, tx store.DBTX, spec entity.Spec, userID string, c sync.Change, idx int, now string) (Outcome, error) {
	res := sync.Result{
		EntityType: c.EntityType,
		Operation:  c.Operation,
		LocalID:    c.LocalID,
		ServerID:   c.ServerID,
	}

	switch c.Operation {
	case sync.OperationCreate, sync.OperationUpdate, sync.OperationDelete:
	default:
		return failed(res, fmt.Errorf("unknown operation %q", c.Operation)), nil
	}
	if c.Operation != sync.OperationCreate && c.ServerID == "" {
		return failed(res, fmt.Errorf("%w for %s", store.ErrMissingServerID, c.Operation)), nil
	}

	// Conflict detection reads only, so it runs before the savepoint.
	var oldRow store.Row
	var info *sync.Conflict
	if c.Operation != sync.OperationCreate {
		blocking, detected, row, err := s.detectConflict(ctx, tx, spec, userID, c)
		if err != nil {
			return Outcome{}, err
		}
		if blocking != nil {
			return conflicted(blocking), nil
		}
		oldRow, info = row, detected
	}

	sp, err := store.NewSavepoint(ctx, tx, fmt.Sprintf("sp_change_%d", idx))
	if err != nil {
		return Outcome{}, err
	}

	serverID, err := s.applyOperation(ctx, tx, spec, userID, c, oldRow, now)
	if err != nil {
		if rbErr := sp.Rollback(ctx); rbErr != nil {
			return Outcome{}, rbErr
		}
		s.logger.Warn("change rolled back",
			"component", "syncer",
			"entity_type", c.EntityType,
			"operation", c.Operation,
			"local_id", c.LocalID,
			"error", err)
		return failed(res, err), nil
	}
	if err := sp.Release(ctx); err != nil {
		return Outcome{}, err
	}

	res.ServerID = serverID
	return applied(res, info), nil
}

// applyOperation performs the entity write plus, for transactions, the
// paired balance adjustment.
func (s *Service) applyOperation(ctx context.Context, tx store.DBTX, spec entity.Spec, userID string, c sync.Change, oldRow store.Row, now string) (string, error) {
	switch c.Operation {
	case sync.OperationCreate:
		cols := s.coerce(spec, c)
		if spec.Type == entity.TypeTransaction {
			if err := s.resolveTransactionDefaults(ctx, tx, userID, cols, now); err != nil {
				return "", err
			}
			if err := s.clearDanglingTransferTarget(ctx, tx, userID, cols); err != nil {
				return "", err
			}
		}
		id := uuid.NewString()
		if err := store.InsertEntity(ctx, tx, spec, id, userID, cols, now); err != nil {
			return "", err
		}
		if spec.Type == entity.TypeTransaction {
			eff, err := effectFromValues(cols)
			if err != nil {
				return "", err
			}
			if err := s.applyBalance(ctx, tx, userID, eff, false, now); err != nil {
				return "", err
			}
		}
		return id, nil

	case sync.OperationUpdate:
		cols := s.coerce(spec, c)
		if spec.Type == entity.TypeTransaction {
			oldEff, err := effectFromValues(oldRow)
			if err != nil {
				return "", err
			}
			if err := s.applyBalance(ctx, tx, userID, oldEff, true, now); err != nil {
				return "", err
			}
			if err := s.clearDanglingTransferTarget(ctx, tx, userID, cols); err != nil {
				return "", err
			}
		}
		if err := store.UpdateEntity(ctx, tx, spec, c.ServerID, userID, cols, now); err != nil {
			return "", err
		}
		if spec.Type == entity.TypeTransaction {
			newEff, err := effectFromValues(overlay(oldRow, cols))
			if err != nil {
				return "", err
			}
			if err := s.applyBalance(ctx, tx, userID, newEff, false, now); err != nil {
				return "", err
			}
		}
		return c.ServerID, nil

	case sync.OperationDelete:
		if spec.Type == entity.TypeTransaction {
			eff, err := effectFromValues(oldRow)
			if err != nil {
				return "", err
			}
			if err := s.applyBalance(ctx, tx, userID, eff, true, now); err != nil {
				return "", err
			}
		}
		err := store.DeleteEntity(ctx, tx, spec, c.ServerID, userID)
		if errors.Is(err, store.ErrNotFound) {
			// Already gone; deleting twice is a no-op success.
			return c.ServerID, nil
		}
		if err != nil {
			return "", err
		}
		return c.ServerID, nil
	}
	return "", fmt.Errorf("unknown operation %q", c.Operation)
}

// coerce converts the change payload, logging any skipped malformed
// fields instead of failing the change.
func (s *Service) coerce(spec entity.Spec, c sync.Change) map[string]any {
	cols, skipped := Columns(spec, c.Data)
	if len(skipped) > 0 {
		s.logger.Warn("skipped malformed payload fields",
			"component", "syncer",
			"entity_type", c.EntityType,
			"local_id", c.LocalID,
			"fields", skipped)
	}
	return cols
}

// resolveTransactionDefaults fills the required references a pushed
// transaction omitted with the user's lazily-created defaults.
func (s *Service) resolveTransactionDefaults(ctx context.Context, tx store.DBTX, userID string, cols map[string]any, now string) error {
	if asString(cols["book_id"]) == "" {
		id, err := store.EnsureDefaultBook(ctx, tx, userID, now)
		if err != nil {
			return err
		}
		cols["book_id"] = id
	}
	if asString(cols["account_id"]) == "" {
		id, err := store.EnsureDefaultAccount(ctx, tx, userID, now)
		if err != nil {
			return err
		}
		cols["account_id"] = id
	}
	if asString(cols["category_id"]) == "" {
		categoryType := 1
		if asInt(cols["transaction_type"]) == txIncome {
			categoryType = 2
		}
		id, err := store.EnsureDefaultCategory(ctx, tx, userID, categoryType, now)
		if err != nil {
			return err
		}
		cols["category_id"] = id
	}
	if asString(cols["transaction_date"]) == "" {
		t, err := store.ParseTime(now)
		if err != nil {
			return err
		}
		cols["transaction_date"] = t.UTC().Format(dateLayout)
	}
	return nil
}

// clearDanglingTransferTarget nulls a target account reference the store
// cannot resolve for this user. The write then proceeds with the source
// side only; the foreign key would otherwise reject the row before the
// lenient balance path is reached.
func (s *Service) clearDanglingTransferTarget(ctx context.Context, tx store.DBTX, userID string, cols map[string]any) error {
	target := asString(cols["target_account_id"])
	if target == "" {
		return nil
	}
	spec, _ := entity.Lookup(entity.TypeAccount)
	exists, err := store.EntityExists(ctx, tx, spec, target, userID)
	if err != nil {
		return err
	}
	if !exists {
		s.logger.Warn("transfer target account not found, clearing reference",
			"component", "syncer", "target_account_id", target)
		cols["target_account_id"] = nil
	}
	return nil
}

// overlay merges coerced update columns over the stored row, yielding the
// row's effective post-update values.
func overlay(row store.Row, cols map[string]any) map[string]any {
	merged := make(map[string]any, len(row))
	for k, v := range row {
		merged[k] = v
	}
	for k, v := range cols {
		merged[k] = v
	}
	return merged
}
