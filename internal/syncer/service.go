// Package syncer implements the push/pull synchronization engine: change
// ordering, conflict detection, the per-entity applier with balance
// reconciliation, and paginated pulls of server-side deltas.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fernledger/fern/internal/entity"
	"github.com/fernledger/fern/internal/store"
	"github.com/fernledger/fern/internal/sync"
)

const (
	defaultPullLimit = 100
	maxPullLimit     = 500
)

// ErrInvalidWatermark marks pull requests whose per-type watermark does
// not parse as a timestamp.
var ErrInvalidWatermark = errors.New("invalid watermark")

// Limits bounds pull pagination. Zero values fall back to the package
// defaults.
type Limits struct {
	DefaultPull int
	MaxPull     int
}

// Service orchestrates push and pull for one store.
type Service struct {
	store  *store.Store
	logger *slog.Logger
	limits Limits
	now    func() time.Time
}

// New creates a Service on top of the given store.
func New(st *store.Store, logger *slog.Logger, limits Limits) *Service {
	if limits.DefaultPull <= 0 {
		limits.DefaultPull = defaultPullLimit
	}
	if limits.MaxPull <= 0 {
		limits.MaxPull = maxPullLimit
	}
	return &Service{store: st, logger: logger, limits: limits, now: time.Now}
}

// Push applies a batch of client changes inside one transaction, one
// savepoint per change, and commits once. Per-change failures and
// conflicts are accumulated; only store-level failures abort the batch.
func (s *Service) Push(ctx context.Context, userID string, changes []sync.Change) (*sync.PushResponse, error) {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := store.FormatTime(s.now())
	resp := &sync.PushResponse{
		Accepted:   []sync.Result{},
		Conflicts:  []sync.Conflict{},
		ServerTime: now,
	}

	grouped := sync.GroupByType(changes)
	idx := 0
	for _, typ := range entity.ApplyOrder() {
		bucket := grouped[typ]
		if len(bucket) == 0 {
			continue
		}
		spec, _ := entity.Lookup(typ)
		for _, c := range bucket {
			out, err := s.applyChange(ctx, tx, spec, userID, c, idx, now)
			if err != nil {
				return nil, fmt.Errorf("apply %s change: %w", typ, err)
			}
			idx++

			switch out.Status {
			case Applied:
				resp.Accepted = append(resp.Accepted, out.Result)
				if out.Info != nil {
					resp.Conflicts = append(resp.Conflicts, *out.Info)
				}
			case Conflicted:
				resp.Conflicts = append(resp.Conflicts, *out.Conflict)
			case Failed:
				resp.Accepted = append(resp.Accepted, out.Result)
			}
		}
		delete(grouped, typ)
	}

	// Whatever remains grouped under an unregistered type fails change by
	// change without touching the rest of the batch.
	for typ, bucket := range grouped {
		for _, c := range bucket {
			s.logger.Warn("rejected change for unknown entity type",
				"component", "syncer", "entity_type", typ, "local_id", c.LocalID)
			resp.Accepted = append(resp.Accepted, sync.Result{
				EntityType: c.EntityType,
				Operation:  c.Operation,
				LocalID:    c.LocalID,
				ServerID:   c.ServerID,
				Success:    false,
				Error:      fmt.Errorf("%w %q", store.ErrUnknownEntityType, typ).Error(),
			})
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit push batch: %w", err)
	}

	s.logger.Info("push applied",
		"component", "syncer",
		"action", "push",
		"changes", len(changes),
		"accepted", len(resp.Accepted),
		"conflicts", len(resp.Conflicts))
	return resp, nil
}

// Pull returns, per requested entity type, the rows modified after that
// type's watermark. Types the registry does not know are skipped
// silently. HasMore aggregates truncation across types; clients re-pull
// with advanced watermarks until it is false.
func (s *Service) Pull(ctx context.Context, userID string, req sync.PullRequest) (*sync.PullResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = s.limits.DefaultPull
	}
	if limit > s.limits.MaxPull {
		limit = s.limits.MaxPull
	}

	resp := &sync.PullResponse{
		Changes:    make(map[string][]sync.EntityData, len(req.LastSyncTimes)),
		ServerTime: store.FormatTime(s.now()),
	}

	// Iterate the registry order so responses are deterministic.
	for _, typ := range entity.Types() {
		since, requested := req.LastSyncTimes[typ]
		if !requested {
			continue
		}
		spec, _ := entity.Lookup(typ)

		sinceStored := ""
		if since != "" {
			t, err := store.ParseTime(since)
			if err != nil {
				return nil, fmt.Errorf("%w for %s: %v", ErrInvalidWatermark, typ, err)
			}
			sinceStored = store.FormatTime(t)
		}

		rows, hasMore, err := s.store.ChangesSince(ctx, spec, userID, sinceStored, limit)
		if err != nil {
			return nil, err
		}

		// Incremental pulls surface rows as updates; a fresh client with
		// no watermark receives everything as creates.
		operation := sync.OperationUpdate
		if sinceStored == "" {
			operation = sync.OperationCreate
		}

		items := make([]sync.EntityData, 0, len(rows))
		for _, row := range rows {
			item := WireData(spec, row)
			item["operation"] = operation
			items = append(items, item)
		}
		resp.Changes[typ] = items
		if hasMore {
			resp.HasMore = true
		}
	}

	for typ := range req.LastSyncTimes {
		if _, ok := entity.Lookup(typ); !ok {
			s.logger.Debug("skipping unknown entity type in pull",
				"component", "syncer", "entity_type", typ)
		}
	}

	return resp, nil
}

// Status reports per-type entity counts for diagnostics.
func (s *Service) Status(ctx context.Context, userID string) (*sync.StatusResponse, error) {
	counts, err := s.store.EntityCounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &sync.StatusResponse{EntityCounts: counts}, nil
}
