package syncer

import (
	"context"
	"errors"

	"github.com/fernledger/fern/internal/entity"
	"github.com/fernledger/fern/internal/store"
	"github.com/fernledger/fern/internal/sync"
)

// detectConflict classifies an update/delete against the stored row.
//
// A missing row is a blocking deleted_on_server conflict. A row the
// server modified after the client's last knowledge is a both_modified
// conflict, reported as informational only: under the local-first policy
// the client's write still applies. Creates never reach this check.
func (s *Service) detectConflict(ctx context.Context, q store.DBTX, spec entity.Spec, userID string, c sync.Change) (blocking, info *sync.Conflict, row store.Row, err error) {
	row, err = store.GetEntity(ctx, q, spec, c.ServerID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return &sync.Conflict{
			EntityType:     c.EntityType,
			LocalID:        c.LocalID,
			ServerID:       c.ServerID,
			ConflictType:   sync.ConflictDeletedOnServer,
			LocalData:      c.Data,
			LocalUpdatedAt: c.LocalUpdatedAt,
		}, nil, nil, nil
	}
	if err != nil {
		return nil, nil, nil, err
	}

	serverUpdatedAt := row.String("updated_at")
	if c.LocalUpdatedAt != "" {
		local, localErr := store.ParseTime(c.LocalUpdatedAt)
		server, serverErr := store.ParseTime(serverUpdatedAt)
		if localErr == nil && serverErr == nil && server.After(local) {
			s.logger.Info("server copy newer than client's, applying anyway",
				"component", "syncer",
				"entity_type", c.EntityType,
				"server_id", c.ServerID,
				"server_updated_at", serverUpdatedAt,
				"local_updated_at", c.LocalUpdatedAt)
			info = &sync.Conflict{
				EntityType:      c.EntityType,
				LocalID:         c.LocalID,
				ServerID:        c.ServerID,
				ConflictType:    sync.ConflictBothModified,
				LocalData:       c.Data,
				ServerData:      WireData(spec, row),
				LocalUpdatedAt:  c.LocalUpdatedAt,
				ServerUpdatedAt: serverUpdatedAt,
			}
		}
	}
	return nil, info, row, nil
}
