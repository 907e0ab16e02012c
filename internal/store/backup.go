package store

import (
	"context"
	"fmt"
)

// BackupTo writes a consistent, compacted copy of the live database to
// path using VACUUM INTO. Safe to run while the server is serving; the
// copy observes a single point-in-time snapshot.
func (s *Store) BackupTo(ctx context.Context, path string) error {
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", path); err != nil {
		return fmt.Errorf("vacuum into %s: %w", path, err)
	}
	return nil
}
