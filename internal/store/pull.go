package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/fernledger/fern/internal/entity"
)

// ChangesSince returns up to limit rows of one entity type modified after
// the watermark, oldest first, plus whether more remain. It fetches
// limit+1 rows and truncates, so hasMore never needs a second query.
//
// since is compared as stored TEXT; FormatTime's fixed-width layout makes
// the comparison chronological. An empty since matches everything.
func (s *Store) ChangesSince(ctx context.Context, spec entity.Spec, userID, since string, limit int) ([]Row, bool, error) {
	cols := selectColumns(spec)
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE user_id = ? AND updated_at > ?
		ORDER BY updated_at ASC, id ASC
		LIMIT ?
	`, strings.Join(cols, ", "), spec.Table)

	rows, err := s.db.QueryContext(ctx, query, userID, since, limit+1)
	if err != nil {
		return nil, false, fmt.Errorf("query %s changes: %w", spec.Type, err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		row, err := scanRow(rows, cols)
		if err != nil {
			return nil, false, fmt.Errorf("scan %s row: %w", spec.Type, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate %s rows: %w", spec.Type, err)
	}

	hasMore := len(out) > limit
	if hasMore {
		out = out[:limit]
	}
	return out, hasMore, nil
}

// EntityCounts returns the per-type row counts for one user.
func (s *Store) EntityCounts(ctx context.Context, userID string) (map[string]int, error) {
	counts := make(map[string]int, len(entity.Types()))
	for _, typ := range entity.Types() {
		spec, _ := entity.Lookup(typ)
		var n int
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE user_id = ?", spec.Table)
		if err := s.db.QueryRowContext(ctx, query, userID).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", typ, err)
		}
		counts[typ] = n
	}
	return counts, nil
}
