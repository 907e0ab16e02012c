package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/fernledger/fern/internal/entity"
	"github.com/shopspring/decimal"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "fern.db"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustSpec(t *testing.T, typ string) entity.Spec {
	t.Helper()
	spec, ok := entity.Lookup(typ)
	if !ok {
		t.Fatalf("unknown entity type %q", typ)
	}
	return spec
}

func TestMigrationsCreateAllEntityTables(t *testing.T) {
	// Given: a fresh database with migrations applied
	s := newTestStore(t)

	// Then: every registered entity table exists with its declared columns
	ctx := context.Background()
	for _, typ := range entity.Types() {
		spec := mustSpec(t, typ)
		if _, err := GetEntity(ctx, s.DB(), spec, "missing", "u1"); err != ErrNotFound {
			t.Errorf("probe of %s table: got %v, want ErrNotFound", spec.Table, err)
		}
	}
}

func TestInsertGetUpdateDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	spec := mustSpec(t, entity.TypeBook)
	now := FormatTime(time.Now())

	// Given: an inserted book
	err := InsertEntity(ctx, s.DB(), spec, "b1", "u1", map[string]any{
		"name":      "Household",
		"book_type": int64(0),
	}, now)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	// When: it is read back
	row, err := GetEntity(ctx, s.DB(), spec, "b1", "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if row.String("name") != "Household" {
		t.Errorf("name = %q, want Household", row.String("name"))
	}
	if row.String("updated_at") != now {
		t.Errorf("updated_at = %q, want %q", row.String("updated_at"), now)
	}

	// When: it is updated with a later timestamp
	later := FormatTime(time.Now().Add(time.Second))
	err = UpdateEntity(ctx, s.DB(), spec, "b1", "u1", map[string]any{"name": "Shared"}, later)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	row, _ = GetEntity(ctx, s.DB(), spec, "b1", "u1")
	if row.String("name") != "Shared" {
		t.Errorf("name after update = %q, want Shared", row.String("name"))
	}
	if row.String("updated_at") != later {
		t.Errorf("updated_at not bumped: %q", row.String("updated_at"))
	}

	// When: it is deleted
	if err := DeleteEntity(ctx, s.DB(), spec, "b1", "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	// Then: reads and repeat deletes report ErrNotFound
	if _, err := GetEntity(ctx, s.DB(), spec, "b1", "u1"); err != ErrNotFound {
		t.Errorf("get after delete: got %v, want ErrNotFound", err)
	}
	if err := DeleteEntity(ctx, s.DB(), spec, "b1", "u1"); err != ErrNotFound {
		t.Errorf("second delete: got %v, want ErrNotFound", err)
	}
}

func TestOwnerScoping(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	spec := mustSpec(t, entity.TypeBook)
	now := FormatTime(time.Now())

	// Given: a book owned by u1
	if err := InsertEntity(ctx, s.DB(), spec, "b1", "u1", map[string]any{"name": "Mine"}, now); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// Then: u2 cannot read, update or delete it
	if _, err := GetEntity(ctx, s.DB(), spec, "b1", "u2"); err != ErrNotFound {
		t.Errorf("cross-user get: got %v, want ErrNotFound", err)
	}
	if err := UpdateEntity(ctx, s.DB(), spec, "b1", "u2", map[string]any{"name": "Stolen"}, now); err != ErrNotFound {
		t.Errorf("cross-user update: got %v, want ErrNotFound", err)
	}
	if err := DeleteEntity(ctx, s.DB(), spec, "b1", "u2"); err != ErrNotFound {
		t.Errorf("cross-user delete: got %v, want ErrNotFound", err)
	}
}

func TestSavepointRollbackIsolatesOneChange(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	spec := mustSpec(t, entity.TypeBook)
	now := FormatTime(time.Now())

	tx, err := s.BeginTx(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	// Given: one change applied and released
	sp1, err := NewSavepoint(ctx, tx, "sp_change_0")
	if err != nil {
		t.Fatalf("savepoint: %v", err)
	}
	if err := InsertEntity(ctx, tx, spec, "keep", "u1", map[string]any{"name": "Kept"}, now); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := sp1.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}

	// And: a second change rolled back
	sp2, err := NewSavepoint(ctx, tx, "sp_change_1")
	if err != nil {
		t.Fatalf("savepoint: %v", err)
	}
	if err := InsertEntity(ctx, tx, spec, "drop", "u1", map[string]any{"name": "Dropped"}, now); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := sp2.Rollback(ctx); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	// When: the outer transaction commits
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	// Then: only the released change survives
	if _, err := GetEntity(ctx, s.DB(), spec, "keep", "u1"); err != nil {
		t.Errorf("released change missing: %v", err)
	}
	if _, err := GetEntity(ctx, s.DB(), spec, "drop", "u1"); err != ErrNotFound {
		t.Errorf("rolled-back change persisted: %v", err)
	}
}

func TestChangesSincePagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	spec := mustSpec(t, entity.TypeBook)

	// Given: five books with strictly increasing updated_at
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		ts := FormatTime(base.Add(time.Duration(i) * time.Second))
		id := string(rune('a' + i))
		if err := InsertEntity(ctx, s.DB(), spec, id, "u1", map[string]any{"name": "B" + id}, ts); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}

	// When: the first page of two is pulled from the zero watermark
	rows, hasMore, err := s.ChangesSince(ctx, spec, "u1", "", 2)
	if err != nil {
		t.Fatalf("first page: %v", err)
	}

	// Then: the two oldest rows come back and more remain
	if len(rows) != 2 || !hasMore {
		t.Fatalf("first page: %d rows hasMore=%v, want 2 rows hasMore=true", len(rows), hasMore)
	}
	if rows[0].String("id") != "a" || rows[1].String("id") != "b" {
		t.Errorf("first page ids = %s, %s, want a, b", rows[0].String("id"), rows[1].String("id"))
	}

	// When: the next page starts from the last row's updated_at
	rows, hasMore, err = s.ChangesSince(ctx, spec, "u1", rows[1].String("updated_at"), 10)
	if err != nil {
		t.Fatalf("second page: %v", err)
	}

	// Then: the remaining three rows come back with no more
	if len(rows) != 3 || hasMore {
		t.Fatalf("second page: %d rows hasMore=%v, want 3 rows hasMore=false", len(rows), hasMore)
	}
	if rows[0].String("id") != "c" {
		t.Errorf("second page starts at %s, want c", rows[0].String("id"))
	}
}

func TestChangesSinceExactLimitHasNoMore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	spec := mustSpec(t, entity.TypeBook)
	now := FormatTime(time.Now())
	for _, id := range []string{"x", "y"} {
		if err := InsertEntity(ctx, s.DB(), spec, id, "u1", map[string]any{"name": id}, now); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	rows, hasMore, err := s.ChangesSince(ctx, spec, "u1", "", 2)
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	if len(rows) != 2 || hasMore {
		t.Errorf("got %d rows hasMore=%v, want 2 rows hasMore=false", len(rows), hasMore)
	}
}

func TestDefaultEntitiesAreIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := FormatTime(time.Now())

	bookA, err := EnsureDefaultBook(ctx, s.DB(), "u1", now)
	if err != nil {
		t.Fatalf("first book: %v", err)
	}
	bookB, err := EnsureDefaultBook(ctx, s.DB(), "u1", now)
	if err != nil {
		t.Fatalf("second book: %v", err)
	}
	if bookA != bookB {
		t.Errorf("default book not reused: %s vs %s", bookA, bookB)
	}

	accA, _ := EnsureDefaultAccount(ctx, s.DB(), "u1", now)
	accB, _ := EnsureDefaultAccount(ctx, s.DB(), "u1", now)
	if accA != accB {
		t.Errorf("default account not reused: %s vs %s", accA, accB)
	}

	// Expense and income catch-alls are distinct categories
	expense, _ := EnsureDefaultCategory(ctx, s.DB(), "u1", 1, now)
	income, _ := EnsureDefaultCategory(ctx, s.DB(), "u1", 2, now)
	if expense == income {
		t.Error("expense and income defaults share one category")
	}
	expenseAgain, _ := EnsureDefaultCategory(ctx, s.DB(), "u1", 1, now)
	if expense != expenseAgain {
		t.Errorf("default category not reused: %s vs %s", expense, expenseAgain)
	}

	// Defaults are per user
	other, _ := EnsureDefaultBook(ctx, s.DB(), "u2", now)
	if other == bookA {
		t.Error("default book shared across users")
	}
}

func TestAccountBalanceRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := FormatTime(time.Now())

	accID, err := EnsureDefaultAccount(ctx, s.DB(), "u1", now)
	if err != nil {
		t.Fatalf("account: %v", err)
	}

	if err := ClaimAccount(ctx, s.DB(), accID, "u1"); err != nil {
		t.Fatalf("claim: %v", err)
	}

	bal, err := AccountBalance(ctx, s.DB(), accID, "u1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !bal.IsZero() {
		t.Errorf("fresh balance = %s, want 0", bal)
	}

	want := decimal.RequireFromString("123.45")
	if err := SetAccountBalance(ctx, s.DB(), accID, "u1", want, now); err != nil {
		t.Fatalf("set balance: %v", err)
	}
	bal, _ = AccountBalance(ctx, s.DB(), accID, "u1")
	if !bal.Equal(want) {
		t.Errorf("balance = %s, want %s", bal, want)
	}

	if err := ClaimAccount(ctx, s.DB(), "missing", "u1"); err != ErrNotFound {
		t.Errorf("claim of missing account: got %v, want ErrNotFound", err)
	}
}

func TestEntityCounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := FormatTime(time.Now())

	if _, err := EnsureDefaultBook(ctx, s.DB(), "u1", now); err != nil {
		t.Fatalf("book: %v", err)
	}
	if _, err := EnsureDefaultAccount(ctx, s.DB(), "u1", now); err != nil {
		t.Fatalf("account: %v", err)
	}

	counts, err := s.EntityCounts(ctx, "u1")
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if len(counts) != len(entity.Types()) {
		t.Errorf("got %d types, want %d", len(counts), len(entity.Types()))
	}
	if counts[entity.TypeBook] != 1 || counts[entity.TypeAccount] != 1 {
		t.Errorf("book=%d account=%d, want 1 and 1", counts[entity.TypeBook], counts[entity.TypeAccount])
	}
	if counts[entity.TypeTransaction] != 0 {
		t.Errorf("transaction count = %d, want 0", counts[entity.TypeTransaction])
	}
}

func TestTimeLayoutSortsChronologically(t *testing.T) {
	// Given: two timestamps where naive RFC 3339 formatting would sort
	// the later one first (shorter fraction)
	early := time.Date(2026, 3, 1, 12, 0, 0, 900000000, time.UTC)
	late := time.Date(2026, 3, 1, 12, 0, 1, 0, time.UTC)

	if !(FormatTime(early) < FormatTime(late)) {
		t.Errorf("lexicographic order broken: %q !< %q", FormatTime(early), FormatTime(late))
	}

	parsed, err := ParseTime(FormatTime(early))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !parsed.Equal(early) {
		t.Errorf("round trip changed the instant: %v vs %v", parsed, early)
	}
}

func TestBackupToProducesOpenableCopy(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := FormatTime(time.Now())
	if _, err := EnsureDefaultBook(ctx, s.DB(), "u1", now); err != nil {
		t.Fatalf("seed: %v", err)
	}

	dest := filepath.Join(t.TempDir(), "backup.db")
	if err := s.BackupTo(ctx, dest); err != nil {
		t.Fatalf("backup: %v", err)
	}

	backup, err := New(dest)
	if err != nil {
		t.Fatalf("open backup: %v", err)
	}
	defer backup.Close()
	counts, err := backup.EntityCounts(ctx, "u1")
	if err != nil {
		t.Fatalf("counts on backup: %v", err)
	}
	if counts[entity.TypeBook] != 1 {
		t.Errorf("backup book count = %d, want 1", counts[entity.TypeBook])
	}
}
