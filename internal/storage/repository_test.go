package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"expensebot/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "expenses.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestRepositoryAppendReadAll(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	recs := []core.Record{
		{Date: "2025-03-01", Category: "Coffee", Amount: 3.5},
		{Date: "2025-03-02", Category: "Gas", Amount: 45.99, Note: "fuel"},
	}
	for _, r := range recs {
		if _, err := repo.Append(ctx, "u1", r); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if _, err := repo.Append(ctx, "u2", core.Record{Date: "2025-03-03", Category: "Rent", Amount: 900}); err != nil {
		t.Fatalf("append other user: %v", err)
	}

	got, err := repo.ReadAll(ctx, "u1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %+v", got)
	}
	for i := range recs {
		if got[i] != recs[i] {
			t.Fatalf("record %d = %+v, want %+v", i, got[i], recs[i])
		}
	}

	none, err := repo.ReadAll(ctx, "nobody")
	if err != nil || len(none) != 0 {
		t.Fatalf("expected no records, got %+v, %v", none, err)
	}
}

func TestRepositoryRejectsInvalid(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.Append(context.Background(), "u1", core.Record{Date: "2025-03-01", Amount: 1})
	if !errors.Is(err, core.ErrEmptyCategory) {
		t.Fatalf("expected ErrEmptyCategory, got %v", err)
	}
}

func TestRepositorySyncLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id1, err := repo.Insert(ctx, "u1", core.Record{Date: "2025-03-01", Category: "A", Amount: 1}, "$")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	id2, err := repo.Insert(ctx, "u1", core.Record{Date: "2025-03-02", Category: "B", Amount: 2}, "$")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	pending, err := repo.PendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != id1 || pending[0].SyncStatus != SyncPending {
		t.Fatalf("unexpected pending rows: %+v", pending)
	}

	if err := repo.MarkSynced(ctx, id1); err != nil {
		t.Fatalf("mark synced: %v", err)
	}
	if err := repo.MarkSyncError(ctx, id2); err != nil {
		t.Fatalf("mark error: %v", err)
	}

	e, err := repo.GetExpense(ctx, id1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if e.SyncStatus != SyncSynced || e.UserID != "u1" || e.Record.Category != "A" || e.CreatedAt.IsZero() {
		t.Fatalf("unexpected expense: %+v", e)
	}

	pending, err = repo.PendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != id2 || pending[0].SyncStatus != SyncError {
		t.Fatalf("errored row should be retried: %+v", pending)
	}
}

func TestRepositoryNotFound(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	if _, err := repo.GetExpense(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.MarkSynced(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRunMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	for i := 0; i < 2; i++ {
		if err := RunMigrations(path); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
}

func TestRepositoryClaimForSync(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.Insert(ctx, "u1", core.Record{Date: "2025-01-02", Category: "A", Amount: 1}, "$")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	claimed, err := repo.ClaimForSync(ctx, id)
	if err != nil || !claimed {
		t.Fatalf("first claim: %v %v", claimed, err)
	}
	if claimed, err := repo.ClaimForSync(ctx, id); err != nil || claimed {
		t.Fatalf("second claim should lose: %v %v", claimed, err)
	}
	pending, err := repo.PendingSync(ctx, 10)
	if err != nil || len(pending) != 0 {
		t.Fatalf("claimed row must not be pending: %+v %v", pending, err)
	}

	// errored rows can be claimed again, synced rows cannot
	if err := repo.MarkSyncError(ctx, id); err != nil {
		t.Fatalf("mark error: %v", err)
	}
	if claimed, _ := repo.ClaimForSync(ctx, id); !claimed {
		t.Fatal("expected to reclaim errored row")
	}
	if err := repo.MarkSynced(ctx, id); err != nil {
		t.Fatalf("mark synced: %v", err)
	}
	if claimed, _ := repo.ClaimForSync(ctx, id); claimed {
		t.Fatal("synced row must not be claimed")
	}
	if claimed, err := repo.ClaimForSync(ctx, 999); err != nil || claimed {
		t.Fatalf("unknown id: %v %v", claimed, err)
	}
}

func TestRepositoryReleaseStaleClaims(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	id, err := repo.Insert(ctx, "u1", core.Record{Date: "2025-01-02", Category: "A", Amount: 1}, "$")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if claimed, _ := repo.ClaimForSync(ctx, id); !claimed {
		t.Fatal("expected claim")
	}

	now = now.Add(time.Minute)
	if n, err := repo.ReleaseStaleClaims(ctx, 5*time.Minute); err != nil || n != 0 {
		t.Fatalf("fresh claim released: %d %v", n, err)
	}

	now = now.Add(10 * time.Minute)
	if n, err := repo.ReleaseStaleClaims(ctx, 5*time.Minute); err != nil || n != 1 {
		t.Fatalf("stale claim not released: %d %v", n, err)
	}
	e, err := repo.GetExpense(ctx, id)
	if err != nil || e.SyncStatus != SyncPending {
		t.Fatalf("expected pending after release, got %+v %v", e, err)
	}
}
