package adapters

import (
	"context"
	"path/filepath"
	"testing"

	"expensebot/internal/core"
	"expensebot/internal/services"
	"expensebot/internal/storage"
)

type recordingPublisher struct{ ids []int64 }

func (p *recordingPublisher) PublishExpenseSync(_ context.Context, id int64, _ string) error {
	p.ids = append(p.ids, id)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func TestSQLiteAdapterRoundTrip(t *testing.T) {
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "expenses.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer repo.Close()

	pub := &recordingPublisher{}
	a := NewSQLiteAdapter(repo, services.NewExpenseService(repo, pub))
	ctx := context.Background()

	ref, err := a.Append(ctx, "77", core.Record{Date: "2025-06-01", Category: "Lunch", Amount: 12.5})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if ref != "1" || len(pub.ids) != 1 || pub.ids[0] != 1 {
		t.Fatalf("ref=%q published=%v", ref, pub.ids)
	}

	got, err := a.ReadAll(ctx, "77")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 1 || got[0].Category != "Lunch" || got[0].Amount != 12.5 {
		t.Fatalf("unexpected records: %+v", got)
	}
}
