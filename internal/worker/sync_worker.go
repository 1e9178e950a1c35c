package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"expensebot/internal/amqp"
	applog "expensebot/internal/log"
	"expensebot/internal/sheets"
	"expensebot/internal/storage"

	"golang.org/x/sync/errgroup"
)

// Repository is the slice of the SQLite store the worker needs.
type Repository interface {
	GetExpense(ctx context.Context, id int64) (*storage.Expense, error)
	PendingSync(ctx context.Context, limit int) ([]storage.Expense, error)
	ClaimForSync(ctx context.Context, id int64) (bool, error)
	ReleaseStaleClaims(ctx context.Context, olderThan time.Duration) (int64, error)
	MarkSynced(ctx context.Context, id int64) error
	MarkSyncError(ctx context.Context, id int64) error
}

const (
	defaultConcurrency  = 4
	defaultClaimTimeout = 5 * time.Minute
)

// SyncWorker copies expenses from SQLite to the users' sheets.
type SyncWorker struct {
	storage     Repository
	sheets      sheets.ExpenseAppender
	batchSize    int
	concurrency  int
	claimTimeout time.Duration
}

func NewSyncWorker(storage Repository, sheets sheets.ExpenseAppender, batchSize int) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &SyncWorker{
		storage:      storage,
		sheets:       sheets,
		batchSize:    batchSize,
		concurrency:  defaultConcurrency,
		claimTimeout: defaultClaimTimeout,
	}
}

// HandleSyncMessage processes one AMQP sync message.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.ExpenseSyncMessage) error {
	slog.DebugContext(ctx, "Processing sync message", applog.FieldComponent, applog.ComponentWorker, "id", msg.ID, "user_id", msg.UserID)

	expense, err := w.storage.GetExpense(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("get expense from storage: %w", err)
	}
	if expense.SyncStatus == storage.SyncSynced {
		// redelivery after a successful append
		slog.DebugContext(ctx, "Expense already synced", applog.FieldComponent, applog.ComponentWorker, "id", msg.ID)
		return nil
	}
	_, err = w.syncExpense(ctx, *expense)
	return err
}

// ProcessPending syncs one batch of rows that are still pending or errored.
// It is the fallback for lost AMQP messages and worker downtime.
func (w *SyncWorker) ProcessPending(ctx context.Context) (int, error) {
	if _, err := w.storage.ReleaseStaleClaims(ctx, w.claimTimeout); err != nil {
		slog.ErrorContext(ctx, "Failed to release stale sync claims", applog.FieldComponent, applog.ComponentWorker, "error", err)
	}

	pending, err := w.storage.PendingSync(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("get pending expenses: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	var synced atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for _, e := range pending {
		g.Go(func() error {
			appended, err := w.syncExpense(gctx, e)
			if err != nil {
				slog.ErrorContext(gctx, "Failed to sync pending expense", applog.FieldComponent, applog.ComponentWorker, "id", e.ID, "error", err)
				return nil
			}
			if appended {
				synced.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(synced.Load()), err
	}

	slog.InfoContext(ctx, "Processed pending expenses", applog.FieldComponent, applog.ComponentWorker,
		"total", len(pending),
		"synced", synced.Load())
	return int(synced.Load()), ctx.Err()
}

// Run calls ProcessPending every interval until ctx is done.
func (w *SyncWorker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := w.ProcessPending(ctx); err != nil && ctx.Err() == nil {
			slog.ErrorContext(ctx, "Pending sync pass failed", applog.FieldComponent, applog.ComponentWorker, "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// syncExpense appends e to the user's sheet once. It reports false without
// appending when another pass holds the row or already synced it.
func (w *SyncWorker) syncExpense(ctx context.Context, e storage.Expense) (bool, error) {
	claimed, err := w.storage.ClaimForSync(ctx, e.ID)
	if err != nil {
		return false, fmt.Errorf("claim expense: %w", err)
	}
	if !claimed {
		slog.DebugContext(ctx, "Expense claimed elsewhere, skipping", applog.FieldComponent, applog.ComponentWorker, "id", e.ID)
		return false, nil
	}

	ref, err := w.sheets.Append(ctx, e.UserID, e.Record)
	if err != nil {
		if markErr := w.storage.MarkSyncError(ctx, e.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", applog.FieldComponent, applog.ComponentWorker, "id", e.ID, "error", markErr)
		}
		return false, fmt.Errorf("append to sheets: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, e.ID); err != nil {
		// the row stays syncing until its claim goes stale, then may be appended again
		slog.ErrorContext(ctx, "Failed to mark as synced", applog.FieldComponent, applog.ComponentWorker, "id", e.ID, "error", err)
	}

	slog.InfoContext(ctx, "Synced expense", applog.FieldComponent, applog.ComponentWorker, applog.FieldOperation, applog.OpSync,
		"id", e.ID,
		"user_id", e.UserID,
		"sheets_ref", ref)
	return true, nil
}
