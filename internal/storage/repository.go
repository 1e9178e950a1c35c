package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"expensebot/internal/core"
	applog "expensebot/internal/log"
	ports "expensebot/internal/sheets"

	_ "modernc.org/sqlite"
)

// Sync states of a stored expense.
const (
	SyncPending = "pending"
	SyncSyncing = "syncing"
	SyncSynced  = "synced"
	SyncError   = "error"
)

const timestampLayout = "2006-01-02 15:04:05"

var ErrNotFound = errors.New("expense not found")

var _ ports.Store = (*SQLiteRepository)(nil)

// Expense is a stored row, including its sync bookkeeping.
type Expense struct {
	ID         int64
	UserID     string
	Record     core.Record
	Currency   string
	SyncStatus string
	CreatedAt  time.Time
}

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; avoids SQLITE_BUSY under concurrent chats.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Append implements sheets.ExpenseAppender. The returned ref is the row id.
func (r *SQLiteRepository) Append(ctx context.Context, userID string, rec core.Record) (string, error) {
	id, err := r.Insert(ctx, userID, rec, core.DefaultCurrency)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(id, 10), nil
}

// Insert stores the record as pending sync and returns its id.
func (r *SQLiteRepository) Insert(ctx context.Context, userID string, rec core.Record, currency string) (int64, error) {
	if err := rec.Validate(); err != nil {
		return 0, fmt.Errorf("validation failed: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (user_id, date, category, amount, currency, note, sync_status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		userID, rec.Date, rec.Category, rec.Amount, currency, rec.Note, SyncPending)
	if err != nil {
		return 0, fmt.Errorf("insert expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read expense id: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved to SQLite", applog.FieldComponent, applog.ComponentStorage,
		"id", id,
		"category", rec.Category,
		"amount", rec.Amount,
		"date", rec.Date)

	return id, nil
}

// ReadAll implements sheets.ExpenseReader.
func (r *SQLiteRepository) ReadAll(ctx context.Context, userID string) ([]core.Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT date, category, amount, note FROM expenses WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Record
	for rows.Next() {
		var rec core.Record
		if err := rows.Scan(&rec.Date, &rec.Category, &rec.Amount, &rec.Note); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}

const expenseColumns = `id, user_id, date, category, amount, currency, note, sync_status,
	CAST(strftime('%s', created_at) AS INTEGER)`

func scanExpense(sc interface{ Scan(...any) error }) (Expense, error) {
	var (
		e       Expense
		created int64
	)
	err := sc.Scan(&e.ID, &e.UserID, &e.Record.Date, &e.Record.Category, &e.Record.Amount,
		&e.Currency, &e.Record.Note, &e.SyncStatus, &created)
	e.CreatedAt = time.Unix(created, 0).UTC()
	return e, err
}

// GetExpense loads one row by id.
func (r *SQLiteRepository) GetExpense(ctx context.Context, id int64) (*Expense, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get expense %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get expense %d: %w", id, err)
	}
	return &e, nil
}

// PendingSync returns up to limit rows not yet copied to Sheets, oldest first.
// Rows in the error state are retried as well.
func (r *SQLiteRepository) PendingSync(ctx context.Context, limit int) ([]Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE sync_status IN (?, ?) ORDER BY id LIMIT ?`,
		SyncPending, SyncError, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync expenses: %w", err)
	}
	defer rows.Close()

	var out []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ClaimForSync moves a pending or errored row to syncing. It reports false
// when another worker already holds the row or it is synced.
func (r *SQLiteRepository) ClaimForSync(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET sync_status = ?, claimed_at = ?
		 WHERE id = ? AND sync_status IN (?, ?)`,
		SyncSyncing, r.now().UTC().Format(timestampLayout), id, SyncPending, SyncError)
	if err != nil {
		return false, fmt.Errorf("claim expense %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim expense %d: %w", id, err)
	}
	return n == 1, nil
}

// ReleaseStaleClaims puts rows stuck in syncing for longer than olderThan
// back to pending, so a crashed worker does not strand them.
func (r *SQLiteRepository) ReleaseStaleClaims(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := r.now().UTC().Add(-olderThan).Format(timestampLayout)
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET sync_status = ?, claimed_at = NULL
		 WHERE sync_status = ? AND claimed_at <= ?`,
		SyncPending, SyncSyncing, cutoff)
	if err != nil {
		return 0, fmt.Errorf("release stale claims: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("release stale claims: %w", err)
	}
	if n > 0 {
		slog.WarnContext(ctx, "Released stale sync claims", applog.FieldComponent, applog.ComponentStorage, "count", n, "older_than", olderThan)
	}
	return n, nil
}

// MarkSynced flags the row as copied to Sheets.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	return r.setSyncStatus(ctx, id, SyncSynced)
}

// MarkSyncError flags the row for a later retry.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	return r.setSyncStatus(ctx, id, SyncError)
}

func (r *SQLiteRepository) setSyncStatus(ctx context.Context, id int64, status string) error {
	var syncedAt any
	if status == SyncSynced {
		syncedAt = r.now().UTC().Format(timestampLayout)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET sync_status = ?, synced_at = ?, claimed_at = NULL WHERE id = ?`, status, syncedAt, id)
	if err != nil {
		return fmt.Errorf("mark expense %d %s: %w", id, status, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("mark expense %d %s: %w", id, status, ErrNotFound)
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
