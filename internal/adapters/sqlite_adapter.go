package adapters

import (
	"context"
	"strconv"

	"expensebot/internal/core"
	"expensebot/internal/services"
	"expensebot/internal/sheets"
)

// ExpenseLister reads a user's expenses back from the local store.
type ExpenseLister interface {
	ReadAll(ctx context.Context, userID string) ([]core.Record, error)
}

// SQLiteAdapter makes the SQLite repository plus the publishing service look
// like any other expense store to the bot.
type SQLiteAdapter struct {
	lister  ExpenseLister
	service *services.ExpenseService
}

var _ sheets.Store = (*SQLiteAdapter)(nil)

func NewSQLiteAdapter(lister ExpenseLister, service *services.ExpenseService) *SQLiteAdapter {
	return &SQLiteAdapter{lister: lister, service: service}
}

// Append implements sheets.ExpenseAppender.
func (a *SQLiteAdapter) Append(ctx context.Context, userID string, rec core.Record) (string, error) {
	id, err := a.service.CreateExpense(ctx, userID, rec)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(id, 10), nil
}

// ReadAll implements sheets.ExpenseReader.
func (a *SQLiteAdapter) ReadAll(ctx context.Context, userID string) ([]core.Record, error) {
	return a.lister.ReadAll(ctx, userID)
}
