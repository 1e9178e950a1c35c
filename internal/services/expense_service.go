package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"expensebot/internal/core"
)

// ExpenseInserter is the local store written on every recorded expense.
type ExpenseInserter interface {
	Insert(ctx context.Context, userID string, rec core.Record, currency string) (int64, error)
}

// SyncPublisher announces stored expenses to the Sheets sync worker.
type SyncPublisher interface {
	PublishExpenseSync(ctx context.Context, id int64, userID string) error
	Close() error
}

// ExpenseService orchestrates expense writes across SQLite and AMQP.
type ExpenseService struct {
	storage   ExpenseInserter
	publisher SyncPublisher
}

// NewExpenseService wires the service. publisher may be nil, in which case
// the worker picks rows up on its periodic pending scan.
func NewExpenseService(storage ExpenseInserter, publisher SyncPublisher) *ExpenseService {
	return &ExpenseService{storage: storage, publisher: publisher}
}

// CreateExpense saves the record locally and then publishes a sync message.
func (s *ExpenseService) CreateExpense(ctx context.Context, userID string, rec core.Record) (int64, error) {
	if s.storage == nil {
		return 0, errors.New("expense storage not configured")
	}
	id, err := s.storage.Insert(ctx, userID, rec, core.DefaultCurrency)
	if err != nil {
		return 0, fmt.Errorf("save expense: %w", err)
	}

	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not available, leaving expense pending", "id", id)
		return id, nil
	}
	if err := s.publisher.PublishExpenseSync(ctx, id, userID); err != nil {
		// saved locally; the worker's pending scan retries it
		slog.ErrorContext(ctx, "Failed to publish sync message", "id", id, "error", err)
	}
	return id, nil
}

// Close closes the publisher. Storage is owned by the caller.
func (s *ExpenseService) Close() error {
	if s.publisher == nil {
		return nil
	}
	if err := s.publisher.Close(); err != nil {
		return fmt.Errorf("close publisher: %w", err)
	}
	return nil
}
