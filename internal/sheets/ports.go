package sheets

import (
	"context"

	"expensebot/internal/core"
)

// Ports for outbound adapters. userID is an opaque per-conversation key.
type (
	ExpenseAppender interface {
		Append(ctx context.Context, userID string, r core.Record) (ref string, err error)
	}

	// ExpenseReader returns every stored record of a user, oldest first.
	ExpenseReader interface {
		ReadAll(ctx context.Context, userID string) ([]core.Record, error)
	}

	Store interface {
		ExpenseAppender
		ExpenseReader
	}
)
