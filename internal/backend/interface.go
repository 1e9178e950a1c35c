package backend

import (
	"context"
	"time"

	"expensebot/internal/sheets"
)

// CleanupFunc releases what a backend holds open.
type CleanupFunc func() error

// BackendResult is a ready expense store plus its cleanup, which may be nil.
type BackendResult struct {
	Store   sheets.Store
	Cleanup CleanupFunc
	// Ping checks the store for /readyz; nil means always ready.
	Ping func(ctx context.Context) error
}

// Close runs Cleanup if there is one.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

type Config struct {
	Type BackendType

	// Google Sheets
	SheetCacheTTL time.Duration

	// SQLite
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
