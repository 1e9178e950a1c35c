package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"expensebot/internal/adapters"
	"expensebot/internal/amqp"
	"expensebot/internal/cache"
	"expensebot/internal/config"
	applog "expensebot/internal/log"
	"expensebot/internal/services"
	gsheet "expensebot/internal/sheets/google"
	"expensebot/internal/sheets/memory"
	"expensebot/internal/storage"
)

const cacheCleanupInterval = time.Minute

type DefaultFactory struct {
	logger *applog.Logger
}

func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(applog.ComponentBackend)}
}

// ConfigFromAppConfig picks the backend settings out of the app config.
func ConfigFromAppConfig(cfg *config.Config) (Config, error) {
	if cfg == nil {
		return Config{}, errors.New("app config is nil")
	}
	bt := BackendType(cfg.DataBackend)
	if !bt.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", cfg.DataBackend)
	}
	return Config{
		Type:          bt,
		SheetCacheTTL: cfg.SheetCacheTTL,
		SQLiteDBPath:  cfg.SQLiteDBPath,
		AMQPURL:       cfg.AMQPURL,
		AMQPExchange:  cfg.AMQPExchange,
		AMQPQueue:     cfg.AMQPQueue,
	}, nil
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case MemoryBackend:
		f.logger.Warn("Using in-memory backend; expenses are lost on restart")
		return &BackendResult{Store: memory.New()}, nil
	default:
		return nil, fmt.Errorf("invalid backend type: %s", config.Type)
	}
}

// createSQLiteBackend stores locally and, when AMQP is configured, notifies
// the sync worker. A broker outage at start-up is not fatal.
func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	var publisher services.SyncPublisher
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without sync messages", applog.FieldError, err)
		} else {
			publisher = client
			f.logger.Info("Initialized AMQP client", "exchange", config.AMQPExchange, "queue", config.AMQPQueue)
		}
	}

	svc := services.NewExpenseService(repo, publisher)
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath, "amqp_enabled", publisher != nil)

	return &BackendResult{
		Store: adapters.NewSQLiteAdapter(repo, svc),
		Cleanup: func() error {
			return errors.Join(svc.Close(), repo.Close())
		},
		Ping: repo.Ping,
	}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	client, err := gsheet.NewFromEnv(ctx, config.SheetCacheTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	caches := cache.NewManager()
	caches.Register(client.TabCache())
	caches.StartCleanup(cacheCleanupInterval)

	f.logger.Info("Initialized Google Sheets backend", "cache_ttl", config.SheetCacheTTL)
	return &BackendResult{Store: client, Cleanup: caches.Stop}, nil
}
