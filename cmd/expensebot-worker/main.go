package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"expensebot/internal/amqp"
	"expensebot/internal/cache"
	"expensebot/internal/cli"
	"expensebot/internal/config"
	applog "expensebot/internal/log"
	gsheet "expensebot/internal/sheets/google"
	"expensebot/internal/storage"
	"expensebot/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	logger.Info("Starting expensebot-worker",
		applog.FieldOperation, applog.OpStartup,
		"db_path", cfg.SQLiteDBPath,
		"batch_size", cfg.SyncBatchSize,
		"interval", cfg.SyncInterval)

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker exited with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *applog.Logger) error {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return err
	}
	defer repo.Close()

	sheetsClient, err := gsheet.NewFromEnv(ctx, cfg.SheetCacheTTL)
	if err != nil {
		return err
	}
	caches := cache.NewManager()
	caches.Register(sheetsClient.TabCache())
	caches.StartCleanup(time.Minute)
	defer caches.Stop()

	w := worker.NewSyncWorker(repo, sheetsClient, cfg.SyncBatchSize)

	g, gctx := errgroup.WithContext(ctx)

	// Periodic pass catches rows whose message was lost or never sent.
	g.Go(func() error { return w.Run(gctx, cfg.SyncInterval) })

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			return err
		}
		defer client.Close()
		g.Go(func() error { return client.ConsumeExpenseSync(gctx, w.HandleSyncMessage) })
		logger.Info("Consuming sync messages", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Warn("AMQP_URL not set; relying on periodic sync only")
	}

	return g.Wait()
}
