package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"expensebot/internal/backend"
	"expensebot/internal/bot"
	"expensebot/internal/cli"
	"expensebot/internal/config"
	apphttp "expensebot/internal/http"
	applog "expensebot/internal/log"
	"expensebot/internal/middleware/ratelimit"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger, nil)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Expense bot exited with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Expense bot stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *applog.Logger) error {
	backendCfg, err := backend.ConfigFromAppConfig(cfg)
	if err != nil {
		return err
	}
	store, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Backend cleanup failed", applog.FieldError, err)
		}
	}()

	var opts []bot.Option
	opts = append(opts, bot.WithLogger(logger))
	if cfg.RateLimitPerMinute > 0 {
		userLimiter := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute})
		defer func() {
			userLimiter.Stop()
			logger.Info("User rate limiter stopped", "rate_limited", userLimiter.Hits())
		}()
		opts = append(opts, bot.WithLimiter(userLimiter))
	}
	handler := bot.NewHandler(store.Store, cfg.BotType, opts...)

	srvOpts := apphttp.Options{
		Platform: cfg.BotType,
		Ready:    store.Ping,
		Logger:   logger.WithComponent(applog.ComponentHTTP),
	}

	g, gctx := errgroup.WithContext(ctx)

	switch cfg.BotType {
	case config.BotTelegram:
		tg, err := bot.NewTelegramBot(cfg.TelegramBotToken, handler, logger)
		if err != nil {
			return err
		}
		g.Go(func() error { return tg.Run(gctx) })
	case config.BotWhatsApp:
		sender, err := bot.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioPhoneNumber)
		if err != nil {
			return err
		}
		var whOpts []bot.WebhookOption
		if cfg.TwilioValidateSignature {
			whOpts = append(whOpts, bot.WithSignatureValidation(cfg.TwilioAuthToken, cfg.TwilioWebhookURL))
		} else {
			logger.Warn("Twilio signature validation is disabled")
		}
		srvOpts.Webhook = bot.NewWhatsAppWebhook(handler, sender, whOpts...)
		if cfg.HTTPRateLimitPerMinute > 0 {
			srvOpts.Limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.HTTPRateLimitPerMinute})
		}
		logger.Info("WhatsApp webhook ready", "path", "/webhook")
	}

	srv := apphttp.NewServer(":"+cfg.Port, srvOpts)

	g.Go(func() error {
		logger.Info("Expense Bot is running", applog.FieldOperation, applog.OpStartup, "platform", cfg.BotType, "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
