package bot

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	applog "expensebot/internal/log"
)

// telegramAPI is the part of *tgbotapi.BotAPI the bot uses.
type telegramAPI interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	StopReceivingUpdates()
}

const (
	pollTimeoutSeconds = 30
	maxInFlight        = 8
)

// TelegramBot long-polls for updates and replies in the originating chat.
type TelegramBot struct {
	api     telegramAPI
	handler *Handler
	logger  *applog.Logger
}

func NewTelegramBot(token string, handler *Handler, logger *applog.Logger) (*TelegramBot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect to telegram: %w", err)
	}
	logger = logger.WithComponent(applog.ComponentTelegram)
	logger.Info("Authorized on Telegram", "bot", api.Self.UserName)
	return &TelegramBot{api: api, handler: handler, logger: logger}, nil
}

// Run processes updates until ctx is cancelled, then waits for in-flight
// replies.
func (b *TelegramBot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeoutSeconds
	updates := b.api.GetUpdatesChan(u)

	b.logger.InfoContext(ctx, "Telegram bot is running (polling mode)")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxInFlight)

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case update, ok := <-updates:
			if !ok {
				break loop
			}
			if update.Message == nil || update.Message.From == nil || update.Message.Text == "" {
				continue
			}
			msg := update.Message
			g.Go(func() error {
				b.reply(gctx, msg)
				return nil
			})
		}
	}

	b.api.StopReceivingUpdates()
	b.logger.Info("Telegram bot stopped")
	return g.Wait()
}

func (b *TelegramBot) reply(ctx context.Context, msg *tgbotapi.Message) {
	userID := strconv.FormatInt(msg.From.ID, 10)
	text := b.handler.Handle(ctx, userID, msg.Text)

	out := tgbotapi.NewMessage(msg.Chat.ID, text)
	if _, err := b.api.Send(out); err != nil {
		b.logger.ErrorContext(ctx, "Failed to send Telegram reply",
			applog.FieldOperation, applog.OpReply,
			applog.FieldUserID, userID,
			applog.FieldError, err)
	}
}
