// Package bot turns chat messages into expense operations and carries the
// replies back over Telegram or WhatsApp.
package bot

import (
	"context"
	"errors"
	"time"

	"expensebot/internal/core"
	applog "expensebot/internal/log"
	"expensebot/internal/sheets"
)

// Allower is a per-key rate limiter.
type Allower interface {
	Allow(key string) bool
}

// Handler answers one message for one user. It never returns an error:
// every failure becomes a reply text.
type Handler struct {
	store    sheets.Store
	limiter  Allower
	logger   *applog.Logger
	platform string
	now      func() time.Time
}

type Option func(*Handler)

// WithLimiter rejects users who exceed the limiter.
func WithLimiter(l Allower) Option {
	return func(h *Handler) { h.limiter = l }
}

func WithLogger(l *applog.Logger) Option {
	return func(h *Handler) { h.logger = l.WithComponent(applog.ComponentBot) }
}

// WithClock replaces time.Now for stamping expenses.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

func NewHandler(store sheets.Store, platform string, opts ...Option) *Handler {
	h := &Handler{
		store:    store,
		platform: platform,
		now:      time.Now,
		logger:   applog.New(applog.Config{Component: applog.ComponentBot}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Platform() string { return h.platform }

func (h *Handler) Handle(ctx context.Context, userID, text string) (reply string) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.ErrorContext(ctx, "Panic while handling message",
				applog.FieldPlatform, h.platform,
				applog.FieldUserID, userID,
				"panic", r)
			reply = ProcessErrorMessage
		}
	}()

	if h.limiter != nil && !h.limiter.Allow(userID) {
		h.logger.WarnContext(ctx, "User rate limited", applog.FieldPlatform, h.platform, applog.FieldUserID, userID)
		return RateLimitedMessage
	}

	cmd, arg := Classify(text)
	h.logger.DebugContext(ctx, "Message classified",
		applog.FieldPlatform, h.platform,
		applog.FieldUserID, userID,
		applog.FieldCommand, cmd.String())

	switch cmd {
	case CommandHelp:
		return HelpMessage(h.platform)
	case CommandStart:
		return WelcomeMessage
	case CommandReport:
		return h.report(ctx, userID, arg)
	default:
		return h.record(ctx, userID, text)
	}
}

func (h *Handler) report(ctx context.Context, userID, period string) string {
	var year, month int
	if period != "" {
		t, err := time.Parse("2006-1", period)
		if err != nil {
			return ReportUsageMessage
		}
		year, month = t.Year(), int(t.Month())
	}

	records, err := h.store.ReadAll(ctx, userID)
	if err != nil {
		applog.LogError(ctx, "Failed to read expenses for report", err, applog.ComponentBot, applog.OpReport,
			applog.NewFields().WithUser(h.platform, userID))
		return ReportErrorMessage
	}
	if period != "" {
		records = core.FilterPeriod(records, year, month)
	}
	return core.BuildReport(records)
}

func (h *Handler) record(ctx context.Context, userID, text string) string {
	exp, err := core.ParseExpense(text)
	if errors.Is(err, core.ErrUnparseable) {
		return FormatHelpMessage
	}
	if err != nil {
		applog.LogError(ctx, "Failed to parse expense", err, applog.ComponentBot, applog.OpParse, nil)
		return FormatHelpMessage
	}

	now := h.now()
	exp.Date = now
	ref, err := h.store.Append(ctx, userID, exp.Record())
	if err != nil {
		applog.LogError(ctx, "Failed to save expense", err, applog.ComponentBot, applog.OpAppend,
			applog.NewFields().WithUser(h.platform, userID).WithExpense(exp.Category, exp.Amount))
		return SaveErrorMessage
	}

	applog.LogExpenseRecorded(ctx, h.platform, userID, exp.Category, exp.Amount, ref)
	return ConfirmationMessage(exp, now)
}
