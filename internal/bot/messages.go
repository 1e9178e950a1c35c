package bot

import (
	"fmt"
	"strings"
	"time"

	"expensebot/internal/core"
)

const (
	WelcomeMessage = "👋 Welcome to Expense Bot!\n\n" +
		"Send me your daily expenses and I'll track them in Google Sheets.\n\n" +
		"Try:\n" +
		"• \"Coffee 5\" - Add $5 for Coffee\n" +
		"• \"Lunch $12.50\" - Add $12.50 for Lunch\n" +
		"• \"/help\" - Show all commands\n" +
		"• \"/report\" - See your monthly summary"

	FormatHelpMessage = "I couldn't parse that expense. Please use one of these formats:\n\n" +
		"- \"Coffee 5\" (category and amount)\n" +
		"- \"Lunch $12.50\"\n" +
		"- \"Gas 45.99 fuel\"\n\n" +
		"Type \"help\" for more options."

	SaveErrorMessage    = "Error saving expense. Please try again."
	ReportErrorMessage  = "Error generating report. Please try again later."
	RateLimitedMessage  = "You're sending messages too quickly. Please wait a minute and try again."
	ReportUsageMessage  = "Usage: /report or /report YYYY-MM (for example /report 2025-01)."
	ProcessErrorMessage = "Error processing your message. Please try again."
)

const helpBody = "Commands:\n\n" +
	"/help - Show this message\n" +
	"/report - Get monthly summary\n" +
	"/report YYYY-MM - Summary for one month\n" +
	"/start - Show welcome message\n\n" +
	"How to add expenses:\n\n" +
	"1️⃣ \"Coffee 5\" - category and amount\n" +
	"2️⃣ \"Lunch $12.50\" - with currency symbol\n" +
	"3️⃣ \"Gas 45.99 fuel\" - amount and optional note\n" +
	"4️⃣ \"Dinner 25 (restaurant)\" - with category in brackets\n\n" +
	"Examples:\n" +
	"• \"Food 15\"\n" +
	"• \"Transport 5.50\"\n" +
	"• \"Utilities 100\"\n" +
	"• \"Entertainment 25.99\"\n\n" +
	"Your expenses are stored and categorized automatically!"

// HelpMessage is the command overview, titled with the chat platform.
func HelpMessage(platform string) string {
	title := "📊 Expense Bot"
	switch platform {
	case "telegram":
		title = "📊 Telegram Expense Bot"
	case "whatsapp":
		title = "📊 WhatsApp Expense Bot"
	}
	return title + "\n\n" + helpBody
}

// ConfirmationMessage acknowledges a stored expense. The date is shown as
// M/D/YYYY.
func ConfirmationMessage(exp core.ParsedExpense, at time.Time) string {
	var b strings.Builder
	b.WriteString("✅ Expense recorded!\n")
	fmt.Fprintf(&b, "💰 %s: %s%s\n", exp.Category, exp.Currency, core.FormatAmount(exp.Amount))
	fmt.Fprintf(&b, "📝 %s", at.Format("1/2/2006"))
	return b.String()
}
