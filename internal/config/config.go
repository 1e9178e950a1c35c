package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Bot platforms.
const (
	BotTelegram = "telegram"
	BotWhatsApp = "whatsapp"
)

var (
	validBots     = []string{BotTelegram, BotWhatsApp}
	validBackends = []string{"memory", "sheets", "sqlite"}
)

type Config struct {
	// HTTP Server
	Port string

	// Bot platform
	BotType            string
	TelegramBotToken   string
	TwilioAccountSID   string
	TwilioAuthToken    string
	TwilioPhoneNumber  string
	RateLimitPerMinute int

	// Public webhook address as configured in Twilio, used for signature checks.
	TwilioWebhookURL        string
	TwilioValidateSignature bool

	// Per client IP on the webhook; Twilio posts from few addresses.
	HTTPRateLimitPerMinute int

	// Backend selection
	DataBackend string

	// Google Sheets
	GoogleSheetsID string
	SheetCacheTTL  time.Duration

	// Database
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Worker
	SyncBatchSize int
	SyncInterval  time.Duration
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8080"),

		BotType:            strings.ToLower(getEnv("BOT_TYPE", BotTelegram)),
		TelegramBotToken:   getEnv("TELEGRAM_BOT_TOKEN", ""),
		TwilioAccountSID:   getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:    getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioPhoneNumber:  getEnv("TWILIO_PHONE_NUMBER", ""),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 30),

		TwilioWebhookURL:        getEnv("TWILIO_WEBHOOK_URL", ""),
		TwilioValidateSignature: getEnvBool("TWILIO_VALIDATE_SIGNATURE", true),

		HTTPRateLimitPerMinute: getEnvInt("HTTP_RATE_LIMIT_PER_MINUTE", 600),

		DataBackend: getEnv("DATA_BACKEND", "sheets"),

		GoogleSheetsID: getEnv("GOOGLE_SHEETS_ID", getEnv("GOOGLE_SPREADSHEET_ID", "")),
		SheetCacheTTL:  getEnvDuration("SHEET_CACHE_TTL", 10*time.Minute),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/expenses.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "expensebot"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "sync_expenses"),

		SyncBatchSize: getEnvInt("SYNC_BATCH_SIZE", 10),
		SyncInterval:  getEnvDuration("SYNC_INTERVAL", 30*time.Second),
	}
}

// Validate checks the whole configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.BotType {
	case BotTelegram:
		if c.TelegramBotToken == "" {
			errors = append(errors, "TELEGRAM_BOT_TOKEN is required when BOT_TYPE is telegram")
		}
	case BotWhatsApp:
		if c.TwilioAccountSID == "" || c.TwilioAuthToken == "" {
			errors = append(errors, "TWILIO_ACCOUNT_SID and TWILIO_AUTH_TOKEN are required when BOT_TYPE is whatsapp")
		}
		if c.TwilioPhoneNumber == "" {
			errors = append(errors, "TWILIO_PHONE_NUMBER is required when BOT_TYPE is whatsapp")
		}
		if c.TwilioWebhookURL != "" {
			if u, err := url.Parse(c.TwilioWebhookURL); err != nil || u.Scheme == "" || u.Host == "" {
				errors = append(errors, fmt.Sprintf("invalid TWILIO_WEBHOOK_URL '%s': must be an absolute URL", c.TwilioWebhookURL))
			}
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid bot type '%s': must be one of %v", c.BotType, validBots))
	}

	if c.RateLimitPerMinute < 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must not be negative", c.RateLimitPerMinute))
	}
	if c.HTTPRateLimitPerMinute < 0 {
		errors = append(errors, fmt.Sprintf("invalid HTTP rate limit %d: must not be negative", c.HTTPRateLimitPerMinute))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sheets" && c.GoogleSheetsID == "" {
		errors = append(errors, "GOOGLE_SHEETS_ID is required when using sheets backend")
	}
	if c.SheetCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sheet cache TTL %v: must be at least 1 second", c.SheetCacheTTL))
	}

	if c.DataBackend == "sqlite" {
		errors = append(errors, c.validateSQLitePath()...)
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SyncBatchSize < 1 || c.SyncBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be between 1 and 1000", c.SyncBatchSize))
	}
	if c.SyncInterval < time.Second || c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be between 1s and 24h", c.SyncInterval))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// ValidateWorker checks only what the sync worker needs.
func (c *Config) ValidateWorker() error {
	var errors []string
	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLITE_DB_PATH is required for the sync worker")
	} else {
		errors = append(errors, c.validateSQLitePath()...)
	}
	if c.GoogleSheetsID == "" {
		errors = append(errors, "GOOGLE_SHEETS_ID is required for the sync worker")
	}
	if c.SyncBatchSize < 1 || c.SyncBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be between 1 and 1000", c.SyncBatchSize))
	}
	if c.SyncInterval < time.Second || c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be between 1s and 24h", c.SyncInterval))
	}
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func (c *Config) validateSQLitePath() []string {
	if c.SQLiteDBPath == "" {
		return []string{"SQLite database path cannot be empty when using sqlite backend"}
	}
	dir := filepath.Dir(c.SQLiteDBPath)
	if dir == "." || dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return []string{fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err)}
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
