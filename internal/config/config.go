package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendMemory = "memory"
	BackendSheets = "sheets"
	BackendSQLite = "sqlite"

	SessionMemory = "memory"
	SessionRedis  = "redis"
)

type Config struct {
	// HTTP Server
	Port           string
	RateLimitRPS   float64
	RateLimitBurst int

	LogLevel string

	// Telegram
	TelegramBotToken    string
	TelegramAPIURL      string
	TelegramPollTimeout time.Duration
	AllowedChatID       int64

	// Google Sheets
	GoogleSheetID            string
	GoogleClientEmail        string
	GooglePrivateKey         string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	SheetsBreaker            bool

	// Ledger
	DataBackend    string
	SQLiteDBPath   string
	LedgerTimezone string
	CategoriesFile string

	// AMQP; an empty URL disables event publishing
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Sessions
	SessionBackend string
	RedisURL       string
	SessionTTL     time.Duration
}

// Load reads .env when present, then the environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:           getEnv("PORT", "3000"),
		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 1),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 20),
		LogLevel:       getEnv("LOG_LEVEL", "info"),

		TelegramBotToken:    getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramAPIURL:      getEnv("TELEGRAM_API_URL", "https://api.telegram.org"),
		TelegramPollTimeout: getEnvDuration("TELEGRAM_POLL_TIMEOUT", 30*time.Second),
		AllowedChatID:       getEnvInt64("ALLOWED_CHAT_ID", 0),

		GoogleSheetID:     getEnv("GOOGLE_SHEET_ID", ""),
		GoogleClientEmail: getEnv("GOOGLE_CLIENT_EMAIL", ""),
		// Keys pasted into .env files usually carry escaped newlines
		GooglePrivateKey:         strings.ReplaceAll(getEnv("GOOGLE_PRIVATE_KEY", ""), `\n`, "\n"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		SheetsBreaker:            getEnvBool("SHEETS_BREAKER", false),

		DataBackend:    getEnv("DATA_BACKEND", BackendSheets),
		SQLiteDBPath:   getEnv("SQLITE_DB_PATH", "./data/finsheet.db"),
		LedgerTimezone: getEnv("LEDGER_TIMEZONE", "UTC"),
		CategoriesFile: getEnv("CATEGORIES_FILE", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "finsheet"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "finsheet.journal"),

		SessionBackend: getEnv("SESSION_BACKEND", SessionMemory),
		RedisURL:       getEnv("REDIS_URL", ""),
		SessionTTL:     getEnvDuration("SESSION_TTL", 24*time.Hour),
	}
}

// Location resolves LedgerTimezone. Validate reports a bad name, so callers
// that validated first can ignore the error.
func (c *Config) Location() (*time.Location, error) {
	if c.LedgerTimezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.LedgerTimezone)
}

// BotEnabled reports whether a Telegram token was configured.
func (c *Config) BotEnabled() bool {
	return c.TelegramBotToken != ""
}

// EventsEnabled reports whether ledger events go to AMQP.
func (c *Config) EventsEnabled() bool {
	return c.AMQPURL != ""
}

// Validate checks the whole configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitRPS <= 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %v: must be positive", c.RateLimitRPS))
	}
	if c.RateLimitBurst < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit burst %d: must be at least 1", c.RateLimitBurst))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	if c.BotEnabled() && c.AllowedChatID == 0 {
		errors = append(errors, "ALLOWED_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}
	if c.TelegramPollTimeout < time.Second || c.TelegramPollTimeout > 50*time.Second {
		errors = append(errors, fmt.Sprintf("invalid Telegram poll timeout %v: must be between 1s and 50s", c.TelegramPollTimeout))
	}
	if u, err := url.Parse(c.TelegramAPIURL); err != nil || (u.Scheme != "https" && u.Scheme != "http") {
		errors = append(errors, fmt.Sprintf("invalid Telegram API URL '%s'", c.TelegramAPIURL))
	}

	if _, err := c.Location(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid ledger timezone '%s': %v", c.LedgerTimezone, err))
	}
	if c.CategoriesFile != "" {
		if _, err := os.Stat(c.CategoriesFile); err != nil {
			errors = append(errors, fmt.Sprintf("categories file not readable: %v", err))
		}
	}

	switch c.DataBackend {
	case BackendMemory:
	case BackendSheets:
		errors = append(errors, c.validateSheets()...)
	case BackendSQLite:
		errors = append(errors, c.validateSQLite()...)
	default:
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v",
			c.DataBackend, []string{BackendMemory, BackendSheets, BackendSQLite}))
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

	switch c.SessionBackend {
	case SessionMemory:
	case SessionRedis:
		if c.RedisURL == "" {
			errors = append(errors, "REDIS_URL is required when SESSION_BACKEND is redis")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid session backend '%s': must be memory or redis", c.SessionBackend))
	}
	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func (c *Config) validateSheets() []string {
	var errors []string
	if c.GoogleSheetID == "" {
		errors = append(errors, "GOOGLE_SHEET_ID is required when using sheets backend")
	}

	hasKey := c.GoogleClientEmail != "" && c.GooglePrivateKey != ""
	hasJSON := c.GoogleServiceAccountJSON != ""
	hasFile := c.GoogleServiceAccountFile != ""
	if !hasKey && !hasJSON && !hasFile {
		errors = append(errors, "sheets backend needs GOOGLE_CLIENT_EMAIL and GOOGLE_PRIVATE_KEY, GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE")
	}
	if (c.GoogleClientEmail == "") != (c.GooglePrivateKey == "") {
		errors = append(errors, "GOOGLE_CLIENT_EMAIL and GOOGLE_PRIVATE_KEY must be set together")
	}
	if hasFile {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}
	return errors
}

func (c *Config) validateSQLite() []string {
	if c.SQLiteDBPath == "" {
		return []string{"SQLite database path cannot be empty when using sqlite backend"}
	}
	dir := filepath.Dir(c.SQLiteDBPath)
	if dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return []string{fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err)}
			}
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

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
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
