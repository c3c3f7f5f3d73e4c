// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variable names for the three upstream webhooks.
const (
	EnvListingsWebhook = "LISTINGS_WEBHOOK"
	EnvOCRWebhook      = "OCR_WEBHOOK"
	EnvTestWebhook     = "TEST_WEBHOOK"
)

// Config holds the application configuration.
type Config struct {
	HTTPAddr string

	// Webhook targets may be empty; the gateway reports that per request.
	ListingsWebhook string
	OCRWebhook      string
	TestWebhook     string

	PollInterval time.Duration
	PageSize     int

	DatabasePath       string
	RedisAddr          string
	ArchiveDatabaseURL string

	LogLevel string
	LogFile  string

	TelegramBotToken string
	TelegramChatID   int64
	AllowedUsers     []int64

	DiscordBotToken  string
	DiscordChannelID string
}

// Load reads .env.local and .env (if present) and then the process
// environment. Variables already set in the environment win.
func Load() (*Config, error) {
	for _, f := range []string{".env.local", ".env"} {
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Load(f); err != nil {
				return nil, fmt.Errorf("load %s: %w", f, err)
			}
		}
	}

	cfg := &Config{
		HTTPAddr:           envOrDefault("HTTP_ADDR", ":8080"),
		ListingsWebhook:    strings.TrimSpace(os.Getenv(EnvListingsWebhook)),
		OCRWebhook:         strings.TrimSpace(os.Getenv(EnvOCRWebhook)),
		TestWebhook:        strings.TrimSpace(os.Getenv(EnvTestWebhook)),
		DatabasePath:       envOrDefault("DATABASE_PATH", "./data/dashboard.db"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		ArchiveDatabaseURL: os.Getenv("ARCHIVE_DATABASE_URL"),
		LogLevel:           envOrDefault("LOG_LEVEL", "info"),
		LogFile:            os.Getenv("LOG_FILE"),
		TelegramBotToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		DiscordBotToken:    os.Getenv("DISCORD_BOT_TOKEN"),
		DiscordChannelID:   os.Getenv("DISCORD_CHANNEL_ID"),
	}

	interval := envOrDefault("POLL_INTERVAL", "8s")
	d, err := time.ParseDuration(interval)
	if err != nil || d <= 0 {
		return nil, fmt.Errorf("invalid POLL_INTERVAL %q", interval)
	}
	cfg.PollInterval = d

	pageSize := envOrDefault("PAGE_SIZE", "6")
	n, err := strconv.Atoi(pageSize)
	if err != nil || n < 1 {
		return nil, fmt.Errorf("invalid PAGE_SIZE %q", pageSize)
	}
	cfg.PageSize = n

	if raw := os.Getenv("TELEGRAM_CHAT_ID"); raw != "" {
		id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: %w", raw, err)
		}
		cfg.TelegramChatID = id
	}

	if raw := os.Getenv("ALLOWED_USERS"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			uid, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid user ID %q in ALLOWED_USERS: %w", s, err)
			}
			cfg.AllowedUsers = append(cfg.AllowedUsers, uid)
		}
	}

	return cfg, nil
}

// IsUserAllowed checks whether a user ID is in the allow list.
// Returns true if the allow list is empty (all users permitted).
func (c *Config) IsUserAllowed(userID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	for _, id := range c.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

func envOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
