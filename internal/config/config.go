package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAPIURL      = "http://localhost:5050"
	defaultClientType  = "mobile"
	defaultHTTPTimeout = 30 * time.Second
	defaultPort        = "5050"
	defaultDBPath      = "data/pantry.db"
)

// Config holds the configuration for the application.
type Config struct {
	// Client
	APIURL        string
	ClientType    string
	HTTPTimeout   time.Duration
	MetricsDBPath string

	// Reference server
	Port         string
	DatabasePath string
	SigningKey   string
	GeminiAPIKey string
	GroqAPIKey   string

	// Telegram Config
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64
}

// NewFromEnv creates a new Config object from environment variables.
// Only values every binary needs are validated here; binaries check their own
// required settings (signing key, bot token) at startup.
func NewFromEnv() (*Config, error) {
	apiURL := strings.TrimRight(fallback(os.Getenv("PANTRY_API_URL"), defaultAPIURL), "/")
	parsed, err := url.Parse(apiURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, fmt.Errorf("PANTRY_API_URL must be an absolute http(s) URL, got %q", apiURL)
	}

	timeout := defaultHTTPTimeout
	if raw := strings.TrimSpace(os.Getenv("PANTRY_HTTP_TIMEOUT_SECONDS")); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs <= 0 {
			return nil, fmt.Errorf("PANTRY_HTTP_TIMEOUT_SECONDS must be a positive integer, got %q", raw)
		}
		timeout = time.Duration(secs) * time.Second
	}

	allowed, err := parseIDs(os.Getenv("TELEGRAM_ALLOWED_USER_IDS"))
	if err != nil {
		return nil, err
	}

	return &Config{
		APIURL:                 apiURL,
		ClientType:             fallback(os.Getenv("PANTRY_CLIENT_TYPE"), defaultClientType),
		HTTPTimeout:            timeout,
		MetricsDBPath:          strings.TrimSpace(os.Getenv("METRICS_DB_PATH")),
		Port:                   fallback(os.Getenv("PORT"), defaultPort),
		DatabasePath:           fallback(os.Getenv("DATABASE_PATH"), defaultDBPath),
		SigningKey:             strings.TrimSpace(os.Getenv("PANTRY_SIGNING_KEY")),
		GeminiAPIKey:           strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GroqAPIKey:             strings.TrimSpace(os.Getenv("GROQ_API_KEY")),
		TelegramBotToken:       strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")),
		TelegramWebhookURL:     strings.TrimSpace(os.Getenv("TELEGRAM_WEBHOOK_URL")),
		TelegramAllowedUserIDs: allowed,
	}, nil
}

// HTTPAddress returns the host:port pair for the reference server to bind to.
func (c *Config) HTTPAddress() string {
	return ":" + c.Port
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func parseIDs(input string) ([]int64, error) {
	var out []int64
	for _, part := range strings.Split(input, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		id, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("TELEGRAM_ALLOWED_USER_IDS contains invalid id %q", trimmed)
		}
		out = append(out, id)
	}
	return out, nil
}
