package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	defaultAPIURL        = "https://api.developer.coinbase.com"
	defaultCheckoutURL   = "https://pay.coinbase.com/buy"
	defaultDBPath        = "fundcard.db"
	defaultLogLevel      = "info"
	defaultLogFile       = "fundcard.log"
	defaultFetchTimeout  = 10 * time.Second
	defaultQuoteDebounce = 300 * time.Millisecond
	defaultPopupPoll     = 500 * time.Millisecond
	defaultBridgeAddr    = "127.0.0.1:0"
	defaultPopupSize     = "md"
	defaultViewport      = "1440x900"
)

// Config captures runtime configuration loaded from environment variables.
// Command-line flags override it.
type Config struct {
	APIURL        string
	APIKey        string
	SessionToken  string
	CheckoutURL   string
	DBPath        string
	LogLevel      string
	LogFile       string
	FetchTimeout  time.Duration
	QuoteDebounce time.Duration
	PopupPoll     time.Duration
	BridgeAddr    string
	PopupSize     string
	Viewport      string
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		APIURL:       getEnv("FUNDCARD_API_URL", defaultAPIURL),
		APIKey:       os.Getenv("FUNDCARD_API_KEY"),
		SessionToken: os.Getenv("FUNDCARD_SESSION_TOKEN"),
		CheckoutURL:  getEnv("FUNDCARD_CHECKOUT_URL", defaultCheckoutURL),
		DBPath:       getEnv("FUNDCARD_DB", defaultDBPath),
		LogLevel:     strings.ToLower(getEnv("FUNDCARD_LOG_LEVEL", defaultLogLevel)),
		LogFile:      getEnv("FUNDCARD_LOG_FILE", defaultLogFile),
		BridgeAddr:   getEnv("FUNDCARD_BRIDGE_ADDR", defaultBridgeAddr),
		PopupSize:    getEnv("FUNDCARD_POPUP_SIZE", defaultPopupSize),
		Viewport:     getEnv("FUNDCARD_VIEWPORT", defaultViewport),
	}

	var err error
	if cfg.FetchTimeout, err = getDuration("FUNDCARD_FETCH_TIMEOUT", defaultFetchTimeout); err != nil {
		return Config{}, err
	}
	if cfg.QuoteDebounce, err = getDuration("FUNDCARD_QUOTE_DEBOUNCE", defaultQuoteDebounce); err != nil {
		return Config{}, err
	}
	if cfg.PopupPoll, err = getDuration("FUNDCARD_POPUP_POLL", defaultPopupPoll); err != nil {
		return Config{}, err
	}
	if cfg.PopupPoll <= 0 {
		return Config{}, fmt.Errorf("FUNDCARD_POPUP_POLL must be positive")
	}
	return cfg, nil
}

// ParseViewport parses a WIDTHxHEIGHT string.
func ParseViewport(s string) (width, height int, err error) {
	if _, err := fmt.Sscanf(strings.ToLower(strings.TrimSpace(s)), "%dx%d", &width, &height); err != nil {
		return 0, 0, fmt.Errorf("invalid viewport %q, expected WIDTHxHEIGHT", s)
	}
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("invalid viewport %q, sizes must be positive", s)
	}
	return width, height, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
