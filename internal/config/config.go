// Package config loads process configuration from environment variables,
// with a small set of typed helpers matching the rest of the ambient
// stack's getEnvInt/getEnvBool idiom.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds every tunable the system reads at startup.
type Config struct {
	// Core
	MaxLand          int
	FetchConcurrency int
	RedisURL         string

	// Fetcher
	PWWSEndpoint  string
	FetchTimeout  time.Duration
	ProxyEnabled  bool
	WebshareToken string

	// API
	APIPort          string
	RateLimitRPS     float64
	RateLimitBurst   int
	RateLimitTTLMin  int
	StreamQueueSize  int
	ShutdownGraceSec int

	// Chat bot
	SlackBotToken        string
	SlackAppToken        string
	SlackTrackerChannel  string
	SlackIndustryChannel string
	BotTrackerInterval   time.Duration
	BotTrackerLowSec     int
	BotTrackerHighSec    int
}

// BotEnabled reports whether both Slack tokens are present.
func (c Config) BotEnabled() bool {
	return c.SlackBotToken != "" && c.SlackAppToken != ""
}

// Load reads Config from an optional CONFIG_FILE YAML overlay and then the
// environment (which always wins over the file), applying documented
// defaults and failing on missing required values.
func Load() (*Config, error) {
	overlay, err := loadFileOverlay(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return nil, fmt.Errorf("config: reading CONFIG_FILE: %w", err)
	}

	cfg := &Config{
		MaxLand:          5000,
		FetchConcurrency: 1,
		APIPort:          "8080",
		RateLimitRPS:     5,
	}
	overlay.apply(cfg)

	cfg.MaxLand = getEnvInt("MAX_LAND", cfg.MaxLand)
	cfg.FetchConcurrency = getEnvInt("CONCURRENCY", cfg.FetchConcurrency)
	cfg.RedisURL = os.Getenv("REDIS_URL")

	cfg.PWWSEndpoint = os.Getenv("PW_WS_ENDPOINT")
	cfg.FetchTimeout = time.Duration(getEnvInt("PW_DEFAULT_TIMEOUT", 60000)) * time.Millisecond
	cfg.ProxyEnabled = getEnvBool("PW_PROXY_ENABLED", false)
	cfg.WebshareToken = os.Getenv("WEBSHARE_TOKEN")

	cfg.APIPort = getEnvString("API_PORT", cfg.APIPort)
	cfg.RateLimitRPS = getEnvFloat("API_RATE_LIMIT_RPS", cfg.RateLimitRPS)
	cfg.RateLimitBurst = getEnvInt("API_RATE_LIMIT_BURST", 10)
	cfg.RateLimitTTLMin = getEnvInt("API_RATE_LIMIT_TTL_MIN", 10)
	cfg.StreamQueueSize = getEnvInt("STREAM_QUEUE_SIZE", 256)
	cfg.ShutdownGraceSec = getEnvInt("SHUTDOWN_GRACE_SEC", 15)

	cfg.SlackBotToken = os.Getenv("SLACK_BOT_TOKEN")
	cfg.SlackAppToken = os.Getenv("SLACK_APP_TOKEN")
	cfg.SlackTrackerChannel = os.Getenv("SLACK_TRACKER_CHANNEL")
	cfg.SlackIndustryChannel = os.Getenv("SLACK_INDUSTRY_CHANNEL")
	cfg.BotTrackerInterval = time.Duration(getEnvInt("BOT_TRACKER_INTERVAL_SEC", 150)) * time.Second
	cfg.BotTrackerLowSec = getEnvInt("BOT_TRACKER_LOW_SEC", 30)
	cfg.BotTrackerHighSec = getEnvInt("BOT_TRACKER_HIGH_SEC", 180)

	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("config: REDIS_URL is required")
	}
	if cfg.PWWSEndpoint == "" {
		return nil, fmt.Errorf("config: PW_WS_ENDPOINT is required")
	}
	if cfg.ProxyEnabled && cfg.WebshareToken == "" {
		return nil, fmt.Errorf("config: WEBSHARE_TOKEN is required when PW_PROXY_ENABLED=true")
	}
	if cfg.MaxLand < 1 {
		return nil, fmt.Errorf("config: MAX_LAND must be >= 1, got %d", cfg.MaxLand)
	}

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
	}
	return defaultVal
}

// getEnvBool follows the ENABLE_*-style convention used elsewhere in the
// ambient stack: only the literal string "true" turns a default-false flag
// on.
func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v == "true"
}
