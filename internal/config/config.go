// Package config loads gateway configuration from environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	LogFormat          string
	CORSAllowedOrigins []string

	// Webhook endpoints. ChatWebhookURL falls back to WebhookURL when unset;
	// when both are empty the gateway runs in demo mode.
	ChatWebhookURL string
	WebhookURL     string
	APIBaseURL     string
	WebhookTimeout time.Duration

	// Dashboard polling and access gate.
	DashboardPollInterval time.Duration
	DashboardIdleAfter    time.Duration
	DashboardAccessCode   string

	// Chat defaults.
	DefaultClinicID    string
	DefaultLanguage    string
	ChatHistoryWindow  int
	ConversationMaxAge time.Duration

	// Clinic finder (Google Places text search).
	GoogleMapsAPIKey    string
	PlacesBaseURL       string
	ClinicSearchRadiusM int

	// Optional Redis for unlock flags and clinic profiles.
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Per-IP chat rate limit. Zero disables limiting.
	ChatRatePerSecond float64
	ChatRateBurst     int
}

const (
	// minPollInterval is the floor applied to DASHBOARD_POLL_MS.
	minPollInterval = 2 * time.Second

	defaultPollInterval = 10 * time.Second
)

// Load reads configuration from environment variables
func Load() *Config {
	chatWebhook := strings.TrimSpace(getEnv("N8N_CHAT_WEBHOOK_URL", ""))
	webhook := strings.TrimSpace(getEnv("N8N_WEBHOOK_URL", ""))
	if chatWebhook == "" {
		chatWebhook = webhook
	}

	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "json"),
		CORSAllowedOrigins: splitAndTrim(getEnv("CORS_ALLOWED_ORIGINS", "*")),

		ChatWebhookURL: chatWebhook,
		WebhookURL:     webhook,
		APIBaseURL:     strings.TrimRight(strings.TrimSpace(getEnv("API_BASE_URL", "")), "/"),
		WebhookTimeout: getEnvAsDuration("WEBHOOK_TIMEOUT", 20*time.Second),

		DashboardPollInterval: pollInterval(getEnvAsInt("DASHBOARD_POLL_MS", 0)),
		DashboardIdleAfter:    getEnvAsDuration("DASHBOARD_IDLE_AFTER", 30*time.Second),
		DashboardAccessCode:   strings.TrimSpace(getEnv("CLINIC_DASHBOARD_PASSWORD", "")),

		DefaultClinicID:    getEnv("DEFAULT_CLINIC_ID", "demo"),
		DefaultLanguage:    getEnv("DEFAULT_LANGUAGE", "en"),
		ChatHistoryWindow:  getEnvAsInt("CHAT_HISTORY_WINDOW", 8),
		ConversationMaxAge: getEnvAsDuration("CONVERSATION_MAX_AGE", 2*time.Hour),

		GoogleMapsAPIKey:    strings.TrimSpace(getEnv("GOOGLE_MAPS_API_KEY", "")),
		PlacesBaseURL:       getEnv("PLACES_BASE_URL", "https://maps.googleapis.com"),
		ClinicSearchRadiusM: getEnvAsInt("CLINIC_SEARCH_RADIUS_M", 15000),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		ChatRatePerSecond: getEnvAsFloat("CHAT_RATE_PER_SECOND", 2),
		ChatRateBurst:     getEnvAsInt("CHAT_RATE_BURST", 5),
	}
}

// DemoMode reports whether no upstream is configured and the gateway should
// answer from the built-in demo provider.
func (c *Config) DemoMode() bool {
	return c.ChatWebhookURL == "" && c.WebhookURL == "" && c.APIBaseURL == ""
}

// pollInterval converts the DASHBOARD_POLL_MS value (milliseconds) into a
// duration, applying the default and the 2s floor.
func pollInterval(ms int) time.Duration {
	if ms <= 0 {
		return defaultPollInterval
	}
	d := time.Duration(ms) * time.Millisecond
	if d < minPollInterval {
		return minPollInterval
	}
	return d
}

func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsFloat retrieves an environment variable as a float or returns a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
