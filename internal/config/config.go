// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port           string
	FrontendURL    string
	DBPath         string
	AllowedOrigins []string
	DebugLogging   bool

	SessionTTL           time.Duration
	SessionSweepInterval time.Duration

	Assistant AssistantConfig
	Google    GoogleConfig
	RateLimit RateLimitConfig
	Health    HealthConfig
}

// AssistantConfig controls the simulated assistant latency.
type AssistantConfig struct {
	ChatDelay  time.Duration
	VoiceDelay time.Duration
}

// GoogleConfig holds the OAuth client used for Google sign-in.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Enabled reports whether Google sign-in is configured.
func (g GoogleConfig) Enabled() bool {
	return g.ClientID != ""
}

// RateLimitConfig throttles the sign-in endpoints per client IP.
type RateLimitConfig struct {
	Limit  int
	Window time.Duration
}

// HealthConfig controls the health checks.
type HealthConfig struct {
	Timeout  time.Duration
	GRPCAddr string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		FrontendURL:          getEnv("FRONTEND_URL", ""),
		DBPath:               getEnv("DB_PATH", "./data/taskflow.db"),
		AllowedOrigins:       splitList(getEnv("ALLOWED_ORIGINS", "*")),
		DebugLogging:         getEnvBool("LOG_DEBUG", false),
		SessionTTL:           getEnvDuration("SESSION_TTL", 7*24*time.Hour),
		SessionSweepInterval: getEnvDuration("SESSION_SWEEP_INTERVAL", 10*time.Minute),
		Assistant: AssistantConfig{
			ChatDelay:  getEnvDuration("CHAT_RESPONSE_DELAY", 1500*time.Millisecond),
			VoiceDelay: getEnvDuration("VOICE_RESPONSE_DELAY", 1000*time.Millisecond),
		},
		Google: GoogleConfig{
			ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),
		},
		RateLimit: RateLimitConfig{
			Limit:  getEnvInt("AUTH_RATE_LIMIT", 10),
			Window: getEnvDuration("AUTH_RATE_WINDOW", time.Minute),
		},
		Health: HealthConfig{
			Timeout:  getEnvDuration("HEALTH_CHECK_TIMEOUT", 5*time.Second),
			GRPCAddr: getEnv("GRPC_HEALTH_ADDR", ""),
		},
	}

	if cfg.Google.Enabled() && cfg.Google.RedirectURL == "" {
		cfg.Google.RedirectURL = "http://localhost:" + cfg.Port + "/api/auth/google/callback"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	if c.SessionSweepInterval <= 0 {
		return fmt.Errorf("SESSION_SWEEP_INTERVAL must be > 0")
	}
	if c.Assistant.ChatDelay < 0 || c.Assistant.VoiceDelay < 0 {
		return fmt.Errorf("assistant response delays cannot be negative")
	}
	if c.Google.Enabled() && c.Google.ClientSecret == "" {
		return fmt.Errorf("GOOGLE_CLIENT_SECRET is required when GOOGLE_CLIENT_ID is set")
	}
	if c.RateLimit.Limit <= 0 {
		return fmt.Errorf("AUTH_RATE_LIMIT must be > 0")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("AUTH_RATE_WINDOW must be > 0")
	}
	if c.Health.Timeout <= 0 {
		return fmt.Errorf("HEALTH_CHECK_TIMEOUT must be > 0")
	}
	if len(c.AllowedOrigins) == 0 {
		return fmt.Errorf("ALLOWED_ORIGINS cannot be empty")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// getEnvDuration accepts Go duration strings ("1500ms", "7h") or a bare
// integer number of milliseconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// IsContainer returns true if running inside a Docker container.
func IsContainer() bool {
	if os.Getenv("CONTAINER") == "true" {
		return true
	}
	// Check for .dockerenv file
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	return false
}
