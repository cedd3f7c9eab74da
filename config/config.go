// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Auth modes.
const (
	AuthModeRegistry = "registry"
	AuthModeProvider = "provider"
)

// Config contains all runtime settings for the assistant service.
type Config struct {
	BindAddr        string
	ShutdownTimeout time.Duration

	AnthropicModel     string
	AnthropicMaxTokens int64

	EmbeddingModel      string
	EmbeddingDimensions int

	MaxHistory        int
	TopK              int
	HistoryFetchLimit int

	AuthMode     string
	RegistryPath string
	IdentityURL  string
	SessionTTL   time.Duration

	SessionInactivityTimeout time.Duration
	MetricsNamespace         string
}

// Load reads environment variables and applies safe defaults. API keys are
// read directly by main so they never live in the config struct.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:                 envOrDefault("APP_BIND_ADDR", ":8080"),
		AnthropicModel:           envOrDefault("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
		AnthropicMaxTokens:       1024,
		EmbeddingModel:           envOrDefault("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingDimensions:      1536,
		MaxHistory:               20,
		TopK:                     4,
		HistoryFetchLimit:        1000,
		AuthMode:                 envOrDefault("APP_AUTH_MODE", AuthModeRegistry),
		RegistryPath:             envOrDefault("APP_REGISTRY_PATH", "data/users.db"),
		IdentityURL:              strings.TrimSpace(os.Getenv("IDENTITY_PROVIDER_URL")),
		SessionTTL:               time.Minute,
		SessionInactivityTimeout: 30 * time.Minute,
		ShutdownTimeout:          15 * time.Second,
		MetricsNamespace:         envOrDefault("APP_METRICS_NAMESPACE", "visionnaire"),
	}

	var err error
	if cfg.EmbeddingDimensions, err = intFromEnv("OPENAI_EMBEDDING_DIMENSIONS", cfg.EmbeddingDimensions); err != nil {
		return Config{}, err
	}
	if cfg.MaxHistory, err = intFromEnv("APP_MAX_HISTORY", cfg.MaxHistory); err != nil {
		return Config{}, err
	}
	if cfg.TopK, err = intFromEnv("APP_RETRIEVAL_TOP_K", cfg.TopK); err != nil {
		return Config{}, err
	}
	if cfg.HistoryFetchLimit, err = intFromEnv("APP_HISTORY_FETCH_LIMIT", cfg.HistoryFetchLimit); err != nil {
		return Config{}, err
	}
	maxTokens, err := intFromEnv("ANTHROPIC_MAX_TOKENS", int(cfg.AnthropicMaxTokens))
	if err != nil {
		return Config{}, err
	}
	cfg.AnthropicMaxTokens = int64(maxTokens)
	if cfg.SessionTTL, err = durationFromEnv("APP_SESSION_TTL", cfg.SessionTTL); err != nil {
		return Config{}, err
	}
	if cfg.SessionInactivityTimeout, err = durationFromEnv("APP_SESSION_INACTIVITY_TIMEOUT", cfg.SessionInactivityTimeout); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout); err != nil {
		return Config{}, err
	}

	switch cfg.AuthMode {
	case AuthModeRegistry:
	case AuthModeProvider:
		if cfg.IdentityURL == "" {
			return Config{}, fmt.Errorf("IDENTITY_PROVIDER_URL is required when APP_AUTH_MODE=%s", AuthModeProvider)
		}
	default:
		return Config{}, fmt.Errorf("unknown APP_AUTH_MODE %q", cfg.AuthMode)
	}
	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func intFromEnv(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
