package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	API     APIConfig
	Storage StorageConfig
	Session SessionConfig
	App     AppConfig
}

type APIConfig struct {
	BaseURL string
	WSURL   string
	Timeout time.Duration
}

// StorageConfig selects the durable client-side storage backend.
type StorageConfig struct {
	Type string // 'file', 'sqlite'
	Path string
}

// SessionConfig holds timing knobs for the session/leave core.
type SessionConfig struct {
	PollInterval  time.Duration
	DebounceQuiet time.Duration
}

// AppConfig holds application configuration
type AppConfig struct {
	Env      string
	LogLevel string
}

func Load() (*Config, error) {
	// .env is optional outside local development; env vars win either way.
	_ = godotenv.Load()

	config := &Config{}

	apiTimeout, err := time.ParseDuration(getEnv("API_TIMEOUT", "15s"))
	if err != nil {
		return nil, fmt.Errorf("invalid API_TIMEOUT: %w", err)
	}

	config.API = APIConfig{
		BaseURL: getEnv("API_BASE_URL", ""),
		WSURL:   getEnv("API_WS_URL", ""),
		Timeout: apiTimeout,
	}

	config.Storage = StorageConfig{
		Type: getEnv("STORAGE_TYPE", "file"),
		Path: getEnv("STORAGE_PATH", ".hris-portal"),
	}

	pollInterval, err := time.ParseDuration(getEnv("SESSION_POLL_INTERVAL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_POLL_INTERVAL: %w", err)
	}

	debounceQuiet, err := time.ParseDuration(getEnv("DURATION_DEBOUNCE_QUIET", "800ms"))
	if err != nil {
		return nil, fmt.Errorf("invalid DURATION_DEBOUNCE_QUIET: %w", err)
	}

	config.Session = SessionConfig{
		PollInterval:  pollInterval,
		DebounceQuiet: debounceQuiet,
	}

	config.App = AppConfig{
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("API_BASE_URL is required")
	}
	if c.Storage.Type != "file" && c.Storage.Type != "sqlite" {
		return fmt.Errorf("unsupported STORAGE_TYPE: %s", c.Storage.Type)
	}
	if c.Session.PollInterval <= 0 {
		return fmt.Errorf("SESSION_POLL_INTERVAL must be positive")
	}
	if c.Session.DebounceQuiet <= 0 {
		return fmt.Errorf("DURATION_DEBOUNCE_QUIET must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

