package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all backend configuration loaded from environment variables.
// Everything has a usable default so the mock backend starts with no setup.
type Config struct {
	// Server configuration
	ServerAddr string
	LogLevel   string

	// Storage configuration. An empty DatabaseURL selects the in-memory store.
	DatabaseURL string

	// NATS configuration. An empty NATSURL disables approval events.
	NATSURL string

	// Dataset configuration
	PageSize         int
	FixturePath      string
	DemoTransactions int

	// MockLatency delays every API response, simulating a slow backend.
	MockLatency time.Duration
}

// Load reads configuration from environment variables and validates it.
// Returns an error listing every invalid setting.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	cfg.ServerAddr = getEnvOrDefault("SERVER_ADDR", ":8080")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.NATSURL = os.Getenv("NATS_URL")
	cfg.FixturePath = os.Getenv("FIXTURE_PATH")

	pageSize, err := parseInt("PAGE_SIZE", 5)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.PageSize = pageSize
	}

	demo, err := parseInt("DEMO_TRANSACTIONS", 40)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.DemoTransactions = demo
	}

	latency, err := parseDuration("MOCK_LATENCY", "0s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.MockLatency = latency
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if c.ServerAddr == "" {
		errs = append(errs, fmt.Errorf("ServerAddr is required"))
	}

	if c.PageSize < 1 {
		errs = append(errs, fmt.Errorf("PageSize must be at least 1"))
	}

	if c.DemoTransactions < 0 {
		errs = append(errs, fmt.Errorf("DemoTransactions cannot be negative"))
	}

	if c.MockLatency < 0 {
		errs = append(errs, fmt.Errorf("MockLatency cannot be negative"))
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("LogLevel %q is not one of debug, info, warn, error", c.LogLevel))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}

// parseInt parses an integer from an environment variable or uses a default.
func parseInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return result, nil
}
