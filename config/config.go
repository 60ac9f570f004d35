// Package config loads the runtime configuration of pronto-utils from the environment
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment is the deployment environment the tool runs in
type Environment string

const (
	EnvDevelopment Environment = "dev"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test"
)

// Config holds all application configuration
type Config struct {
	Env               Environment
	LogLevel          string
	LogFile           string        // Optional JSON log file
	DataDir           string        // Default directory for downloaded files
	DownloadTimeout   time.Duration // Timeout for a single download
	DownloadRateLimit int64         // Bytes per second, 0 means unlimited
	UserAgent         string
	RefreshAt         []string // HH:MM times for scheduled refreshes
	MetricsFile       string   // Optional prometheus textfile output
}

// Load reads an optional .env file, then loads and validates configuration from environment variables
func Load() (*Config, error) {
	// A missing .env file is fine, the process environment is used as-is
	_ = godotenv.Load()

	timeout, err := getDurationEnvWithDefault("DOWNLOAD_TIMEOUT", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: invalid DOWNLOAD_TIMEOUT: %w", err)
	}

	cfg := &Config{
		Env:               Environment(strings.ToLower(getEnvWithDefault("ENV", "dev"))),
		LogLevel:          strings.ToLower(getEnvWithDefault("LOG_LEVEL", "info")),
		LogFile:           os.Getenv("LOG_FILE"),
		DataDir:           getEnvWithDefault("DATA_DIR", "data"),
		DownloadTimeout:   timeout,
		DownloadRateLimit: getInt64EnvWithDefault("DOWNLOAD_RATE_LIMIT", 0),
		UserAgent:         getEnvWithDefault("USER_AGENT", "pronto-utils"),
		RefreshAt:         splitTimes(getEnvWithDefault("REFRESH_AT", "06:00;18:00")),
		MetricsFile:       os.Getenv("METRICS_FILE"),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// RefreshSchedule returns the refresh times in the format gocron expects
func (c *Config) RefreshSchedule() string {
	return strings.Join(c.RefreshAt, ";")
}

func validateConfig(cfg *Config) error {
	if err := validateEnv(cfg.Env); err != nil {
		return fmt.Errorf("invalid ENV: %w", err)
	}

	if err := validateLogLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	if strings.TrimSpace(cfg.DataDir) == "" {
		return fmt.Errorf("invalid DATA_DIR: DATA_DIR cannot be empty")
	}

	if err := validateDownloadTimeout(cfg.DownloadTimeout); err != nil {
		return fmt.Errorf("invalid DOWNLOAD_TIMEOUT: %w", err)
	}

	if cfg.DownloadRateLimit < 0 {
		return fmt.Errorf("invalid DOWNLOAD_RATE_LIMIT: must not be negative, got: %d", cfg.DownloadRateLimit)
	}

	if strings.TrimSpace(cfg.UserAgent) == "" {
		return fmt.Errorf("invalid USER_AGENT: USER_AGENT cannot be empty")
	}

	if err := validateRefreshAt(cfg.RefreshAt); err != nil {
		return fmt.Errorf("invalid REFRESH_AT: %w", err)
	}

	return nil
}

func validateEnv(env Environment) error {
	if env == "" {
		return fmt.Errorf("ENV cannot be empty")
	}

	validEnvs := []Environment{EnvDevelopment, EnvStaging, EnvProduction, EnvTest}
	for _, validEnv := range validEnvs {
		if env == validEnv {
			return nil
		}
	}

	return fmt.Errorf("ENV must be one of: %v, got: %s", validEnvs, env)
}

func validateLogLevel(logLevel string) error {
	if logLevel == "" {
		return fmt.Errorf("LOG_LEVEL cannot be empty")
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	for _, level := range validLevels {
		if logLevel == level {
			return nil
		}
	}

	return fmt.Errorf("LOG_LEVEL must be one of: %v, got: %s", validLevels, logLevel)
}

func validateDownloadTimeout(timeout time.Duration) error {
	if timeout < time.Second {
		return fmt.Errorf("DOWNLOAD_TIMEOUT is too small (min 1s), got: %s", timeout)
	}

	if timeout > time.Hour {
		return fmt.Errorf("DOWNLOAD_TIMEOUT is too large (max 1h), got: %s", timeout)
	}

	return nil
}

// validateRefreshAt checks every entry is a valid HH:MM clock time
func validateRefreshAt(times []string) error {
	if len(times) == 0 {
		return fmt.Errorf("REFRESH_AT needs at least one time")
	}

	for _, t := range times {
		if _, err := time.Parse("15:04", t); err != nil {
			return fmt.Errorf("REFRESH_AT entry %q is not a HH:MM time", t)
		}
	}

	return nil
}

func splitTimes(value string) []string {
	var times []string
	for _, part := range strings.Split(value, ";") {
		if part = strings.TrimSpace(part); part != "" {
			times = append(times, part)
		}
	}
	return times
}

// getEnvWithDefault gets an environment variable with a default value
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getInt64EnvWithDefault gets an environment variable as int64 with a default value
func getInt64EnvWithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getDurationEnvWithDefault parses a Go duration, falling back to the default when unset
func getDurationEnvWithDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a Go duration such as 30s or 5m: %w", key, err)
	}
	return d, nil
}

// GetEnvVars returns a list of all expected environment variables
func GetEnvVars() []string {
	return []string{
		"ENV",
		"LOG_LEVEL",
		"LOG_FILE",
		"DATA_DIR",
		"DOWNLOAD_TIMEOUT",
		"DOWNLOAD_RATE_LIMIT",
		"USER_AGENT",
		"REFRESH_AT",
		"METRICS_FILE",
	}
}
