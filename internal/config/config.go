package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"ledgerdash/internal/core"
)

type Config struct {
	// HTTP Server
	Port string

	// Ledger source
	DataFile string

	// Presentation
	Currency      string
	TableRowLimit int
	TopCategories int
	TopMerchants  int

	// View cache
	ViewCacheSize int
	ViewCacheTTL  time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	cfg := &Config{
		Port:     getEnv("PORT", "8501"),
		DataFile: getEnv("DATA_FILE", "financial_transactions.csv"),

		Currency:      strings.ToUpper(getEnv("CURRENCY", core.DefaultCurrency)),
		TableRowLimit: getEnvInt("TABLE_ROW_LIMIT", 300),
		TopCategories: getEnvInt("TOP_CATEGORIES", 5),
		TopMerchants:  getEnvInt("TOP_MERCHANTS", 10),

		ViewCacheSize: getEnvInt("VIEW_CACHE_SIZE", 100),
		ViewCacheTTL:  getEnvDuration("VIEW_CACHE_TTL", 5*time.Minute),

		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}

	return cfg
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if strings.TrimSpace(c.DataFile) == "" {
		errors = append(errors, "data file path cannot be empty")
	}

	if !core.ValidCurrency(c.Currency) {
		errors = append(errors, fmt.Sprintf("invalid currency '%s': must be an ISO 4217 code", c.Currency))
	}

	positive := []struct {
		name  string
		value int
	}{
		{"table row limit", c.TableRowLimit},
		{"top categories", c.TopCategories},
		{"top merchants", c.TopMerchants},
		{"view cache size", c.ViewCacheSize},
	}
	for _, p := range positive {
		if p.value < 1 {
			errors = append(errors, fmt.Sprintf("invalid %s %d: must be at least 1", p.name, p.value))
		}
	}
	if c.TableRowLimit > 100000 {
		errors = append(errors, fmt.Sprintf("invalid table row limit %d: must be at most 100000", c.TableRowLimit))
	}

	if c.ViewCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid view cache ttl %v: must not be negative", c.ViewCacheTTL))
	} else if c.ViewCacheTTL > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid view cache ttl %v: must be at most 24 hours", c.ViewCacheTTL))
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLevels))
	}
	validFormats := []string{"text", "json"}
	if !contains(validFormats, c.LogFormat) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validFormats))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
