package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Port:          "8501",
		DataFile:      "financial_transactions.csv",
		Currency:      "USD",
		TableRowLimit: 300,
		TopCategories: 5,
		TopMerchants:  10,
		ViewCacheSize: 100,
		ViewCacheTTL:  5 * time.Minute,
		LogLevel:      "info",
		LogFormat:     "text",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		modify      func(*Config)
		wantErr     bool
		errorString string
	}{
		{
			name:    "valid config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:        "invalid port - non-numeric",
			modify:      func(c *Config) { c.Port = "abc" },
			wantErr:     true,
			errorString: "invalid port 'abc': must be a number",
		},
		{
			name:        "invalid port - out of range high",
			modify:      func(c *Config) { c.Port = "70000" },
			wantErr:     true,
			errorString: "invalid port 70000: must be between 1 and 65535",
		},
		{
			name:        "empty data file",
			modify:      func(c *Config) { c.DataFile = " " },
			wantErr:     true,
			errorString: "data file path cannot be empty",
		},
		{
			name:        "unknown currency",
			modify:      func(c *Config) { c.Currency = "XYZ" },
			wantErr:     true,
			errorString: "invalid currency 'XYZ'",
		},
		{
			name:        "zero row limit",
			modify:      func(c *Config) { c.TableRowLimit = 0 },
			wantErr:     true,
			errorString: "invalid table row limit 0: must be at least 1",
		},
		{
			name:        "negative top merchants",
			modify:      func(c *Config) { c.TopMerchants = -1 },
			wantErr:     true,
			errorString: "invalid top merchants -1: must be at least 1",
		},
		{
			name:        "ttl too long",
			modify:      func(c *Config) { c.ViewCacheTTL = 48 * time.Hour },
			wantErr:     true,
			errorString: "must be at most 24 hours",
		},
		{
			name:        "bad log level",
			modify:      func(c *Config) { c.LogLevel = "loud" },
			wantErr:     true,
			errorString: "invalid log level 'loud'",
		},
		{
			name:        "bad log format",
			modify:      func(c *Config) { c.LogFormat = "xml" },
			wantErr:     true,
			errorString: "invalid log format 'xml'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error containing %q", tt.errorString)
				}
				if !strings.Contains(err.Error(), tt.errorString) {
					t.Errorf("error %q does not contain %q", err.Error(), tt.errorString)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestConfig_ValidateCollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Port = "0"
	cfg.Currency = "???"
	cfg.LogFormat = "yaml"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected an error")
	}
	msg := err.Error()
	if !strings.HasPrefix(msg, "configuration validation failed:") {
		t.Errorf("unexpected prefix: %s", msg)
	}
	if n := strings.Count(msg, "\n- "); n != 3 {
		t.Errorf("got %d problems, want 3:\n%s", n, msg)
	}
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		for _, key := range []string{"PORT", "DATA_FILE", "CURRENCY", "TABLE_ROW_LIMIT", "TOP_CATEGORIES",
			"TOP_MERCHANTS", "VIEW_CACHE_SIZE", "VIEW_CACHE_TTL", "LOG_LEVEL", "LOG_FORMAT"} {
			t.Setenv(key, "")
		}

		cfg := Load()
		want := validConfig()
		if *cfg != want {
			t.Errorf("Load() = %+v, want %+v", *cfg, want)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("defaults should validate: %v", err)
		}
		if cfg.Addr() != ":8501" {
			t.Errorf("Addr() = %s", cfg.Addr())
		}
	})

	t.Run("from environment", func(t *testing.T) {
		t.Setenv("PORT", "9090")
		t.Setenv("DATA_FILE", "/tmp/ledger.csv")
		t.Setenv("CURRENCY", "eur")
		t.Setenv("TABLE_ROW_LIMIT", "50")
		t.Setenv("VIEW_CACHE_TTL", "30s")
		t.Setenv("LOG_LEVEL", "DEBUG")
		t.Setenv("TOP_MERCHANTS", "not-a-number")

		cfg := Load()
		if cfg.Port != "9090" || cfg.DataFile != "/tmp/ledger.csv" || cfg.Currency != "EUR" {
			t.Errorf("unexpected config: %+v", cfg)
		}
		if cfg.TableRowLimit != 50 || cfg.ViewCacheTTL != 30*time.Second || cfg.LogLevel != "debug" {
			t.Errorf("unexpected config: %+v", cfg)
		}
		if cfg.TopMerchants != 10 {
			t.Errorf("invalid int should fall back to default, got %d", cfg.TopMerchants)
		}
	})
}
