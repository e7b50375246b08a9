package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv blanks every variable Load reads so the host environment cannot
// leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"STOREFRONT_CONFIG", "STOREFRONT_API_URL", "STOREFRONT_ORIGIN",
		"STOREFRONT_COOKIE_FILE", "STOREFRONT_HTTP_TIMEOUT", "LOG_LEVEL",
		"LOG_FORMAT", "ENVIRONMENT", "PORT", "ALLOWED_ORIGINS",
	} {
		t.Setenv(key, "")
	}
}

func TestResolveBaseURL(t *testing.T) {
	tests := []struct {
		name     string
		override string
		origin   string
		expected string
	}{
		{"override_wins", "https://api.example.com/api/", "http://localhost:5173", "https://api.example.com/api"},
		{"override_with_spaces", "  http://10.0.0.2:8000/api  ", "", "http://10.0.0.2:8000/api"},
		{"undefined_override_ignored", "undefined/api", "http://localhost:5173", LocalAPIURL},
		{"production_origin", "", "https://django-bookstore-frontend.onrender.com", DefaultAPIURL},
		{"localhost_origin", "", "http://localhost:3000", LocalAPIURL},
		{"loopback_origin", "", "http://127.0.0.1:8080", LocalAPIURL},
		{"vite_port_origin", "", "http://192.168.1.4:5173", LocalAPIURL},
		{"unknown_origin", "", "https://shop.example.org", DefaultAPIURL},
		{"nothing_set", "", "", DefaultAPIURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveBaseURL(tt.override, tt.origin); got != tt.expected {
				t.Errorf("ResolveBaseURL() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name          string
		mutate        func(*Config)
		wantError     bool
		errorContains string
	}{
		{
			name:   "defaults",
			mutate: func(*Config) {},
		},
		{
			name:   "valid_override",
			mutate: func(c *Config) { c.APIURL = "https://api.example.com/api" },
		},
		{
			name:          "relative_override",
			mutate:        func(c *Config) { c.APIURL = "/api" },
			wantError:     true,
			errorContains: "absolute http(s) URL",
		},
		{
			name:          "ftp_override",
			mutate:        func(c *Config) { c.APIURL = "ftp://files.example.com" },
			wantError:     true,
			errorContains: "absolute http(s) URL",
		},
		{
			name:   "undefined_override_is_ignored",
			mutate: func(c *Config) { c.APIURL = "undefined" },
		},
		{
			name:          "zero_timeout",
			mutate:        func(c *Config) { c.HTTPTimeout = 0 },
			wantError:     true,
			errorContains: "timeout",
		},
		{
			name:          "bad_log_format",
			mutate:        func(c *Config) { c.LogFormat = "xml" },
			wantError:     true,
			errorContains: "log format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)

			err := cfg.Validate()

			if tt.wantError {
				if err == nil {
					t.Error("Expected error, got nil")
				} else if !strings.Contains(err.Error(), tt.errorContains) {
					t.Errorf("Expected error containing %q, got %q", tt.errorContains, err.Error())
				}
			} else if err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("STOREFRONT_API_URL", "http://127.0.0.1:9999/api")
	t.Setenv("STOREFRONT_HTTP_TIMEOUT", "3s")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("STOREFRONT_COOKIE_FILE", "/tmp/cookies.json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BaseURL() != "http://127.0.0.1:9999/api" {
		t.Errorf("BaseURL() = %q", cfg.BaseURL())
	}
	if cfg.HTTPTimeout != 3*time.Second {
		t.Errorf("HTTPTimeout = %v, want 3s", cfg.HTTPTimeout)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.CookieFile != "/tmp/cookies.json" {
		t.Errorf("CookieFile = %q", cfg.CookieFile)
	}
}

func TestLoad_YAMLFileThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "storefront.yaml")
	content := "apiURL: https://files.example.com/api\norigin: http://localhost:5173\nhttpTimeout: 20s\nlogFormat: json\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STOREFRONT_CONFIG", path)
	t.Setenv("LOG_FORMAT", "text")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.APIURL != "https://files.example.com/api" {
		t.Errorf("APIURL = %q", cfg.APIURL)
	}
	if cfg.HTTPTimeout != 20*time.Second {
		t.Errorf("HTTPTimeout = %v, want 20s", cfg.HTTPTimeout)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat = %q, env should win over file", cfg.LogFormat)
	}
}

func TestLoad_InvalidTimeout(t *testing.T) {
	clearEnv(t)
	t.Setenv("STOREFRONT_HTTP_TIMEOUT", "soon")

	if _, err := Load(); err == nil {
		t.Error("Expected error for invalid timeout")
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("STOREFRONT_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "read config") {
		t.Errorf("Expected read config error, got %v", err)
	}
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		expected    bool
	}{
		{"production", "production", true},
		{"prod", "prod", true},
		{"development", "development", false},
		{"staging", "staging", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Environment: tt.environment}
			if got := cfg.IsProduction(); got != tt.expected {
				t.Errorf("IsProduction() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestParseOrigins(t *testing.T) {
	got := ParseOrigins(" http://a.test , ,http://b.test")
	if len(got) != 2 || got[0] != "http://a.test" || got[1] != "http://b.test" {
		t.Errorf("ParseOrigins() = %v", got)
	}
}
