package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultAPIURL is used when neither an override nor a known origin
	// selects another API location.
	DefaultAPIURL = "https://django-bookstore-ed1i.onrender.com/api"
	// LocalAPIURL serves local development origins.
	LocalAPIURL = "http://localhost:8000/api"

	productionFrontendHost = "django-bookstore-frontend.onrender.com"
)

// Config holds application configuration
type Config struct {
	APIURL      string        `yaml:"apiURL"`
	Origin      string        `yaml:"origin"`
	CookieFile  string        `yaml:"cookieFile"`
	HTTPTimeout time.Duration `yaml:"httpTimeout"`
	LogLevel    string        `yaml:"logLevel"`
	LogFormat   string        `yaml:"logFormat"`
	Environment string        `yaml:"environment"` // development, staging, production

	// Fake API server settings
	Port           string `yaml:"port"`
	AllowedOrigins string `yaml:"allowedOrigins"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
	return Config{
		CookieFile:     DefaultCookieFile(),
		HTTPTimeout:    15 * time.Second,
		LogLevel:       "info",
		LogFormat:      "text",
		Environment:    "development",
		Port:           "8000",
		AllowedOrigins: "http://localhost:5173,http://127.0.0.1:5173",
	}
}

// Load builds the configuration from defaults, an optional YAML file named by
// STOREFRONT_CONFIG and the environment, in increasing precedence. A .env
// file in the working directory is loaded into the environment first.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	cfg := Defaults()

	if path := os.Getenv("STOREFRONT_CONFIG"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v, ok := lookupEnv("STOREFRONT_API_URL"); ok {
		cfg.APIURL = v
	}
	if v, ok := lookupEnv("STOREFRONT_ORIGIN"); ok {
		cfg.Origin = v
	}
	if v, ok := lookupEnv("STOREFRONT_COOKIE_FILE"); ok {
		cfg.CookieFile = v
	}
	if v, ok := lookupEnv("STOREFRONT_HTTP_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: invalid STOREFRONT_HTTP_TIMEOUT: %w", err)
		}
		cfg.HTTPTimeout = d
	}
	if v, ok := lookupEnv("LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok := lookupEnv("LOG_FORMAT"); ok {
		cfg.LogFormat = v
	}
	if v, ok := lookupEnv("ENVIRONMENT"); ok {
		cfg.Environment = v
	}
	if v, ok := lookupEnv("PORT"); ok {
		cfg.Port = v
	}
	if v, ok := lookupEnv("ALLOWED_ORIGINS"); ok {
		cfg.AllowedOrigins = v
	}
	return nil
}

// Validate checks configuration for correctness
func (c *Config) Validate() error {
	if override := strings.TrimSpace(c.APIURL); usableOverride(override) {
		u, err := url.Parse(override)
		if err != nil {
			return fmt.Errorf("config: invalid API URL: %w", err)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("config: API URL must be an absolute http(s) URL, got %q", override)
		}
	}
	if c.HTTPTimeout <= 0 {
		return errors.New("config: HTTP timeout must be positive")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("config: log format must be json or text, got %q", c.LogFormat)
	}
	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// BaseURL resolves the API location for this configuration.
func (c *Config) BaseURL() string {
	return ResolveBaseURL(c.APIURL, c.Origin)
}

// ResolveBaseURL picks the API location: an explicit override wins, then the
// API paired with the calling origin, then DefaultAPIURL. The result has no
// trailing slash.
func ResolveBaseURL(override, origin string) string {
	override = strings.TrimSpace(override)
	if usableOverride(override) {
		return strings.TrimRight(override, "/")
	}

	switch {
	case origin == "":
	case strings.Contains(origin, productionFrontendHost):
		return DefaultAPIURL
	case strings.Contains(origin, "localhost"),
		strings.Contains(origin, "127.0.0.1"),
		strings.Contains(origin, "5173"):
		return LocalAPIURL
	}
	return DefaultAPIURL
}

// usableOverride rejects values left behind by unset template variables.
func usableOverride(v string) bool {
	return v != "" && !strings.Contains(v, "undefined")
}

// DefaultCookieFile is where the CLI keeps its cookies between runs.
func DefaultCookieFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "storefront", "cookies.json")
}

// ParseOrigins parses comma-separated origins string
func ParseOrigins(originsStr string) []string {
	parts := strings.Split(originsStr, ",")
	origins := make([]string, 0, len(parts))
	for _, origin := range parts {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}
