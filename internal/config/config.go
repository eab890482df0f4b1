package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Env  string `yaml:"env"`
	Port string `yaml:"port"`

	// Diet backend (OCR / extraction / plan generation)
	BackendURL     string        `yaml:"backend_url"`
	BackendAPIKey  string        `yaml:"backend_api_key"`
	BackendTimeout time.Duration `yaml:"backend_timeout"`

	SessionTTL  time.Duration `yaml:"session_ttl"`
	MaxUploadMB int64         `yaml:"max_upload_mb"`

	AuthEnabled bool     `yaml:"auth_enabled"`
	JWTSecret   string   `yaml:"jwt_secret"`
	DatabaseURL string   `yaml:"database_url"`
	AdminEmails []string `yaml:"admin_emails"`

	CORSOrigins []string `yaml:"cors_origins"`
	SentryDSN   string   `yaml:"sentry_dsn"`
}

func Default() *Config {
	return &Config{
		Env:            "development",
		Port:           "8080",
		BackendURL:     "http://localhost:8000",
		BackendTimeout: 120 * time.Second,
		SessionTTL:     2 * time.Hour,
		MaxUploadMB:    20,
		CORSOrigins:    []string{"http://localhost:3000", "http://localhost:5173"},
	}
}

// Load resolves configuration in three layers: defaults, the optional YAML
// file named by CONFIG_FILE, then environment variables. A .env file is read
// outside production.
func Load() (*Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load()
	}

	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Env = getEnv("APP_ENV", c.Env)
	c.Port = getEnv("PORT", c.Port)
	c.BackendURL = strings.TrimRight(getEnv("BACKEND_URL", c.BackendURL), "/")
	c.BackendAPIKey = getEnv("BACKEND_API_KEY", c.BackendAPIKey)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.SentryDSN = getEnv("SENTRY_DSN", c.SentryDSN)

	var err error
	if c.BackendTimeout, err = getDuration("BACKEND_TIMEOUT", c.BackendTimeout); err != nil {
		return err
	}
	if c.SessionTTL, err = getDuration("SESSION_TTL", c.SessionTTL); err != nil {
		return err
	}

	if v := os.Getenv("MAX_UPLOAD_MB"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_UPLOAD_MB: %w", err)
		}
		c.MaxUploadMB = n
	}

	if v := os.Getenv("AUTH_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("AUTH_ENABLED: %w", err)
		}
		c.AuthEnabled = b
	}

	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("ADMIN_EMAILS"); v != "" {
		c.AdminEmails = splitList(v)
	}

	return nil
}

// Validate fails fast on settings the server cannot start without.
func (c *Config) Validate() error {
	if c.BackendURL == "" {
		return errors.New("BACKEND_URL is not set")
	}
	if c.AuthEnabled && c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required when AUTH_ENABLED is true")
	}
	if c.MaxUploadMB <= 0 {
		return errors.New("MAX_UPLOAD_MB must be positive")
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// MaxUploadBytes is the per-file limit applied when staging uploads.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// splitList parses a comma-separated env value, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
