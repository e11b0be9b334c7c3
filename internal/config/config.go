package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Email transports.
const (
	TransportSMTP    = "smtp"
	TransportWebhook = "webhook"
	TransportLog     = "log"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a sensible default; DATABASE_URL is required only for the
// postgres driver.
type Config struct {
	// Server
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Database
	StoreDriver string
	DatabaseURL string
	SQLitePath  string
	DBMaxConns  int32
	DBMinConns  int32

	// Public base URL used to build card links in digests.
	BaseURL string

	// Shared secret for the scheduled-job trigger. Empty disables the check.
	CronSecret string

	// In-process digest schedule. Zero leaves scheduling to an external cron.
	DigestInterval time.Duration

	// Email delivery
	EmailTransport    string
	SMTPHost          string
	SMTPPort          int
	SMTPUser          string
	SMTPPassword      string
	EmailFrom         string
	EmailFromName     string
	EmailWebhookURL   string
	EmailWebhookToken string
	EmailTimeout      time.Duration

	// Maximum digest emails per second.
	EmailRateLimit int
}

// Load reads a .env file when present and then the process environment.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		StoreDriver: getEnv("STORE_DRIVER", DriverPostgres),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  getEnv("SQLITE_PATH", "data/movedigest.db"),
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 2)),

		BaseURL:    strings.TrimRight(getEnv("BASE_URL", "http://localhost:3000"), "/"),
		CronSecret: os.Getenv("CRON_SECRET"),

		DigestInterval: getDuration("DIGEST_INTERVAL", 0),

		EmailTransport:    getEnv("EMAIL_TRANSPORT", TransportLog),
		SMTPHost:          os.Getenv("SMTP_HOST"),
		SMTPPort:          getInt("SMTP_PORT", 587),
		SMTPUser:          os.Getenv("SMTP_USER"),
		SMTPPassword:      os.Getenv("SMTP_PASSWORD"),
		EmailFrom:         getEnv("EMAIL_FROM", "notifications@localhost"),
		EmailFromName:     getEnv("EMAIL_FROM_NAME", "Kan"),
		EmailWebhookURL:   os.Getenv("EMAIL_WEBHOOK_URL"),
		EmailWebhookToken: os.Getenv("EMAIL_WEBHOOK_TOKEN"),
		EmailTimeout:      getDuration("EMAIL_TIMEOUT", 10*time.Second),

		EmailRateLimit: getInt("EMAIL_RATE_LIMIT", 10),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.EmailTransport {
	case TransportSMTP:
		if c.SMTPHost == "" {
			return errors.New("SMTP_HOST is required for the smtp transport")
		}
	case TransportWebhook:
		if c.EmailWebhookURL == "" {
			return errors.New("EMAIL_WEBHOOK_URL is required for the webhook transport")
		}
	case TransportLog:
	default:
		return fmt.Errorf("unknown EMAIL_TRANSPORT %q", c.EmailTransport)
	}

	if c.EmailRateLimit <= 0 {
		return errors.New("EMAIL_RATE_LIMIT must be positive")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
