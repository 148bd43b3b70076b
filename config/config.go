package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Dialect names the SQL driver in use. Queries are written to run on both.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite3"
)

// ConfigurationError means the service cannot run at all with the current
// environment, e.g. missing storage credentials.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s %s", e.Key, e.Reason)
}

type Config struct {
	DatabaseURL       string
	Driver            Dialect
	Port              string
	FrontendURL       string
	JWTSecret         string
	JobSecret         string
	ChargeSources     []string
	AutoPostInterval  time.Duration
	Location          *time.Location
	ReportingCurrency string
}

// Load reads the configuration from the environment. It returns a
// *ConfigurationError when a required value is missing or malformed.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		Port:              getEnv("PORT", "8080"),
		FrontendURL:       getEnv("FRONTEND_URL", "http://localhost:3000"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		JobSecret:         os.Getenv("JOB_SECRET"),
		ReportingCurrency: strings.ToUpper(getEnv("REPORTING_CURRENCY", "EUR")),
		Location:          time.UTC,
	}

	if cfg.DatabaseURL == "" {
		return cfg, &ConfigurationError{Key: "DATABASE_URL", Reason: "is required"}
	}

	driver, err := detectDriver(os.Getenv("DB_DRIVER"), cfg.DatabaseURL)
	if err != nil {
		return cfg, err
	}
	cfg.Driver = driver

	for _, src := range strings.Split(getEnv("AUTOPOST_SOURCES", "recurring_charges"), ",") {
		if src = strings.TrimSpace(src); src != "" {
			cfg.ChargeSources = append(cfg.ChargeSources, src)
		}
	}
	if len(cfg.ChargeSources) == 0 {
		return cfg, &ConfigurationError{Key: "AUTOPOST_SOURCES", Reason: "lists no table"}
	}

	if v := os.Getenv("AUTOPOST_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return cfg, &ConfigurationError{Key: "AUTOPOST_INTERVAL", Reason: fmt.Sprintf("is not a positive duration: %q", v)}
		}
		cfg.AutoPostInterval = d
	}

	if tz := os.Getenv("APP_TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return cfg, &ConfigurationError{Key: "APP_TIMEZONE", Reason: err.Error()}
		}
		cfg.Location = loc
	}

	return cfg, nil
}

func detectDriver(explicit, url string) (Dialect, error) {
	switch strings.ToLower(explicit) {
	case "postgres", "postgresql":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "":
	default:
		return "", &ConfigurationError{Key: "DB_DRIVER", Reason: fmt.Sprintf("is unsupported: %q", explicit)}
	}

	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") || strings.Contains(url, "host=") {
		return Postgres, nil
	}
	return SQLite, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
