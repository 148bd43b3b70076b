package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DATABASE_URL", "DB_DRIVER", "PORT", "FRONTEND_URL", "JWT_SECRET", "JOB_SECRET",
		"AUTOPOST_SOURCES", "AUTOPOST_INTERVAL", "APP_TIMEZONE", "REPORTING_CURRENCY",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://ledger@localhost/ledger?sslmode=disable")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Postgres, cfg.Driver)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, []string{"recurring_charges"}, cfg.ChargeSources)
	assert.Equal(t, "EUR", cfg.ReportingCurrency)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Zero(t, cfg.AutoPostInterval)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "file:ledger.db")
	t.Setenv("AUTOPOST_SOURCES", "recurring_charges, subscriptions ,")
	t.Setenv("AUTOPOST_INTERVAL", "15m")
	t.Setenv("APP_TIMEZONE", "Europe/Paris")
	t.Setenv("REPORTING_CURRENCY", "usd")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, SQLite, cfg.Driver)
	assert.Equal(t, []string{"recurring_charges", "subscriptions"}, cfg.ChargeSources)
	assert.Equal(t, 15*time.Minute, cfg.AutoPostInterval)
	assert.Equal(t, "Europe/Paris", cfg.Location.String())
	assert.Equal(t, "USD", cfg.ReportingCurrency)
}

func TestLoadConfigurationErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		key  string
	}{
		{"missing database", map[string]string{}, "DATABASE_URL"},
		{"bad driver", map[string]string{"DATABASE_URL": "x", "DB_DRIVER": "mysql"}, "DB_DRIVER"},
		{"bad interval", map[string]string{"DATABASE_URL": "x", "AUTOPOST_INTERVAL": "-1s"}, "AUTOPOST_INTERVAL"},
		{"bad timezone", map[string]string{"DATABASE_URL": "x", "APP_TIMEZONE": "Mars/Olympus"}, "APP_TIMEZONE"},
		{"no sources", map[string]string{"DATABASE_URL": "x", "AUTOPOST_SOURCES": " , "}, "AUTOPOST_SOURCES"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			require.NotNil(t, cfg)
			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.key, cfgErr.Key)
		})
	}
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	db, err := InitDB(&Config{DatabaseURL: filepath.Join(t.TempDir(), "m.db"), Driver: SQLite})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, RunMigrations(db))
	require.NoError(t, RunMigrations(db))

	insert := `INSERT INTO ledger_entries (id, owner_id, entry_date, amount, currency, entry_type, recurring_charge_id, occurrence_date)
		VALUES ($1, 'u1', '2024-01-01', 1, 'EUR', 'expense', 'c1', '2024-01-01')`
	_, err = db.Exec(insert, "e1")
	require.NoError(t, err)
	_, err = db.Exec(insert, "e2")
	assert.Error(t, err, "one entry per charge occurrence")
}

func TestInitDBRequiresURL(t *testing.T) {
	_, err := InitDB(&Config{Driver: SQLite})
	var cfgErr *ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}
