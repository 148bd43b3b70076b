package config

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// InitDB opens and pings the connection pool for cfg.
func InitDB(cfg *Config) (*sql.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, &ConfigurationError{Key: "DATABASE_URL", Reason: "is required"}
	}

	db, err := sql.Open(string(cfg.Driver), cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.Driver == SQLite {
		// One writer at a time; busy_timeout in the DSN covers the rest.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
	}

	return db, nil
}

// RunMigrations applies the schema. Every statement is idempotent and valid on
// both Postgres and SQLite.
func RunMigrations(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS recurring_charges (
			id VARCHAR(36) PRIMARY KEY,
			owner_id VARCHAR(36) NOT NULL,
			name VARCHAR(255) NOT NULL,
			amount NUMERIC(18,4) NOT NULL,
			currency VARCHAR(3) NOT NULL,
			interval_unit VARCHAR(10) NOT NULL,
			every_n INTEGER NOT NULL DEFAULT 1 CHECK (every_n >= 1),
			next_due_date DATE NOT NULL,
			funding_account_id VARCHAR(36),
			category_id VARCHAR(36),
			active BOOLEAN NOT NULL DEFAULT TRUE,
			auto_post BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		// The unique constraint is what makes posting idempotent.
		`CREATE TABLE IF NOT EXISTS ledger_entries (
			id VARCHAR(36) PRIMARY KEY,
			owner_id VARCHAR(36) NOT NULL,
			entry_date DATE NOT NULL,
			amount NUMERIC(18,4) NOT NULL,
			currency VARCHAR(3) NOT NULL,
			entry_type VARCHAR(10) NOT NULL,
			category_id VARCHAR(36),
			account_id VARCHAR(36),
			note TEXT,
			recurring_charge_id VARCHAR(36),
			occurrence_date DATE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (recurring_charge_id, occurrence_date)
		)`,

		`CREATE TABLE IF NOT EXISTS exchange_rates (
			rate_date DATE NOT NULL,
			from_currency VARCHAR(3) NOT NULL,
			to_currency VARCHAR(3) NOT NULL,
			rate NUMERIC(20,10) NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (rate_date, from_currency, to_currency)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_recurring_charges_due ON recurring_charges(next_due_date)`,
		`CREATE INDEX IF NOT EXISTS idx_recurring_charges_owner ON recurring_charges(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_entries_owner_date ON ledger_entries(owner_id, entry_date)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	return nil
}
