package main

import (
	"database/sql"
	"fmt"

	"github.com/LovationAdmin/budget-ledger/config"
	"github.com/LovationAdmin/budget-ledger/services"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const version = "1.0.0"

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "ledgerctl",
		Short:   "Operate the recurring charge scheduler and rate history",
		Version: version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newAutoPostCommand())
	rootCmd.AddCommand(newOccurrencesCommand())
	rootCmd.AddCommand(newRatesCommand())
	rootCmd.AddCommand(newConvertCommand())
	rootCmd.AddCommand(newMigrateLegacyCommand())

	return rootCmd
}

// env is an opened database with the service stack wired over it.
type env struct {
	cfg   *config.Config
	db    *sql.DB
	stack *services.Stack
}

func (e *env) Close() error { return e.db.Close() }

func openEnv() (*env, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	db, err := config.InitDB(cfg)
	if err != nil {
		return nil, err
	}
	if err := config.RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	stack, err := services.NewStack(db, cfg.Driver, cfg.ChargeSources, nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("wiring services: %w", err)
	}
	return &env{cfg: cfg, db: db, stack: stack}, nil
}
