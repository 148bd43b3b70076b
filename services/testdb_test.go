package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/LovationAdmin/budget-ledger/config"
	"github.com/LovationAdmin/budget-ledger/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "ledger.db")
	db, err := config.InitDB(&config.Config{
		DatabaseURL: path + "?_busy_timeout=5000&_journal_mode=WAL",
		Driver:      config.SQLite,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, config.RunMigrations(db))
	return db
}

func newTestStack(t *testing.T) (*Stack, *sql.DB) {
	t.Helper()

	db := newTestDB(t)
	st, err := NewStack(db, config.SQLite, []string{"recurring_charges"}, nil)
	require.NoError(t, err)
	return st, db
}

func strPtr(s string) *string { return &s }

func d(s string) models.Date { return models.MustParseDate(s) }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// monthlyCharge is an active, auto-posted monthly charge with a funding account.
func monthlyCharge(id, owner, amount, nextDue string) models.RecurringCharge {
	return models.RecurringCharge{
		ID:               id,
		OwnerID:          owner,
		Name:             "Streaming",
		Amount:           dec(amount),
		Currency:         "EUR",
		Interval:         models.IntervalMonth,
		Every:            1,
		NextDueDate:      d(nextDue),
		FundingAccountID: strPtr("acc-1"),
		Active:           true,
		AutoPost:         true,
	}
}

func createCharge(t *testing.T, st *Stack, c models.RecurringCharge) {
	t.Helper()

	created, err := st.Charges.Create(context.Background(), &c)
	require.NoError(t, err)
	require.True(t, created)
}
