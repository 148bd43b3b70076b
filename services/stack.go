package services

import (
	"database/sql"
	"fmt"

	"github.com/LovationAdmin/budget-ledger/config"
)

// Stack wires stores and services over one database. The first charge table
// is the primary one: it receives new charges and manual posts.
type Stack struct {
	Charges *ChargeStore
	Sources []ChargeSource
	Ledger  *LedgerStore
	Rates   *RateStore
	Engine  *AutoPostEngine
	Poster  *ManualPoster
	Reports *ReportingService
}

func NewStack(db *sql.DB, dialect config.Dialect, chargeTables []string, notifier LedgerNotifier) (*Stack, error) {
	if len(chargeTables) == 0 {
		return nil, fmt.Errorf("at least one charge table is required")
	}

	st := &Stack{
		Ledger: NewLedgerStore(db),
		Rates:  NewRateStore(db),
	}
	for _, table := range chargeTables {
		store, err := NewChargeStore(db, dialect, table)
		if err != nil {
			return nil, err
		}
		if st.Charges == nil {
			st.Charges = store
		}
		st.Sources = append(st.Sources, store)
	}

	st.Engine = NewAutoPostEngine(st.Ledger, st.Sources...)
	if notifier != nil {
		st.Engine.WithNotifier(notifier)
	}
	st.Poster = NewManualPoster(st.Charges, st.Ledger, notifier)
	st.Reports = NewReportingService(st.Ledger, st.Charges, st.Rates)
	return st, nil
}
