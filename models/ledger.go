package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type EntryType string

const (
	EntryIncome  EntryType = "income"
	EntryExpense EntryType = "expense"
)

// LedgerEntry is a posted transaction. Entries derived from a recurring charge
// carry (RecurringChargeID, OccurrenceDate), which is unique across the ledger.
type LedgerEntry struct {
	ID                string          `json:"id"`
	OwnerID           string          `json:"owner_id"`
	Date              Date            `json:"date"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	Type              EntryType       `json:"type"`
	CategoryID        *string         `json:"category_id,omitempty"`
	AccountID         *string         `json:"account_id,omitempty"`
	Note              string          `json:"note"`
	RecurringChargeID *string         `json:"recurring_charge_id,omitempty"`
	OccurrenceDate    Date            `json:"occurrence_date,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// AutoPostResult is returned by one auto-post pass.
type AutoPostResult struct {
	Posted        int      `json:"posted"`
	Advanced      int      `json:"advanced"`
	AsOf          Date     `json:"asOf"`
	FailedSources []string `json:"failedSources,omitempty"`
}

// ManualPostResult is returned by a "charge now" request.
type ManualPostResult struct {
	Posted      bool             `json:"posted"`
	Duplicate   bool             `json:"duplicate"`
	Advanced    bool             `json:"advanced"`
	Entry       *LedgerEntry     `json:"entry"`
	NextDueDate Date             `json:"next_due_date"`
	Charge      *RecurringCharge `json:"-"`
}
