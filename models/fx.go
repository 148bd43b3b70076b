package models

import (
	"github.com/shopspring/decimal"
)

// ExchangeRateObservation says 1 unit of FromCurrency was worth Rate units of
// ToCurrency on Date.
type ExchangeRateObservation struct {
	Date         Date            `json:"date" yaml:"date"`
	FromCurrency string          `json:"from_currency" yaml:"from"`
	ToCurrency   string          `json:"to_currency" yaml:"to"`
	Rate         decimal.Decimal `json:"rate" yaml:"rate"`
}

// RecordRateRequest is the body of POST /fx/rates. Date and Rate are
// validated by RateStore.Upsert.
type RecordRateRequest struct {
	Date         Date            `json:"date"`
	FromCurrency string          `json:"from_currency" binding:"required,len=3"`
	ToCurrency   string          `json:"to_currency" binding:"required,len=3"`
	Rate         decimal.Decimal `json:"rate"`
}

// Conversion is the outcome of converting an amount. When Known is false the
// amount is null on the wire, never zero.
type Conversion struct {
	Amount   *decimal.Decimal `json:"amount"`
	Currency string           `json:"currency"`
	Rate     *decimal.Decimal `json:"rate,omitempty"`
	Known    bool             `json:"known"`
}

// LedgerSummary aggregates ledger entries of a window in one currency.
// Entries whose rate could not be resolved are counted, not summed.
type LedgerSummary struct {
	Window        Window          `json:"window"`
	Currency      string          `json:"currency"`
	Income        decimal.Decimal `json:"income"`
	Expense       decimal.Decimal `json:"expense"`
	Net           decimal.Decimal `json:"net"`
	NetDisplay    string          `json:"net_display"`
	EntryCount    int             `json:"entry_count"`
	UnresolvedIDs []string        `json:"unresolved_entry_ids"`
	Complete      bool            `json:"complete"`
}

// ForecastItem is one projected occurrence of a recurring charge.
type ForecastItem struct {
	ChargeID   string          `json:"charge_id"`
	ChargeName string          `json:"charge_name"`
	Date       Date            `json:"date"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Converted  Conversion      `json:"converted"`
}

type Forecast struct {
	Window     Window          `json:"window"`
	Currency   string          `json:"currency"`
	Items      []ForecastItem  `json:"items"`
	Total      decimal.Decimal `json:"total"`
	Unresolved int             `json:"unresolved"`

	// SkippedIDs are charges whose schedule could not be enumerated.
	SkippedIDs []string `json:"skipped_charge_ids"`
}
