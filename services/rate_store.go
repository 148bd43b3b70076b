package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/LovationAdmin/budget-ledger/models"
	"github.com/LovationAdmin/budget-ledger/utils"
)

// RateStore persists exchange rate observations. The converter only reads
// what is already stored here.
type RateStore struct {
	db *sql.DB
}

func NewRateStore(db *sql.DB) *RateStore {
	return &RateStore{db: db}
}

const upsertRateQuery = `
	INSERT INTO exchange_rates (rate_date, from_currency, to_currency, rate)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (rate_date, from_currency, to_currency)
	DO UPDATE SET rate = EXCLUDED.rate, updated_at = CURRENT_TIMESTAMP
`

func validateObservation(o models.ExchangeRateObservation) (models.ExchangeRateObservation, error) {
	var err error
	if o.Date.IsZero() {
		return o, fmt.Errorf("rate observation has no date")
	}
	if !o.Rate.IsPositive() {
		return o, fmt.Errorf("rate must be positive, got %s", o.Rate)
	}
	if o.FromCurrency, err = ValidateCurrency(o.FromCurrency); err != nil {
		return o, err
	}
	if o.ToCurrency, err = ValidateCurrency(o.ToCurrency); err != nil {
		return o, err
	}
	if o.FromCurrency == o.ToCurrency {
		return o, fmt.Errorf("rate pair %s/%s is an identity", o.FromCurrency, o.ToCurrency)
	}
	return o, nil
}

// Upsert records one observation; a second write for the same date and pair
// replaces the first.
func (s *RateStore) Upsert(ctx context.Context, o models.ExchangeRateObservation) (models.ExchangeRateObservation, error) {
	o, err := validateObservation(o)
	if err != nil {
		return o, err
	}
	if _, err := s.db.ExecContext(ctx, upsertRateQuery, o.Date, o.FromCurrency, o.ToCurrency, o.Rate); err != nil {
		return o, fmt.Errorf("failed to save rate: %w", err)
	}
	return o, nil
}

// UpsertMany records a batch in one transaction. Any invalid row aborts it.
func (s *RateStore) UpsertMany(ctx context.Context, observations []models.ExchangeRateObservation) (int, error) {
	for i, o := range observations {
		valid, err := validateObservation(o)
		if err != nil {
			return 0, fmt.Errorf("row %d: %w", i+1, err)
		}
		observations[i] = valid
	}

	err := utils.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertRateQuery)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, o := range observations {
			if _, err := stmt.ExecContext(ctx, o.Date, o.FromCurrency, o.ToCurrency, o.Rate); err != nil {
				return fmt.Errorf("failed to save rate %s %s/%s: %w", o.Date, o.FromCurrency, o.ToCurrency, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(observations), nil
}

// All returns every stored observation ordered by date.
func (s *RateStore) All(ctx context.Context) ([]models.ExchangeRateObservation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rate_date, from_currency, to_currency, rate
		FROM exchange_rates
		ORDER BY rate_date, from_currency, to_currency
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ExchangeRateObservation
	for rows.Next() {
		var o models.ExchangeRateObservation
		if err := rows.Scan(&o.Date, &o.FromCurrency, &o.ToCurrency, &o.Rate); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Index loads all observations and builds a RateIndex from them.
func (s *RateStore) Index(ctx context.Context) (*RateIndex, error) {
	obs, err := s.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load exchange rates: %w", err)
	}
	return BuildRateIndex(obs), nil
}
