package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/LovationAdmin/budget-ledger/models"
	"github.com/LovationAdmin/budget-ledger/utils"

	"github.com/shopspring/decimal"
)

type EntryLister interface {
	ListByOwner(ctx context.Context, ownerID string, window models.Window) ([]models.LedgerEntry, error)
}

type ChargeLister interface {
	ListByOwner(ctx context.Context, ownerID string) ([]models.RecurringCharge, error)
}

// RateSource yields a rate index built from the currently stored observations.
type RateSource interface {
	Index(ctx context.Context) (*RateIndex, error)
}

// ReportingService aggregates multi-currency amounts into one currency.
// Each report builds one RateIndex and uses it for every conversion.
type ReportingService struct {
	entries EntryLister
	charges ChargeLister
	rates   RateSource
}

func NewReportingService(entries EntryLister, charges ChargeLister, rates RateSource) *ReportingService {
	return &ReportingService{entries: entries, charges: charges, rates: rates}
}

// Summary converts each entry of the window at its own date. Entries without
// a usable rate are listed in UnresolvedIDs and left out of the totals.
func (s *ReportingService) Summary(ctx context.Context, ownerID string, window models.Window, currency string) (models.LedgerSummary, error) {
	currency, err := ValidateCurrency(currency)
	if err != nil {
		return models.LedgerSummary{}, err
	}
	summary := models.LedgerSummary{
		Window:        window,
		Currency:      currency,
		Income:        decimal.Zero,
		Expense:       decimal.Zero,
		UnresolvedIDs: []string{},
	}

	entries, err := s.entries.ListByOwner(ctx, ownerID, window)
	if err != nil {
		return summary, fmt.Errorf("loading ledger entries: %w", err)
	}
	idx, err := s.rates.Index(ctx)
	if err != nil {
		return summary, err
	}

	for _, e := range entries {
		summary.EntryCount++
		converted, err := idx.Convert(e.Amount, e.Currency, currency, e.Date)
		if errors.Is(err, ErrUnresolvedRate) {
			summary.UnresolvedIDs = append(summary.UnresolvedIDs, e.ID)
			continue
		}
		if err != nil {
			return summary, err
		}
		if e.Type == models.EntryIncome {
			summary.Income = summary.Income.Add(converted.Abs())
		} else {
			summary.Expense = summary.Expense.Add(converted.Abs())
		}
	}

	summary.Net = summary.Income.Sub(summary.Expense)
	summary.NetDisplay = FormatAmount(summary.Net, currency)
	summary.Complete = len(summary.UnresolvedIDs) == 0
	return summary, nil
}

// Forecast projects the occurrences of an owner's active charges inside window
// and prices each one at the most recent rate known on its date. A charge
// whose schedule cannot be enumerated is listed in SkippedIDs.
func (s *ReportingService) Forecast(ctx context.Context, ownerID string, window models.Window, currency string) (models.Forecast, error) {
	currency, err := ValidateCurrency(currency)
	if err != nil {
		return models.Forecast{}, err
	}
	forecast := models.Forecast{
		Window:     window,
		Currency:   currency,
		Total:      decimal.Zero,
		Items:      []models.ForecastItem{},
		SkippedIDs: []string{},
	}

	charges, err := s.charges.ListByOwner(ctx, ownerID)
	if err != nil {
		return forecast, fmt.Errorf("loading charges: %w", err)
	}
	idx, err := s.rates.Index(ctx)
	if err != nil {
		return forecast, err
	}

	for _, c := range charges {
		dates, err := ChargeOccurrences(c, window)
		if err != nil {
			utils.SafeWarn("[Forecast] skipping charge %s: %v", utils.MaskID(c.ID), err)
			forecast.SkippedIDs = append(forecast.SkippedIDs, c.ID)
			continue
		}
		for _, d := range dates {
			conv := idx.Conversion(c.Amount, c.Currency, currency, d)
			if conv.Known {
				forecast.Total = forecast.Total.Add(*conv.Amount)
			} else {
				forecast.Unresolved++
			}
			forecast.Items = append(forecast.Items, models.ForecastItem{
				ChargeID:   c.ID,
				ChargeName: c.Name,
				Date:       d,
				Amount:     c.Amount,
				Currency:   c.Currency,
				Converted:  conv,
			})
		}
	}

	sort.SliceStable(forecast.Items, func(i, j int) bool {
		return forecast.Items[i].Date.Before(forecast.Items[j].Date)
	})
	return forecast, nil
}
