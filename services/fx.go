package services

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/LovationAdmin/budget-ledger/models"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// ErrUnresolvedRate is returned when no observation can price a pair on a date.
var ErrUnresolvedRate = errors.New("exchange rate unknown")

type UnresolvedRateError struct {
	From, To string
	On       models.Date
}

func (e *UnresolvedRateError) Error() string {
	return fmt.Sprintf("no exchange rate %s/%s on or before %s", e.From, e.To, e.On)
}

func (e *UnresolvedRateError) Unwrap() error { return ErrUnresolvedRate }

type currencyPair struct {
	from, to string
}

type ratePoint struct {
	date models.Date
	rate decimal.Decimal
}

// RateIndex is a read-only, date-sorted view of rate observations keyed by
// ordered currency pair. Build it once per batch of observations; lookups
// never mutate it and it is safe for concurrent use.
type RateIndex struct {
	series map[currencyPair][]ratePoint
}

// BuildRateIndex groups observations per pair and sorts each series by date.
// For a repeated (date, pair) the observation appearing last wins.
// Non-positive rates are ignored.
func BuildRateIndex(observations []models.ExchangeRateObservation) *RateIndex {
	type indexed struct {
		ratePoint
		seq int
	}
	grouped := make(map[currencyPair][]indexed)
	for i, o := range observations {
		if o.Date.IsZero() || !o.Rate.IsPositive() {
			continue
		}
		key := currencyPair{from: normalizeCurrency(o.FromCurrency), to: normalizeCurrency(o.ToCurrency)}
		grouped[key] = append(grouped[key], indexed{ratePoint{date: o.Date, rate: o.Rate}, i})
	}

	idx := &RateIndex{series: make(map[currencyPair][]ratePoint, len(grouped))}
	for key, points := range grouped {
		slices.SortStableFunc(points, func(a, b indexed) int {
			if c := a.date.Compare(b.date); c != 0 {
				return c
			}
			return a.seq - b.seq
		})
		series := make([]ratePoint, 0, len(points))
		for _, p := range points {
			if n := len(series); n > 0 && series[n-1].date.Equal(p.date) {
				series[n-1] = p.ratePoint
				continue
			}
			series = append(series, p.ratePoint)
		}
		idx.series[key] = series
	}
	return idx
}

// Pairs returns the number of currency pairs with at least one observation.
func (idx *RateIndex) Pairs() int {
	if idx == nil {
		return 0
	}
	return len(idx.series)
}

// latest returns the newest point on or before on.
func (idx *RateIndex) latest(key currencyPair, on models.Date) (ratePoint, bool) {
	series, ok := idx.series[key]
	if !ok {
		return ratePoint{}, false
	}
	i := sort.Search(len(series), func(i int) bool { return series[i].date.After(on) })
	if i == 0 {
		return ratePoint{}, false
	}
	return series[i-1], true
}

// lookup resolves the rate for from->to. When inverse is true the returned
// rate is the to->from observation and amounts must be divided by it.
func (idx *RateIndex) lookup(from, to string, on models.Date) (rate decimal.Decimal, inverse bool, err error) {
	from, to = normalizeCurrency(from), normalizeCurrency(to)
	if from == to {
		return decimal.NewFromInt(1), false, nil
	}
	if idx != nil {
		if p, ok := idx.latest(currencyPair{from, to}, on); ok {
			return p.rate, false, nil
		}
		if p, ok := idx.latest(currencyPair{to, from}, on); ok {
			return p.rate, true, nil
		}
	}
	return decimal.Decimal{}, false, &UnresolvedRateError{From: from, To: to, On: on}
}

// FindRate returns the most recent known rate for from->to on or before on,
// falling back to the reciprocal of the to->from series.
func (idx *RateIndex) FindRate(from, to string, on models.Date) (decimal.Decimal, error) {
	rate, inverse, err := idx.lookup(from, to, on)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if inverse {
		return decimal.NewFromInt(1).Div(rate), nil
	}
	return rate, nil
}

// Convert prices amount of from in to as of on. The error wraps
// ErrUnresolvedRate when no rate is known; the amount is then meaningless.
func (idx *RateIndex) Convert(amount decimal.Decimal, from, to string, on models.Date) (decimal.Decimal, error) {
	rate, inverse, err := idx.lookup(from, to, on)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if inverse {
		return amount.Div(rate), nil
	}
	return amount.Mul(rate), nil
}

// Conversion wraps Convert into the wire representation used by handlers.
func (idx *RateIndex) Conversion(amount decimal.Decimal, from, to string, on models.Date) models.Conversion {
	to = normalizeCurrency(to)
	out := models.Conversion{Currency: to}
	converted, err := idx.Convert(amount, from, to, on)
	if err != nil {
		return out
	}
	rate, _ := idx.FindRate(from, to, on)
	out.Amount = &converted
	out.Rate = &rate
	out.Known = true
	return out
}

func normalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateCurrency accepts ISO 4217 codes known to go-money.
func ValidateCurrency(code string) (string, error) {
	code = normalizeCurrency(code)
	if money.GetCurrency(code) == nil {
		return "", fmt.Errorf("unknown currency %q", code)
	}
	return code, nil
}

// FormatAmount renders amount using the currency's symbol and minor units.
func FormatAmount(amount decimal.Decimal, code string) string {
	cur := money.GetCurrency(normalizeCurrency(code))
	if cur == nil {
		return amount.StringFixed(2) + " " + code
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, cur.Code).Display()
}
