package services

import (
	"context"
	"testing"

	"github.com/LovationAdmin/budget-ledger/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedRates(t *testing.T, st *Stack) {
	t.Helper()

	_, err := st.Rates.UpsertMany(context.Background(), []models.ExchangeRateObservation{
		{Date: d("2024-01-01"), FromCurrency: "EUR", ToCurrency: "USD", Rate: dec("1.10")},
		{Date: d("2024-02-01"), FromCurrency: "EUR", ToCurrency: "USD", Rate: dec("1.08")},
	})
	require.NoError(t, err)
}

func TestLedgerSummary(t *testing.T) {
	st, _ := newTestStack(t)
	ctx := context.Background()
	seedRates(t, st)

	_, err := st.Ledger.InsertIgnoreDuplicates(ctx, []models.LedgerEntry{
		{ID: "e1", OwnerID: "u1", Date: d("2024-01-10"), Amount: dec("110"), Currency: "USD", Type: models.EntryIncome},
		{ID: "e2", OwnerID: "u1", Date: d("2024-01-15"), Amount: dec("50"), Currency: "EUR", Type: models.EntryExpense},
		{ID: "e3", OwnerID: "u1", Date: d("2024-01-20"), Amount: dec("20"), Currency: "GBP", Type: models.EntryExpense},
		{ID: "e4", OwnerID: "u2", Date: d("2024-01-20"), Amount: dec("999"), Currency: "EUR", Type: models.EntryExpense},
		{ID: "e5", OwnerID: "u1", Date: d("2024-03-01"), Amount: dec("999"), Currency: "EUR", Type: models.EntryExpense},
	})
	require.NoError(t, err)

	window := models.Window{Start: d("2024-01-01"), End: d("2024-02-01")}
	summary, err := st.Reports.Summary(ctx, "u1", window, "eur")
	require.NoError(t, err)

	assert.Equal(t, "EUR", summary.Currency)
	assert.Equal(t, 3, summary.EntryCount)
	assert.True(t, summary.Income.Equal(dec("100")), "income %s", summary.Income)
	assert.True(t, summary.Expense.Equal(dec("50")), "expense %s", summary.Expense)
	assert.True(t, summary.Net.Equal(dec("50")))
	assert.Equal(t, []string{"e3"}, summary.UnresolvedIDs)
	assert.False(t, summary.Complete)
}

func TestLedgerSummaryRejectsUnknownCurrency(t *testing.T) {
	st, _ := newTestStack(t)
	_, err := st.Reports.Summary(context.Background(), "u1", models.Window{Start: d("2024-01-01"), End: d("2024-02-01")}, "ABC")
	assert.Error(t, err)
}

func TestForecast(t *testing.T) {
	st, _ := newTestStack(t)
	ctx := context.Background()
	seedRates(t, st)

	usd := monthlyCharge("c1", "u1", "10", "2024-01-15")
	usd.Currency = "USD"
	createCharge(t, st, usd)

	gbp := monthlyCharge("c2", "u1", "5", "2024-01-20")
	gbp.Currency = "GBP"
	createCharge(t, st, gbp)

	stopped := monthlyCharge("c3", "u1", "100", "2024-01-01")
	stopped.Active = false
	createCharge(t, st, stopped)

	forecast, err := st.Reports.Forecast(ctx, "u1", models.Window{Start: d("2024-01-01"), End: d("2024-03-01")}, "EUR")
	require.NoError(t, err)

	require.Len(t, forecast.Items, 4)
	assert.Equal(t, "2024-01-15", forecast.Items[0].Date.String())
	assert.Equal(t, "2024-01-20", forecast.Items[1].Date.String())
	assert.Equal(t, "2024-02-15", forecast.Items[2].Date.String())
	assert.Equal(t, "2024-02-20", forecast.Items[3].Date.String())
	assert.Equal(t, 2, forecast.Unresolved)

	want := dec("10").Div(dec("1.10")).Add(dec("10").Div(dec("1.08")))
	assert.True(t, forecast.Total.Equal(want), "total %s want %s", forecast.Total, want)
	assert.False(t, forecast.Items[1].Converted.Known)
}

func TestForecastSkipsChargesItCannotEnumerate(t *testing.T) {
	st, db := newTestStack(t)
	ctx := context.Background()

	createCharge(t, st, monthlyCharge("monthly", "u1", "10", "2024-01-15"))

	// Decades ahead of the window: walking back exceeds the step limit.
	far := monthlyCharge("far", "u1", "1", "2090-01-01")
	far.Interval = models.IntervalDay
	createCharge(t, st, far)

	createCharge(t, st, monthlyCharge("broken", "u1", "3", "2024-01-10"))
	_, err := db.Exec(`UPDATE recurring_charges SET interval_unit = 'fortnight' WHERE id = 'broken'`)
	require.NoError(t, err)

	forecast, err := st.Reports.Forecast(ctx, "u1", models.Window{Start: d("2024-01-01"), End: d("2024-03-01")}, "EUR")
	require.NoError(t, err)

	require.Len(t, forecast.Items, 2)
	assert.Equal(t, "monthly", forecast.Items[0].ChargeID)
	assert.True(t, forecast.Total.Equal(dec("20")), "total %s", forecast.Total)
	assert.Equal(t, []string{"far"}, forecast.SkippedIDs)
}
