package services

import (
	"context"
	"testing"

	"github.com/LovationAdmin/budget-ledger/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateStoreUpsertReplacesSameDay(t *testing.T) {
	st, _ := newTestStack(t)
	ctx := context.Background()

	_, err := st.Rates.Upsert(ctx, models.ExchangeRateObservation{Date: d("2024-01-01"), FromCurrency: "eur", ToCurrency: "usd", Rate: dec("1.05")})
	require.NoError(t, err)
	saved, err := st.Rates.Upsert(ctx, models.ExchangeRateObservation{Date: d("2024-01-01"), FromCurrency: "EUR", ToCurrency: "USD", Rate: dec("1.10")})
	require.NoError(t, err)
	assert.Equal(t, "EUR", saved.FromCurrency)

	all, err := st.Rates.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Rate.Equal(dec("1.10")))
	assert.Equal(t, "2024-01-01", all[0].Date.String())
}

func TestRateStoreValidation(t *testing.T) {
	st, _ := newTestStack(t)
	ctx := context.Background()

	bad := []models.ExchangeRateObservation{
		{FromCurrency: "EUR", ToCurrency: "USD", Rate: dec("1")},
		{Date: d("2024-01-01"), FromCurrency: "EUR", ToCurrency: "USD", Rate: dec("0")},
		{Date: d("2024-01-01"), FromCurrency: "EUR", ToCurrency: "QQQ", Rate: dec("1")},
		{Date: d("2024-01-01"), FromCurrency: "EUR", ToCurrency: "eur", Rate: dec("1")},
	}
	for _, o := range bad {
		_, err := st.Rates.Upsert(ctx, o)
		assert.Error(t, err, "%+v", o)
	}
}

func TestRateStoreUpsertManyIsAtomic(t *testing.T) {
	st, _ := newTestStack(t)
	ctx := context.Background()

	_, err := st.Rates.UpsertMany(ctx, []models.ExchangeRateObservation{
		{Date: d("2024-01-01"), FromCurrency: "EUR", ToCurrency: "USD", Rate: dec("1.10")},
		{Date: d("2024-01-02"), FromCurrency: "EUR", ToCurrency: "USD", Rate: dec("-1")},
	})
	assert.Error(t, err)

	all, err := st.Rates.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	n, err := st.Rates.UpsertMany(ctx, []models.ExchangeRateObservation{
		{Date: d("2024-01-01"), FromCurrency: "EUR", ToCurrency: "USD", Rate: dec("1.10")},
		{Date: d("2024-02-01"), FromCurrency: "EUR", ToCurrency: "USD", Rate: dec("1.08")},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	idx, err := st.Rates.Index(ctx)
	require.NoError(t, err)
	got, err := idx.Convert(dec("100"), "EUR", "USD", d("2024-02-10"))
	require.NoError(t, err)
	assert.True(t, got.Equal(dec("108")), "got %s", got)
}
