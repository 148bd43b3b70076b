package services

import (
	"context"
	"testing"

	"github.com/LovationAdmin/budget-ledger/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChargeNowPostsAndAdvances(t *testing.T) {
	st, _ := newTestStack(t)
	ctx := context.Background()
	c := monthlyCharge("c1", "u1", "15", "2024-05-20")
	c.AutoPost = false
	createCharge(t, st, c)

	res, err := st.Poster.ChargeNow(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.True(t, res.Posted)
	assert.False(t, res.Duplicate)
	assert.True(t, res.Advanced)
	assert.Equal(t, "2024-06-20", res.NextDueDate.String())
	require.NotNil(t, res.Entry)
	assert.NotEmpty(t, res.Entry.ID)
	assert.Equal(t, "Charged now: Streaming", res.Entry.Note)

	stored, err := st.Ledger.ForOccurrence(ctx, "c1", d("2024-05-20"))
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, res.Entry.ID, stored.ID)
}

func TestChargeNowRepeatedClick(t *testing.T) {
	st, _ := newTestStack(t)
	ctx := context.Background()
	createCharge(t, st, monthlyCharge("c1", "u1", "15", "2024-05-20"))

	// A second click carrying the same occurrence, e.g. a retried request
	// that raced the first, must not post twice.
	entry := EntryForOccurrence(monthlyCharge("c1", "u1", "15", "2024-05-20"), "Charged now")
	n, err := st.Ledger.InsertIgnoreDuplicates(ctx, []models.LedgerEntry{entry})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	res, err := st.Poster.ChargeNow(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.False(t, res.Posted)
	assert.True(t, res.Duplicate)
	assert.Nil(t, res.Entry)
	assert.True(t, res.Advanced, "the schedule still moves past the posted occurrence")

	count, err := st.Ledger.CountForCharge(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestChargeNowThenAutoPost(t *testing.T) {
	st, _ := newTestStack(t)
	ctx := context.Background()
	createCharge(t, st, monthlyCharge("c1", "u1", "15", "2024-05-20"))

	_, err := st.Poster.ChargeNow(ctx, "u1", "c1")
	require.NoError(t, err)

	res, err := st.Engine.Run(ctx, d("2024-05-25"))
	require.NoError(t, err)
	assert.Zero(t, res.Posted)

	count, err := st.Ledger.CountForCharge(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestChargeNowRejections(t *testing.T) {
	st, _ := newTestStack(t)
	ctx := context.Background()

	inactive := monthlyCharge("inactive", "u1", "1", "2024-01-01")
	inactive.Active = false
	unfunded := monthlyCharge("unfunded", "u1", "1", "2024-01-01")
	unfunded.FundingAccountID = nil
	createCharge(t, st, inactive)
	createCharge(t, st, unfunded)
	createCharge(t, st, monthlyCharge("other", "u2", "1", "2024-01-01"))

	_, err := st.Poster.ChargeNow(ctx, "u1", "missing")
	assert.ErrorIs(t, err, ErrChargeNotFound)

	_, err = st.Poster.ChargeNow(ctx, "u1", "other")
	assert.ErrorIs(t, err, ErrChargeNotOwned)

	_, err = st.Poster.ChargeNow(ctx, "u1", "inactive")
	assert.ErrorIs(t, err, ErrChargeInactive)

	_, err = st.Poster.ChargeNow(ctx, "u1", "unfunded")
	assert.ErrorIs(t, err, ErrNoFundingAccount)
}
