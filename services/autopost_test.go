package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/LovationAdmin/budget-ledger/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu     sync.Mutex
	owners map[string]string
}

func (n *recordingNotifier) NotifyLedgerChanged(ownerID, reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.owners == nil {
		n.owners = make(map[string]string)
	}
	n.owners[ownerID] = reason
}

func TestAutoPostEndToEnd(t *testing.T) {
	st, _ := newTestStack(t)
	ctx := context.Background()
	createCharge(t, st, monthlyCharge("c1", "u1", "9.99", "2024-01-01"))

	notifier := &recordingNotifier{}
	st.Engine.WithNotifier(notifier)

	res, err := st.Engine.Run(ctx, d("2024-01-15"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Posted)
	assert.Equal(t, 1, res.Advanced)
	assert.Empty(t, res.FailedSources)

	entries, err := st.Ledger.ListByOwner(ctx, "u1", models.Window{Start: d("2024-01-01"), End: d("2025-01-01")})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "2024-01-01", entries[0].Date.String())
	assert.Equal(t, "2024-01-01", entries[0].OccurrenceDate.String())
	assert.True(t, entries[0].Amount.Equal(dec("9.99")), "got %s", entries[0].Amount)
	assert.Equal(t, models.EntryExpense, entries[0].Type)
	assert.Equal(t, "acc-1", *entries[0].AccountID)
	assert.Equal(t, "Auto-posted: Streaming", entries[0].Note)

	c, err := st.Charges.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-01", c.NextDueDate.String())

	assert.Equal(t, "recurring_posted", notifier.owners["u1"])
}

func TestAutoPostRunTwice(t *testing.T) {
	st, _ := newTestStack(t)
	ctx := context.Background()
	createCharge(t, st, monthlyCharge("c1", "u1", "9.99", "2024-01-01"))
	createCharge(t, st, monthlyCharge("c2", "u2", "4.50", "2024-01-10"))

	first, err := st.Engine.Run(ctx, d("2024-01-15"))
	require.NoError(t, err)
	second, err := st.Engine.Run(ctx, d("2024-01-15"))
	require.NoError(t, err)

	assert.Equal(t, 2, first.Posted+second.Posted)
	assert.Equal(t, 2, first.Advanced+second.Advanced)

	for _, id := range []string{"c1", "c2"} {
		n, err := st.Ledger.CountForCharge(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 1, n, id)
	}
}

func TestAutoPostConcurrentRuns(t *testing.T) {
	st, _ := newTestStack(t)
	ctx := context.Background()
	createCharge(t, st, monthlyCharge("c1", "u1", "12", "2024-03-01"))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		posted   int
		advanced int
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := st.Engine.Run(ctx, d("2024-03-02"))
			assert.NoError(t, err)
			mu.Lock()
			posted += res.Posted
			advanced += res.Advanced
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, posted)
	assert.Equal(t, 1, advanced)

	n, err := st.Ledger.CountForCharge(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	c, err := st.Charges.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "2024-04-01", c.NextDueDate.String())
}

func TestAutoPostCatchesUpOneStepPerRun(t *testing.T) {
	st, _ := newTestStack(t)
	ctx := context.Background()
	createCharge(t, st, monthlyCharge("c1", "u1", "3", "2024-01-01"))

	asOf := d("2024-03-15")
	for i := 0; i < 5; i++ {
		_, err := st.Engine.Run(ctx, asOf)
		require.NoError(t, err)
	}

	n, err := st.Ledger.CountForCharge(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 3, n, "January, February and March")

	c, err := st.Charges.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "2024-04-01", c.NextDueDate.String())
}

func TestAutoPostSkipsIneligibleCharges(t *testing.T) {
	st, _ := newTestStack(t)
	ctx := context.Background()

	noFunding := monthlyCharge("no-funding", "u1", "1", "2024-01-01")
	noFunding.FundingAccountID = nil
	inactive := monthlyCharge("inactive", "u1", "1", "2024-01-01")
	inactive.Active = false
	manual := monthlyCharge("manual", "u1", "1", "2024-01-01")
	manual.AutoPost = false
	future := monthlyCharge("future", "u1", "1", "2024-02-01")

	for _, c := range []models.RecurringCharge{noFunding, inactive, manual, future} {
		createCharge(t, st, c)
	}

	res, err := st.Engine.Run(ctx, d("2024-01-15"))
	require.NoError(t, err)
	assert.Zero(t, res.Posted)
	assert.Zero(t, res.Advanced)

	c, err := st.Charges.Get(ctx, "no-funding")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", c.NextDueDate.String())
}

type fakeSource struct {
	name       string
	due        []models.RecurringCharge
	dueErr     error
	advanceErr map[string]error

	mu       sync.Mutex
	advanced []string
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) DueCharges(ctx context.Context, asOf models.Date) ([]models.RecurringCharge, error) {
	return f.due, f.dueErr
}

func (f *fakeSource) AdvanceNextDue(ctx context.Context, id string, from, to models.Date) (bool, error) {
	if err := f.advanceErr[id]; err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.advanced = append(f.advanced, id)
	return true, nil
}

type fakeLedger struct {
	mu      sync.Mutex
	seen    map[string]bool
	err     error
	batches int
}

func (l *fakeLedger) InsertIgnoreDuplicates(ctx context.Context, entries []models.LedgerEntry) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.batches++
	if l.err != nil {
		return 0, l.err
	}
	if l.seen == nil {
		l.seen = make(map[string]bool)
	}
	n := 0
	for _, e := range entries {
		key := *e.RecurringChargeID + "@" + e.OccurrenceDate.String()
		if !l.seen[key] {
			l.seen[key] = true
			n++
		}
	}
	return n, nil
}

func TestAutoPostFailingSourceDoesNotBlockOthers(t *testing.T) {
	broken := &fakeSource{name: "legacy_bills", dueErr: errors.New("no such table")}
	healthy := &fakeSource{name: "recurring_charges", due: []models.RecurringCharge{
		monthlyCharge("c1", "u1", "10", "2024-01-01"),
	}}

	engine := NewAutoPostEngine(&fakeLedger{}, broken, healthy)
	res, err := engine.Run(context.Background(), d("2024-01-02"))
	require.NoError(t, err)

	assert.Equal(t, []string{"legacy_bills"}, res.FailedSources)
	assert.Equal(t, 1, res.Posted)
	assert.Equal(t, 1, res.Advanced)
	assert.Equal(t, []string{"c1"}, healthy.advanced)
}

func TestAutoPostAdvanceFailureIsSkipped(t *testing.T) {
	src := &fakeSource{
		name: "recurring_charges",
		due: []models.RecurringCharge{
			monthlyCharge("c1", "u1", "10", "2024-01-01"),
			monthlyCharge("c2", "u1", "20", "2024-01-01"),
			monthlyCharge("c3", "u2", "30", "2024-01-01"),
		},
		advanceErr: map[string]error{"c2": errors.New("deadlock detected")},
	}

	engine := NewAutoPostEngine(&fakeLedger{}, src)
	res, err := engine.Run(context.Background(), d("2024-01-01"))
	require.NoError(t, err)

	assert.Equal(t, 3, res.Posted)
	assert.Equal(t, 2, res.Advanced)
	assert.Empty(t, res.FailedSources)
	assert.Equal(t, []string{"c1", "c3"}, src.advanced)
}

func TestAutoPostWriteFailureAdvancesNothing(t *testing.T) {
	src := &fakeSource{name: "recurring_charges", due: []models.RecurringCharge{
		monthlyCharge("c1", "u1", "10", "2024-01-01"),
	}}

	engine := NewAutoPostEngine(&fakeLedger{err: errors.New("connection reset")}, src)
	res, err := engine.Run(context.Background(), d("2024-01-01"))
	require.NoError(t, err)

	assert.Equal(t, []string{"recurring_charges"}, res.FailedSources)
	assert.Zero(t, res.Advanced)
	assert.Empty(t, src.advanced)
}

func TestAutoPostCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ledger := &fakeLedger{}
	engine := NewAutoPostEngine(ledger, &fakeSource{name: "recurring_charges"})
	_, err := engine.Run(ctx, d("2024-01-01"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, ledger.batches)
}
