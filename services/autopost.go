package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/LovationAdmin/budget-ledger/models"
	"github.com/LovationAdmin/budget-ledger/utils"
)

// ChargeSource is a table of recurring charges the engine can post from.
type ChargeSource interface {
	Name() string
	DueCharges(ctx context.Context, asOf models.Date) ([]models.RecurringCharge, error)
	AdvanceNextDue(ctx context.Context, id string, from, to models.Date) (bool, error)
}

// LedgerWriter is the idempotent write primitive shared by both posting paths.
type LedgerWriter interface {
	InsertIgnoreDuplicates(ctx context.Context, entries []models.LedgerEntry) (int, error)
}

// LedgerNotifier is told which owners received new entries.
type LedgerNotifier interface {
	NotifyLedgerChanged(ownerID string, reason string)
}

// AutoPostEngine posts due recurring charges into the ledger. It keeps no
// state between runs; running it again, or concurrently, never duplicates an
// entry because the ledger rejects a second (charge, occurrence) pair.
//
// Each run posts at most one occurrence per charge. A charge that is several
// cycles behind catches up over successive runs.
type AutoPostEngine struct {
	sources  []ChargeSource
	ledger   LedgerWriter
	notifier LedgerNotifier
}

func NewAutoPostEngine(ledger LedgerWriter, sources ...ChargeSource) *AutoPostEngine {
	return &AutoPostEngine{sources: sources, ledger: ledger}
}

// WithNotifier sets the notifier told about owners with new entries.
func (e *AutoPostEngine) WithNotifier(n LedgerNotifier) *AutoPostEngine {
	e.notifier = n
	return e
}

// Run performs one pass as of the given calendar date. A failing source is
// reported in FailedSources and does not stop the others; only a cancelled
// context is returned as an error.
func (e *AutoPostEngine) Run(ctx context.Context, asOf models.Date) (models.AutoPostResult, error) {
	result := models.AutoPostResult{AsOf: asOf}
	owners := make(map[string]bool)

	for _, src := range e.sources {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		posted, advanced, err := e.runSource(ctx, src, asOf, owners)
		result.Posted += posted
		result.Advanced += advanced
		if err != nil {
			utils.SafeError("[AutoPost] source %s failed: %v", src.Name(), err)
			result.FailedSources = append(result.FailedSources, src.Name())
		}
	}

	if e.notifier != nil {
		for owner := range owners {
			e.notifier.NotifyLedgerChanged(owner, "recurring_posted")
		}
	}

	utils.LogAutoPost(asOf.String(), result.Posted, result.Advanced, len(result.FailedSources))
	return result, nil
}

func (e *AutoPostEngine) runSource(ctx context.Context, src ChargeSource, asOf models.Date, owners map[string]bool) (posted, advanced int, err error) {
	due, err := src.DueCharges(ctx, asOf)
	if err != nil {
		return 0, 0, fmt.Errorf("loading due charges: %w", err)
	}

	candidates := make([]models.LedgerEntry, 0, len(due))
	postable := make([]models.RecurringCharge, 0, len(due))
	for _, c := range due {
		if !c.HasFundingAccount() {
			utils.SafeDebug("[AutoPost] skipping charge %s: no funding account", utils.MaskID(c.ID))
			continue
		}
		candidates = append(candidates, EntryForOccurrence(c, "Auto-posted"))
		postable = append(postable, c)
	}
	if len(candidates) == 0 {
		return 0, 0, nil
	}

	posted, err = e.ledger.InsertIgnoreDuplicates(ctx, candidates)
	if err != nil {
		// Nothing is advanced: advancing unposted charges would lose occurrences.
		return 0, 0, fmt.Errorf("writing ledger entries: %w", err)
	}
	if posted > 0 {
		for _, c := range postable {
			owners[c.OwnerID] = true
		}
	}

	for _, c := range postable {
		if ctx.Err() != nil {
			return posted, advanced, ctx.Err()
		}
		next := NextDueAfter(c)
		ok, err := src.AdvanceNextDue(ctx, c.ID, c.NextDueDate, next)
		if err != nil {
			utils.SafeWarn("[AutoPost] failed to advance charge %s: %v", utils.MaskID(c.ID), err)
			continue
		}
		if ok {
			advanced++
		}
	}
	return posted, advanced, nil
}

// EntryForOccurrence builds the ledger entry for a charge's current due date.
func EntryForOccurrence(c models.RecurringCharge, prefix string) models.LedgerEntry {
	chargeID := c.ID
	return models.LedgerEntry{
		OwnerID:           c.OwnerID,
		Date:              c.NextDueDate,
		Amount:            c.Amount,
		Currency:          c.Currency,
		Type:              models.EntryExpense,
		CategoryID:        c.CategoryID,
		AccountID:         c.FundingAccountID,
		Note:              fmt.Sprintf("%s: %s", prefix, c.Name),
		RecurringChargeID: &chargeID,
		OccurrenceDate:    c.NextDueDate,
	}
}

// Schedule runs the engine every interval until ctx is done, using the
// current date in loc as the as-of date.
func (e *AutoPostEngine) Schedule(ctx context.Context, interval time.Duration, loc *time.Location) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	run := func() {
		runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()
		res, err := e.Run(runCtx, models.Today(loc))
		if err != nil {
			log.Printf("❌ Scheduled auto-post interrupted: %v", err)
			return
		}
		if res.Posted > 0 || res.Advanced > 0 {
			log.Printf("🔁 Scheduled auto-post: %d posted, %d advanced", res.Posted, res.Advanced)
		}
	}

	run()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}
