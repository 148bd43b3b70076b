package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/LovationAdmin/budget-ledger/models"
	"github.com/LovationAdmin/budget-ledger/utils"
)

var (
	ErrChargeInactive   = errors.New("recurring charge is inactive")
	ErrNoFundingAccount = errors.New("recurring charge has no funding account")
	ErrChargeNotOwned   = errors.New("recurring charge belongs to another user")
)

// ChargeRepository is the single-charge view needed by the manual path.
type ChargeRepository interface {
	Get(ctx context.Context, id string) (*models.RecurringCharge, error)
	AdvanceNextDue(ctx context.Context, id string, from, to models.Date) (bool, error)
}

// ManualPoster posts a charge's current occurrence on user request. It goes
// through the same insert-ignore write as the engine, so a repeated click or a
// concurrent engine pass cannot create a second entry for the occurrence.
type ManualPoster struct {
	charges  ChargeRepository
	ledger   LedgerWriter
	notifier LedgerNotifier
}

func NewManualPoster(charges ChargeRepository, ledger LedgerWriter, notifier LedgerNotifier) *ManualPoster {
	return &ManualPoster{charges: charges, ledger: ledger, notifier: notifier}
}

// ChargeNow posts the occurrence at the charge's next due date and advances
// the schedule by one step.
func (m *ManualPoster) ChargeNow(ctx context.Context, ownerID, chargeID string) (models.ManualPostResult, error) {
	var result models.ManualPostResult

	c, err := m.charges.Get(ctx, chargeID)
	if err != nil {
		return result, err
	}
	if c.OwnerID != ownerID {
		return result, ErrChargeNotOwned
	}
	if !c.Active {
		return result, ErrChargeInactive
	}
	if !c.HasFundingAccount() {
		return result, ErrNoFundingAccount
	}

	entries := []models.LedgerEntry{EntryForOccurrence(*c, "Charged now")}
	posted, err := m.ledger.InsertIgnoreDuplicates(ctx, entries)
	if err != nil {
		return result, fmt.Errorf("posting charge %s: %w", chargeID, err)
	}

	next := NextDueAfter(*c)
	advanced, err := m.charges.AdvanceNextDue(ctx, c.ID, c.NextDueDate, next)
	if err != nil {
		return result, fmt.Errorf("advancing charge %s: %w", chargeID, err)
	}

	result.Posted = posted == 1
	result.Duplicate = posted == 0
	result.Advanced = advanced
	result.NextDueDate = c.NextDueDate
	if advanced {
		result.NextDueDate = next
		c.NextDueDate = next
	}
	if result.Posted {
		result.Entry = &entries[0]
	}
	result.Charge = c

	utils.LogLedgerWrite("charge_now", chargeID, ownerID, result.Posted)
	if result.Posted && m.notifier != nil {
		m.notifier.NotifyLedgerChanged(ownerID, "recurring_charged")
	}
	return result, nil
}
