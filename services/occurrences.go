package services

import (
	"errors"
	"fmt"

	"github.com/LovationAdmin/budget-ledger/models"
)

// MaxOccurrenceSteps bounds the calendar steps one enumeration may take.
// A daily charge over a 25 year window stays well below it.
const MaxOccurrenceSteps = 10000

var (
	ErrTooManySteps    = errors.New("occurrence enumeration exceeds step limit")
	ErrInvalidInterval = errors.New("invalid interval")
)

// Occurrences lists, in ascending order, the dates of the cycle anchored at
// nextDue that fall inside window. The result depends only on the arguments.
func Occurrences(nextDue models.Date, interval models.Interval, every int, window models.Window) ([]models.Date, error) {
	if !interval.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidInterval, interval)
	}
	if window.Empty() || nextDue.IsZero() {
		return nil, nil
	}

	step := stepOf(every)
	steps := 0
	tick := func() error {
		steps++
		if steps > MaxOccurrenceSteps {
			return fmt.Errorf("%w: %s every %d over [%s, %s)", ErrTooManySteps, interval, step, window.Start, window.End)
		}
		return nil
	}

	// Walk back past the window start, then one step forward.
	occ := nextDue
	for !occ.Before(window.Start) {
		occ = SubtractInterval(occ, interval, step)
		if err := tick(); err != nil {
			return nil, err
		}
	}
	occ = AddInterval(occ, interval, step)

	// nextDue itself may sit before the window.
	for occ.Before(window.Start) {
		occ = AddInterval(occ, interval, step)
		if err := tick(); err != nil {
			return nil, err
		}
	}

	var out []models.Date
	for occ.Before(window.End) {
		out = append(out, occ)
		occ = AddInterval(occ, interval, step)
		if err := tick(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ChargeOccurrences enumerates a charge's occurrences; inactive charges have none.
func ChargeOccurrences(c models.RecurringCharge, window models.Window) ([]models.Date, error) {
	if !c.Active {
		return nil, nil
	}
	return Occurrences(c.NextDueDate, c.Interval, c.Every, window)
}
