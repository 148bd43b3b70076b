package services

import "github.com/LovationAdmin/budget-ledger/models"

// AddInterval moves d forward by every units of interval (backwards when
// every is negative). Month and year steps keep time.AddDate's overflow
// normalization, so 2024-01-31 + 1 month is 2024-03-02. An unknown interval
// returns d unchanged; callers validate the interval and every.
func AddInterval(d models.Date, interval models.Interval, every int) models.Date {
	switch interval {
	case models.IntervalDay:
		return d.AddDate(0, 0, every)
	case models.IntervalWeek:
		return d.AddDate(0, 0, 7*every)
	case models.IntervalMonth:
		return d.AddDate(0, every, 0)
	case models.IntervalYear:
		return d.AddDate(every, 0, 0)
	default:
		return d
	}
}

func SubtractInterval(d models.Date, interval models.Interval, every int) models.Date {
	return AddInterval(d, interval, -every)
}

// NextDueAfter is the schedule advance applied once an occurrence is posted.
func NextDueAfter(c models.RecurringCharge) models.Date {
	return AddInterval(c.NextDueDate, c.Interval, stepOf(c.Every))
}

func stepOf(every int) int {
	if every < 1 {
		return 1
	}
	return every
}
