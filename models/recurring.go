package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Interval is the calendar unit of a recurring charge's cycle.
type Interval string

const (
	IntervalDay   Interval = "day"
	IntervalWeek  Interval = "week"
	IntervalMonth Interval = "month"
	IntervalYear  Interval = "year"
)

func ParseInterval(s string) (Interval, error) {
	i := Interval(strings.ToLower(strings.TrimSpace(s)))
	if !i.Valid() {
		return "", fmt.Errorf("invalid interval %q (want day, week, month or year)", s)
	}
	return i, nil
}

func (i Interval) Valid() bool {
	switch i {
	case IntervalDay, IntervalWeek, IntervalMonth, IntervalYear:
		return true
	}
	return false
}

// RecurringCharge is a subscription or bill. NextDueDate is always the next
// occurrence that has not been posted yet.
type RecurringCharge struct {
	ID               string          `json:"id"`
	OwnerID          string          `json:"owner_id"`
	Name             string          `json:"name"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	Interval         Interval        `json:"interval"`
	Every            int             `json:"every"`
	NextDueDate      Date            `json:"next_due_date"`
	FundingAccountID *string         `json:"funding_account_id,omitempty"`
	CategoryID       *string         `json:"category_id,omitempty"`
	Active           bool            `json:"active"`
	AutoPost         bool            `json:"auto_post"`
	CreatedAt        time.Time       `json:"created_at"`
}

// HasFundingAccount reports whether the charge can be posted at all.
func (c RecurringCharge) HasFundingAccount() bool {
	return c.FundingAccountID != nil && *c.FundingAccountID != ""
}

// CreateRecurringChargeRequest is the body of POST /recurring. Amount and
// NextDueDate are checked by the handler; binding tags do not reach struct
// typed fields.
type CreateRecurringChargeRequest struct {
	Name             string          `json:"name" binding:"required"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency" binding:"required,len=3"`
	Interval         string          `json:"interval" binding:"required"`
	Every            int             `json:"every" binding:"required,min=1"`
	NextDueDate      Date            `json:"next_due_date"`
	FundingAccountID *string         `json:"funding_account_id"`
	CategoryID       *string         `json:"category_id"`
	AutoPost         bool            `json:"auto_post"`
}
