package handlers

import (
	"errors"
	"net/http"

	"github.com/LovationAdmin/budget-ledger/middleware"
	"github.com/LovationAdmin/budget-ledger/models"
	"github.com/LovationAdmin/budget-ledger/services"

	"github.com/gin-gonic/gin"
)

type RecurringHandler struct {
	Charges         *services.ChargeStore
	Poster          *services.ManualPoster
	Reports         *services.ReportingService
	DefaultCurrency string
}

// ListCharges returns the caller's recurring charges.
func (h *RecurringHandler) ListCharges(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	charges, err := h.Charges.ListByOwner(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch recurring charges"})
		return
	}
	if charges == nil {
		charges = []models.RecurringCharge{}
	}
	c.JSON(http.StatusOK, charges)
}

// CreateCharge registers a new recurring charge for the caller.
func (h *RecurringHandler) CreateCharge(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.CreateRecurringChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	interval, err := models.ParseInterval(req.Interval)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	currency, err := services.ValidateCurrency(req.Currency)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.NextDueDate.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "next_due_date is required"})
		return
	}
	if !req.Amount.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a positive number"})
		return
	}

	charge := &models.RecurringCharge{
		OwnerID:          userID,
		Name:             req.Name,
		Amount:           req.Amount,
		Currency:         currency,
		Interval:         interval,
		Every:            req.Every,
		NextDueDate:      req.NextDueDate,
		FundingAccountID: req.FundingAccountID,
		CategoryID:       req.CategoryID,
		Active:           true,
		AutoPost:         req.AutoPost,
	}
	if _, err := h.Charges.Create(c.Request.Context(), charge); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create recurring charge"})
		return
	}
	c.JSON(http.StatusCreated, charge)
}

// GetOccurrences lists a charge's occurrence dates inside [start, end).
func (h *RecurringHandler) GetOccurrences(c *gin.Context) {
	charge, ok := h.ownedCharge(c)
	if !ok {
		return
	}
	window, err := parseWindow(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dates, err := services.ChargeOccurrences(*charge, window)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if dates == nil {
		dates = []models.Date{}
	}
	c.JSON(http.StatusOK, gin.H{
		"charge_id":   charge.ID,
		"window":      window,
		"occurrences": dates,
	})
}

// ChargeNow posts the charge's current occurrence immediately.
func (h *RecurringHandler) ChargeNow(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	result, err := h.Poster.ChargeNow(c.Request.Context(), userID, c.Param("id"))
	switch {
	case err == nil:
	case errors.Is(err, services.ErrChargeNotFound), errors.Is(err, services.ErrChargeNotOwned):
		c.JSON(http.StatusNotFound, gin.H{"error": "Recurring charge not found"})
		return
	case errors.Is(err, services.ErrChargeInactive):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.Is(err, services.ErrNoFundingAccount):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to post charge"})
		return
	}

	status := http.StatusCreated
	if !result.Posted {
		status = http.StatusOK
	}
	c.JSON(status, result)
}

// Forecast projects the caller's charges over [start, end) in one currency.
func (h *RecurringHandler) Forecast(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	window, err := parseWindow(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	forecast, err := h.Reports.Forecast(c.Request.Context(), userID, window, c.DefaultQuery("currency", h.DefaultCurrency))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, forecast)
}

func (h *RecurringHandler) ownedCharge(c *gin.Context) (*models.RecurringCharge, bool) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return nil, false
	}
	charge, err := h.Charges.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, services.ErrChargeNotFound) || (err == nil && charge.OwnerID != userID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Recurring charge not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch recurring charge"})
		return nil, false
	}
	return charge, true
}
