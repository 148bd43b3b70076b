package handlers

import (
	"net/http"
	"strings"

	"github.com/LovationAdmin/budget-ledger/middleware"
	"github.com/LovationAdmin/budget-ledger/models"
	"github.com/LovationAdmin/budget-ledger/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type FXHandler struct {
	Rates           *services.RateStore
	Reports         *services.ReportingService
	DefaultCurrency string
}

// Convert prices an amount in another currency as of a date. A missing rate
// is reported with known=false and a null amount, not as zero.
func (h *FXHandler) Convert(c *gin.Context) {
	amount, err := decimal.NewFromString(strings.TrimSpace(c.Query("amount")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a decimal number"})
		return
	}
	from, err := services.ValidateCurrency(c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	to, err := services.ValidateCurrency(c.DefaultQuery("to", h.DefaultCurrency))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	on, err := requiredDate(c, "date")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	idx, err := h.Rates.Index(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load exchange rates"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"from":       from,
		"date":       on,
		"source":     amount,
		"conversion": idx.Conversion(amount, from, to, on),
	})
}

// RecordRate stores one observation; the same date and pair overwrite.
func (h *FXHandler) RecordRate(c *gin.Context) {
	var req models.RecordRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	saved, err := h.Rates.Upsert(c.Request.Context(), models.ExchangeRateObservation{
		Date:         req.Date,
		FromCurrency: req.FromCurrency,
		ToCurrency:   req.ToCurrency,
		Rate:         req.Rate,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, saved)
}

// LedgerSummary totals the caller's ledger over [start, end) in one currency.
func (h *FXHandler) LedgerSummary(c *gin.Context) {
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

	summary, err := h.Reports.Summary(c.Request.Context(), userID, window, c.DefaultQuery("currency", h.DefaultCurrency))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}
