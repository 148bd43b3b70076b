package routes

import (
	"github.com/LovationAdmin/budget-ledger/handlers"
	"github.com/LovationAdmin/budget-ledger/middleware"

	"github.com/gin-gonic/gin"
)

// SetupJobRoutes sets up the externally triggered jobs.
func SetupJobRoutes(rg *gin.RouterGroup, h *handlers.JobHandler, jobSecret string) {
	jobs := rg.Group("/jobs")
	jobs.Use(middleware.RequireJobSecret(jobSecret))

	jobs.GET("/autopost", h.RunAutoPost)
	jobs.POST("/autopost", h.RunAutoPost)
}

// SetupRecurringRoutes sets up protected recurring charge routes.
func SetupRecurringRoutes(rg *gin.RouterGroup, h *handlers.RecurringHandler) {
	rg.GET("/recurring", h.ListCharges)
	rg.POST("/recurring", h.CreateCharge)
	rg.GET("/recurring/forecast", h.Forecast)
	rg.GET("/recurring/:id/occurrences", h.GetOccurrences)
	rg.POST("/recurring/:id/charge-now", h.ChargeNow)
}

// SetupFXRoutes sets up protected currency and ledger reporting routes.
func SetupFXRoutes(rg *gin.RouterGroup, h *handlers.FXHandler) {
	rg.GET("/fx/convert", h.Convert)
	rg.POST("/fx/rates", h.RecordRate)
	rg.GET("/ledger/summary", h.LedgerSummary)
}

// SetupWSRoutes sets up the ledger change feed.
func SetupWSRoutes(rg *gin.RouterGroup, h *handlers.WSHandler) {
	rg.GET("/ws/ledger", h.HandleWS)
}
