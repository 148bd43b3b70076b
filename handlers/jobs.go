package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/LovationAdmin/budget-ledger/models"

	"github.com/gin-gonic/gin"
)

// AutoPoster runs one auto-post pass.
type AutoPoster interface {
	Run(ctx context.Context, asOf models.Date) (models.AutoPostResult, error)
}

// JobHandler exposes the auto-post engine as an HTTP-triggered job.
type JobHandler struct {
	Engine   AutoPoster
	Location *time.Location
	// ConfigErr is set when the service started without the configuration
	// the engine needs; the job then answers with that error.
	ConfigErr error
	Timeout   time.Duration
}

// RunAutoPost handles GET/POST /jobs/autopost?date=YYYY-MM-DD.
func (h *JobHandler) RunAutoPost(c *gin.Context) {
	if h.ConfigErr != nil || h.Engine == nil {
		msg := "configuration error: auto-post engine is not configured"
		if h.ConfigErr != nil {
			msg = h.ConfigErr.Error()
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
		return
	}

	asOf := models.Today(h.Location)
	raw := strings.TrimSpace(c.Query("date"))
	if raw == "" {
		raw = strings.TrimSpace(c.PostForm("date"))
	}
	if raw != "" {
		d, err := models.ParseDate(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		asOf = d
	}

	timeout := h.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	result, err := h.Engine.Run(ctx, asOf)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":    "Auto-post interrupted",
			"posted":   result.Posted,
			"advanced": result.Advanced,
			"asOf":     result.AsOf,
		})
		return
	}

	c.JSON(http.StatusOK, result)
}
