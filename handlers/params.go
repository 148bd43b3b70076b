package handlers

import (
	"fmt"
	"strings"

	"github.com/LovationAdmin/budget-ledger/models"

	"github.com/gin-gonic/gin"
)

// parseWindow reads the half-open window [start, end) from the query string.
func parseWindow(c *gin.Context) (models.Window, error) {
	start, err := requiredDate(c, "start")
	if err != nil {
		return models.Window{}, err
	}
	end, err := requiredDate(c, "end")
	if err != nil {
		return models.Window{}, err
	}
	if !start.Before(end) {
		return models.Window{}, fmt.Errorf("start must be before end")
	}
	return models.Window{Start: start, End: end}, nil
}

func requiredDate(c *gin.Context, name string) (models.Date, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return models.Date{}, fmt.Errorf("%s is required", name)
	}
	return models.ParseDate(raw)
}
