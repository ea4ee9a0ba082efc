package handlers

import (
	"errors"
	"net/http"
	"time"

	"snapfix/services/availability"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AvailabilityHandler answers worker-availability queries for a service
// and time window.
type AvailabilityHandler struct {
	Checker *availability.Checker
	Logger  *zap.Logger
}

func NewAvailabilityHandler(checker *availability.Checker, logger *zap.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{Checker: checker, Logger: logger}
}

// Check expects serviceId plus RFC3339 start/end with explicit offsets.
// Clients must re-query on every window change; nothing is cached.
func (h *AvailabilityHandler) Check(c *gin.Context) {
	serviceID := c.Query("serviceId")
	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start must be RFC3339 with offset"})
		return
	}
	end, err := time.Parse(time.RFC3339, c.Query("end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end must be RFC3339 with offset"})
		return
	}

	count, err := h.Checker.Check(c.Request.Context(), serviceID, start, end)
	if err != nil {
		var vErr *availability.ValidationError
		if errors.As(err, &vErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Message})
			return
		}
		h.Logger.Error("availability check failed",
			zap.String("serviceID", serviceID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not determine availability"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"serviceId": serviceID,
		"start":     start,
		"end":       end,
		"workers":   count,
	})
}
