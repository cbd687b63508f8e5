package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/miyahealth/miya-backend/internal/logger"
	"github.com/miyahealth/miya-backend/internal/services"
)

type AlertHandler struct {
	log    *logger.Logger
	alerts services.PatternAlertService
	sweep  services.SweepService
}

func NewAlertHandler(log *logger.Logger, alerts services.PatternAlertService, sweep services.SweepService) *AlertHandler {
	return &AlertHandler{log: log.With("handler", "AlertHandler"), alerts: alerts, sweep: sweep}
}

type evaluateRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Date   string `json:"date" binding:"required"`
}

// PostEvaluate is the webhook trigger: evaluate one user for one date,
// typically fired right after that user's metrics for the day have landed.
func (h *AlertHandler) PostEvaluate(c *gin.Context) {
	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}
	day, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, want YYYY-MM-DD"})
		return
	}
	eval, err := h.alerts.EvaluateUser(c.Request.Context(), userID, day)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"evaluation": eval})
}

type sweepRequest struct {
	Date string `json:"date" binding:"required"`
}

func (h *AlertHandler) PostSweep(c *gin.Context) {
	var req sweepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	day, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, want YYYY-MM-DD"})
		return
	}
	res, err := h.sweep.Run(c.Request.Context(), day)
	if err != nil {
		// An interrupted sweep still carries its partial counts.
		body := gin.H{"error": err.Error()}
		if res != nil {
			body["sweep"] = res
		}
		c.JSON(http.StatusInternalServerError, body)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sweep": res})
}

func (h *AlertHandler) ListEpisodes(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	episodes, err := h.alerts.ListEpisodes(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"episodes": episodes})
}
