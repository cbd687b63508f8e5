package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/miyahealth/miya-backend/internal/logger"
	"github.com/miyahealth/miya-backend/internal/services"
)

type MetricHandler struct {
	log    *logger.Logger
	ingest services.MetricIngestService
}

func NewMetricHandler(log *logger.Logger, ingest services.MetricIngestService) *MetricHandler {
	return &MetricHandler{log: log.With("handler", "MetricHandler"), ingest: ingest}
}

type ingestRequest struct {
	Readings []services.DailyReading `json:"readings" binding:"required"`
}

func (h *MetricHandler) PostDailyMetrics(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	eval, err := h.ingest.IngestDaily(c.Request.Context(), userID, req.Readings)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"evaluation": eval})
}

type exerciseRequest struct {
	Sessions []services.ExerciseEntry `json:"sessions" binding:"required"`
}

func (h *MetricHandler) PostExerciseSessions(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	var req exerciseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.ingest.RecordExercise(c.Request.Context(), userID, req.Sessions); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"recorded": len(req.Sessions)})
}
