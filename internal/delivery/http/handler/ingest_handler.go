package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"asset-tracker/internal/ingest"
	"asset-tracker/internal/logger"
)

// IngestHandler receives device-report envelopes from the event router.
// The response contract is fixed: 200 {status,device} on success, 400 on a
// missing or undecodable body, 500 {error} on any processing failure so
// the router redelivers.
type IngestHandler struct {
	pipeline *ingest.Pipeline
}

func NewIngestHandler(pipeline *ingest.Pipeline) *IngestHandler {
	return &IngestHandler{pipeline: pipeline}
}

func (h *IngestHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/ingest", h.Ingest)
	router.GET("/ingest/stats", h.Stats)
}

func (h *IngestHandler) Ingest(c *gin.Context) {
	var raw ingest.RawEvent
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing request body"})
		return
	}
	if raw.Device == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing device identifier"})
		return
	}

	ev, err := h.pipeline.Process(c.Request.Context(), &raw)
	if err != nil {
		logger.Error("event ingest failed",
			zap.String("device", raw.Device),
			zap.String("file", raw.File),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"device": ev.DeviceID,
	})
}

func (h *IngestHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.pipeline.Metrics().Snapshot())
}
