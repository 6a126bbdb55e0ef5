package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/marchmetrics/fantasy-corps/internal/processor"
	"github.com/marchmetrics/fantasy-corps/pkg/utils"
)

// ScoresHandler receives score events from the external data pipeline
type ScoresHandler struct {
	processor *processor.Processor
}

func NewScoresHandler(p *processor.Processor) *ScoresHandler {
	return &ScoresHandler{processor: p}
}

// IngestHistorical merges a historical score event into the per-year corpus
func (h *ScoresHandler) IngestHistorical(c *gin.Context) {
	var event processor.ScoreEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		utils.SendValidationError(c, "Invalid score event", err.Error())
		return
	}

	if err := h.processor.IngestHistorical(c.Request.Context(), event); err != nil {
		utils.SendAppError(c, err)
		return
	}
	utils.SendSuccess(c, gin.H{"event": event.EventName, "year": event.Year})
}

// IngestLive records live scores and reprocesses the affected day
func (h *ScoresHandler) IngestLive(c *gin.Context) {
	var event processor.ScoreEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		utils.SendValidationError(c, "Invalid score event", err.Error())
		return
	}

	if err := h.processor.IngestLive(c.Request.Context(), event); err != nil {
		utils.SendAppError(c, err)
		return
	}
	utils.SendSuccess(c, gin.H{"event": event.EventName})
}
