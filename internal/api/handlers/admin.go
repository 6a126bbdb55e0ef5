package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/marchmetrics/fantasy-corps/internal/processor"
	"github.com/marchmetrics/fantasy-corps/pkg/utils"
)

// AdminHandler exposes operator-triggered job re-execution. Triggers are
// rate-limited so a frantic operator cannot stack concurrent batch runs.
type AdminHandler struct {
	processor *processor.Processor
	limiter   *rate.Limiter
}

func NewAdminHandler(p *processor.Processor, perMinute int, burst int) *AdminHandler {
	return &AdminHandler{
		processor: p,
		limiter:   rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), burst),
	}
}

// RunJob triggers one of the named idempotent jobs
func (h *AdminHandler) RunJob(c *gin.Context) {
	if !h.limiter.Allow() {
		utils.SendError(c, http.StatusTooManyRequests,
			utils.NewAppError(utils.ErrCodeConflict, "Job trigger rate limit exceeded"))
		return
	}

	runID, err := h.processor.RunJob(c.Request.Context(), c.Param("name"))
	if err != nil {
		utils.SendAppError(c, err)
		return
	}
	utils.SendSuccess(c, gin.H{"run_id": runID})
}
