package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/marchmetrics/fantasy-corps/internal/lineup"
	"github.com/marchmetrics/fantasy-corps/internal/models"
	"github.com/marchmetrics/fantasy-corps/pkg/database"
	"github.com/marchmetrics/fantasy-corps/pkg/utils"
)

type LineupHandler struct {
	db        *database.DB
	validator *lineup.Validator
}

func NewLineupHandler(db *database.DB, validator *lineup.Validator) *LineupHandler {
	return &LineupHandler{db: db, validator: validator}
}

// currentUserID resolves the caller's identity. Authentication lives in the
// surrounding application; it forwards the user id in a header, and a request
// arriving without one is rejected.
func currentUserID(c *gin.Context) (uint, bool) {
	raw := c.GetHeader("X-User-ID")
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

type saveLineupRequest struct {
	Class     string                              `json:"corps_class" binding:"required"`
	CorpsName string                              `json:"corps_name"`
	Lineup    map[string]models.CaptionSelection  `json:"lineup" binding:"required"`
}

// SaveLineup validates and commits the caller's caption lineup
func (h *LineupHandler) SaveLineup(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.SendUnauthorized(c, "Missing or invalid user identity")
		return
	}

	var req saveLineupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid lineup payload", err.Error())
		return
	}

	profile, err := h.validator.Submit(c.Request.Context(), lineup.Submission{
		UserID:    userID,
		Class:     req.Class,
		CorpsName: req.CorpsName,
		Lineup:    req.Lineup,
	})
	if err != nil {
		utils.SendAppError(c, err)
		return
	}
	utils.SendSuccess(c, profile)
}

type selectShowsRequest struct {
	Class string   `json:"corps_class" binding:"required"`
	Week  int      `json:"week" binding:"required"`
	Shows []string `json:"shows" binding:"required"`
}

// SelectShows records which shows the caller's corps attends in a week
func (h *LineupHandler) SelectShows(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.SendUnauthorized(c, "Missing or invalid user identity")
		return
	}

	var req selectShowsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid show selection payload", err.Error())
		return
	}

	profile, err := h.validator.SelectShows(c.Request.Context(), userID, req.Class, req.Week, req.Shows)
	if err != nil {
		utils.SendAppError(c, err)
		return
	}
	utils.SendSuccess(c, profile)
}

// GetProfiles returns the caller's corps profiles across classes
func (h *LineupHandler) GetProfiles(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.SendUnauthorized(c, "Missing or invalid user identity")
		return
	}

	var profiles []models.CorpsProfile
	err := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", userID).
		Find(&profiles).Error
	if err != nil {
		utils.SendInternalError(c, "Failed to fetch corps profiles")
		return
	}
	utils.SendSuccess(c, profiles)
}
