package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/marchmetrics/fantasy-corps/internal/models"
	"github.com/marchmetrics/fantasy-corps/pkg/database"
	"github.com/marchmetrics/fantasy-corps/pkg/utils"
)

type LeagueHandler struct {
	db *database.DB
}

func NewLeagueHandler(db *database.DB) *LeagueHandler {
	return &LeagueHandler{db: db}
}

// GetMatchups returns a league's matchups, optionally filtered by week
func (h *LeagueHandler) GetMatchups(c *gin.Context) {
	leagueID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.SendValidationError(c, "Invalid league id", c.Param("id"))
		return
	}

	var l models.League
	if err := h.db.WithContext(c.Request.Context()).First(&l, leagueID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.SendNotFound(c, "League not found")
		} else {
			utils.SendInternalError(c, "Failed to fetch league")
		}
		return
	}

	query := h.db.WithContext(c.Request.Context()).
		Where("league_id = ?", l.ID).
		Order("week ASC, class ASC")
	if weekStr := c.Query("week"); weekStr != "" {
		week, err := strconv.Atoi(weekStr)
		if err != nil {
			utils.SendValidationError(c, "Invalid week", weekStr)
			return
		}
		query = query.Where("week = ?", week)
	}

	var matchups []models.LeagueMatchup
	if err := query.Find(&matchups).Error; err != nil {
		utils.SendInternalError(c, "Failed to fetch matchups")
		return
	}
	utils.SendSuccess(c, matchups)
}

// GetStandings returns win/loss/tie records for a league's members
func (h *LeagueHandler) GetStandings(c *gin.Context) {
	leagueID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.SendValidationError(c, "Invalid league id", c.Param("id"))
		return
	}

	var l models.League
	if err := h.db.WithContext(c.Request.Context()).First(&l, leagueID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.SendNotFound(c, "League not found")
		} else {
			utils.SendInternalError(c, "Failed to fetch league")
		}
		return
	}

	members := l.Members.Data()
	if len(members) == 0 {
		utils.SendSuccess(c, []models.UserLeagueStats{})
		return
	}

	var stats []models.UserLeagueStats
	err = h.db.WithContext(c.Request.Context()).
		Where("user_id IN ?", members).
		Order("wins DESC, ties DESC").
		Find(&stats).Error
	if err != nil {
		utils.SendInternalError(c, "Failed to fetch standings")
		return
	}
	utils.SendSuccess(c, stats)
}
