package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/marchmetrics/fantasy-corps/internal/models"
	"github.com/marchmetrics/fantasy-corps/internal/season"
	"github.com/marchmetrics/fantasy-corps/internal/services"
	"github.com/marchmetrics/fantasy-corps/pkg/config"
	"github.com/marchmetrics/fantasy-corps/pkg/database"
	"github.com/marchmetrics/fantasy-corps/pkg/utils"
)

type SeasonHandler struct {
	db    *database.DB
	cache *services.CacheService
	cfg   *config.Config
}

func NewSeasonHandler(db *database.DB, cache *services.CacheService, cfg *config.Config) *SeasonHandler {
	return &SeasonHandler{db: db, cache: cache, cfg: cfg}
}

// GetSeason returns the active season record
func (h *SeasonHandler) GetSeason(c *gin.Context) {
	current, err := season.Current(h.db.WithContext(c.Request.Context()))
	if err != nil {
		utils.SendAppError(c, err)
		return
	}
	utils.SendSuccess(c, current)
}

// GetRecap returns the recap for a season day, cache first
func (h *SeasonHandler) GetRecap(c *gin.Context) {
	day, err := strconv.Atoi(c.Param("day"))
	if err != nil || !models.ValidSeasonDay(day) {
		utils.SendValidationError(c, "Invalid season day", c.Param("day"))
		return
	}

	current, serr := season.Current(h.db.WithContext(c.Request.Context()))
	if serr != nil {
		utils.SendAppError(c, serr)
		return
	}

	cacheKey := services.RecapCacheKey(current.ID, day)
	if h.cache != nil {
		var cached models.Recap
		if err := h.cache.Get(c.Request.Context(), cacheKey, &cached); err == nil {
			utils.SendSuccess(c, cached)
			return
		}
	}

	var recap models.Recap
	err = h.db.WithContext(c.Request.Context()).
		Where("season_id = ? AND day = ?", current.ID, day).
		First(&recap).Error
	if err == gorm.ErrRecordNotFound {
		utils.SendNotFound(c, "No recap for day")
		return
	}
	if err != nil {
		utils.SendInternalError(c, "Failed to fetch recap")
		return
	}

	if h.cache != nil {
		ttl := time.Duration(h.cfg.CacheTTLSeconds) * time.Second
		_ = h.cache.Set(c.Request.Context(), cacheKey, recap, ttl)
	}
	utils.SendSuccess(c, recap)
}

type leaderboardEntry struct {
	UserID    uint    `json:"user_id"`
	CorpsName string  `json:"corps_name"`
	Total     float64 `json:"total"`
	Rank      int     `json:"rank"`
}

// GetLeaderboard returns the class standings for the active season
func (h *SeasonHandler) GetLeaderboard(c *gin.Context) {
	class := c.Param("class")
	if !models.ValidClass(class) {
		utils.SendValidationError(c, "Unknown corps class", class)
		return
	}

	cacheKey := services.LeaderboardCacheKey(class)
	if h.cache != nil {
		var cached []leaderboardEntry
		if err := h.cache.Get(c.Request.Context(), cacheKey, &cached); err == nil {
			utils.SendSuccess(c, cached)
			return
		}
	}

	current, serr := season.Current(h.db.WithContext(c.Request.Context()))
	if serr != nil {
		utils.SendAppError(c, serr)
		return
	}

	var profiles []models.CorpsProfile
	err := h.db.WithContext(c.Request.Context()).
		Where("class = ? AND active_season_id = ?", class, current.ID).
		Order("total_season_score DESC").
		Find(&profiles).Error
	if err != nil {
		utils.SendInternalError(c, "Failed to fetch leaderboard")
		return
	}

	entries := make([]leaderboardEntry, 0, len(profiles))
	for i, profile := range profiles {
		entries = append(entries, leaderboardEntry{
			UserID:    profile.UserID,
			CorpsName: profile.CorpsName,
			Total:     profile.TotalScore,
			Rank:      i + 1,
		})
	}

	if h.cache != nil {
		ttl := time.Duration(h.cfg.CacheTTLSeconds) * time.Second
		_ = h.cache.Set(c.Request.Context(), cacheKey, entries, ttl)
	}
	utils.SendSuccess(c, entries)
}
