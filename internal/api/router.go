package api

import (
	"github.com/gin-gonic/gin"

	"github.com/marchmetrics/fantasy-corps/internal/api/handlers"
	"github.com/marchmetrics/fantasy-corps/internal/lineup"
	"github.com/marchmetrics/fantasy-corps/internal/processor"
	"github.com/marchmetrics/fantasy-corps/internal/services"
	"github.com/marchmetrics/fantasy-corps/pkg/config"
	"github.com/marchmetrics/fantasy-corps/pkg/database"
)

// SetupRoutes configures all API routes on the given router group
func SetupRoutes(group *gin.RouterGroup, db *database.DB, cache *services.CacheService, cfg *config.Config, validator *lineup.Validator, proc *processor.Processor) {
	lineupHandler := handlers.NewLineupHandler(db, validator)
	scoresHandler := handlers.NewScoresHandler(proc)
	seasonHandler := handlers.NewSeasonHandler(db, cache, cfg)
	leagueHandler := handlers.NewLeagueHandler(db)
	adminHandler := handlers.NewAdminHandler(proc, cfg.JobRatePerMinute, cfg.JobRateBurst)

	// Lineup endpoints
	group.POST("/lineups", lineupHandler.SaveLineup)
	group.PUT("/lineups/shows", lineupHandler.SelectShows)
	group.GET("/corps", lineupHandler.GetProfiles)

	// Score ingestion (called by the external data pipeline)
	group.POST("/scores/historical", scoresHandler.IngestHistorical)
	group.POST("/scores/live", scoresHandler.IngestLive)

	// Season reads
	group.GET("/season", seasonHandler.GetSeason)
	group.GET("/recaps/:day", seasonHandler.GetRecap)
	group.GET("/leaderboard/:class", seasonHandler.GetLeaderboard)

	// League reads
	group.GET("/leagues/:id/matchups", leagueHandler.GetMatchups)
	group.GET("/leagues/:id/standings", leagueHandler.GetStandings)

	// Operator endpoints (should be protected by the auth proxy in production)
	group.POST("/admin/jobs/:name", adminHandler.RunJob)
}
