package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/marchmetrics/fantasy-corps/internal/api"
	"github.com/marchmetrics/fantasy-corps/internal/api/middleware"
	"github.com/marchmetrics/fantasy-corps/internal/league"
	"github.com/marchmetrics/fantasy-corps/internal/lineup"
	"github.com/marchmetrics/fantasy-corps/internal/processor"
	"github.com/marchmetrics/fantasy-corps/internal/season"
	"github.com/marchmetrics/fantasy-corps/internal/services"
	"github.com/marchmetrics/fantasy-corps/pkg/config"
	"github.com/marchmetrics/fantasy-corps/pkg/database"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Setup logging
	if cfg.IsDevelopment() {
		logrus.SetLevel(logrus.DebugLevel)
		gin.SetMode(gin.DebugMode)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Connect to Redis
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logrus.Fatalf("Failed to parse Redis URL: %v", err)
	}
	redisClient := redis.NewClient(opt)
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logrus.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	logger := logrus.StandardLogger()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	// Initialize engine services
	cacheService := services.NewCacheService(redisClient, cfg.CircuitBreakerThreshold, logger)
	lifecycle := season.NewManager(db, cfg, rng, logger)
	leagueEngine := league.New(db, rng, logger)
	proc := processor.New(db, cacheService, leagueEngine, cfg, rng, logger)
	validator := lineup.New(db, cfg, logger)

	// Schedule the engine ticks
	scheduler := services.NewScheduler(logger)
	if cfg.EnableBackgroundJobs {
		if err := scheduler.AddTick(cfg.LifecycleTickSpec, "season-lifecycle", lifecycle.Tick); err != nil {
			logrus.Fatalf("Failed to schedule lifecycle tick: %v", err)
		}
		if err := scheduler.AddTick(cfg.DailyTickSpec, "daily-processing", proc.RunDailyTick); err != nil {
			logrus.Fatalf("Failed to schedule daily tick: %v", err)
		}
		if err := scheduler.Start(); err != nil {
			logrus.Fatalf("Failed to start scheduler: %v", err)
		}
		defer scheduler.Stop()
	}

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS(cfg.CorsOrigins))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().UTC(),
		})
	})

	// Setup API routes under /api/v1
	apiV1 := router.Group("/api/v1")
	api.SetupRoutes(apiV1, db, cacheService, cfg, validator, proc)

	// Setup server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logrus.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}
