package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/marchmetrics/fantasy-corps/internal/models"
	"github.com/marchmetrics/fantasy-corps/pkg/config"
	"github.com/marchmetrics/fantasy-corps/pkg/database"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: migrate [up|down|seed]")
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	command := os.Args[1]

	switch command {
	case "up":
		if err := runMigrations(db); err != nil {
			logrus.Fatalf("Failed to run migrations: %v", err)
		}
		logrus.Info("Migrations completed successfully")

	case "down":
		if err := dropTables(db); err != nil {
			logrus.Fatalf("Failed to drop tables: %v", err)
		}
		logrus.Info("Tables dropped successfully")

	case "seed":
		if err := seedData(db); err != nil {
			logrus.Fatalf("Failed to seed data: %v", err)
		}
		logrus.Info("Data seeded successfully")

	default:
		log.Fatalf("Unknown command: %s", command)
	}
}

func runMigrations(db *database.DB) error {
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		return fmt.Errorf("failed to migrate models: %w", err)
	}

	// Create indexes
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_corps_profiles_score ON corps_profiles(class, total_season_score DESC)",
		"CREATE INDEX IF NOT EXISTS idx_league_matchups_season_week ON league_matchups(season_id, week)",
		"CREATE INDEX IF NOT EXISTS idx_live_scores_day ON live_scores(season_id, day)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

func dropTables(db *database.DB) error {
	// Drop tables in reverse order to handle foreign key constraints
	tables := []string{
		"user_league_stats",
		"league_matchups",
		"leagues",
		"recaps",
		"final_rankings",
		"live_scores",
		"historical_scores",
		"corps_profiles",
		"season_archives",
		"seasons",
		"users",
	}

	for _, table := range tables {
		if err := db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)).Error; err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}

	return nil
}

func seedData(db *database.DB) error {
	// A slim historical year so the schedule generator and predictor have
	// something to chew on in development
	year := time.Now().Year() - 1
	events := []models.HistoricalEvent{
		{
			Name:         "DCI World Championship Finals",
			Location:     "Indianapolis, IN",
			Date:         time.Date(year, 8, 10, 0, 0, 0, 0, time.UTC),
			OffSeasonDay: 49,
			Scores: map[string]models.CaptionScores{
				"Blue Devils": {"GE1": 19.8, "GE2": 19.7, "VP": 19.6, "VA": 19.5, "CG": 19.4, "B": 19.6, "MA": 19.7, "P": 19.5},
				"Bluecoats":   {"GE1": 19.5, "GE2": 19.4, "VP": 19.3, "VA": 19.2, "CG": 19.3, "B": 19.4, "MA": 19.3, "P": 19.2},
			},
		},
		{
			Name:         "DCI World Championship Semifinals",
			Location:     "Lucas Oil Stadium",
			Date:         time.Date(year, 8, 9, 0, 0, 0, 0, time.UTC),
			OffSeasonDay: 48,
			Scores: map[string]models.CaptionScores{
				"Blue Devils": {"GE1": 19.6, "GE2": 19.5, "VP": 19.4, "VA": 19.3, "CG": 19.2, "B": 19.4, "MA": 19.5, "P": 19.3},
				"Carolina Crown": {"GE1": 19.1, "GE2": 19.0, "VP": 18.9, "VA": 18.8, "CG": 18.9, "B": 19.2, "MA": 19.0, "P": 18.7},
			},
		},
	}

	record := models.HistoricalScores{
		Year:   year,
		Events: datatypes.NewJSONType(events),
	}
	if err := db.Where("year = ?", year).FirstOrCreate(&record).Error; err != nil {
		return fmt.Errorf("failed to seed historical scores: %w", err)
	}

	ranking := models.FinalRanking{
		Year: year,
		Rankings: datatypes.NewJSONType([]models.RankedCorps{
			{CorpsName: "Blue Devils", Rank: 1, Score: 98.3},
			{CorpsName: "Bluecoats", Rank: 2, Score: 97.1},
			{CorpsName: "Carolina Crown", Rank: 3, Score: 96.4},
			{CorpsName: "Boston Crusaders", Rank: 4, Score: 95.9},
		}),
	}
	if err := db.Where("year = ?", year).FirstOrCreate(&ranking).Error; err != nil {
		return fmt.Errorf("failed to seed final rankings: %w", err)
	}

	logrus.Infof("Seeded historical data for %d", year)
	return nil
}
