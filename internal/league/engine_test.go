package league

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/marchmetrics/fantasy-corps/internal/models"
	"github.com/marchmetrics/fantasy-corps/pkg/database"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, gdb.AutoMigrate(models.AllModels()...))
	return database.Wrap(gdb)
}

func newTestEngine(t *testing.T, db *database.DB) *Engine {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return New(db, rand.New(rand.NewSource(11)), logger)
}

func seedLeagueSeason(t *testing.T, db *database.DB, memberIDs []uint, totals map[uint]float64) (*models.Season, *models.League) {
	t.Helper()
	season := &models.Season{
		Name:       "Test Off-Season",
		Status:     models.SeasonStatusOff,
		StartDate:  time.Now().UTC(),
		EndDate:    time.Now().UTC().AddDate(0, 0, models.SeasonDays),
		CurrentDay: 7,
	}
	require.NoError(t, db.Create(season).Error)

	for _, id := range memberIDs {
		profile := &models.CorpsProfile{
			UserID:         id,
			Class:          models.ClassWorld,
			CorpsName:      "Test Corps",
			LineupKey:      "k" + string(rune('a'+id)),
			TotalScore:     totals[id],
			ActiveSeasonID: &season.ID,
		}
		require.NoError(t, db.Create(profile).Error)
	}

	league := &models.League{
		Name:    "Test League",
		Members: datatypes.NewJSONType(memberIDs),
	}
	require.NoError(t, db.Create(league).Error)
	return season, league
}

func TestCreateWeekMatchupsPairsAndBye(t *testing.T) {
	db := newTestDB(t)
	season, league := seedLeagueSeason(t, db, []uint{1, 2, 3, 4, 5}, nil)
	e := newTestEngine(t, db)

	require.NoError(t, e.CreateWeekMatchups(context.Background(), season, 1))

	var matchups []models.LeagueMatchup
	require.NoError(t, db.Where("league_id = ? AND week = ?", league.ID, 1).Find(&matchups).Error)
	require.Len(t, matchups, 3)

	var byes, pairs int
	seen := make(map[uint]bool)
	for _, m := range matchups {
		seen[m.HomeUserID] = true
		if m.IsBye() {
			byes++
			assert.Equal(t, models.OutcomeHome, m.Outcome)
			require.NotNil(t, m.WinnerUserID)
			assert.Equal(t, m.HomeUserID, *m.WinnerUserID)
		} else {
			pairs++
			seen[*m.AwayUserID] = true
			assert.Empty(t, m.Outcome)
			scores := m.Scores.Data()
			assert.Zero(t, scores[m.HomeUserID])
			assert.Zero(t, scores[*m.AwayUserID])
		}
	}
	assert.Equal(t, 1, byes)
	assert.Equal(t, 2, pairs)
	assert.Len(t, seen, 5)

	// The bye-win is banked immediately
	var stats models.UserLeagueStats
	require.NoError(t, db.Where("season_id = ? AND class = ?", season.ID, models.ClassWorld).
		Where("wins = 1").First(&stats).Error)
}

func TestCreateWeekMatchupsIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	season, league := seedLeagueSeason(t, db, []uint{1, 2, 3, 4}, nil)
	e := newTestEngine(t, db)
	ctx := context.Background()

	require.NoError(t, e.CreateWeekMatchups(ctx, season, 1))
	require.NoError(t, e.CreateWeekMatchups(ctx, season, 1))

	var count int64
	require.NoError(t, db.Model(&models.LeagueMatchup{}).
		Where("league_id = ? AND week = ?", league.ID, 1).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestCreateWeekMatchupsSkipsUnregisteredMembers(t *testing.T) {
	db := newTestDB(t)
	season, league := seedLeagueSeason(t, db, []uint{1, 2}, nil)

	// A member with no registered corps never enters the bracket
	require.NoError(t, db.Model(&models.League{}).Where("id = ?", league.ID).
		Update("members", datatypes.NewJSONType([]uint{1, 2, 99})).Error)

	e := newTestEngine(t, db)
	require.NoError(t, e.CreateWeekMatchups(context.Background(), season, 1))

	var matchups []models.LeagueMatchup
	require.NoError(t, db.Where("league_id = ?", league.ID).Find(&matchups).Error)
	require.Len(t, matchups, 1)
	assert.False(t, matchups[0].IsBye())
}

func TestResolveWeekPicksHigherTotal(t *testing.T) {
	db := newTestDB(t)
	season, _ := seedLeagueSeason(t, db, []uint{1, 2}, map[uint]float64{1: 254.35, 2: 248.1})
	e := newTestEngine(t, db)
	ctx := context.Background()

	require.NoError(t, e.CreateWeekMatchups(ctx, season, 1))
	require.NoError(t, e.ResolveWeek(ctx, season, 1))

	var m models.LeagueMatchup
	require.NoError(t, db.Where("season_id = ? AND week = ?", season.ID, 1).First(&m).Error)
	require.NotNil(t, m.WinnerUserID)
	assert.Equal(t, uint(1), *m.WinnerUserID)
	assert.True(t, m.Resolved())

	scores := m.Scores.Data()
	assert.InDelta(t, 254.35, scores[1], 1e-9)
	assert.InDelta(t, 248.1, scores[2], 1e-9)

	var winner, loser models.UserLeagueStats
	require.NoError(t, db.Where("user_id = ? AND season_id = ?", 1, season.ID).First(&winner).Error)
	require.NoError(t, db.Where("user_id = ? AND season_id = ?", 2, season.ID).First(&loser).Error)
	assert.Equal(t, 1, winner.Wins)
	assert.Zero(t, winner.Losses)
	assert.Equal(t, 1, loser.Losses)
	assert.Zero(t, loser.Wins)
}

func TestResolveWeekRecordsTies(t *testing.T) {
	db := newTestDB(t)
	season, _ := seedLeagueSeason(t, db, []uint{1, 2}, map[uint]float64{1: 200, 2: 200})
	e := newTestEngine(t, db)
	ctx := context.Background()

	require.NoError(t, e.CreateWeekMatchups(ctx, season, 1))
	require.NoError(t, e.ResolveWeek(ctx, season, 1))

	var m models.LeagueMatchup
	require.NoError(t, db.Where("season_id = ? AND week = ?", season.ID, 1).First(&m).Error)
	assert.Equal(t, models.OutcomeTie, m.Outcome)
	assert.Nil(t, m.WinnerUserID)

	var stats []models.UserLeagueStats
	require.NoError(t, db.Where("season_id = ?", season.ID).Find(&stats).Error)
	require.Len(t, stats, 2)
	for _, s := range stats {
		assert.Equal(t, 1, s.Ties)
	}
}

func TestResolveWeekLeavesFinalOutcomesAlone(t *testing.T) {
	db := newTestDB(t)
	season, _ := seedLeagueSeason(t, db, []uint{1, 2}, map[uint]float64{1: 100, 2: 50})
	e := newTestEngine(t, db)
	ctx := context.Background()

	require.NoError(t, e.CreateWeekMatchups(ctx, season, 1))
	require.NoError(t, e.ResolveWeek(ctx, season, 1))

	// Flip the totals: a second resolution must not rewrite history
	require.NoError(t, db.Model(&models.CorpsProfile{}).Where("user_id = ?", 2).
		Update("total_season_score", 500).Error)
	require.NoError(t, e.ResolveWeek(ctx, season, 1))

	var m models.LeagueMatchup
	require.NoError(t, db.Where("season_id = ? AND week = ?", season.ID, 1).First(&m).Error)
	require.NotNil(t, m.WinnerUserID)
	assert.Equal(t, uint(1), *m.WinnerUserID)

	var stats models.UserLeagueStats
	require.NoError(t, db.Where("user_id = ? AND season_id = ?", 1, season.ID).First(&stats).Error)
	assert.Equal(t, 1, stats.Wins)
}

func TestCreateWeekMatchupsFailureDoesNotBankByeWin(t *testing.T) {
	db := newTestDB(t)
	season, _ := seedLeagueSeason(t, db, []uint{1, 2, 3}, nil)
	e := newTestEngine(t, db)
	ctx := context.Background()

	// Fail the first bracket insert; the bye's banked win must roll back
	// with it.
	failed := false
	require.NoError(t, db.Callback().Create().Before("gorm:create").
		Register("bracket_fail_once", func(tx *gorm.DB) {
			if tx.Statement.Table == "league_matchups" && !failed {
				failed = true
				tx.AddError(errors.New("connection reset"))
			}
		}))
	require.Error(t, e.CreateWeekMatchups(ctx, season, 1))
	require.NoError(t, db.Callback().Create().Remove("bracket_fail_once"))

	var stats []models.UserLeagueStats
	require.NoError(t, db.Where("season_id = ?", season.ID).Find(&stats).Error)
	assert.Empty(t, stats)

	// The retry succeeds and the bye is counted exactly once
	require.NoError(t, e.CreateWeekMatchups(ctx, season, 1))

	var matchups []models.LeagueMatchup
	require.NoError(t, db.Where("season_id = ? AND week = ?", season.ID, 1).Find(&matchups).Error)
	require.Len(t, matchups, 2)

	require.NoError(t, db.Where("season_id = ?", season.ID).Find(&stats).Error)
	require.Len(t, stats, 1)
	assert.Equal(t, 1, stats[0].Wins)
	assert.Equal(t, 0, stats[0].Losses)
}
