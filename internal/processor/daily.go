package processor

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/marchmetrics/fantasy-corps/internal/league"
	"github.com/marchmetrics/fantasy-corps/internal/models"
	"github.com/marchmetrics/fantasy-corps/internal/predictor"
	"github.com/marchmetrics/fantasy-corps/internal/season"
	"github.com/marchmetrics/fantasy-corps/internal/services"
	"github.com/marchmetrics/fantasy-corps/pkg/config"
	"github.com/marchmetrics/fantasy-corps/pkg/database"
	"github.com/marchmetrics/fantasy-corps/pkg/utils"
)

// Processor computes and persists fantasy totals and recaps for season days.
// Every logical unit of work runs in one transaction, so re-running a day is
// always safe.
type Processor struct {
	db     *database.DB
	cache  *services.CacheService
	league *league.Engine
	cfg    *config.Config
	rng    *rand.Rand
	logger *logrus.Logger
}

func New(db *database.DB, cache *services.CacheService, leagueEngine *league.Engine, cfg *config.Config, rng *rand.Rand, logger *logrus.Logger) *Processor {
	return &Processor{
		db:     db,
		cache:  cache,
		league: leagueEngine,
		cfg:    cfg,
		rng:    rng,
		logger: logger,
	}
}

// RunDailyTick advances an off-season by one day and processes it. Scheduled
// once per day; live seasons are driven by score ingestion instead.
func (p *Processor) RunDailyTick(ctx context.Context) error {
	current, err := season.Current(p.db.WithContext(ctx))
	if err != nil {
		return err
	}
	if current.Status != models.SeasonStatusOff {
		return nil
	}

	day := current.CurrentDay + 1
	if day > models.SeasonDays {
		p.logger.Debug("Season calendar exhausted, waiting for rollover")
		return nil
	}

	if err := p.ProcessDay(ctx, day); err != nil {
		return err
	}

	return p.advanceDay(ctx, current.ID, day)
}

// ProcessDay scores every registered corps attending a show on the given day
// and persists totals plus the day recap atomically. Re-running replaces the
// day's recap rather than appending.
func (p *Processor) ProcessDay(ctx context.Context, day int) error {
	if !models.ValidSeasonDay(day) {
		return utils.ValidationError("season day out of range", fmt.Sprintf("day %d", day))
	}

	current, err := season.Current(p.db.WithContext(ctx))
	if err != nil {
		return err
	}

	pred, liveData, err := p.buildPredictor(ctx, current)
	if err != nil {
		return err
	}

	shows := current.ShowsOnDay(day)
	week := models.WeekOfDay(day)

	// Brackets for the running week are ensured up front, so the boundary
	// resolution always has matchups to settle. Creation is idempotent.
	if p.league != nil {
		if err := p.league.CreateWeekMatchups(ctx, current, week); err != nil {
			return err
		}
	}

	var profiles []models.CorpsProfile
	if err := p.db.WithContext(ctx).Where("active_season_id = ?", current.ID).Find(&profiles).Error; err != nil {
		return utils.TransientError("failed to load registered corps", err.Error())
	}

	// One score set per profile per day, reused across any shows it attends
	scored := make(map[uint]*dayScore)
	recapShows := make([]models.RecapShow, 0, len(shows))

	for _, show := range shows {
		recapShow := models.RecapShow{Name: show.Name, Location: show.Location}
		for i := range profiles {
			profile := &profiles[i]
			if !profile.AttendsShow(week, show.Name) {
				continue
			}
			score, ok := scored[profile.ID]
			if !ok {
				score = p.scoreProfile(profile, current, liveData, pred, day)
				scored[profile.ID] = score
			}
			recapShow.Results = append(recapShow.Results, models.RecapResult{
				UserID:    profile.UserID,
				Class:     profile.Class,
				CorpsName: profile.CorpsName,
				GE:        score.ge,
				Visual:    score.visual,
				Music:     score.music,
				Total:     score.total,
			})
		}
		rankResults(recapShow.Results)
		recapShows = append(recapShows, recapShow)
	}

	// Score totals and the recap commit together or not at all
	err = p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range profiles {
			score, ok := scored[profiles[i].ID]
			if !ok {
				continue
			}
			updates := map[string]interface{}{
				"total_season_score": score.total,
				"last_scored_day":    day,
			}
			if err := tx.Model(&models.CorpsProfile{}).Where("id = ?", profiles[i].ID).Updates(updates).Error; err != nil {
				return err
			}
		}

		recap := models.Recap{
			SeasonID: current.ID,
			Day:      day,
			Shows:    datatypes.NewJSONType(recapShows),
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "season_id"}, {Name: "day"}},
			DoUpdates: clause.AssignmentColumns([]string{"shows", "updated_at"}),
		}).Create(&recap).Error
	})
	if err != nil {
		return utils.TransientError("failed to persist day results", err.Error())
	}

	p.invalidateCaches(ctx, current.ID, day)

	p.logger.WithFields(logrus.Fields{
		"day":    day,
		"shows":  len(shows),
		"scored": len(scored),
	}).Info("Processed season day")

	if models.IsWeekBoundary(day) && p.league != nil {
		if err := p.league.ResolveWeek(ctx, current, week); err != nil {
			return err
		}
	}

	return nil
}

type dayScore struct {
	ge     float64
	visual float64
	music  float64
	total  float64
}

// scoreProfile predicts all 8 captions and folds them into the competitive
// subtotals: GE summed, Visual and Music averaged.
func (p *Processor) scoreProfile(profile *models.CorpsProfile, s *models.Season, liveData *predictor.LiveDataset, pred *predictor.Predictor, day int) *dayScore {
	lineup := profile.Lineup.Data()

	predict := func(caption string) float64 {
		sel := lineup[caption]
		if s.Status == models.SeasonStatusLive && liveData != nil {
			return pred.PredictLive(liveData, sel.CorpsName, sel.SourceYear, caption, day)
		}
		return pred.Predict(sel.CorpsName, sel.SourceYear, caption, day)
	}

	var ge float64
	for _, caption := range models.GECaptions {
		ge += predict(caption)
	}
	var visual float64
	for _, caption := range models.VisualCaptions {
		visual += predict(caption)
	}
	visual /= float64(len(models.VisualCaptions))
	var music float64
	for _, caption := range models.MusicCaptions {
		music += predict(caption)
	}
	music /= float64(len(models.MusicCaptions))

	return &dayScore{
		ge:     round3(ge),
		visual: round3(visual),
		music:  round3(music),
		total:  round3(ge + visual + music),
	}
}

// buildPredictor loads the historical corpus (and the live season's own
// scores when applicable) into prediction datasets.
func (p *Processor) buildPredictor(ctx context.Context, s *models.Season) (*predictor.Predictor, *predictor.LiveDataset, error) {
	var records []models.HistoricalScores
	if err := p.db.WithContext(ctx).Find(&records).Error; err != nil {
		return nil, nil, utils.TransientError("failed to load historical scores", err.Error())
	}
	eventsByYear := make(map[int][]models.HistoricalEvent, len(records))
	for _, record := range records {
		eventsByYear[record.Year] = record.Events.Data()
	}
	pred := predictor.New(predictor.NewDataset(eventsByYear), p.rng, p.logger)

	var liveData *predictor.LiveDataset
	if s.Status == models.SeasonStatusLive {
		var liveScores []models.LiveScore
		if err := p.db.WithContext(ctx).Where("season_id = ?", s.ID).Find(&liveScores).Error; err != nil {
			return nil, nil, utils.TransientError("failed to load live scores", err.Error())
		}
		liveData = predictor.NewLiveDataset(liveScores)
	}
	return pred, liveData, nil
}

// advanceDay records the day marker on the season record
func (p *Processor) advanceDay(ctx context.Context, seasonID uint, day int) error {
	err := p.db.WithContext(ctx).Model(&models.Season{}).
		Where("id = ? AND current_day < ?", seasonID, day).
		Update("current_day", day).Error
	if err != nil {
		return utils.TransientError("failed to advance season day", err.Error())
	}
	return nil
}

func (p *Processor) invalidateCaches(ctx context.Context, seasonID uint, day int) {
	if p.cache == nil {
		return
	}
	keys := []string{services.RecapCacheKey(seasonID, day)}
	for _, class := range models.AllClasses {
		keys = append(keys, services.LeaderboardCacheKey(class))
	}
	if err := p.cache.Delete(ctx, keys...); err != nil {
		p.logger.WithError(err).Warn("Failed to invalidate caches after day processing")
	}
}

// rankResults orders a show's results by total descending and stamps ranks
func rankResults(results []models.RecapResult) {
	sort.Slice(results, func(i, j int) bool {
		return results[i].Total > results[j].Total
	})
	for i := range results {
		results[i].Rank = i + 1
	}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
