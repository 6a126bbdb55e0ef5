package processor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm/clause"

	"github.com/marchmetrics/fantasy-corps/internal/models"
	"github.com/marchmetrics/fantasy-corps/internal/season"
	"github.com/marchmetrics/fantasy-corps/internal/services"
	"github.com/marchmetrics/fantasy-corps/pkg/utils"
)

// Operator-triggered job names
const (
	JobDaily   = "daily"
	JobStats   = "stats"
	JobArchive = "archive"
)

// ClassStats is the per-class aggregate produced by the stats job
type ClassStats struct {
	Class      string  `json:"class"`
	CorpsCount int64   `json:"corps_count"`
	TopScore   float64 `json:"top_score"`
	AvgScore   float64 `json:"avg_score"`
}

// RunJob executes an operator-triggered job by name. Every job is idempotent
// so a failed run can simply be re-triggered.
func (p *Processor) RunJob(ctx context.Context, name string) (string, error) {
	runID := uuid.NewString()
	log := p.logger.WithFields(logrus.Fields{"job": name, "run_id": runID})
	log.Info("Job triggered")

	var err error
	switch name {
	case JobDaily:
		err = p.rerunCurrentDay(ctx)
	case JobStats:
		err = p.aggregateStats(ctx)
	case JobArchive:
		err = p.archiveSeason(ctx)
	default:
		return "", utils.ValidationError("unknown job", name)
	}

	if err != nil {
		log.WithError(err).Error("Job failed")
		return "", err
	}
	log.Info("Job completed")
	return runID, nil
}

// rerunCurrentDay reprocesses the season's current day in place
func (p *Processor) rerunCurrentDay(ctx context.Context) error {
	current, err := season.Current(p.db.WithContext(ctx))
	if err != nil {
		return err
	}
	if current.CurrentDay < 1 {
		return utils.ConflictError("season has no processed day yet")
	}
	return p.ProcessDay(ctx, current.CurrentDay)
}

// aggregateStats computes per-class aggregates over the active season and
// caches them for the UI layer.
func (p *Processor) aggregateStats(ctx context.Context) error {
	current, err := season.Current(p.db.WithContext(ctx))
	if err != nil {
		return err
	}

	for _, class := range models.AllClasses {
		var stats ClassStats
		stats.Class = class

		query := p.db.WithContext(ctx).Model(&models.CorpsProfile{}).
			Where("class = ? AND active_season_id = ?", class, current.ID)
		if err := query.Count(&stats.CorpsCount).Error; err != nil {
			return utils.TransientError("failed to aggregate stats", err.Error())
		}
		if stats.CorpsCount > 0 {
			row := p.db.WithContext(ctx).Model(&models.CorpsProfile{}).
				Where("class = ? AND active_season_id = ?", class, current.ID).
				Select("MAX(total_season_score) AS top, AVG(total_season_score) AS avg").
				Row()
			if err := row.Scan(&stats.TopScore, &stats.AvgScore); err != nil {
				return utils.TransientError("failed to aggregate stats", err.Error())
			}
		}

		if p.cache != nil {
			if err := p.cache.Set(ctx, services.StatsCacheKey(class), stats, time.Duration(p.cfg.CacheTTLSeconds)*time.Second); err != nil {
				p.logger.WithError(err).Warn("Failed to cache class stats")
			}
		}
	}
	return nil
}

// archiveSeason snapshots the active season's standings. The snapshot is
// keyed by season, so re-running replaces rather than duplicates it.
func (p *Processor) archiveSeason(ctx context.Context) error {
	current, err := season.Current(p.db.WithContext(ctx))
	if err != nil {
		return err
	}

	var profiles []models.CorpsProfile
	if err := p.db.WithContext(ctx).
		Where("active_season_id = ?", current.ID).
		Order("total_season_score DESC").
		Find(&profiles).Error; err != nil {
		return utils.TransientError("failed to load standings", err.Error())
	}

	standings := make([]models.ArchivedStanding, 0, len(profiles))
	for _, profile := range profiles {
		standings = append(standings, models.ArchivedStanding{
			UserID:     profile.UserID,
			Class:      profile.Class,
			CorpsName:  profile.CorpsName,
			TotalScore: profile.TotalScore,
		})
	}

	archive := models.SeasonArchive{
		SeasonID:   current.ID,
		SeasonName: current.Name,
		Standings:  datatypes.NewJSONType(standings),
		ArchivedAt: time.Now().UTC(),
	}
	err = p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "season_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"standings", "archived_at"}),
	}).Create(&archive).Error
	if err != nil {
		return utils.TransientError("failed to archive season", err.Error())
	}

	// Detach profiles still pointing at seasons older than the active one
	err = p.db.WithContext(ctx).Model(&models.CorpsProfile{}).
		Where("active_season_id IS NOT NULL AND active_season_id <> ?", current.ID).
		Update("active_season_id", nil).Error
	if err != nil {
		return utils.TransientError("failed to detach stale profiles", err.Error())
	}

	p.logger.WithFields(logrus.Fields{
		"season":    current.Name,
		"standings": len(standings),
	}).Info("Season archived")
	return nil
}
