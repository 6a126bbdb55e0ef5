package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/marchmetrics/fantasy-corps/internal/models"
	"github.com/marchmetrics/fantasy-corps/internal/season"
	"github.com/marchmetrics/fantasy-corps/pkg/utils"
)

// CorpsScoreInput is one corps's caption scores inside a score event
type CorpsScoreInput struct {
	CorpsName string               `json:"corps_name" binding:"required"`
	Captions  models.CaptionScores `json:"captions" binding:"required"`
}

// ScoreEvent is the document shape delivered by the external score pipeline
type ScoreEvent struct {
	EventName     string            `json:"event_name" binding:"required"`
	EventLocation string            `json:"event_location"`
	EventDate     time.Time         `json:"event_date" binding:"required"`
	Year          int               `json:"year"`
	Scores        []CorpsScoreInput `json:"scores" binding:"required"`
}

// IngestHistorical merges a historical score event into the per-year corpus.
// Existing events are merged, never overwritten, so redelivery is harmless.
func (p *Processor) IngestHistorical(ctx context.Context, event ScoreEvent) error {
	if event.Year == 0 {
		event.Year = event.EventDate.Year()
	}

	incoming := models.HistoricalEvent{
		Name:         event.EventName,
		Location:     event.EventLocation,
		Date:         event.EventDate,
		OffSeasonDay: p.syntheticDay(event.EventDate),
		Scores:       make(map[string]models.CaptionScores, len(event.Scores)),
	}
	for _, cs := range event.Scores {
		incoming.Scores[cs.CorpsName] = cs.Captions
	}

	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record models.HistoricalScores
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("year = ?", event.Year).
			First(&record).Error
		if err == gorm.ErrRecordNotFound {
			record = models.HistoricalScores{Year: event.Year}
		} else if err != nil {
			return err
		}

		record.MergeEvent(incoming)
		return tx.Save(&record).Error
	})
	if err != nil {
		return utils.TransientError("failed to ingest historical scores", err.Error())
	}

	p.logger.WithFields(logrus.Fields{
		"event": event.EventName,
		"year":  event.Year,
		"corps": len(event.Scores),
	}).Info("Ingested historical scores")
	return nil
}

// IngestLive records live caption scores for the active season and reprocesses
// the affected day. Upserts keyed on (season, corps, day) keep redelivery
// idempotent.
func (p *Processor) IngestLive(ctx context.Context, event ScoreEvent) error {
	current, err := season.Current(p.db.WithContext(ctx))
	if err != nil {
		return err
	}
	if current.Status != models.SeasonStatusLive {
		return utils.ConflictError("no live season is active")
	}

	day := int(event.EventDate.Sub(current.StartDate).Hours()/24) + 1
	if !models.ValidSeasonDay(day) {
		return utils.ValidationError("event date outside season window", fmt.Sprintf("maps to day %d", day))
	}

	err = p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, cs := range event.Scores {
			score := models.LiveScore{
				SeasonID:  current.ID,
				CorpsName: cs.CorpsName,
				Day:       day,
				Captions:  datatypes.NewJSONType(cs.Captions),
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "season_id"}, {Name: "corps_name"}, {Name: "day"}},
				DoUpdates: clause.AssignmentColumns([]string{"captions", "updated_at"}),
			}).Create(&score).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return utils.TransientError("failed to ingest live scores", err.Error())
	}

	if err := p.advanceDay(ctx, current.ID, day); err != nil {
		return err
	}

	return p.ProcessDay(ctx, day)
}

// syntheticDay maps a calendar date onto the 1-49 synthetic calendar using
// the configured tour start, clamped to the season window.
func (p *Processor) syntheticDay(date time.Time) int {
	tourStart := time.Date(date.Year(), time.Month(p.cfg.LiveSeasonStartMonth), p.cfg.LiveSeasonStartDay, 0, 0, 0, 0, time.UTC)
	day := int(date.Sub(tourStart).Hours()/24) + 1
	if day < 1 {
		return 1
	}
	if day > models.SeasonDays {
		return models.SeasonDays
	}
	return day
}
