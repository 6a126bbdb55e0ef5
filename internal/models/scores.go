package models

import (
	"time"

	"gorm.io/datatypes"
)

// HistoricalEvent is one show from a past competitive year, tagged with the
// synthetic off-season day it maps onto
type HistoricalEvent struct {
	Name         string                   `json:"name"`
	Location     string                   `json:"location"`
	Date         time.Time                `json:"date"`
	OffSeasonDay int                      `json:"off_season_day"`
	Scores       map[string]CaptionScores `json:"scores"` // corps name -> caption scores
}

// HistoricalScores is the append-only per-year corpus of real show results.
// New data for an existing event is merged in, never overwritten wholesale.
type HistoricalScores struct {
	ID        uint                                  `gorm:"primaryKey" json:"id"`
	Year      int                                   `gorm:"uniqueIndex;not null" json:"year"`
	Events    datatypes.JSONType[[]HistoricalEvent] `json:"events"`
	CreatedAt time.Time                             `json:"created_at"`
	UpdatedAt time.Time                             `json:"updated_at"`
}

func (HistoricalScores) TableName() string {
	return "historical_scores"
}

// MergeEvent folds an incoming event into the year's corpus: an event with a
// matching name and date has its per-corps scores merged; anything else is
// appended.
func (h *HistoricalScores) MergeEvent(incoming HistoricalEvent) {
	events := h.Events.Data()
	for i, existing := range events {
		if existing.Name == incoming.Name && existing.Date.Equal(incoming.Date) {
			if events[i].Scores == nil {
				events[i].Scores = make(map[string]CaptionScores)
			}
			for corps, captions := range incoming.Scores {
				if events[i].Scores[corps] == nil {
					events[i].Scores[corps] = make(CaptionScores)
				}
				for caption, score := range captions {
					events[i].Scores[corps][caption] = score
				}
			}
			h.Events = datatypes.NewJSONType(events)
			return
		}
	}
	h.Events = datatypes.NewJSONType(append(events, incoming))
}

// LiveScore is one corps's caption scores for one day of the active live
// season, ingested from the live event feed
type LiveScore struct {
	ID        uint                               `gorm:"primaryKey" json:"id"`
	SeasonID  uint                               `gorm:"not null;uniqueIndex:idx_live_season_corps_day" json:"season_id"`
	CorpsName string                             `gorm:"size:100;not null;uniqueIndex:idx_live_season_corps_day" json:"corps_name"`
	Day       int                                `gorm:"not null;uniqueIndex:idx_live_season_corps_day" json:"day"`
	Captions  datatypes.JSONType[CaptionScores]  `json:"captions"`
	CreatedAt time.Time                          `json:"created_at"`
	UpdatedAt time.Time                          `json:"updated_at"`
}

func (LiveScore) TableName() string {
	return "live_scores"
}

// RankedCorps is one row of a year's final rankings document
type RankedCorps struct {
	CorpsName string  `json:"corps_name"`
	Rank      int     `json:"rank"`
	Score     float64 `json:"score"`
}

// FinalRanking holds a past year's championship placements, read at season
// rollover to seed corps values
type FinalRanking struct {
	ID        uint                              `gorm:"primaryKey" json:"id"`
	Year      int                               `gorm:"uniqueIndex;not null" json:"year"`
	Rankings  datatypes.JSONType[[]RankedCorps] `json:"rankings"`
	CreatedAt time.Time                         `json:"created_at"`
}

func (FinalRanking) TableName() string {
	return "final_rankings"
}
