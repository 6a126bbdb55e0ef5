package models

import (
	"time"

	"gorm.io/datatypes"
)

// RecapResult is one corps's fantasy result inside a recapped show
type RecapResult struct {
	UserID    uint    `json:"user_id"`
	Class     string  `json:"class"`
	CorpsName string  `json:"corps_name"`
	GE        float64 `json:"ge"`
	Visual    float64 `json:"visual"`
	Music     float64 `json:"music"`
	Total     float64 `json:"total"`
	Rank      int     `json:"rank"`
}

// RecapShow is one show's ranked results within a day recap
type RecapShow struct {
	Name     string        `json:"name"`
	Location string        `json:"location"`
	Results  []RecapResult `json:"results"`
}

// Recap is the persisted day-level summary of shows and their fantasy
// results. Replaced idempotently when a day is reprocessed.
type Recap struct {
	ID        uint                            `gorm:"primaryKey" json:"id"`
	SeasonID  uint                            `gorm:"not null;uniqueIndex:idx_recap_season_day" json:"season_id"`
	Day       int                             `gorm:"not null;uniqueIndex:idx_recap_season_day" json:"day"`
	Shows     datatypes.JSONType[[]RecapShow] `json:"shows"`
	CreatedAt time.Time                       `json:"created_at"`
	UpdatedAt time.Time                       `json:"updated_at"`
}

func (Recap) TableName() string {
	return "recaps"
}
