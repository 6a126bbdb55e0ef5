package models

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Corps classes and their fantasy lineup point caps
const (
	ClassWorld = "world"
	ClassOpen  = "open"
	ClassA     = "a-class"
)

var ClassPointCaps = map[string]int{
	ClassWorld: 150,
	ClassOpen:  120,
	ClassA:     60,
}

// AllClasses lists the known corps classes in cap order
var AllClasses = []string{ClassWorld, ClassOpen, ClassA}

func ValidClass(class string) bool {
	_, ok := ClassPointCaps[class]
	return ok
}

// CaptionSelection is one caption slot of a lineup: a priced historical corps
type CaptionSelection struct {
	CorpsName  string `json:"corps_name"`
	SourceYear int    `json:"source_year"`
	Points     int    `json:"points"`
}

// WeeklyTrades tracks caption changes spent against the weekly quota
type WeeklyTrades struct {
	SeasonID uint `json:"season_id"`
	Week     int  `json:"week"`
	Used     int  `json:"used"`
}

// CorpsProfile is a user's fantasy corps for one class. Created on first
// lineup submission and never hard-deleted; historical rows persist under the
// profile across seasons.
type CorpsProfile struct {
	ID             uint                                            `gorm:"primaryKey" json:"id"`
	UserID         uint                                            `gorm:"not null;uniqueIndex:idx_corps_user_class" json:"user_id"`
	Class          string                                          `gorm:"size:20;not null;uniqueIndex:idx_corps_user_class" json:"class"`
	CorpsName      string                                          `gorm:"size:100" json:"corps_name"`
	ActiveSeasonID *uint                                           `gorm:"index" json:"active_season_id"`
	Lineup         datatypes.JSONType[map[string]CaptionSelection] `json:"lineup"`
	LineupKey      string                                          `gorm:"size:512;uniqueIndex:idx_corps_lineup_key,where:active_season_id IS NOT NULL" json:"lineup_key"`
	TotalScore     float64                                         `gorm:"column:total_season_score" json:"total_season_score"`
	SelectedShows  datatypes.JSONType[map[int][]string]            `json:"selected_shows"`
	Trades         datatypes.JSONType[WeeklyTrades]                `json:"weekly_trades"`
	RegisteredDay  int                                             `json:"registered_day"`
	LastScoredDay  int                                             `json:"last_scored_day"`
	CreatedAt      time.Time                                       `json:"created_at"`
	UpdatedAt      time.Time                                       `json:"updated_at"`
}

func (CorpsProfile) TableName() string {
	return "corps_profiles"
}

// AfterFind normalizes legacy rows written before profiles were keyed by
// class; everything downstream sees a single class-keyed shape.
func (p *CorpsProfile) AfterFind(tx *gorm.DB) error {
	if p.Class == "" {
		p.Class = ClassWorld
	}
	return nil
}

// TotalPoints sums the priced points of every caption selection
func (p *CorpsProfile) TotalPoints() int {
	total := 0
	for _, sel := range p.Lineup.Data() {
		total += sel.Points
	}
	return total
}

// AttendsShow reports whether the corps registered for showName in week
func (p *CorpsProfile) AttendsShow(week int, showName string) bool {
	shows := p.SelectedShows.Data()
	for _, name := range shows[week] {
		if name == showName {
			return true
		}
	}
	return false
}

// LineupKeyFor derives the scarcity key for a lineup: the class plus a
// canonical sorted concatenation of its 8 selections. Two byte-identical
// lineups in the same class always collide, whatever the caption order.
func LineupKeyFor(class string, lineup map[string]CaptionSelection) string {
	parts := make([]string, 0, len(lineup))
	for _, sel := range lineup {
		parts = append(parts, fmt.Sprintf("%s#%d", sel.CorpsName, sel.SourceYear))
	}
	sort.Strings(parts)
	return class + "|" + strings.Join(parts, "|")
}
