package models

import (
	"time"

	"gorm.io/datatypes"
)

type SeasonStatus string

const (
	SeasonStatusOff  SeasonStatus = "off-season"
	SeasonStatusLive SeasonStatus = "live-season"
)

// SeasonDays is the length of the synthetic competitive calendar
const SeasonDays = 49

// SeasonWeeks is the number of scoring weeks in a season
const SeasonWeeks = 7

// Show is a single scheduled competition on the season calendar
type Show struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

// CorpsValue is one entry of the season's corps-value dataset: a historical
// corps/year a user may slot into a caption, priced in points
type CorpsValue struct {
	CorpsName  string `json:"corps_name"`
	SourceYear int    `json:"source_year"`
	Points     int    `json:"points"`
}

// Season is the singleton record governing the active competitive calendar.
// Created and rolled over by the lifecycle manager; the daily processor only
// advances CurrentDay.
type Season struct {
	ID          uint                                  `gorm:"primaryKey" json:"id"`
	Name        string                                `gorm:"size:100;not null" json:"name"`
	Status      SeasonStatus                          `gorm:"size:20;not null;index" json:"status"`
	StartDate   time.Time                             `json:"start_date"`
	EndDate     time.Time                             `json:"end_date"`
	CurrentDay  int                                   `gorm:"default:0" json:"current_day"`
	Events      datatypes.JSONType[map[int][]Show]    `json:"events"`
	CorpsValues datatypes.JSONType[[]CorpsValue]      `json:"corps_values"`
	PointCaps   datatypes.JSONType[map[string]int]    `json:"point_caps"`
	CreatedAt   time.Time                             `json:"created_at"`
	UpdatedAt   time.Time                             `json:"updated_at"`
}

func (Season) TableName() string {
	return "seasons"
}

// ShowsOnDay returns the scheduled shows for a season day, nil when the day
// is empty or out of range.
func (s *Season) ShowsOnDay(day int) []Show {
	events := s.Events.Data()
	if events == nil {
		return nil
	}
	return events[day]
}

// PointCap returns the lineup point cap for a corps class, falling back to
// the built-in class caps when the season record predates per-season caps.
func (s *Season) PointCap(class string) int {
	caps := s.PointCaps.Data()
	if cap, ok := caps[class]; ok {
		return cap
	}
	return ClassPointCaps[class]
}

// ValueFor looks up the priced points for a corps/year in the season dataset.
func (s *Season) ValueFor(corpsName string, sourceYear int) (int, bool) {
	for _, v := range s.CorpsValues.Data() {
		if v.CorpsName == corpsName && v.SourceYear == sourceYear {
			return v.Points, true
		}
	}
	return 0, false
}

// WeekOfDay maps a season day (1-49) to its scoring week (1-7)
func WeekOfDay(day int) int {
	if day < 1 {
		return 0
	}
	return (day + 6) / 7
}

// IsWeekBoundary reports whether a season day closes out a scoring week
func IsWeekBoundary(day int) bool {
	return day > 0 && day%7 == 0
}

// ValidSeasonDay reports whether day falls inside the competitive calendar
func ValidSeasonDay(day int) bool {
	return day >= 1 && day <= SeasonDays
}

// ArchivedStanding is one row of a season's final standings snapshot
type ArchivedStanding struct {
	UserID     uint    `json:"user_id"`
	Class      string  `json:"class"`
	CorpsName  string  `json:"corps_name"`
	TotalScore float64 `json:"total_score"`
}

// SeasonArchive is a frozen snapshot of standings taken by the archival job
type SeasonArchive struct {
	ID         uint                                   `gorm:"primaryKey" json:"id"`
	SeasonID   uint                                   `gorm:"uniqueIndex;not null" json:"season_id"`
	SeasonName string                                 `gorm:"size:100" json:"season_name"`
	Standings  datatypes.JSONType[[]ArchivedStanding] `json:"standings"`
	ArchivedAt time.Time                              `json:"archived_at"`
}

func (SeasonArchive) TableName() string {
	return "season_archives"
}
