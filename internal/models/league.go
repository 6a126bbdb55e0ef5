package models

import (
	"time"

	"gorm.io/datatypes"
)

// Matchup outcomes. A non-empty outcome is final and never recomputed.
const (
	OutcomeHome = "home"
	OutcomeAway = "away"
	OutcomeTie  = "tie"
)

// League is a group of users who face off in weekly head-to-head matchups
type League struct {
	ID        uint                       `gorm:"primaryKey" json:"id"`
	Name      string                     `gorm:"size:100;not null" json:"name"`
	Members   datatypes.JSONType[[]uint] `json:"members"`
	CreatedAt time.Time                  `json:"created_at"`
	UpdatedAt time.Time                  `json:"updated_at"`
}

func (League) TableName() string {
	return "leagues"
}

// HasMember reports whether userID belongs to the league
func (l *League) HasMember(userID uint) bool {
	for _, id := range l.Members.Data() {
		if id == userID {
			return true
		}
	}
	return false
}

// LeagueMatchup is one week's head-to-head bracket entry for a class.
// AwayUserID is nil for a bye. Outcome is set exactly once.
type LeagueMatchup struct {
	ID           string                              `gorm:"primaryKey;size:36" json:"id"`
	LeagueID     uint                                `gorm:"not null;index:idx_matchup_league_week" json:"league_id"`
	SeasonID     uint                                `gorm:"not null;index:idx_matchup_league_week" json:"season_id"`
	Week         int                                 `gorm:"not null;index:idx_matchup_league_week" json:"week"`
	Class        string                              `gorm:"size:20;not null" json:"class"`
	HomeUserID   uint                                `gorm:"not null" json:"home_user_id"`
	AwayUserID   *uint                               `json:"away_user_id"`
	Scores       datatypes.JSONType[map[uint]float64] `json:"scores"`
	Outcome      string                              `gorm:"size:10;default:''" json:"outcome"`
	WinnerUserID *uint                               `json:"winner_user_id"`
	CreatedAt    time.Time                           `json:"created_at"`
	UpdatedAt    time.Time                           `json:"updated_at"`
}

func (LeagueMatchup) TableName() string {
	return "league_matchups"
}

// IsBye reports whether the matchup has no opponent
func (m *LeagueMatchup) IsBye() bool {
	return m.AwayUserID == nil
}

// Resolved reports whether a final outcome has been recorded
func (m *LeagueMatchup) Resolved() bool {
	return m.Outcome != ""
}

// UserLeagueStats accumulates matchup outcomes per user, season and class
type UserLeagueStats struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	UserID   uint   `gorm:"not null;uniqueIndex:idx_stats_user_season_class" json:"user_id"`
	SeasonID uint   `gorm:"not null;uniqueIndex:idx_stats_user_season_class" json:"season_id"`
	Class    string `gorm:"size:20;not null;uniqueIndex:idx_stats_user_season_class" json:"class"`
	Wins     int    `gorm:"default:0" json:"wins"`
	Losses   int    `gorm:"default:0" json:"losses"`
	Ties     int    `gorm:"default:0" json:"ties"`
}

func (UserLeagueStats) TableName() string {
	return "user_league_stats"
}
