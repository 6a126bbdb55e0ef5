package models

import "time"

// User is the minimal identity record the engine needs; authentication and
// session management live in the surrounding application.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex;size:50;not null" json:"username"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// AllModels lists every persisted model for AutoMigrate
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Season{},
		&SeasonArchive{},
		&CorpsProfile{},
		&HistoricalScores{},
		&LiveScore{},
		&FinalRanking{},
		&Recap{},
		&League{},
		&LeagueMatchup{},
		&UserLeagueStats{},
	}
}
