package models

import "time"

// Schedule is one weekday's opening window for a game. One row per
// (game, weekday); a missing row means closed that day. Times are local
// wall-clock "HH:MM" in the org's timezone.
type Schedule struct {
	ID     uint `json:"id" gorm:"primaryKey"`
	GameID uint `json:"gameID" gorm:"not null;index:idx_game_weekday,unique"`

	Weekday   int    `json:"weekday" gorm:"index:idx_game_weekday,unique"` // 0 = Sunday, matching time.Weekday
	OpenTime  string `json:"openTime" gorm:"size:5;not null"`
	CloseTime string `json:"closeTime" gorm:"size:5;not null"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
