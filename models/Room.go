package models

import "time"

// Room is a physical capacity unit under a Game. Availability is computed
// per room.
type Room struct {
	ID     uint `json:"id" gorm:"primaryKey"`
	GameID uint `json:"gameID" gorm:"not null;index"`
	Game   Game `json:"game,omitempty" gorm:"foreignKey:GameID"`

	Name       string `json:"name" gorm:"not null"`
	MaxPlayers int    `json:"maxPlayers" gorm:"not null"`
	Enabled    bool   `json:"enabled" gorm:"default:true"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
