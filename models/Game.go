package models

import "time"

// Booking types. Private takes the whole room; public shares its capacity
// among multiple parties.
const (
	BookingTypePrivate = "private"
	BookingTypePublic  = "public"
)

// PriceTier maps a player-count range to a per-player price. Tiers are
// ordered and must not overlap.
type PriceTier struct {
	MinPlayers     int   `json:"minPlayers"`
	MaxPlayers     int   `json:"maxPlayers"`
	UnitPriceCents int64 `json:"unitPriceCents"`
}

// Game is a bookable experience type within an org (an escape room theme,
// an axe-throwing lane, ...). Rooms underneath it carry the capacity.
type Game struct {
	ID    uint `json:"id" gorm:"primaryKey"`
	OrgID uint `json:"orgID" gorm:"not null;index"`
	Org   Org  `json:"org,omitempty" gorm:"foreignKey:OrgID"`

	Name string `json:"name" gorm:"not null"`

	DurationMins     int `json:"durationMins" gorm:"not null"`
	BufferMins       int `json:"bufferMins" gorm:"default:0"` // post-slot cooldown
	SlotIntervalMins int `json:"slotIntervalMins" gorm:"not null"`

	MinPlayers int `json:"minPlayers" gorm:"not null"`
	MaxPlayers int `json:"maxPlayers" gorm:"not null"`

	Currency   string      `json:"currency" gorm:"size:3;default:'usd'"`
	PriceTiers []PriceTier `json:"priceTiers" gorm:"type:jsonb;serializer:json"`

	AllowedTypes []string `json:"allowedTypes" gorm:"type:jsonb;serializer:json"` // private, public

	Enabled bool `json:"enabled" gorm:"default:true"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Rooms []Room `json:"rooms,omitempty" gorm:"foreignKey:GameID"`
}

func (g *Game) TypeAllowed(bookingType string) bool {
	for _, t := range g.AllowedTypes {
		if t == bookingType {
			return true
		}
	}
	return false
}

// OccupiedMins is the window a slot blocks on a room: play time plus reset.
func (g *Game) OccupiedMins() int {
	return g.DurationMins + g.BufferMins
}
