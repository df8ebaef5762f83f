package models

import "time"

// Hold lifecycle. A hold leaves "active" exactly once; expired, confirmed
// and canceled are terminal.
const (
	HoldStatusActive    = "active"
	HoldStatusExpired   = "expired"
	HoldStatusConfirmed = "confirmed"
	HoldStatusCanceled  = "canceled"
)

// Hold is a time-boxed, non-final reservation of capacity. It carries the
// price snapshot the customer saw, so payment can be verified against it
// later even if the price table changes.
type Hold struct {
	ID string `json:"id" gorm:"primaryKey;size:45"` // hold_<uuid>

	OrgID  uint `json:"orgID" gorm:"not null;index"`
	GameID uint `json:"gameID" gorm:"not null;index"`
	RoomID uint `json:"roomID" gorm:"not null;index"`

	BookingType string    `json:"bookingType" gorm:"size:10;not null"` // private | public
	StartAt     time.Time `json:"startAt" gorm:"not null;index"`
	EndAt       time.Time `json:"endAt" gorm:"not null"`
	Players     int       `json:"players" gorm:"not null"`

	Status    string    `json:"status" gorm:"size:12;not null;index"`
	ExpiresAt time.Time `json:"expiresAt" gorm:"not null;index"`

	// Price snapshot, integer minor units.
	SubtotalCents int64  `json:"subtotalCents"`
	DiscountCents int64  `json:"discountCents"`
	FeeCents      int64  `json:"feeCents"`
	TotalCents    int64  `json:"totalCents"`
	Currency      string `json:"currency" gorm:"size:3"`

	PromoCode      string     `json:"promoCode" gorm:"size:40"`
	PromoAppliedAt *time.Time `json:"promoAppliedAt"`

	CustomerName  string `json:"customerName"`
	CustomerEmail string `json:"customerEmail"`
	CustomerPhone string `json:"customerPhone"`

	// Set once promoted to a booking.
	BookingID   string     `json:"bookingID" gorm:"size:53"`
	ConfirmedAt *time.Time `json:"confirmedAt"`

	CheckoutSessionID string `json:"checkoutSessionID" gorm:"size:80;index"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ExpiredBy reports whether the hold's TTL has lapsed. Expiry is a pure
// function of (status, expiresAt, now) evaluated at every read; nothing
// depends on a sweeper having run.
func (h *Hold) ExpiredBy(now time.Time) bool {
	return h.Status == HoldStatusActive && !now.Before(h.ExpiresAt)
}
