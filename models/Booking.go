package models

import "time"

const (
	PaymentStatusUnpaid      = "unpaid"
	PaymentStatusDepositPaid = "deposit_paid"
	PaymentStatusPaidFull    = "paid_full"
)

// BookingIDForHold derives the deterministic booking id for a hold.
// Re-deriving and re-inserting the same id is how concurrent confirms and
// webhook redeliveries collapse into a single booking.
func BookingIDForHold(holdID string) string {
	return "booking_" + holdID
}

// Booking is the durable, confirmed reservation.
type Booking struct {
	ID     string `json:"id" gorm:"primaryKey;size:53"` // booking_<holdID>
	HoldID string `json:"holdID" gorm:"size:45;uniqueIndex"`

	OrgID  uint `json:"orgID" gorm:"not null;index"`
	GameID uint `json:"gameID" gorm:"not null;index"`
	RoomID uint `json:"roomID" gorm:"not null;index"`

	BookingType string    `json:"bookingType" gorm:"size:10;not null"`
	StartAt     time.Time `json:"startAt" gorm:"not null;index"`
	EndAt       time.Time `json:"endAt" gorm:"not null"`
	Players     int       `json:"players" gorm:"not null"`

	SubtotalCents int64  `json:"subtotalCents"`
	DiscountCents int64  `json:"discountCents"`
	FeeCents      int64  `json:"feeCents"`
	TotalCents    int64  `json:"totalCents"`
	Currency      string `json:"currency" gorm:"size:3"`
	PromoCode     string `json:"promoCode" gorm:"size:40"`

	PaymentStatus  string `json:"paymentStatus" gorm:"size:14;default:'unpaid'"`
	PaidCents      int64  `json:"paidCents"`
	RemainingCents int64  `json:"remainingCents"`

	ProviderSessionID       string `json:"providerSessionID" gorm:"size:80;index"`
	ProviderPaymentIntentID string `json:"providerPaymentIntentID" gorm:"size:80"`

	CustomerName  string `json:"customerName"`
	CustomerEmail string `json:"customerEmail"`
	CustomerPhone string `json:"customerPhone"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
