package models

import (
	"time"

	"gorm.io/datatypes"
)

// Payment modes for an org. Deposit mode charges a percentage up front and
// leaves the remainder due at the venue.
const (
	PaymentModeFull    = "full"
	PaymentModeDeposit = "deposit"
)

// Org is a tenant venue selling bookable time slots.
type Org struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"not null"`

	// IANA timezone, e.g. "America/Chicago". All schedule math happens in
	// this zone; stored instants are UTC.
	Timezone string `json:"timezone" gorm:"size:64;not null"`

	// Processing fee charged on top of the subtotal, in basis points.
	FeeBps   int    `json:"feeBps" gorm:"default:0"`
	FeeLabel string `json:"feeLabel" gorm:"size:64"`

	PaymentMode    string `json:"paymentMode" gorm:"size:12;default:'full'"` // full | deposit
	DepositPercent int    `json:"depositPercent" gorm:"default:0"`

	// Connected payment account and its capability snapshot, kept in sync
	// by account webhook events (last-write-wins).
	StripeAccountID string         `json:"stripeAccountID" gorm:"size:64;index"`
	ChargesEnabled  bool           `json:"chargesEnabled" gorm:"default:false"`
	PayoutsEnabled  bool           `json:"payoutsEnabled" gorm:"default:false"`
	RequirementsDue datatypes.JSON `json:"requirementsDue"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Games []Game `json:"games,omitempty" gorm:"foreignKey:OrgID"`
}

// Promo is an org-local promotion code, used as a fallback when the code is
// not found on the payment provider.
type Promo struct {
	ID    uint   `json:"id" gorm:"primaryKey"`
	OrgID uint   `json:"orgID" gorm:"not null;index"`
	Code  string `json:"code" gorm:"size:40;not null;index"`

	// Exactly one of the two should be set. Percent is stored in basis
	// points so 12.5%-off survives integer math.
	PercentOffBps  int64  `json:"percentOffBps" gorm:"default:0"`
	AmountOffCents int64  `json:"amountOffCents" gorm:"default:0"`
	Currency       string `json:"currency" gorm:"size:3"`

	Active bool `json:"active" gorm:"default:true"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
