package services

import (
	"context"
	"time"

	"venue-booking-server/models"
)

// Clock lets tests drive TTL expiry deterministically.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now().UTC() }

// Store is the storage boundary for the reservation engine. The contract
// that matters is conditional-write semantics: CreateHold must atomically
// re-verify capacity so that of two concurrent writers for mutually
// exclusive capacity exactly one succeeds, and CreateBooking must be an
// insert-if-absent keyed by the deterministic booking id. All correctness
// under concurrency comes from these two calls, not from locks held by the
// engine.
type Store interface {
	GetOrg(ctx context.Context, id uint) (*models.Org, error)
	GetOrgByAccountID(ctx context.Context, accountID string) (*models.Org, error)
	SaveOrg(ctx context.Context, org *models.Org) error

	GetGame(ctx context.Context, id uint) (*models.Game, error)
	GetRoom(ctx context.Context, id uint) (*models.Room, error)
	ListRooms(ctx context.Context, gameID uint) ([]models.Room, error)
	ListSchedule(ctx context.Context, gameID uint) ([]models.Schedule, error)
	GetPromo(ctx context.Context, orgID uint, code string) (*models.Promo, error)

	GetHold(ctx context.Context, id string) (*models.Hold, error)
	SaveHold(ctx context.Context, hold *models.Hold) error
	// CreateHold performs the conditional insert. It returns a
	// *ConflictError with kind slot_just_taken when a concurrent writer got
	// there first.
	CreateHold(ctx context.Context, hold *models.Hold) error
	ListActiveHolds(ctx context.Context, roomIDs []uint, from, to, now time.Time) ([]models.Hold, error)
	// ExpireStaleHolds transitions every active hold whose TTL lapsed.
	// Idempotent batch form of the lazy read-side expiry; safe to run on
	// any schedule or not at all.
	ExpireStaleHolds(ctx context.Context, now time.Time) (int64, error)

	// CreateBooking inserts if absent. created=false means a row with this
	// id already existed, which callers treat as success.
	CreateBooking(ctx context.Context, booking *models.Booking) (created bool, err error)
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	ListConfirmedBookings(ctx context.Context, roomIDs []uint, from, to time.Time) ([]models.Booking, error)

	RecordWebhookEvent(ctx context.Context, event *models.WebhookEvent) error
}
