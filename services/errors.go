package services

import "errors"

// ConflictKind is the closed set of retry-safe conflict outcomes. The
// storage adapter produces these directly; nothing in the core re-derives
// them from driver error strings.
type ConflictKind string

const (
	// The window is already taken by an exclusive entry (seen on pre-read).
	ConflictSlotUnavailable ConflictKind = "slot_unavailable"
	// A shared-capacity window cannot fit the requested players.
	ConflictSlotCapacityExceeded ConflictKind = "slot_capacity_exceeded"
	// The conditional write lost a race: the slot was free on pre-read but
	// another writer committed first. Distinct from slot_unavailable so the
	// client can say "just taken" instead of "never available".
	ConflictSlotJustTaken ConflictKind = "slot_just_taken"
	// The hold is not in a confirmable state (expired, canceled, unknown).
	ConflictHoldNotActive ConflictKind = "hold_not_active"
	// A booking already exists under the deterministic id.
	ConflictDuplicateBooking ConflictKind = "duplicate_booking"
)

type ConflictError struct {
	Kind    ConflictKind
	Message string
}

func (e *ConflictError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// ConflictKindOf returns the conflict kind carried by err, or "".
func ConflictKindOf(err error) ConflictKind {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// Pricing error codes.
const (
	PricingNoTier           = "no_tier_for_player_count"
	PricingCurrencyMismatch = "currency_mismatch"
)

type PricingError struct {
	Code    string
	Message string
}

func (e *PricingError) Error() string {
	return e.Code + ": " + e.Message
}

var (
	ErrOrgNotFound       = errors.New("org not found")
	ErrGameNotFound      = errors.New("game not found")
	ErrRoomNotFound      = errors.New("room not found")
	ErrHoldNotFound      = errors.New("hold not found")
	ErrBookingNotFound   = errors.New("booking not found")
	ErrPromoNotFound     = errors.New("promo not found")
	ErrInvalidWindow     = errors.New("start must be before end")
	ErrPlayersOutOfRange = errors.New("player count outside allowed range")
	ErrTypeNotAllowed    = errors.New("booking type not allowed for this game")
)
