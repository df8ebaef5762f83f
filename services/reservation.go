package services

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"venue-booking-server/models"
)

// HoldTTL bounds how long an unconfirmed hold keeps capacity off the market.
const HoldTTL = 10 * time.Minute

// EventPublisher receives post-commit domain events. The confirm path never
// blocks on it or fails because of it.
type EventPublisher interface {
	Publish(routingKey string, payload any) error
}

type ReservationService struct {
	store  Store
	clock  Clock
	events EventPublisher // may be nil
}

func NewReservationService(store Store, clock Clock, events EventPublisher) *ReservationService {
	if clock == nil {
		clock = RealClock{}
	}
	return &ReservationService{store: store, clock: clock, events: events}
}

type Customer struct {
	Name  string
	Email string
	Phone string
}

type CreateHoldInput struct {
	OrgID       uint
	GameID      uint
	RoomID      uint
	BookingType string
	StartAt     time.Time
	EndAt       time.Time
	Players     int
	Customer    Customer
}

// CreateHold validates the request, prices it, and performs the conditional
// insert. The pre-read conflict scan here is an optimization for friendly
// error messages; the store's conditional write is the correctness
// mechanism.
func (s *ReservationService) CreateHold(ctx context.Context, in CreateHoldInput) (*models.Hold, error) {
	if !in.StartAt.Before(in.EndAt) {
		return nil, ErrInvalidWindow
	}

	org, err := s.store.GetOrg(ctx, in.OrgID)
	if err != nil {
		return nil, err
	}
	game, err := s.store.GetGame(ctx, in.GameID)
	if err != nil {
		return nil, err
	}
	room, err := s.store.GetRoom(ctx, in.RoomID)
	if err != nil {
		return nil, err
	}
	if game.OrgID != org.ID || room.GameID != game.ID {
		return nil, ErrRoomNotFound
	}
	if !game.TypeAllowed(in.BookingType) {
		return nil, ErrTypeNotAllowed
	}

	maxPlayers := game.MaxPlayers
	if room.MaxPlayers < maxPlayers {
		maxPlayers = room.MaxPlayers
	}
	if in.Players < game.MinPlayers || in.Players > maxPlayers {
		return nil, ErrPlayersOutOfRange
	}

	now := s.clock.Now()

	// Pre-read scan: reject obviously taken windows without side effects.
	holds, err := s.store.ListActiveHolds(ctx, []uint{room.ID}, in.StartAt, in.EndAt, now)
	if err != nil {
		return nil, err
	}
	bookings, err := s.store.ListConfirmedBookings(ctx, []uint{room.ID}, in.StartAt, in.EndAt)
	if err != nil {
		return nil, err
	}
	if cerr := CheckCapacity(room, in.BookingType, in.Players, in.StartAt, in.EndAt, holds, bookings, now); cerr != nil {
		return nil, cerr
	}

	quote, err := PriceBooking(game, org.FeeBps, in.Players, nil)
	if err != nil {
		return nil, err
	}

	hold := &models.Hold{
		ID:            "hold_" + uuid.NewString(),
		OrgID:         org.ID,
		GameID:        game.ID,
		RoomID:        room.ID,
		BookingType:   in.BookingType,
		StartAt:       in.StartAt,
		EndAt:         in.EndAt,
		Players:       in.Players,
		Status:        models.HoldStatusActive,
		ExpiresAt:     now.Add(HoldTTL),
		SubtotalCents: quote.SubtotalCents,
		DiscountCents: quote.DiscountCents,
		FeeCents:      quote.FeeCents,
		TotalCents:    quote.TotalCents,
		Currency:      quote.Currency,
		CustomerName:  in.Customer.Name,
		CustomerEmail: in.Customer.Email,
		CustomerPhone: in.Customer.Phone,
	}

	if err := s.store.CreateHold(ctx, hold); err != nil {
		return nil, err
	}
	return hold, nil
}

// GetHold fetches a hold, applying lazy TTL expiry on read.
func (s *ReservationService) GetHold(ctx context.Context, id string) (*models.Hold, error) {
	hold, err := s.store.GetHold(ctx, id)
	if err != nil {
		return nil, err
	}
	if hold.ExpiredBy(s.clock.Now()) {
		hold.Status = models.HoldStatusExpired
		if err := s.store.SaveHold(ctx, hold); err != nil {
			return nil, err
		}
	}
	return hold, nil
}

// ExtendHoldTTL pushes the expiry out to `until`. Idempotent no-op when the
// current expiry is already later.
func (s *ReservationService) ExtendHoldTTL(ctx context.Context, id string, until time.Time) (*models.Hold, error) {
	hold, err := s.GetHold(ctx, id)
	if err != nil {
		return nil, err
	}
	if hold.Status != models.HoldStatusActive {
		return nil, &ConflictError{Kind: ConflictHoldNotActive, Message: "hold is " + hold.Status}
	}
	if !hold.ExpiresAt.Before(until) {
		return hold, nil
	}
	hold.ExpiresAt = until
	if err := s.store.SaveHold(ctx, hold); err != nil {
		return nil, err
	}
	return hold, nil
}

// AttachCheckoutSession records the provider session on the hold and keeps
// it alive for one more TTL window while the customer pays. This is the only
// caller of ExtendHoldTTL, which caps extension at one window per session.
func (s *ReservationService) AttachCheckoutSession(ctx context.Context, id, sessionID string) (*models.Hold, error) {
	hold, err := s.ExtendHoldTTL(ctx, id, s.clock.Now().Add(HoldTTL))
	if err != nil {
		return nil, err
	}
	hold.CheckoutSessionID = sessionID
	if err := s.store.SaveHold(ctx, hold); err != nil {
		return nil, err
	}
	return hold, nil
}

// ApplyPromo re-derives the whole price snapshot from the tier table, never
// from the already-discounted snapshot, so applying the same code twice
// yields the same numbers as applying it once.
func (s *ReservationService) ApplyPromo(ctx context.Context, id string, promo *PromoOffer) (*models.Hold, error) {
	hold, err := s.GetHold(ctx, id)
	if err != nil {
		return nil, err
	}
	if hold.Status != models.HoldStatusActive {
		return nil, &ConflictError{Kind: ConflictHoldNotActive, Message: "hold is " + hold.Status}
	}

	org, err := s.store.GetOrg(ctx, hold.OrgID)
	if err != nil {
		return nil, err
	}
	game, err := s.store.GetGame(ctx, hold.GameID)
	if err != nil {
		return nil, err
	}

	quote, err := PriceBooking(game, org.FeeBps, hold.Players, promo)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	hold.SubtotalCents = quote.SubtotalCents
	hold.DiscountCents = quote.DiscountCents
	hold.FeeCents = quote.FeeCents
	hold.TotalCents = quote.TotalCents
	hold.PromoCode = promo.Code
	hold.PromoAppliedAt = &now
	if err := s.store.SaveHold(ctx, hold); err != nil {
		return nil, err
	}
	return hold, nil
}

// PaymentDetails carries what reconciliation learned from the provider.
type PaymentDetails struct {
	Status          string // deposit_paid | paid_full
	PaidCents       int64
	RemainingCents  int64
	SessionID       string
	PaymentIntentID string
}

// ConfirmHold promotes an active hold to a booking. Safe to call
// concurrently and repeatedly: the booking id is deterministic, a
// duplicate insert is treated as the other caller having won, and a hold
// that is already confirmed returns its booking flagged idempotent.
func (s *ReservationService) ConfirmHold(ctx context.Context, id string, override *Customer, payment *PaymentDetails) (*models.Booking, bool, error) {
	hold, err := s.store.GetHold(ctx, id)
	if err != nil {
		return nil, false, err
	}

	if hold.Status == models.HoldStatusConfirmed && hold.BookingID != "" {
		booking, err := s.store.GetBooking(ctx, hold.BookingID)
		if err != nil {
			return nil, false, err
		}
		return booking, true, nil
	}

	now := s.clock.Now()
	if hold.ExpiredBy(now) {
		hold.Status = models.HoldStatusExpired
		if err := s.store.SaveHold(ctx, hold); err != nil {
			return nil, false, err
		}
		return nil, false, &ConflictError{Kind: ConflictHoldNotActive, Message: "hold expired"}
	}
	if hold.Status != models.HoldStatusActive {
		return nil, false, &ConflictError{Kind: ConflictHoldNotActive, Message: "hold is " + hold.Status}
	}

	if override != nil {
		if override.Name != "" {
			hold.CustomerName = override.Name
		}
		if override.Email != "" {
			hold.CustomerEmail = override.Email
		}
		if override.Phone != "" {
			hold.CustomerPhone = override.Phone
		}
	}

	booking := s.bookingFromHold(hold, payment)

	created, err := s.store.CreateBooking(ctx, booking)
	if err != nil {
		return nil, false, err
	}
	if !created {
		// Another caller inserted the same deterministic id first. That is
		// success, not an error: fetch and return theirs.
		existing, err := s.store.GetBooking(ctx, booking.ID)
		if err != nil {
			return nil, false, err
		}
		booking = existing
	}

	hold.Status = models.HoldStatusConfirmed
	hold.BookingID = booking.ID
	hold.ConfirmedAt = &now
	if err := s.store.SaveHold(ctx, hold); err != nil {
		return nil, false, err
	}

	if created {
		s.publishConfirmed(booking)
	}

	return booking, !created, nil
}

// CancelHold releases an active hold's capacity ahead of its TTL, for
// customers who change their mind before paying. Canceling twice is a
// no-op; an expired or confirmed hold cannot be canceled.
func (s *ReservationService) CancelHold(ctx context.Context, id string) (*models.Hold, error) {
	hold, err := s.GetHold(ctx, id)
	if err != nil {
		return nil, err
	}
	if hold.Status == models.HoldStatusCanceled {
		return hold, nil
	}
	if hold.Status != models.HoldStatusActive {
		return nil, &ConflictError{Kind: ConflictHoldNotActive, Message: "hold is " + hold.Status}
	}
	hold.Status = models.HoldStatusCanceled
	if err := s.store.SaveHold(ctx, hold); err != nil {
		return nil, err
	}
	return hold, nil
}

// ForceExpireHold frees a stuck slot regardless of TTL. Operator action.
func (s *ReservationService) ForceExpireHold(ctx context.Context, id string) (*models.Hold, error) {
	hold, err := s.store.GetHold(ctx, id)
	if err != nil {
		return nil, err
	}
	if hold.Status != models.HoldStatusActive {
		return nil, &ConflictError{Kind: ConflictHoldNotActive, Message: "hold is " + hold.Status}
	}
	hold.Status = models.HoldStatusExpired
	if err := s.store.SaveHold(ctx, hold); err != nil {
		return nil, err
	}
	return hold, nil
}

// ExpireStaleHolds reclaims capacity from lapsed holds. Safe to run
// concurrently with live traffic: it only touches holds already past
// expiry, which every read path treats as expired anyway.
func (s *ReservationService) ExpireStaleHolds(ctx context.Context) (int64, error) {
	return s.store.ExpireStaleHolds(ctx, s.clock.Now())
}

func (s *ReservationService) bookingFromHold(hold *models.Hold, payment *PaymentDetails) *models.Booking {
	booking := &models.Booking{
		ID:            models.BookingIDForHold(hold.ID),
		HoldID:        hold.ID,
		OrgID:         hold.OrgID,
		GameID:        hold.GameID,
		RoomID:        hold.RoomID,
		BookingType:   hold.BookingType,
		StartAt:       hold.StartAt,
		EndAt:         hold.EndAt,
		Players:       hold.Players,
		SubtotalCents: hold.SubtotalCents,
		DiscountCents: hold.DiscountCents,
		FeeCents:      hold.FeeCents,
		TotalCents:    hold.TotalCents,
		Currency:      hold.Currency,
		PromoCode:     hold.PromoCode,
		PaymentStatus: models.PaymentStatusUnpaid,
		CustomerName:  hold.CustomerName,
		CustomerEmail: hold.CustomerEmail,
		CustomerPhone: hold.CustomerPhone,
	}
	if payment != nil {
		booking.PaymentStatus = payment.Status
		booking.PaidCents = payment.PaidCents
		booking.RemainingCents = payment.RemainingCents
		booking.ProviderSessionID = payment.SessionID
		booking.ProviderPaymentIntentID = payment.PaymentIntentID
	}
	return booking
}

func (s *ReservationService) publishConfirmed(booking *models.Booking) {
	if s.events == nil {
		return
	}
	b := *booking
	go func() {
		if err := s.events.Publish("booking.confirmed", &b); err != nil {
			log.Printf("[reservations] publish booking.confirmed %s: %v", b.ID, err)
		}
	}()
}
