package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"venue-booking-server/models"
)

// Provider event types the reconciler understands. Anything else is
// acknowledged and skipped.
const (
	EventAccountUpdated         = "account.updated"
	EventCheckoutCompleted      = "checkout.session.completed"
	EventCheckoutAsyncSucceeded = "checkout.session.async_payment_succeeded"
	EventCheckoutAsyncFailed    = "checkout.session.async_payment_failed"
)

// Ledger is the idempotency claim for webhook events. Claim must be atomic
// (first caller wins); Release must make a later retry possible again.
type Ledger interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

// ProviderEvent is a signature-verified webhook event, reduced to ids. The
// edge verifies the signature; the reconciler re-fetches the canonical
// object and never trusts payload amounts.
type ProviderEvent struct {
	ID       string
	Type     string
	ObjectID string
	Account  string
	Payload  json.RawMessage
}

type Reconciler struct {
	store        Store
	provider     PaymentProvider
	reservations *ReservationService
	ledger       Ledger
	clock        Clock
}

func NewReconciler(store Store, provider PaymentProvider, reservations *ReservationService, ledger Ledger, clock Clock) *Reconciler {
	if clock == nil {
		clock = RealClock{}
	}
	return &Reconciler{store: store, provider: provider, reservations: reservations, ledger: ledger, clock: clock}
}

// HandleEvent processes one at-least-once delivered event. A nil return
// acknowledges the delivery; a non-nil return releases the claim first so
// the provider's retry is not swallowed.
func (r *Reconciler) HandleEvent(ctx context.Context, ev ProviderEvent) error {
	claimed, err := r.ledger.Claim(ctx, ev.ID)
	if err != nil {
		return err
	}
	if !claimed {
		log.Printf("[reconcile] duplicate delivery of %s (%s), acknowledging", ev.ID, ev.Type)
		return nil
	}

	if err := r.process(ctx, ev); err != nil {
		if rerr := r.ledger.Release(ctx, ev.ID); rerr != nil {
			log.Printf("[reconcile] release claim %s: %v", ev.ID, rerr)
		}
		return err
	}

	record := &models.WebhookEvent{
		ID:          ev.ID,
		Type:        ev.Type,
		Payload:     []byte(ev.Payload),
		ProcessedAt: r.clock.Now(),
	}
	if err := r.store.RecordWebhookEvent(ctx, record); err != nil {
		// Audit only; the claim already guarantees at-most-once.
		log.Printf("[reconcile] record event %s: %v", ev.ID, err)
	}
	return nil
}

func (r *Reconciler) process(ctx context.Context, ev ProviderEvent) error {
	switch ev.Type {
	case EventAccountUpdated:
		return r.accountUpdated(ctx, ev)
	case EventCheckoutCompleted, EventCheckoutAsyncSucceeded:
		return r.checkoutSucceeded(ctx, ev)
	case EventCheckoutAsyncFailed:
		log.Printf("[reconcile] async payment failed for session %s, no state change", ev.ObjectID)
		return nil
	default:
		log.Printf("[reconcile] skipping event type %s", ev.Type)
		return nil
	}
}

// accountUpdated refreshes the org's connected-account capability snapshot.
// Last-write-wins; redeliveries converge on the same state.
func (r *Reconciler) accountUpdated(ctx context.Context, ev ProviderEvent) error {
	accountID := ev.ObjectID
	if accountID == "" {
		accountID = ev.Account
	}

	status, err := r.provider.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}

	org, err := r.store.GetOrgByAccountID(ctx, status.ID)
	if err != nil {
		log.Printf("[reconcile] account %s has no org, acknowledging", status.ID)
		return nil
	}

	org.ChargesEnabled = status.ChargesEnabled
	org.PayoutsEnabled = status.PayoutsEnabled
	if due, err := json.Marshal(status.RequirementsDue); err == nil {
		org.RequirementsDue = due
	}
	return r.store.SaveOrg(ctx, org)
}

func (r *Reconciler) checkoutSucceeded(ctx context.Context, ev ProviderEvent) error {
	sess, err := r.provider.GetCheckoutSession(ctx, ev.ObjectID)
	if err != nil {
		return err
	}

	if sess.PaymentStatus != "paid" {
		log.Printf("[reconcile] session %s is %s, waiting for async result", sess.ID, sess.PaymentStatus)
		return nil
	}

	holdID := sess.Metadata["holdId"]
	if holdID == "" {
		log.Printf("[reconcile] session %s carries no holdId metadata, acknowledging", sess.ID)
		return nil
	}
	paymentMode := sess.Metadata["paymentMode"]
	depositPercent, _ := strconv.Atoi(sess.Metadata["depositPercent"])

	hold, err := r.store.GetHold(ctx, holdID)
	if errors.Is(err, ErrHoldNotFound) {
		// TTL/payment-latency race: the hold was reclaimed before the
		// payment settled, but the customer paid. Recover the booking from
		// the metadata snapshot taken at hold creation.
		log.Printf("[reconcile] PAID SESSION %s FOR MISSING HOLD %s, building booking from metadata", sess.ID, holdID)
		return r.bookingFromMetadata(ctx, holdID, sess)
	}
	if err != nil {
		// A storage failure is not the missing-hold race. Surface it so the
		// claim is released and the provider retries.
		return err
	}

	expected := ExpectedChargeCents(hold.TotalCents, paymentMode, depositPercent)
	if sess.AmountTotal != expected || !strings.EqualFold(sess.Currency, hold.Currency) {
		// Integrity violation: acknowledge the delivery but do not confirm
		// a reservation for less than it was priced. Manual review.
		log.Printf("[reconcile] AMOUNT MISMATCH hold=%s session=%s got %d %s want %d %s",
			hold.ID, sess.ID, sess.AmountTotal, sess.Currency, expected, hold.Currency)
		return nil
	}

	payment := &PaymentDetails{
		Status:          models.PaymentStatusPaidFull,
		PaidCents:       sess.AmountTotal,
		RemainingCents:  hold.TotalCents - sess.AmountTotal,
		SessionID:       sess.ID,
		PaymentIntentID: sess.PaymentIntentID,
	}
	if paymentMode == models.PaymentModeDeposit {
		payment.Status = models.PaymentStatusDepositPaid
	}

	_, idempotent, err := r.reservations.ConfirmHold(ctx, hold.ID, nil, payment)
	if err != nil {
		if ConflictKindOf(err) == ConflictHoldNotActive {
			// The hold row exists but left "active" (expired or canceled)
			// while the payment settled. Same trade-off as the missing-hold
			// race: capture the paid booking from metadata.
			log.Printf("[reconcile] PAID SESSION %s FOR %s HOLD %s, building booking from metadata", sess.ID, hold.Status, hold.ID)
			return r.bookingFromMetadata(ctx, holdID, sess)
		}
		return err
	}
	if idempotent {
		log.Printf("[reconcile] hold %s already confirmed, acknowledged", hold.ID)
	}
	return nil
}

// bookingFromMetadata reconstructs a booking from the session's metadata
// mirror. Idempotent via the deterministic booking id.
func (r *Reconciler) bookingFromMetadata(ctx context.Context, holdID string, sess *CheckoutSession) error {
	meta := sess.Metadata

	orgID, err := parseUintMeta(meta["orgId"])
	if err != nil {
		return err
	}
	gameID, err := parseUintMeta(meta["gameId"])
	if err != nil {
		return err
	}
	roomID, err := parseUintMeta(meta["roomId"])
	if err != nil {
		return err
	}
	startAt, err := time.Parse(time.RFC3339, meta["startAt"])
	if err != nil {
		return err
	}
	endAt, err := time.Parse(time.RFC3339, meta["endAt"])
	if err != nil {
		return err
	}
	players, _ := strconv.Atoi(meta["players"])
	totalCents, _ := strconv.ParseInt(meta["totalCents"], 10, 64)
	subtotalCents, _ := strconv.ParseInt(meta["subtotalCents"], 10, 64)
	feeCents, _ := strconv.ParseInt(meta["feeCents"], 10, 64)
	discountCents, _ := strconv.ParseInt(meta["discountCents"], 10, 64)
	depositPercent, _ := strconv.Atoi(meta["depositPercent"])

	// The metadata carries the same price snapshot the hold did, so the
	// recovery path holds the same line as the normal one: never book a
	// reservation for less than it was priced.
	expected := ExpectedChargeCents(totalCents, meta["paymentMode"], depositPercent)
	if sess.AmountTotal != expected || !strings.EqualFold(sess.Currency, meta["currency"]) {
		log.Printf("[reconcile] AMOUNT MISMATCH on fallback hold=%s session=%s got %d %s want %d %s",
			holdID, sess.ID, sess.AmountTotal, sess.Currency, expected, meta["currency"])
		return nil
	}

	status := models.PaymentStatusPaidFull
	if meta["paymentMode"] == models.PaymentModeDeposit {
		status = models.PaymentStatusDepositPaid
	}

	booking := &models.Booking{
		ID:                      models.BookingIDForHold(holdID),
		HoldID:                  holdID,
		OrgID:                   orgID,
		GameID:                  gameID,
		RoomID:                  roomID,
		BookingType:             meta["bookingType"],
		StartAt:                 startAt,
		EndAt:                   endAt,
		Players:                 players,
		SubtotalCents:           subtotalCents,
		DiscountCents:           discountCents,
		FeeCents:                feeCents,
		TotalCents:              totalCents,
		Currency:                strings.ToLower(sess.Currency),
		PaymentStatus:           status,
		PaidCents:               sess.AmountTotal,
		RemainingCents:          totalCents - sess.AmountTotal,
		ProviderSessionID:       sess.ID,
		ProviderPaymentIntentID: sess.PaymentIntentID,
		CustomerName:            meta["customerName"],
		CustomerEmail:           meta["customerEmail"],
		CustomerPhone:           meta["customerPhone"],
	}

	created, err := r.store.CreateBooking(ctx, booking)
	if err != nil {
		return err
	}
	if !created {
		log.Printf("[reconcile] fallback booking %s already existed", booking.ID)
	}
	return nil
}

func parseUintMeta(s string) (uint, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(v), nil
}

// CheckoutMetadata builds the metadata mirror stamped on every checkout
// session at creation time. These fields make the fallback recovery path
// possible.
func CheckoutMetadata(org *models.Org, hold *models.Hold) map[string]string {
	return map[string]string{
		"orgId":          strconv.FormatUint(uint64(org.ID), 10),
		"holdId":         hold.ID,
		"paymentMode":    org.PaymentMode,
		"depositPercent": strconv.Itoa(org.DepositPercent),
		"gameId":         strconv.FormatUint(uint64(hold.GameID), 10),
		"roomId":         strconv.FormatUint(uint64(hold.RoomID), 10),
		"bookingType":    hold.BookingType,
		"startAt":        hold.StartAt.UTC().Format(time.RFC3339),
		"endAt":          hold.EndAt.UTC().Format(time.RFC3339),
		"players":        strconv.Itoa(hold.Players),
		"subtotalCents":  strconv.FormatInt(hold.SubtotalCents, 10),
		"discountCents":  strconv.FormatInt(hold.DiscountCents, 10),
		"feeCents":       strconv.FormatInt(hold.FeeCents, 10),
		"totalCents":     strconv.FormatInt(hold.TotalCents, 10),
		"currency":       hold.Currency,
		"customerName":   hold.CustomerName,
		"customerEmail":  hold.CustomerEmail,
		"customerPhone":  hold.CustomerPhone,
	}
}
