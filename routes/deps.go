package routes

import (
	"venue-booking-server/services"
)

// Wired by main before the server starts listening.
var (
	Store        services.Store
	Reservations *services.ReservationService
	Reconciler   *services.Reconciler
	Payments     services.PaymentProvider
	Checkout     CheckoutConfig
)

type CheckoutConfig struct {
	SuccessURL    string
	CancelURL     string
	WebhookSecret string
}
