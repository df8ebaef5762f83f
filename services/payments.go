package services

import (
	"context"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

// Provider-neutral views of the payment objects the engine cares about.
// Webhook payloads are never trusted for these fields; they are re-fetched
// by id through this interface.

type CheckoutSession struct {
	ID              string
	URL             string
	AmountTotal     int64
	Currency        string
	PaymentStatus   string // paid | unpaid | no_payment_required
	PaymentIntentID string
	Metadata        map[string]string
}

type AccountStatus struct {
	ID              string
	ChargesEnabled  bool
	PayoutsEnabled  bool
	RequirementsDue []string
}

type CheckoutInput struct {
	AmountCents        int64
	Currency           string
	Description        string
	DestinationAccount string
	CustomerEmail      string
	SuccessURL         string
	CancelURL          string
	// Metadata mirrors the hold's booking fields so a paid session can be
	// recovered into a booking even if the hold is gone.
	Metadata map[string]string
}

type PaymentProvider interface {
	CreateCheckoutSession(ctx context.Context, in CheckoutInput) (*CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error)
	GetAccount(ctx context.Context, id string) (*AccountStatus, error)
	// FindPromoCode resolves an active promotion code to its coupon terms.
	// Returns ErrPromoNotFound when no active code matches.
	FindPromoCode(ctx context.Context, code string) (*PromoOffer, error)
}

// StripeProvider implements PaymentProvider against Stripe. Every call runs
// under a bounded timeout so a slow provider can't wedge reconciliation.
type StripeProvider struct {
	api     *client.API
	timeout time.Duration
}

func NewStripeProvider(secretKey string) *StripeProvider {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeProvider{api: api, timeout: 15 * time.Second}
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, in CheckoutInput) (*CheckoutSession, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := &stripe.CheckoutSessionParams{
		Params:     stripe.Params{Context: ctx},
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(in.SuccessURL),
		CancelURL:  stripe.String(in.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(in.Currency),
				UnitAmount: stripe.Int64(in.AmountCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(in.Description),
				},
			},
		}},
	}
	if in.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(in.CustomerEmail)
	}
	if in.DestinationAccount != "" {
		params.PaymentIntentData = &stripe.CheckoutSessionPaymentIntentDataParams{
			TransferData: &stripe.CheckoutSessionPaymentIntentDataTransferDataParams{
				Destination: stripe.String(in.DestinationAccount),
			},
		}
	}
	for k, v := range in.Metadata {
		params.AddMetadata(k, v)
	}

	sess, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, err
	}
	return sessionView(sess), nil
}

func (p *StripeProvider) GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := &stripe.CheckoutSessionParams{Params: stripe.Params{Context: ctx}}
	sess, err := p.api.CheckoutSessions.Get(id, params)
	if err != nil {
		return nil, err
	}
	return sessionView(sess), nil
}

func (p *StripeProvider) GetAccount(ctx context.Context, id string) (*AccountStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := &stripe.AccountParams{Params: stripe.Params{Context: ctx}}
	acct, err := p.api.Accounts.GetByID(id, params)
	if err != nil {
		return nil, err
	}

	status := &AccountStatus{
		ID:             acct.ID,
		ChargesEnabled: acct.ChargesEnabled,
		PayoutsEnabled: acct.PayoutsEnabled,
	}
	if acct.Requirements != nil {
		status.RequirementsDue = acct.Requirements.CurrentlyDue
	}
	return status, nil
}

func (p *StripeProvider) FindPromoCode(ctx context.Context, code string) (*PromoOffer, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := &stripe.PromotionCodeListParams{
		Code:   stripe.String(code),
		Active: stripe.Bool(true),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(1)

	iter := p.api.PromotionCodes.List(params)
	for iter.Next() {
		pc := iter.PromotionCode()
		if pc.Coupon == nil {
			continue
		}
		offer := &PromoOffer{Code: pc.Code}
		if pc.Coupon.PercentOff > 0 {
			offer.PercentOffBps = int64(pc.Coupon.PercentOff * 100)
		}
		if pc.Coupon.AmountOff > 0 {
			offer.AmountOffCents = pc.Coupon.AmountOff
			offer.Currency = string(pc.Coupon.Currency)
		}
		return offer, nil
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return nil, ErrPromoNotFound
}

func sessionView(sess *stripe.CheckoutSession) *CheckoutSession {
	view := &CheckoutSession{
		ID:            sess.ID,
		URL:           sess.URL,
		AmountTotal:   sess.AmountTotal,
		Currency:      string(sess.Currency),
		PaymentStatus: string(sess.PaymentStatus),
		Metadata:      sess.Metadata,
	}
	if sess.PaymentIntent != nil {
		view.PaymentIntentID = sess.PaymentIntent.ID
	}
	return view
}
