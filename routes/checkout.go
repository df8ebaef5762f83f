package routes

import (
	"fmt"
	"net/http"

	"github.com/kataras/iris/v12"

	"venue-booking-server/models"
	"venue-booking-server/services"
	"venue-booking-server/utils"
)

// POST /api/holds/:id/checkout
//
// Creates a provider checkout session for the hold's price snapshot and
// extends the hold so it survives the time the customer spends on the
// payment page. The charged amount is derived server-side from the snapshot
// and the org's payment mode; the client sends nothing but the hold id.
func CreateCheckoutSession(ctx iris.Context) {
	reqCtx := ctx.Request().Context()

	hold, err := Reservations.GetHold(reqCtx, ctx.Params().Get("id"))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	if hold.Status != models.HoldStatusActive {
		utils.JSONError(ctx, http.StatusConflict, string(services.ConflictHoldNotActive), "hold is "+hold.Status)
		return
	}

	org, err := Store.GetOrg(reqCtx, hold.OrgID)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	if org.StripeAccountID != "" && !org.ChargesEnabled {
		utils.JSONError(ctx, http.StatusConflict, "charges_disabled", "the venue cannot accept payments yet")
		return
	}

	game, err := Store.GetGame(reqCtx, hold.GameID)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}

	amount := services.ExpectedChargeCents(hold.TotalCents, org.PaymentMode, org.DepositPercent)
	description := fmt.Sprintf("%s at %s, %d players", game.Name, org.Name, hold.Players)
	if org.PaymentMode == models.PaymentModeDeposit {
		description = fmt.Sprintf("%s (%d%% deposit)", description, org.DepositPercent)
	}

	sess, err := Payments.CreateCheckoutSession(reqCtx, services.CheckoutInput{
		AmountCents:        amount,
		Currency:           hold.Currency,
		Description:        description,
		DestinationAccount: org.StripeAccountID,
		CustomerEmail:      hold.CustomerEmail,
		SuccessURL:         Checkout.SuccessURL,
		CancelURL:          Checkout.CancelURL,
		Metadata:           services.CheckoutMetadata(org, hold),
	})
	if err != nil {
		utils.JSONError(ctx, http.StatusBadGateway, "provider_error", "could not create checkout session")
		return
	}

	hold, err = Reservations.AttachCheckoutSession(reqCtx, hold.ID, sess.ID)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}

	ctx.StatusCode(http.StatusCreated)
	ctx.JSON(iris.Map{
		"success": true,
		"data": iris.Map{
			"sessionID":   sess.ID,
			"checkoutURL": sess.URL,
			"amountCents": amount,
			"currency":    hold.Currency,
			"expiresAt":   hold.ExpiresAt,
		},
	})
}
