package routes

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/kataras/iris/v12"
	"github.com/stripe/stripe-go/v79/webhook"

	"venue-booking-server/services"
	"venue-booking-server/utils"
)

// POST /api/webhooks/payments
//
// Signature verification happens here at the edge; everything after that is
// the reconciler's job. A non-2xx response makes the provider redeliver, so
// processing errors return 500 on purpose.
func StripeWebhook(ctx iris.Context) {
	body, err := ctx.GetBody()
	if err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "bad_request", "could not read body")
		return
	}

	event, err := webhook.ConstructEventWithOptions(
		body,
		ctx.GetHeader("Stripe-Signature"),
		Checkout.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		log.Printf("[webhook] signature verification failed: %v", err)
		utils.JSONError(ctx, http.StatusBadRequest, "invalid_signature", "signature verification failed")
		return
	}

	// Only the object id is taken from the payload; the reconciler
	// re-fetches the canonical object before acting on it.
	var object struct {
		ID string `json:"id"`
	}
	if len(event.Data.Raw) > 0 {
		if err := json.Unmarshal(event.Data.Raw, &object); err != nil {
			utils.JSONError(ctx, http.StatusBadRequest, "bad_request", "malformed event object")
			return
		}
	}

	err = Reconciler.HandleEvent(ctx.Request().Context(), services.ProviderEvent{
		ID:       event.ID,
		Type:     string(event.Type),
		ObjectID: object.ID,
		Account:  event.Account,
		Payload:  event.Data.Raw,
	})
	if err != nil {
		log.Printf("[webhook] %s (%s): %v", event.ID, event.Type, err)
		utils.JSONError(ctx, http.StatusInternalServerError, "processing_failed", "event processing failed, will be retried")
		return
	}

	ctx.JSON(iris.Map{"received": true})
}
