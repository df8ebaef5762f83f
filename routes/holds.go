package routes

import (
	"errors"
	"net/http"
	"time"

	"github.com/kataras/iris/v12"

	"venue-booking-server/services"
	"venue-booking-server/utils"
)

type createHoldRequest struct {
	OrgID       uint      `json:"orgID" validate:"required"`
	GameID      uint      `json:"gameID" validate:"required"`
	RoomID      uint      `json:"roomID" validate:"required"`
	BookingType string    `json:"bookingType" validate:"required,oneof=private public"`
	StartAt     time.Time `json:"startAt" validate:"required"`
	EndAt       time.Time `json:"endAt" validate:"required"`
	Players     int       `json:"players" validate:"required,min=1"`

	CustomerName  string `json:"customerName"`
	CustomerEmail string `json:"customerEmail" validate:"omitempty,email"`
	CustomerPhone string `json:"customerPhone"`
}

// POST /api/holds
func CreateHold(ctx iris.Context) {
	var req createHoldRequest
	if err := ctx.ReadJSON(&req); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	hold, err := Reservations.CreateHold(ctx.Request().Context(), services.CreateHoldInput{
		OrgID:       req.OrgID,
		GameID:      req.GameID,
		RoomID:      req.RoomID,
		BookingType: req.BookingType,
		StartAt:     req.StartAt.UTC(),
		EndAt:       req.EndAt.UTC(),
		Players:     req.Players,
		Customer: services.Customer{
			Name:  req.CustomerName,
			Email: req.CustomerEmail,
			Phone: req.CustomerPhone,
		},
	})
	if err != nil {
		handleServiceError(ctx, err)
		return
	}

	ctx.StatusCode(http.StatusCreated)
	ctx.JSON(iris.Map{"success": true, "data": hold})
}

// GET /api/holds/:id
func GetHold(ctx iris.Context) {
	hold, err := Reservations.GetHold(ctx.Request().Context(), ctx.Params().Get("id"))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	ctx.JSON(iris.Map{"success": true, "data": hold})
}

type applyPromoRequest struct {
	Code string `json:"code" validate:"required"`
}

// POST /api/holds/:id/promo
//
// Codes are resolved against the payment provider first so marketing can
// manage them in one place; org-local promo rows are the fallback.
func ApplyPromo(ctx iris.Context) {
	var req applyPromoRequest
	if err := ctx.ReadJSON(&req); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	reqCtx := ctx.Request().Context()
	holdID := ctx.Params().Get("id")

	hold, err := Reservations.GetHold(reqCtx, holdID)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}

	offer, err := Payments.FindPromoCode(reqCtx, req.Code)
	if errors.Is(err, services.ErrPromoNotFound) {
		offer, err = localPromoOffer(ctx, hold.OrgID, req.Code)
	}
	if err != nil {
		handleServiceError(ctx, err)
		return
	}

	hold, err = Reservations.ApplyPromo(reqCtx, holdID, offer)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	ctx.JSON(iris.Map{"success": true, "data": hold})
}

func localPromoOffer(ctx iris.Context, orgID uint, code string) (*services.PromoOffer, error) {
	promo, err := Store.GetPromo(ctx.Request().Context(), orgID, code)
	if err != nil {
		return nil, err
	}
	if !promo.Active {
		return nil, services.ErrPromoNotFound
	}
	return &services.PromoOffer{
		Code:           promo.Code,
		PercentOffBps:  promo.PercentOffBps,
		AmountOffCents: promo.AmountOffCents,
		Currency:       promo.Currency,
	}, nil
}

type confirmHoldRequest struct {
	CustomerName  string `json:"customerName"`
	CustomerEmail string `json:"customerEmail" validate:"omitempty,email"`
	CustomerPhone string `json:"customerPhone"`
}

// POST /api/holds/:id/confirm
//
// Direct confirmation without payment, for orgs that settle at the venue.
// Paid confirmations arrive through the webhook instead.
func ConfirmHold(ctx iris.Context) {
	// The body is optional; the hold already carries the customer.
	var req confirmHoldRequest
	if ctx.GetContentLength() > 0 {
		if err := ctx.ReadJSON(&req); err != nil {
			utils.HandleValidationErrors(err, ctx)
			return
		}
	}

	var override *services.Customer
	if req.CustomerName != "" || req.CustomerEmail != "" || req.CustomerPhone != "" {
		override = &services.Customer{
			Name:  req.CustomerName,
			Email: req.CustomerEmail,
			Phone: req.CustomerPhone,
		}
	}

	booking, idempotent, err := Reservations.ConfirmHold(ctx.Request().Context(), ctx.Params().Get("id"), override, nil)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}

	if !idempotent {
		ctx.StatusCode(http.StatusCreated)
	}
	ctx.JSON(iris.Map{"success": true, "data": booking, "idempotent": idempotent})
}

// POST /api/holds/:id/cancel
//
// Lets a customer release the slot before the TTL does. Idempotent.
func CancelHold(ctx iris.Context) {
	hold, err := Reservations.CancelHold(ctx.Request().Context(), ctx.Params().Get("id"))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	ctx.JSON(iris.Map{"success": true, "data": hold})
}

// GET /api/bookings/:id
func GetBooking(ctx iris.Context) {
	booking, err := Store.GetBooking(ctx.Request().Context(), ctx.Params().Get("id"))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	ctx.JSON(iris.Map{"success": true, "data": booking})
}
