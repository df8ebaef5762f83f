package routes

import (
	"errors"
	"net/http"

	"github.com/kataras/iris/v12"

	"venue-booking-server/services"
	"venue-booking-server/utils"
)

// handleServiceError maps engine errors onto stable machine-readable codes.
// Conflicts are 409 and safe to retry with a new request; pricing problems
// are 422; unknown failures stay generic.
func handleServiceError(ctx iris.Context, err error) {
	if kind := services.ConflictKindOf(err); kind != "" {
		utils.JSONError(ctx, http.StatusConflict, string(kind), err.Error())
		return
	}

	var perr *services.PricingError
	if errors.As(err, &perr) {
		utils.JSONError(ctx, http.StatusUnprocessableEntity, perr.Code, perr.Message)
		return
	}

	switch {
	case errors.Is(err, services.ErrOrgNotFound),
		errors.Is(err, services.ErrGameNotFound),
		errors.Is(err, services.ErrRoomNotFound),
		errors.Is(err, services.ErrHoldNotFound),
		errors.Is(err, services.ErrBookingNotFound):
		utils.JSONError(ctx, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, services.ErrPromoNotFound):
		utils.JSONError(ctx, http.StatusNotFound, "promo_not_found", err.Error())
	case errors.Is(err, services.ErrInvalidWindow):
		utils.JSONError(ctx, http.StatusBadRequest, "invalid_window", err.Error())
	case errors.Is(err, services.ErrPlayersOutOfRange):
		utils.JSONError(ctx, http.StatusBadRequest, "players_out_of_range", err.Error())
	case errors.Is(err, services.ErrTypeNotAllowed):
		utils.JSONError(ctx, http.StatusBadRequest, "booking_type_not_allowed", err.Error())
	default:
		utils.JSONError(ctx, http.StatusInternalServerError, "server_error", "something went wrong")
	}
}
