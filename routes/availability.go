package routes

import (
	"net/http"
	"time"

	"github.com/kataras/iris/v12"

	"venue-booking-server/models"
	"venue-booking-server/services"
	"venue-booking-server/utils"
)

// GET /api/availability?orgID=&gameID=&date=YYYY-MM-DD&type=&players=
func GetAvailability(ctx iris.Context) {
	orgID := uint(ctx.URLParamIntDefault("orgID", 0))
	gameID := uint(ctx.URLParamIntDefault("gameID", 0))
	dateStr := ctx.URLParam("date")
	bookingType := ctx.URLParamDefault("type", models.BookingTypePrivate)
	players := ctx.URLParamIntDefault("players", 0)

	if orgID == 0 || gameID == 0 || dateStr == "" {
		utils.JSONError(ctx, http.StatusBadRequest, "bad_request", "orgID, gameID and date are required")
		return
	}
	if bookingType != models.BookingTypePrivate && bookingType != models.BookingTypePublic {
		utils.JSONError(ctx, http.StatusBadRequest, "bad_request", "type must be private or public")
		return
	}

	reqCtx := ctx.Request().Context()

	org, err := Store.GetOrg(reqCtx, orgID)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	game, err := Store.GetGame(reqCtx, gameID)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	if game.OrgID != org.ID || !game.Enabled {
		utils.JSONError(ctx, http.StatusNotFound, "not_found", "game not found")
		return
	}

	loc, err := time.LoadLocation(org.Timezone)
	if err != nil {
		utils.JSONError(ctx, http.StatusInternalServerError, "server_error", "org timezone is invalid")
		return
	}
	dayStart, err := utils.ParseLocalDate(dateStr, loc)
	if err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "bad_request", "invalid date format")
		return
	}
	dayEnd := dayStart.AddDate(0, 0, 1)

	rooms, err := Store.ListRooms(reqCtx, game.ID)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	schedule, err := Store.ListSchedule(reqCtx, game.ID)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}

	roomIDs := make([]uint, 0, len(rooms))
	for _, room := range rooms {
		roomIDs = append(roomIDs, room.ID)
	}

	now := time.Now().UTC()
	var holds []models.Hold
	var bookings []models.Booking
	if len(roomIDs) > 0 {
		if holds, err = Store.ListActiveHolds(reqCtx, roomIDs, dayStart, dayEnd, now); err != nil {
			handleServiceError(ctx, err)
			return
		}
		if bookings, err = Store.ListConfirmedBookings(reqCtx, roomIDs, dayStart, dayEnd); err != nil {
			handleServiceError(ctx, err)
			return
		}
	}

	slots := services.ComputeSlots(game, rooms, schedule, dayStart, bookingType, players, holds, bookings, now)

	ctx.JSON(iris.Map{
		"success": true,
		"data":    slots,
	})
}
