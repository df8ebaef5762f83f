package routes

import (
	"net/http"
	"time"

	"github.com/kataras/iris/v12"

	"venue-booking-server/models"
	"venue-booking-server/storage"
	"venue-booking-server/utils"
)

// GET /api/admin/bookings?orgID=&roomID=&from=&to=&page=&perPage=
func AdminListBookings(ctx iris.Context) {
	page := ctx.URLParamIntDefault("page", 1)
	perPage := ctx.URLParamIntDefault("perPage", 25)
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 25
	}

	query := storage.DB.Model(&models.Booking{})
	if orgID := ctx.URLParamIntDefault("orgID", 0); orgID > 0 {
		query = query.Where("org_id = ?", orgID)
	}
	if roomID := ctx.URLParamIntDefault("roomID", 0); roomID > 0 {
		query = query.Where("room_id = ?", roomID)
	}
	if from := ctx.URLParam("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			utils.JSONError(ctx, http.StatusBadRequest, "bad_request", "from must be RFC3339")
			return
		}
		query = query.Where("start_at >= ?", t)
	}
	if to := ctx.URLParam("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			utils.JSONError(ctx, http.StatusBadRequest, "bad_request", "to must be RFC3339")
			return
		}
		query = query.Where("start_at < ?", t)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.JSONError(ctx, http.StatusInternalServerError, "server_error", "could not count bookings")
		return
	}

	var bookings []models.Booking
	err := query.Order("start_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&bookings).Error
	if err != nil {
		utils.JSONError(ctx, http.StatusInternalServerError, "server_error", "could not list bookings")
		return
	}

	utils.JSONPage(ctx, bookings, page, perPage, total)
}

// GET /api/admin/bookings/:id
func AdminGetBooking(ctx iris.Context) {
	booking, err := Store.GetBooking(ctx.Request().Context(), ctx.Params().Get("id"))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	ctx.JSON(iris.Map{"success": true, "data": booking})
}
