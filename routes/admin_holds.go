package routes

import (
	"net/http"

	"github.com/kataras/iris/v12"

	"venue-booking-server/models"
	"venue-booking-server/storage"
	"venue-booking-server/utils"
)

// GET /api/admin/holds?orgID=&roomID=&status=&page=&perPage=
func AdminListHolds(ctx iris.Context) {
	page := ctx.URLParamIntDefault("page", 1)
	perPage := ctx.URLParamIntDefault("perPage", 25)
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 25
	}

	query := storage.DB.Model(&models.Hold{})
	if orgID := ctx.URLParamIntDefault("orgID", 0); orgID > 0 {
		query = query.Where("org_id = ?", orgID)
	}
	if roomID := ctx.URLParamIntDefault("roomID", 0); roomID > 0 {
		query = query.Where("room_id = ?", roomID)
	}
	if status := ctx.URLParam("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.JSONError(ctx, http.StatusInternalServerError, "server_error", "could not count holds")
		return
	}

	var holds []models.Hold
	err := query.Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&holds).Error
	if err != nil {
		utils.JSONError(ctx, http.StatusInternalServerError, "server_error", "could not list holds")
		return
	}

	utils.JSONPage(ctx, holds, page, perPage, total)
}

// POST /api/admin/holds/:id/expire
func AdminExpireHold(ctx iris.Context) {
	hold, err := Reservations.ForceExpireHold(ctx.Request().Context(), ctx.Params().Get("id"))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	ctx.JSON(iris.Map{"success": true, "data": hold})
}

// POST /api/admin/holds/sweep
//
// Manual trigger for the batch expiry. Correctness never depends on it;
// it just reclaims capacity (and index space) eagerly.
func AdminSweepHolds(ctx iris.Context) {
	expired, err := Reservations.ExpireStaleHolds(ctx.Request().Context())
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	ctx.JSON(iris.Map{"success": true, "expired": expired})
}
