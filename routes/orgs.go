package routes

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/kataras/iris/v12"
	"gorm.io/gorm"

	"venue-booking-server/models"
	"venue-booking-server/storage"
	"venue-booking-server/utils"
)

// Platform fee ceiling in basis points (20%). Anything above is a typo.
const maxFeeBps = 2000

type orgRequest struct {
	Name     string `json:"name" validate:"required"`
	Timezone string `json:"timezone" validate:"required"`

	FeeBps   int    `json:"feeBps" validate:"min=0"`
	FeeLabel string `json:"feeLabel"`

	PaymentMode    string `json:"paymentMode" validate:"omitempty,oneof=full deposit"`
	DepositPercent int    `json:"depositPercent" validate:"min=0,max=100"`

	StripeAccountID string `json:"stripeAccountID"`
}

func (r *orgRequest) check(ctx iris.Context) bool {
	if r.FeeBps > maxFeeBps {
		utils.JSONError(ctx, http.StatusBadRequest, "bad_request", "feeBps exceeds the platform ceiling")
		return false
	}
	if _, err := time.LoadLocation(r.Timezone); err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "bad_request", "timezone must be a valid IANA name")
		return false
	}
	if r.PaymentMode == models.PaymentModeDeposit && r.DepositPercent == 0 {
		utils.JSONError(ctx, http.StatusBadRequest, "bad_request", "deposit mode requires depositPercent")
		return false
	}
	return true
}

// POST /api/admin/orgs
func AdminCreateOrg(ctx iris.Context) {
	var req orgRequest
	if err := ctx.ReadJSON(&req); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}
	if !req.check(ctx) {
		return
	}

	org := models.Org{
		Name:            req.Name,
		Timezone:        req.Timezone,
		FeeBps:          req.FeeBps,
		FeeLabel:        req.FeeLabel,
		PaymentMode:     req.PaymentMode,
		DepositPercent:  req.DepositPercent,
		StripeAccountID: req.StripeAccountID,
	}
	if org.PaymentMode == "" {
		org.PaymentMode = models.PaymentModeFull
	}

	if err := storage.DB.Create(&org).Error; err != nil {
		utils.JSONError(ctx, http.StatusInternalServerError, "server_error", "could not create org")
		return
	}

	ctx.StatusCode(http.StatusCreated)
	ctx.JSON(iris.Map{"success": true, "data": org})
}

// GET /api/admin/orgs/:id
func AdminGetOrg(ctx iris.Context) {
	org, err := Store.GetOrg(ctx.Request().Context(), ctx.Params().GetUintDefault("id", 0))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	ctx.JSON(iris.Map{"success": true, "data": org})
}

// PUT /api/admin/orgs/:id
func AdminUpdateOrg(ctx iris.Context) {
	var req orgRequest
	if err := ctx.ReadJSON(&req); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}
	if !req.check(ctx) {
		return
	}

	org, err := Store.GetOrg(ctx.Request().Context(), ctx.Params().GetUintDefault("id", 0))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}

	org.Name = req.Name
	org.Timezone = req.Timezone
	org.FeeBps = req.FeeBps
	org.FeeLabel = req.FeeLabel
	if req.PaymentMode != "" {
		org.PaymentMode = req.PaymentMode
	}
	org.DepositPercent = req.DepositPercent
	org.StripeAccountID = req.StripeAccountID

	if err := storage.DB.Save(org).Error; err != nil {
		utils.JSONError(ctx, http.StatusInternalServerError, "server_error", "could not update org")
		return
	}
	ctx.JSON(iris.Map{"success": true, "data": org})
}

type promoRequest struct {
	Code           string `json:"code" validate:"required,max=40"`
	PercentOffBps  int64  `json:"percentOffBps" validate:"min=0,max=10000"`
	AmountOffCents int64  `json:"amountOffCents" validate:"min=0"`
	Currency       string `json:"currency" validate:"omitempty,len=3"`
	Active         *bool  `json:"active"`
}

// POST /api/admin/orgs/:id/promos
func AdminCreatePromo(ctx iris.Context) {
	var req promoRequest
	if err := ctx.ReadJSON(&req); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}
	if (req.PercentOffBps > 0) == (req.AmountOffCents > 0) {
		utils.JSONError(ctx, http.StatusBadRequest, "bad_request", "set exactly one of percentOffBps and amountOffCents")
		return
	}
	if req.AmountOffCents > 0 && req.Currency == "" {
		utils.JSONError(ctx, http.StatusBadRequest, "bad_request", "amount-off promos need a currency")
		return
	}

	org, err := Store.GetOrg(ctx.Request().Context(), ctx.Params().GetUintDefault("id", 0))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}

	promo := models.Promo{
		OrgID:          org.ID,
		Code:           req.Code,
		PercentOffBps:  req.PercentOffBps,
		AmountOffCents: req.AmountOffCents,
		Currency:       strings.ToLower(req.Currency),
		Active:         true,
	}
	if req.Active != nil {
		promo.Active = *req.Active
	}

	if err := storage.DB.Create(&promo).Error; err != nil {
		if storage.IsDuplicateKey(err) {
			utils.JSONError(ctx, http.StatusConflict, "duplicate_code", "this org already has that promo code")
			return
		}
		utils.JSONError(ctx, http.StatusInternalServerError, "server_error", "could not create promo")
		return
	}

	ctx.StatusCode(http.StatusCreated)
	ctx.JSON(iris.Map{"success": true, "data": promo})
}

// GET /api/admin/orgs/:id/promos
func AdminListPromos(ctx iris.Context) {
	var promos []models.Promo
	err := storage.DB.
		Where("org_id = ?", ctx.Params().GetUintDefault("id", 0)).
		Order("created_at DESC").
		Find(&promos).Error
	if err != nil {
		utils.JSONError(ctx, http.StatusInternalServerError, "server_error", "could not list promos")
		return
	}
	ctx.JSON(iris.Map{"success": true, "data": promos})
}

// DELETE /api/admin/orgs/:id/promos/:promoID
//
// Deactivates rather than deletes, so old holds keep a resolvable code.
func AdminDeactivatePromo(ctx iris.Context) {
	var promo models.Promo
	err := storage.DB.
		Where("org_id = ? AND id = ?", ctx.Params().GetUintDefault("id", 0), ctx.Params().GetUintDefault("promoID", 0)).
		First(&promo).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.JSONError(ctx, http.StatusNotFound, "not_found", "promo not found")
		return
	}
	if err != nil {
		utils.JSONError(ctx, http.StatusInternalServerError, "server_error", "could not load promo")
		return
	}

	promo.Active = false
	if err := storage.DB.Save(&promo).Error; err != nil {
		utils.JSONError(ctx, http.StatusInternalServerError, "server_error", "could not deactivate promo")
		return
	}
	ctx.JSON(iris.Map{"success": true, "data": promo})
}
