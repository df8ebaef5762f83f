package routes

import (
	"net/http"

	"github.com/kataras/iris/v12"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"venue-booking-server/models"
	"venue-booking-server/services"
	"venue-booking-server/storage"
	"venue-booking-server/utils"
)

type gameRequest struct {
	OrgID uint   `json:"orgID" validate:"required"`
	Name  string `json:"name" validate:"required"`

	DurationMins     int `json:"durationMins" validate:"required,min=1"`
	BufferMins       int `json:"bufferMins" validate:"min=0"`
	SlotIntervalMins int `json:"slotIntervalMins" validate:"required,min=1"`

	MinPlayers int `json:"minPlayers" validate:"required,min=1"`
	MaxPlayers int `json:"maxPlayers" validate:"required,min=1"`

	Currency   string             `json:"currency" validate:"omitempty,len=3"`
	PriceTiers []models.PriceTier `json:"priceTiers" validate:"required,min=1"`

	AllowedTypes []string `json:"allowedTypes" validate:"required,min=1,dive,oneof=private public"`

	Enabled *bool `json:"enabled"`
}

func (r *gameRequest) check(ctx iris.Context) bool {
	if r.MinPlayers > r.MaxPlayers {
		utils.JSONError(ctx, http.StatusBadRequest, "bad_request", "minPlayers must not exceed maxPlayers")
		return false
	}
	if err := services.ValidateTiers(r.PriceTiers, r.MinPlayers, r.MaxPlayers); err != nil {
		utils.JSONError(ctx, http.StatusBadRequest, "bad_request", err.Error())
		return false
	}
	return true
}

func (r *gameRequest) apply(game *models.Game) {
	game.OrgID = r.OrgID
	game.Name = r.Name
	game.DurationMins = r.DurationMins
	game.BufferMins = r.BufferMins
	game.SlotIntervalMins = r.SlotIntervalMins
	game.MinPlayers = r.MinPlayers
	game.MaxPlayers = r.MaxPlayers
	if r.Currency != "" {
		game.Currency = r.Currency
	}
	game.PriceTiers = r.PriceTiers
	game.AllowedTypes = r.AllowedTypes
	if r.Enabled != nil {
		game.Enabled = *r.Enabled
	}
}

// POST /api/admin/games
func AdminCreateGame(ctx iris.Context) {
	var req gameRequest
	if err := ctx.ReadJSON(&req); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}
	if !req.check(ctx) {
		return
	}

	if _, err := Store.GetOrg(ctx.Request().Context(), req.OrgID); err != nil {
		handleServiceError(ctx, err)
		return
	}

	game := models.Game{Currency: "usd", Enabled: true}
	req.apply(&game)

	if err := storage.DB.Create(&game).Error; err != nil {
		utils.JSONError(ctx, http.StatusInternalServerError, "server_error", "could not create game")
		return
	}

	ctx.StatusCode(http.StatusCreated)
	ctx.JSON(iris.Map{"success": true, "data": game})
}

// PUT /api/admin/games/:id
func AdminUpdateGame(ctx iris.Context) {
	var req gameRequest
	if err := ctx.ReadJSON(&req); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}
	if !req.check(ctx) {
		return
	}

	game, err := Store.GetGame(ctx.Request().Context(), ctx.Params().GetUintDefault("id", 0))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	if game.OrgID != req.OrgID {
		utils.JSONError(ctx, http.StatusBadRequest, "bad_request", "a game cannot move between orgs")
		return
	}

	req.apply(game)
	if err := storage.DB.Save(game).Error; err != nil {
		utils.JSONError(ctx, http.StatusInternalServerError, "server_error", "could not update game")
		return
	}
	ctx.JSON(iris.Map{"success": true, "data": game})
}

type roomRequest struct {
	GameID     uint   `json:"gameID" validate:"required"`
	Name       string `json:"name" validate:"required"`
	MaxPlayers int    `json:"maxPlayers" validate:"required,min=1"`
	Enabled    *bool  `json:"enabled"`
}

// POST /api/admin/rooms
func AdminCreateRoom(ctx iris.Context) {
	var req roomRequest
	if err := ctx.ReadJSON(&req); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if _, err := Store.GetGame(ctx.Request().Context(), req.GameID); err != nil {
		handleServiceError(ctx, err)
		return
	}

	room := models.Room{
		GameID:     req.GameID,
		Name:       req.Name,
		MaxPlayers: req.MaxPlayers,
		Enabled:    true,
	}
	if req.Enabled != nil {
		room.Enabled = *req.Enabled
	}

	if err := storage.DB.Create(&room).Error; err != nil {
		utils.JSONError(ctx, http.StatusInternalServerError, "server_error", "could not create room")
		return
	}

	ctx.StatusCode(http.StatusCreated)
	ctx.JSON(iris.Map{"success": true, "data": room})
}

// PUT /api/admin/rooms/:id
func AdminUpdateRoom(ctx iris.Context) {
	var req roomRequest
	if err := ctx.ReadJSON(&req); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	room, err := Store.GetRoom(ctx.Request().Context(), ctx.Params().GetUintDefault("id", 0))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}

	room.Name = req.Name
	room.MaxPlayers = req.MaxPlayers
	if req.Enabled != nil {
		room.Enabled = *req.Enabled
	}

	if err := storage.DB.Save(room).Error; err != nil {
		utils.JSONError(ctx, http.StatusInternalServerError, "server_error", "could not update room")
		return
	}
	ctx.JSON(iris.Map{"success": true, "data": room})
}

type scheduleDay struct {
	Weekday   int    `json:"weekday" validate:"min=0,max=6"`
	OpenTime  string `json:"openTime" validate:"required"`
	CloseTime string `json:"closeTime" validate:"required"`
}

type scheduleRequest struct {
	Days []scheduleDay `json:"days" validate:"required,dive"`
}

// PUT /api/admin/games/:id/schedule
//
// Replaces the game's weekly opening hours. Days omitted from the payload
// become closed.
func AdminSetSchedule(ctx iris.Context) {
	var req scheduleRequest
	if err := ctx.ReadJSON(&req); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	game, err := Store.GetGame(ctx.Request().Context(), ctx.Params().GetUintDefault("id", 0))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}

	seen := make(map[int]bool, len(req.Days))
	rows := make([]models.Schedule, 0, len(req.Days))
	for _, day := range req.Days {
		if seen[day.Weekday] {
			utils.JSONError(ctx, http.StatusBadRequest, "bad_request", "duplicate weekday in schedule")
			return
		}
		seen[day.Weekday] = true

		open, err := utils.ParseHHMM(day.OpenTime)
		if err != nil {
			utils.JSONError(ctx, http.StatusBadRequest, "bad_request", "openTime must be HH:MM")
			return
		}
		closeMin, err := utils.ParseHHMM(day.CloseTime)
		if err != nil {
			utils.JSONError(ctx, http.StatusBadRequest, "bad_request", "closeTime must be HH:MM")
			return
		}
		if open >= closeMin {
			utils.JSONError(ctx, http.StatusBadRequest, "bad_request", "openTime must be before closeTime")
			return
		}

		rows = append(rows, models.Schedule{
			GameID:    game.ID,
			Weekday:   day.Weekday,
			OpenTime:  day.OpenTime,
			CloseTime: day.CloseTime,
		})
	}

	err = storage.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("game_id = ?", game.ID).Delete(&models.Schedule{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "game_id"}, {Name: "weekday"}},
			UpdateAll: true,
		}).Create(&rows).Error
	})
	if err != nil {
		utils.JSONError(ctx, http.StatusInternalServerError, "server_error", "could not save schedule")
		return
	}

	ctx.JSON(iris.Map{"success": true, "data": rows})
}
