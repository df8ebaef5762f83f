package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"venue-booking-server/models"
	"venue-booking-server/services"
)

// GormStore implements services.Store on Postgres. The two race-sensitive
// writes use the database as the arbiter: hold creation re-verifies
// capacity inside a transaction that locks the room row, and booking
// creation is an ON CONFLICT DO NOTHING insert on the deterministic id.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) GetOrg(ctx context.Context, id uint) (*models.Org, error) {
	var org models.Org
	if err := s.db.WithContext(ctx).First(&org, id).Error; err != nil {
		return nil, notFound(err, services.ErrOrgNotFound)
	}
	return &org, nil
}

func (s *GormStore) GetOrgByAccountID(ctx context.Context, accountID string) (*models.Org, error) {
	var org models.Org
	if err := s.db.WithContext(ctx).Where("stripe_account_id = ?", accountID).First(&org).Error; err != nil {
		return nil, notFound(err, services.ErrOrgNotFound)
	}
	return &org, nil
}

func (s *GormStore) SaveOrg(ctx context.Context, org *models.Org) error {
	return s.db.WithContext(ctx).Save(org).Error
}

func (s *GormStore) GetGame(ctx context.Context, id uint) (*models.Game, error) {
	var game models.Game
	if err := s.db.WithContext(ctx).First(&game, id).Error; err != nil {
		return nil, notFound(err, services.ErrGameNotFound)
	}
	return &game, nil
}

func (s *GormStore) GetRoom(ctx context.Context, id uint) (*models.Room, error) {
	var room models.Room
	if err := s.db.WithContext(ctx).First(&room, id).Error; err != nil {
		return nil, notFound(err, services.ErrRoomNotFound)
	}
	return &room, nil
}

func (s *GormStore) ListRooms(ctx context.Context, gameID uint) ([]models.Room, error) {
	var rooms []models.Room
	err := s.db.WithContext(ctx).Where("game_id = ?", gameID).Order("id ASC").Find(&rooms).Error
	return rooms, err
}

func (s *GormStore) ListSchedule(ctx context.Context, gameID uint) ([]models.Schedule, error) {
	var schedule []models.Schedule
	err := s.db.WithContext(ctx).Where("game_id = ?", gameID).Order("weekday ASC").Find(&schedule).Error
	return schedule, err
}

func (s *GormStore) GetPromo(ctx context.Context, orgID uint, code string) (*models.Promo, error) {
	var promo models.Promo
	err := s.db.WithContext(ctx).
		Where("org_id = ? AND lower(code) = lower(?) AND active = ?", orgID, code, true).
		First(&promo).Error
	if err != nil {
		return nil, notFound(err, services.ErrPromoNotFound)
	}
	return &promo, nil
}

func (s *GormStore) GetHold(ctx context.Context, id string) (*models.Hold, error) {
	var hold models.Hold
	if err := s.db.WithContext(ctx).First(&hold, "id = ?", id).Error; err != nil {
		return nil, notFound(err, services.ErrHoldNotFound)
	}
	return &hold, nil
}

func (s *GormStore) SaveHold(ctx context.Context, hold *models.Hold) error {
	return s.db.WithContext(ctx).Save(hold).Error
}

// CreateHold is the conditional write for capacity. The room row lock
// serializes writers on the same room; the capacity re-check inside the
// transaction sees every committed competitor, so exactly one of two
// overlapping exclusive writers gets its insert through.
func (s *GormStore) CreateHold(ctx context.Context, hold *models.Hold) error {
	now := time.Now().UTC()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room models.Room
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&room, hold.RoomID).Error; err != nil {
			return notFound(err, services.ErrRoomNotFound)
		}

		holds, err := listActiveHolds(tx, []uint{hold.RoomID}, hold.StartAt, hold.EndAt, now)
		if err != nil {
			return err
		}
		bookings, err := listConfirmedBookings(tx, []uint{hold.RoomID}, hold.StartAt, hold.EndAt)
		if err != nil {
			return err
		}

		if cerr := services.CheckCapacity(&room, hold.BookingType, hold.Players, hold.StartAt, hold.EndAt, holds, bookings, now); cerr != nil {
			// Losing here after a clean pre-read means a concurrent writer
			// committed first.
			return &services.ConflictError{
				Kind:    services.ConflictSlotJustTaken,
				Message: "slot was taken by a concurrent request",
			}
		}

		return tx.Create(hold).Error
	})
}

func (s *GormStore) ListActiveHolds(ctx context.Context, roomIDs []uint, from, to, now time.Time) ([]models.Hold, error) {
	return listActiveHolds(s.db.WithContext(ctx), roomIDs, from, to, now)
}

func (s *GormStore) ListConfirmedBookings(ctx context.Context, roomIDs []uint, from, to time.Time) ([]models.Booking, error) {
	return listConfirmedBookings(s.db.WithContext(ctx), roomIDs, from, to)
}

func (s *GormStore) ExpireStaleHolds(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Hold{}).
		Where("status = ? AND expires_at <= ?", models.HoldStatusActive, now).
		Update("status", models.HoldStatusExpired)
	return res.RowsAffected, res.Error
}

// CreateBooking inserts if absent; the deterministic primary key turns a
// concurrent duplicate into created=false instead of an error.
func (s *GormStore) CreateBooking(ctx context.Context, booking *models.Booking) (bool, error) {
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(booking)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *GormStore) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	var booking models.Booking
	if err := s.db.WithContext(ctx).First(&booking, "id = ?", id).Error; err != nil {
		return nil, notFound(err, services.ErrBookingNotFound)
	}
	return &booking, nil
}

func (s *GormStore) RecordWebhookEvent(ctx context.Context, event *models.WebhookEvent) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(event).Error
}

// Half-open overlap in SQL: start_at < to AND end_at > from.
func listActiveHolds(db *gorm.DB, roomIDs []uint, from, to, now time.Time) ([]models.Hold, error) {
	var holds []models.Hold
	err := db.
		Where("room_id IN ? AND status = ? AND expires_at > ? AND start_at < ? AND end_at > ?",
			roomIDs, models.HoldStatusActive, now, to, from).
		Find(&holds).Error
	return holds, err
}

func listConfirmedBookings(db *gorm.DB, roomIDs []uint, from, to time.Time) ([]models.Booking, error) {
	var bookings []models.Booking
	err := db.
		Where("room_id IN ? AND start_at < ? AND end_at > ?", roomIDs, to, from).
		Find(&bookings).Error
	return bookings, err
}

func notFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}

// IsDuplicateKey reports whether err is a unique-constraint violation.
// Driver error codes stay in the storage layer; callers never match on
// index names or error text.
func IsDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
