package storage

import (
	"context"
	"strings"
	"sync"
	"time"

	"venue-booking-server/models"
	"venue-booking-server/services"
)

// MemoryStore is the development/test fallback implementation of
// services.Store. The mutex gives it the same conditional-write guarantees
// the Postgres store gets from its transaction: capacity is re-checked and
// the insert applied under one critical section.
type MemoryStore struct {
	mu       sync.RWMutex
	orgs     map[uint]models.Org
	games    map[uint]models.Game
	rooms    map[uint]models.Room
	schedule map[uint][]models.Schedule // by game id
	promos   map[uint][]models.Promo    // by org id
	holds    map[string]models.Hold
	bookings map[string]models.Booking
	events   map[string]models.WebhookEvent
	nextID   uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orgs:     make(map[uint]models.Org),
		games:    make(map[uint]models.Game),
		rooms:    make(map[uint]models.Room),
		schedule: make(map[uint][]models.Schedule),
		promos:   make(map[uint][]models.Promo),
		holds:    make(map[string]models.Hold),
		bookings: make(map[string]models.Booking),
		events:   make(map[string]models.WebhookEvent),
	}
}

// Seed helpers, used by tests and the dev fixture loader.

func (s *MemoryStore) PutOrg(org models.Org) models.Org {
	s.mu.Lock()
	defer s.mu.Unlock()
	if org.ID == 0 {
		s.nextID++
		org.ID = s.nextID
	}
	s.orgs[org.ID] = org
	return org
}

func (s *MemoryStore) PutGame(game models.Game) models.Game {
	s.mu.Lock()
	defer s.mu.Unlock()
	if game.ID == 0 {
		s.nextID++
		game.ID = s.nextID
	}
	s.games[game.ID] = game
	return game
}

func (s *MemoryStore) PutRoom(room models.Room) models.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	if room.ID == 0 {
		s.nextID++
		room.ID = s.nextID
	}
	s.rooms[room.ID] = room
	return room
}

func (s *MemoryStore) PutSchedule(rows ...models.Schedule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows {
		s.schedule[row.GameID] = append(s.schedule[row.GameID], row)
	}
}

func (s *MemoryStore) PutPromo(promo models.Promo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.promos[promo.OrgID] = append(s.promos[promo.OrgID], promo)
}

// services.Store implementation.

func (s *MemoryStore) GetOrg(ctx context.Context, id uint) (*models.Org, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	org, ok := s.orgs[id]
	if !ok {
		return nil, services.ErrOrgNotFound
	}
	return &org, nil
}

func (s *MemoryStore) GetOrgByAccountID(ctx context.Context, accountID string) (*models.Org, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, org := range s.orgs {
		if org.StripeAccountID == accountID {
			o := org
			return &o, nil
		}
	}
	return nil, services.ErrOrgNotFound
}

func (s *MemoryStore) SaveOrg(ctx context.Context, org *models.Org) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orgs[org.ID] = *org
	return nil
}

func (s *MemoryStore) GetGame(ctx context.Context, id uint) (*models.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	game, ok := s.games[id]
	if !ok {
		return nil, services.ErrGameNotFound
	}
	return &game, nil
}

func (s *MemoryStore) GetRoom(ctx context.Context, id uint) (*models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[id]
	if !ok {
		return nil, services.ErrRoomNotFound
	}
	return &room, nil
}

func (s *MemoryStore) ListRooms(ctx context.Context, gameID uint) ([]models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var rooms []models.Room
	for _, room := range s.rooms {
		if room.GameID == gameID {
			rooms = append(rooms, room)
		}
	}
	return rooms, nil
}

func (s *MemoryStore) ListSchedule(ctx context.Context, gameID uint) ([]models.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Schedule(nil), s.schedule[gameID]...), nil
}

func (s *MemoryStore) GetPromo(ctx context.Context, orgID uint, code string) (*models.Promo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, promo := range s.promos[orgID] {
		if promo.Active && strings.EqualFold(promo.Code, code) {
			p := promo
			return &p, nil
		}
	}
	return nil, services.ErrPromoNotFound
}

func (s *MemoryStore) GetHold(ctx context.Context, id string) (*models.Hold, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hold, ok := s.holds[id]
	if !ok {
		return nil, services.ErrHoldNotFound
	}
	return &hold, nil
}

func (s *MemoryStore) SaveHold(ctx context.Context, hold *models.Hold) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holds[hold.ID] = *hold
	return nil
}

func (s *MemoryStore) CreateHold(ctx context.Context, hold *models.Hold) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[hold.RoomID]
	if !ok {
		return services.ErrRoomNotFound
	}

	now := time.Now().UTC()
	holds := s.holdsForRoomLocked(hold.RoomID)
	bookings := s.bookingsForRoomLocked(hold.RoomID)
	if cerr := services.CheckCapacity(&room, hold.BookingType, hold.Players, hold.StartAt, hold.EndAt, holds, bookings, now); cerr != nil {
		return &services.ConflictError{
			Kind:    services.ConflictSlotJustTaken,
			Message: "slot was taken by a concurrent request",
		}
	}

	s.holds[hold.ID] = *hold
	return nil
}

func (s *MemoryStore) ListActiveHolds(ctx context.Context, roomIDs []uint, from, to, now time.Time) ([]models.Hold, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Hold
	for _, hold := range s.holds {
		if !containsID(roomIDs, hold.RoomID) {
			continue
		}
		if hold.Status != models.HoldStatusActive || !now.Before(hold.ExpiresAt) {
			continue
		}
		if hold.StartAt.Before(to) && from.Before(hold.EndAt) {
			out = append(out, hold)
		}
	}
	return out, nil
}

func (s *MemoryStore) ExpireStaleHolds(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, hold := range s.holds {
		if hold.Status == models.HoldStatusActive && !now.Before(hold.ExpiresAt) {
			hold.Status = models.HoldStatusExpired
			s.holds[id] = hold
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) CreateBooking(ctx context.Context, booking *models.Booking) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.bookings[booking.ID]; exists {
		return false, nil
	}
	s.bookings[booking.ID] = *booking
	return true, nil
}

func (s *MemoryStore) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	booking, ok := s.bookings[id]
	if !ok {
		return nil, services.ErrBookingNotFound
	}
	return &booking, nil
}

func (s *MemoryStore) ListConfirmedBookings(ctx context.Context, roomIDs []uint, from, to time.Time) ([]models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Booking
	for _, booking := range s.bookings {
		if !containsID(roomIDs, booking.RoomID) {
			continue
		}
		if booking.StartAt.Before(to) && from.Before(booking.EndAt) {
			out = append(out, booking)
		}
	}
	return out, nil
}

func (s *MemoryStore) RecordWebhookEvent(ctx context.Context, event *models.WebhookEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.events[event.ID]; !exists {
		s.events[event.ID] = *event
	}
	return nil
}

func (s *MemoryStore) holdsForRoomLocked(roomID uint) []models.Hold {
	var out []models.Hold
	for _, hold := range s.holds {
		if hold.RoomID == roomID {
			out = append(out, hold)
		}
	}
	return out
}

func (s *MemoryStore) bookingsForRoomLocked(roomID uint) []models.Booking {
	var out []models.Booking
	for _, booking := range s.bookings {
		if booking.RoomID == roomID {
			out = append(out, booking)
		}
	}
	return out
}

func containsID(ids []uint, id uint) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
