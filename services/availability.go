package services

import (
	"time"

	"venue-booking-server/models"
	"venue-booking-server/utils"
)

// MaxSlotsPerDay caps the response size. Presentation limit only; holds are
// still validated against the full conflict set.
const MaxSlotsPerDay = 20

type RoomAvailability struct {
	RoomID uint   `json:"roomId"`
	Name   string `json:"name"`
	// Remaining shared capacity; only meaningful for public requests.
	RemainingPlayers int `json:"remainingPlayers,omitempty"`
}

type SlotAvailability struct {
	StartAt        time.Time          `json:"startAt"`
	EndAt          time.Time          `json:"endAt"`
	AvailableRooms []RoomAvailability `json:"availableRooms"`
}

// occupant is a hold or booking flattened to what the capacity rules need.
type occupant struct {
	start, end  time.Time
	bookingType string
	players     int
}

// ComputeSlots produces the bookable slots for one day. dayStart must be
// midnight in the org's timezone; holds and bookings are the day's rows for
// the game's rooms. Reads are not isolated from concurrent writes — a slot
// listed here can be gone by the time the hold request lands, and the hold
// path handles that.
func ComputeSlots(
	game *models.Game,
	rooms []models.Room,
	schedule []models.Schedule,
	dayStart time.Time,
	bookingType string,
	players int,
	holds []models.Hold,
	bookings []models.Booking,
	now time.Time,
) []SlotAvailability {
	slots := []SlotAvailability{}
	if len(rooms) == 0 || players <= 0 || game.SlotIntervalMins <= 0 {
		return slots
	}

	openMin, closeMin, ok := openingWindow(schedule, dayStart.Weekday())
	if !ok {
		return slots
	}

	// One pass to index occupants by room, skipping lapsed holds.
	byRoom := make(map[uint][]occupant, len(rooms))
	for _, h := range holds {
		if h.Status != models.HoldStatusActive || !now.Before(h.ExpiresAt) {
			continue
		}
		byRoom[h.RoomID] = append(byRoom[h.RoomID], occupant{h.StartAt, h.EndAt, h.BookingType, h.Players})
	}
	for _, b := range bookings {
		byRoom[b.RoomID] = append(byRoom[b.RoomID], occupant{b.StartAt, b.EndAt, b.BookingType, b.Players})
	}

	occupied := game.OccupiedMins()
	for startMin := openMin; startMin+occupied <= closeMin; startMin += game.SlotIntervalMins {
		slotStart := utils.AddMinutes(dayStart, startMin)
		slotEnd := utils.AddMinutes(slotStart, occupied)

		var avail []RoomAvailability
		for _, room := range rooms {
			if !room.Enabled {
				continue
			}
			if ra, ok := roomFits(&room, byRoom[room.ID], slotStart, slotEnd, bookingType, players); ok {
				avail = append(avail, ra)
			}
		}

		if len(avail) > 0 {
			slots = append(slots, SlotAvailability{
				StartAt:        slotStart,
				EndAt:          utils.AddMinutes(slotStart, game.DurationMins),
				AvailableRooms: avail,
			})
			if len(slots) >= MaxSlotsPerDay {
				break
			}
		}
	}

	return slots
}

// CheckCapacity applies the private/public rules for a single room and
// window. Shared by the availability scan, the hold pre-check, and the
// store's conditional write so all three agree.
func CheckCapacity(
	room *models.Room,
	bookingType string,
	players int,
	start, end time.Time,
	holds []models.Hold,
	bookings []models.Booking,
	now time.Time,
) *ConflictError {
	var occ []occupant
	for _, h := range holds {
		if h.RoomID != room.ID || h.Status != models.HoldStatusActive || !now.Before(h.ExpiresAt) {
			continue
		}
		occ = append(occ, occupant{h.StartAt, h.EndAt, h.BookingType, h.Players})
	}
	for _, b := range bookings {
		if b.RoomID != room.ID {
			continue
		}
		occ = append(occ, occupant{b.StartAt, b.EndAt, b.BookingType, b.Players})
	}

	if _, ok := roomFits(room, occ, start, end, bookingType, players); ok {
		return nil
	}

	if bookingType == models.BookingTypePublic {
		return &ConflictError{Kind: ConflictSlotCapacityExceeded, Message: "not enough shared capacity for this window"}
	}
	return &ConflictError{Kind: ConflictSlotUnavailable, Message: "the requested window is not available"}
}

func roomFits(room *models.Room, occ []occupant, start, end time.Time, bookingType string, players int) (RoomAvailability, bool) {
	if players > room.MaxPlayers {
		return RoomAvailability{}, false
	}

	var overlapping []occupant
	for _, o := range occ {
		if utils.Overlaps(start, end, o.start, o.end) {
			overlapping = append(overlapping, o)
		}
	}

	switch bookingType {
	case models.BookingTypePrivate:
		if len(overlapping) > 0 {
			return RoomAvailability{}, false
		}
		return RoomAvailability{RoomID: room.ID, Name: room.Name}, true

	case models.BookingTypePublic:
		taken := 0
		for _, o := range overlapping {
			if o.bookingType == models.BookingTypePrivate {
				// Exclusivity wins over shared capacity.
				return RoomAvailability{}, false
			}
			taken += o.players
		}
		remaining := room.MaxPlayers - taken
		if players > remaining {
			return RoomAvailability{}, false
		}
		return RoomAvailability{RoomID: room.ID, Name: room.Name, RemainingPlayers: remaining - players}, true
	}

	return RoomAvailability{}, false
}

func openingWindow(schedule []models.Schedule, weekday time.Weekday) (openMin, closeMin int, ok bool) {
	for _, s := range schedule {
		if s.Weekday != int(weekday) {
			continue
		}
		o, err := utils.ParseHHMM(s.OpenTime)
		if err != nil {
			return 0, 0, false
		}
		c, err := utils.ParseHHMM(s.CloseTime)
		if err != nil || c <= o {
			return 0, 0, false
		}
		return o, c, true
	}
	return 0, 0, false
}
