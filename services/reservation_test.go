package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venue-booking-server/models"
	"venue-booking-server/services"
	"venue-booking-server/storage"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock { return &fakeClock{now: now} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakePublisher struct {
	events chan string
}

func (p *fakePublisher) Publish(routingKey string, payload any) error {
	p.events <- routingKey
	return nil
}

type fixture struct {
	store *storage.MemoryStore
	clock *fakeClock
	pub   *fakePublisher
	svc   *services.ReservationService
	org   models.Org
	game  models.Game
	room  models.Room
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := storage.NewMemoryStore()
	org := store.PutOrg(models.Org{
		Name: "Axe & Escape", Timezone: "UTC",
		FeeBps: 190, PaymentMode: models.PaymentModeFull,
	})
	game := store.PutGame(models.Game{
		OrgID: org.ID, Name: "The Vault",
		DurationMins: 60, BufferMins: 15, SlotIntervalMins: 30,
		MinPlayers: 2, MaxPlayers: 8,
		Currency: "usd",
		PriceTiers: []models.PriceTier{
			{MinPlayers: 2, MaxPlayers: 4, UnitPriceCents: 2500},
			{MinPlayers: 5, MaxPlayers: 8, UnitPriceCents: 2000},
		},
		AllowedTypes: []string{models.BookingTypePrivate, models.BookingTypePublic},
		Enabled:      true,
	})
	room := store.PutRoom(models.Room{
		GameID: game.ID, Name: "Vault A", MaxPlayers: 8, Enabled: true,
	})

	// The store's own conditional write checks against the wall clock, so
	// the fixture clock starts at real now and the windows sit in the
	// future relative to both.
	clock := newFakeClock(time.Now().UTC())
	pub := &fakePublisher{events: make(chan string, 8)}
	return &fixture{
		store: store,
		clock: clock,
		pub:   pub,
		svc:   services.NewReservationService(store, clock, pub),
		org:   org,
		game:  game,
		room:  room,
	}
}

func (f *fixture) holdInput(startOffset time.Duration, players int) services.CreateHoldInput {
	start := f.clock.Now().Add(startOffset).Truncate(time.Minute)
	return services.CreateHoldInput{
		OrgID:       f.org.ID,
		GameID:      f.game.ID,
		RoomID:      f.room.ID,
		BookingType: models.BookingTypePrivate,
		StartAt:     start,
		EndAt:       start.Add(75 * time.Minute),
		Players:     players,
		Customer:    services.Customer{Name: "Pat", Email: "pat@example.com"},
	}
}

func TestCreateHoldSnapshotsPriceAndTTL(t *testing.T) {
	f := newFixture(t)

	hold, err := f.svc.CreateHold(context.Background(), f.holdInput(24*time.Hour, 4))
	require.NoError(t, err)

	assert.Equal(t, models.HoldStatusActive, hold.Status)
	assert.Equal(t, f.clock.Now().Add(services.HoldTTL), hold.ExpiresAt)
	assert.Equal(t, int64(10000), hold.SubtotalCents)
	assert.Equal(t, int64(190), hold.FeeCents)
	assert.Equal(t, int64(10190), hold.TotalCents)
	assert.Equal(t, "usd", hold.Currency)
}

func TestCreateHoldValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := f.holdInput(24*time.Hour, 4)
	in.EndAt = in.StartAt
	_, err := f.svc.CreateHold(ctx, in)
	assert.ErrorIs(t, err, services.ErrInvalidWindow)

	_, err = f.svc.CreateHold(ctx, f.holdInput(24*time.Hour, 1))
	assert.ErrorIs(t, err, services.ErrPlayersOutOfRange)

	_, err = f.svc.CreateHold(ctx, f.holdInput(24*time.Hour, 9))
	assert.ErrorIs(t, err, services.ErrPlayersOutOfRange)

	in = f.holdInput(24*time.Hour, 4)
	in.BookingType = "corporate"
	_, err = f.svc.CreateHold(ctx, in)
	assert.ErrorIs(t, err, services.ErrTypeNotAllowed)

	in = f.holdInput(24*time.Hour, 4)
	in.RoomID = 999
	_, err = f.svc.CreateHold(ctx, in)
	assert.ErrorIs(t, err, services.ErrRoomNotFound)
}

func TestCreateHoldOverlapConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateHold(ctx, f.holdInput(24*time.Hour, 4))
	require.NoError(t, err)

	_, err = f.svc.CreateHold(ctx, f.holdInput(24*time.Hour, 4))
	require.Error(t, err)
	assert.NotEmpty(t, services.ConflictKindOf(err), "expected a conflict, got %v", err)
}

func TestCreateHoldConcurrentSameWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const racers = 8
	var wg sync.WaitGroup
	holds := make([]*models.Hold, racers)
	errs := make([]error, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			holds[i], errs[i] = f.svc.CreateHold(ctx, f.holdInput(24*time.Hour, 4))
		}(i)
	}
	wg.Wait()

	winners := 0
	for i := 0; i < racers; i++ {
		if errs[i] == nil {
			winners++
			require.NotNil(t, holds[i])
			continue
		}
		assert.NotEmpty(t, services.ConflictKindOf(errs[i]), "loser %d: expected a conflict, got %v", i, errs[i])
	}
	assert.Equal(t, 1, winners)
}

func TestHoldLazyExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	hold, err := f.svc.CreateHold(ctx, f.holdInput(24*time.Hour, 4))
	require.NoError(t, err)

	f.clock.Advance(services.HoldTTL + time.Second)

	got, err := f.svc.GetHold(ctx, hold.ID)
	require.NoError(t, err)
	assert.Equal(t, models.HoldStatusExpired, got.Status)

	// The transition persisted, not just the view.
	stored, err := f.store.GetHold(ctx, hold.ID)
	require.NoError(t, err)
	assert.Equal(t, models.HoldStatusExpired, stored.Status)

	_, _, err = f.svc.ConfirmHold(ctx, hold.ID, nil, nil)
	assert.Equal(t, services.ConflictHoldNotActive, services.ConflictKindOf(err))
}

func TestExpiredSlotReleasesCapacity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	hold, err := f.svc.CreateHold(ctx, f.holdInput(24*time.Hour, 4))
	require.NoError(t, err)

	f.clock.Advance(services.HoldTTL + time.Second)

	// Any read persists the expiry transition.
	_, err = f.svc.GetHold(ctx, hold.ID)
	require.NoError(t, err)

	// Same window again: the lapsed hold no longer counts.
	_, err = f.svc.CreateHold(ctx, f.holdInput(24*time.Hour-services.HoldTTL-time.Second, 4))
	require.NoError(t, err)
}

func TestConfirmHoldIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	hold, err := f.svc.CreateHold(ctx, f.holdInput(24*time.Hour, 4))
	require.NoError(t, err)

	first, idempotent, err := f.svc.ConfirmHold(ctx, hold.ID, nil, nil)
	require.NoError(t, err)
	assert.False(t, idempotent)
	assert.Equal(t, models.BookingIDForHold(hold.ID), first.ID)

	second, idempotent, err := f.svc.ConfirmHold(ctx, hold.ID, nil, nil)
	require.NoError(t, err)
	assert.True(t, idempotent)
	assert.Equal(t, first.ID, second.ID)
}

func TestConfirmHoldConcurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	hold, err := f.svc.CreateHold(ctx, f.holdInput(24*time.Hour, 4))
	require.NoError(t, err)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]bool, callers)
	ids := make([]string, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			booking, idempotent, err := f.svc.ConfirmHold(ctx, hold.ID, nil, nil)
			if err != nil {
				errs[i] = err
				return
			}
			results[i] = idempotent
			ids[i] = booking.ID
		}(i)
	}
	wg.Wait()

	winners := 0
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		if !results[i] {
			winners++
		}
		assert.Equal(t, models.BookingIDForHold(hold.ID), ids[i])
	}
	assert.Equal(t, 1, winners, "exactly one caller creates the booking")

	// Exactly one post-commit event.
	select {
	case <-f.pub.events:
	case <-time.After(time.Second):
		t.Fatal("expected a booking.confirmed event")
	}
	select {
	case key := <-f.pub.events:
		t.Fatalf("unexpected second event %q", key)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCancelHold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	hold, err := f.svc.CreateHold(ctx, f.holdInput(24*time.Hour, 4))
	require.NoError(t, err)

	canceled, err := f.svc.CancelHold(ctx, hold.ID)
	require.NoError(t, err)
	assert.Equal(t, models.HoldStatusCanceled, canceled.Status)

	// Canceling again is a no-op.
	again, err := f.svc.CancelHold(ctx, hold.ID)
	require.NoError(t, err)
	assert.Equal(t, models.HoldStatusCanceled, again.Status)

	// The capacity came back: the same window can be held again.
	_, err = f.svc.CreateHold(ctx, f.holdInput(24*time.Hour, 4))
	require.NoError(t, err)

	// A canceled hold cannot confirm.
	_, _, err = f.svc.ConfirmHold(ctx, hold.ID, nil, nil)
	assert.Equal(t, services.ConflictHoldNotActive, services.ConflictKindOf(err))
}

func TestCancelHoldAfterConfirm(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	hold, err := f.svc.CreateHold(ctx, f.holdInput(24*time.Hour, 4))
	require.NoError(t, err)
	_, _, err = f.svc.ConfirmHold(ctx, hold.ID, nil, nil)
	require.NoError(t, err)

	_, err = f.svc.CancelHold(ctx, hold.ID)
	assert.Equal(t, services.ConflictHoldNotActive, services.ConflictKindOf(err))
}

func TestApplyPromoIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	hold, err := f.svc.CreateHold(ctx, f.holdInput(24*time.Hour, 4))
	require.NoError(t, err)

	promo := &services.PromoOffer{Code: "TEN", PercentOffBps: 1000}

	once, err := f.svc.ApplyPromo(ctx, hold.ID, promo)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), once.DiscountCents)
	assert.Equal(t, int64(171), once.FeeCents)
	assert.Equal(t, int64(9171), once.TotalCents)

	// Re-applying reprices from the tier table, never from the discounted
	// snapshot.
	twice, err := f.svc.ApplyPromo(ctx, hold.ID, promo)
	require.NoError(t, err)
	assert.Equal(t, once.TotalCents, twice.TotalCents)
	assert.Equal(t, once.DiscountCents, twice.DiscountCents)
}

func TestAttachCheckoutSessionExtendsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	hold, err := f.svc.CreateHold(ctx, f.holdInput(24*time.Hour, 4))
	require.NoError(t, err)

	f.clock.Advance(5 * time.Minute)

	got, err := f.svc.AttachCheckoutSession(ctx, hold.ID, "cs_test_123")
	require.NoError(t, err)
	assert.Equal(t, "cs_test_123", got.CheckoutSessionID)
	assert.Equal(t, f.clock.Now().Add(services.HoldTTL), got.ExpiresAt)
}

func TestExtendHoldTTLNeverShrinks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	hold, err := f.svc.CreateHold(ctx, f.holdInput(24*time.Hour, 4))
	require.NoError(t, err)

	got, err := f.svc.ExtendHoldTTL(ctx, hold.ID, f.clock.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, hold.ExpiresAt, got.ExpiresAt, "an earlier deadline is a no-op")
}

func TestForceExpireAndSweep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.CreateHold(ctx, f.holdInput(24*time.Hour, 4))
	require.NoError(t, err)
	second, err := f.svc.CreateHold(ctx, f.holdInput(48*time.Hour, 4))
	require.NoError(t, err)

	forced, err := f.svc.ForceExpireHold(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.HoldStatusExpired, forced.Status)

	f.clock.Advance(services.HoldTTL + time.Second)
	n, err := f.svc.ExpireStaleHolds(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "only the remaining active hold lapses")

	got, err := f.store.GetHold(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.HoldStatusExpired, got.Status)
}
