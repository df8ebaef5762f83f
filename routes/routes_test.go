package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"

	"venue-booking-server/models"
	"venue-booking-server/services"
	"venue-booking-server/storage"
)

type stubProvider struct{}

func (stubProvider) CreateCheckoutSession(ctx context.Context, in services.CheckoutInput) (*services.CheckoutSession, error) {
	return nil, errors.New("payments disabled in tests")
}

func (stubProvider) GetCheckoutSession(ctx context.Context, id string) (*services.CheckoutSession, error) {
	return nil, errors.New("payments disabled in tests")
}

func (stubProvider) GetAccount(ctx context.Context, id string) (*services.AccountStatus, error) {
	return nil, errors.New("payments disabled in tests")
}

func (stubProvider) FindPromoCode(ctx context.Context, code string) (*services.PromoOffer, error) {
	return nil, services.ErrPromoNotFound
}

// buildTestApp wires the public routes against the in-memory store.
func buildTestApp(t *testing.T) (*iris.Application, *storage.MemoryStore) {
	t.Helper()
	os.Setenv("ACCESS_TOKEN_SECRET", "testsecret")

	store := storage.NewMemoryStore()
	Store = store
	Reservations = services.NewReservationService(store, nil, nil)
	Payments = stubProvider{}
	Reconciler = services.NewReconciler(store, stubProvider{}, Reservations, storage.NewMemoryLedger(), nil)
	Checkout = CheckoutConfig{WebhookSecret: "whsec_test"}

	app := iris.New()
	app.Validator = validator.New()

	api := app.Party("/api")
	{
		api.Get("/availability", GetAvailability)
		api.Post("/holds", CreateHold)
		api.Get("/holds/{id}", GetHold)
		api.Post("/holds/{id}/promo", ApplyPromo)
		api.Post("/holds/{id}/confirm", ConfirmHold)
		api.Post("/holds/{id}/cancel", CancelHold)
		api.Get("/bookings/{id}", GetBooking)
		api.Post("/webhooks/payments", StripeWebhook)
	}

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} { return new(mockAccessToken) })

	admin := app.Party("/api/admin", accessTokenVerifierMiddleware, mockAdminOnlyMiddleware)
	{
		admin.Post("/holds/sweep", AdminSweepHolds)
		admin.Post("/holds/{id}/expire", AdminExpireHold)
	}

	if err := app.Build(); err != nil {
		t.Fatal(err)
	}
	return app, store
}

type mockAccessToken struct {
	ID   uint
	Role string
}

func mockAdminOnlyMiddleware(ctx iris.Context) {
	claims := jwt.Get(ctx).(*mockAccessToken)
	if claims.Role != "admin" && claims.Role != "super_admin" {
		ctx.StatusCode(iris.StatusForbidden)
		return
	}
	ctx.Next()
}

func signTestToken(role string) string {
	signer := jwt.NewSigner(jwt.HS256, os.Getenv("ACCESS_TOKEN_SECRET"), 0)
	token, _ := signer.Sign(mockAccessToken{ID: 1, Role: role})
	return string(token)
}

func seedCatalog(store *storage.MemoryStore) (models.Org, models.Game, models.Room) {
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
			{MinPlayers: 2, MaxPlayers: 8, UnitPriceCents: 2500},
		},
		AllowedTypes: []string{models.BookingTypePrivate, models.BookingTypePublic},
		Enabled:      true,
	})
	room := store.PutRoom(models.Room{GameID: game.ID, Name: "Vault A", MaxPlayers: 8, Enabled: true})
	// Open every day so the test date's weekday doesn't matter.
	for wd := 0; wd < 7; wd++ {
		store.PutSchedule(models.Schedule{GameID: game.ID, Weekday: wd, OpenTime: "10:00", CloseTime: "22:00"})
	}
	return org, game, room
}

func doJSON(t *testing.T, app *iris.Application, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	return resp
}

func TestAvailabilityEndpoint(t *testing.T) {
	app, store := buildTestApp(t)
	org, game, _ := seedCatalog(store)

	path := fmt.Sprintf("/api/availability?orgID=%d&gameID=%d&date=2026-03-02&players=4", org.ID, game.ID)
	resp := doJSON(t, app, http.MethodGet, path, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var out struct {
		Success bool `json:"success"`
		Data    []struct {
			StartAt        string `json:"startAt"`
			AvailableRooms []struct {
				RoomID uint `json:"roomId"`
			} `json:"availableRooms"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if !out.Success || len(out.Data) == 0 {
		t.Fatalf("expected slots, got %s", resp.Body.String())
	}

	// Missing params.
	resp = doJSON(t, app, http.MethodGet, "/api/availability?orgID=1", nil)
	if resp.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.Code)
	}
}

func TestHoldLifecycleEndpoints(t *testing.T) {
	app, store := buildTestApp(t)
	org, game, room := seedCatalog(store)
	store.PutPromo(models.Promo{OrgID: org.ID, Code: "TEN", PercentOffBps: 1000, Active: true})

	create := map[string]any{
		"orgID":         org.ID,
		"gameID":        game.ID,
		"roomID":        room.ID,
		"bookingType":   "private",
		"startAt":       "2026-03-02T10:00:00Z",
		"endAt":         "2026-03-02T11:15:00Z",
		"players":       4,
		"customerName":  "Pat",
		"customerEmail": "pat@example.com",
	}

	resp := doJSON(t, app, http.MethodPost, "/api/holds", create)
	if resp.Code != http.StatusCreated {
		t.Fatalf("create hold: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var created struct {
		Data struct {
			ID         string `json:"id"`
			TotalCents int64  `json:"totalCents"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if created.Data.TotalCents != 10190 {
		t.Errorf("total: got %d, want 10190", created.Data.TotalCents)
	}

	// The same window conflicts.
	resp = doJSON(t, app, http.MethodPost, "/api/holds", create)
	if resp.Code != http.StatusConflict {
		t.Errorf("duplicate window: expected 409, got %d", resp.Code)
	}

	// The provider doesn't know the code; the org-local promo applies.
	resp = doJSON(t, app, http.MethodPost, "/api/holds/"+created.Data.ID+"/promo", map[string]string{"code": "TEN"})
	if resp.Code != http.StatusOK {
		t.Fatalf("promo: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var promoed struct {
		Data struct {
			TotalCents int64 `json:"totalCents"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &promoed); err != nil {
		t.Fatal(err)
	}
	if promoed.Data.TotalCents != 9171 {
		t.Errorf("discounted total: got %d, want 9171", promoed.Data.TotalCents)
	}

	resp = doJSON(t, app, http.MethodPost, "/api/holds/"+created.Data.ID+"/confirm", nil)
	if resp.Code != http.StatusCreated {
		t.Fatalf("confirm: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	// Confirming again is a 200 with the same booking.
	resp = doJSON(t, app, http.MethodPost, "/api/holds/"+created.Data.ID+"/confirm", nil)
	if resp.Code != http.StatusOK {
		t.Errorf("re-confirm: expected 200, got %d", resp.Code)
	}

	resp = doJSON(t, app, http.MethodGet, "/api/bookings/booking_"+created.Data.ID, nil)
	if resp.Code != http.StatusOK {
		t.Errorf("get booking: expected 200, got %d", resp.Code)
	}

	resp = doJSON(t, app, http.MethodGet, "/api/holds/hold_missing", nil)
	if resp.Code != http.StatusNotFound {
		t.Errorf("missing hold: expected 404, got %d", resp.Code)
	}
}

func TestCancelHoldEndpoint(t *testing.T) {
	app, store := buildTestApp(t)
	org, game, room := seedCatalog(store)

	create := map[string]any{
		"orgID":        org.ID,
		"gameID":       game.ID,
		"roomID":       room.ID,
		"bookingType":  "private",
		"startAt":      "2026-03-02T12:00:00Z",
		"endAt":        "2026-03-02T13:15:00Z",
		"players":      4,
		"customerName": "Pat",
	}
	resp := doJSON(t, app, http.MethodPost, "/api/holds", create)
	if resp.Code != http.StatusCreated {
		t.Fatalf("create hold: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}

	resp = doJSON(t, app, http.MethodPost, "/api/holds/"+created.Data.ID+"/cancel", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("cancel: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	// Canceling again stays a 200.
	resp = doJSON(t, app, http.MethodPost, "/api/holds/"+created.Data.ID+"/cancel", nil)
	if resp.Code != http.StatusOK {
		t.Errorf("re-cancel: expected 200, got %d", resp.Code)
	}

	resp = doJSON(t, app, http.MethodPost, "/api/holds/"+created.Data.ID+"/confirm", nil)
	if resp.Code != http.StatusConflict {
		t.Errorf("confirm canceled: expected 409, got %d", resp.Code)
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	app, _ := buildTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/payments", bytes.NewBufferString(`{"id":"evt_1"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=bogus")
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad signature, got %d", resp.Code)
	}
}

func TestAdminRoutesRBAC(t *testing.T) {
	app, _ := buildTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/holds/sweep", nil)
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	if resp.Code == http.StatusOK {
		t.Fatalf("expected non-200 without token, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/admin/holds/sweep", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken("user"))
	resp = httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for user role, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/admin/holds/sweep", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken("admin"))
	resp = httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin role, got %d: %s", resp.Code, resp.Body.String())
	}
}
