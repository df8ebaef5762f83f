package main

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"

	"venue-booking-server/config"
	"venue-booking-server/mq"
	"venue-booking-server/routes"
	"venue-booking-server/services"
	"venue-booking-server/storage"
	"venue-booking-server/utils"
)

func main() {
	// Only load .env in development
	if os.Getenv("RENDER") == "" {
		godotenv.Load()
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ invalid configuration: %v", err)
	}

	storage.InitializeDB()
	storage.InitializeRedis()

	// Domain event publishing is optional; without a broker bookings still
	// confirm, they just don't fan out.
	var events services.EventPublisher
	if cfg.AMQPURL != "" {
		publisher, err := mq.NewPublisher(cfg.AMQPURL)
		if err != nil {
			log.Fatalf("❌ rabbitmq: %v", err)
		}
		defer publisher.Close()
		events = publisher
	}

	store := storage.NewGormStore(storage.DB)
	ledger := storage.NewEventLedger(storage.Redis, 0)
	provider := services.NewStripeProvider(cfg.StripeSecretKey)
	reservations := services.NewReservationService(store, nil, events)

	routes.Store = store
	routes.Reservations = reservations
	routes.Reconciler = services.NewReconciler(store, provider, reservations, ledger, nil)
	routes.Payments = provider
	routes.Checkout = routes.CheckoutConfig{
		SuccessURL:    cfg.CheckoutSuccessURL,
		CancelURL:     cfg.CheckoutCancelURL,
		WebhookSecret: cfg.StripeWebhookSecret,
	}

	app := iris.New()
	app.Validator = validator.New()

	// CORS configuration
	app.AllowMethods(iris.MethodOptions)
	app.UseRouter(func(ctx iris.Context) {
		ctx.Header("Access-Control-Allow-Origin", ctx.GetHeader("Origin"))
		ctx.Header("Vary", "Origin")
		ctx.Header("Access-Control-Allow-Credentials", "true")
		ctx.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With")
		ctx.Header("Access-Control-Allow-Methods", "GET,POST,PATCH,PUT,DELETE,OPTIONS")
		if ctx.Method() == iris.MethodOptions {
			ctx.StatusCode(iris.StatusNoContent)
			return
		}
		ctx.Next()
	})

	app.Use(iris.Compression)

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifier.WithDefaultBlocklist()
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	app.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"status": "ok"})
	})

	api := app.Party("/api")
	{
		api.Get("/availability", routes.GetAvailability)

		api.Post("/holds", routes.CreateHold)
		api.Get("/holds/{id}", routes.GetHold)
		api.Post("/holds/{id}/promo", routes.ApplyPromo)
		api.Post("/holds/{id}/checkout", routes.CreateCheckoutSession)
		api.Post("/holds/{id}/confirm", routes.ConfirmHold)
		api.Post("/holds/{id}/cancel", routes.CancelHold)

		api.Get("/bookings/{id}", routes.GetBooking)

		// Webhooks authenticate by signature, not by bearer token. The raw
		// body must reach the verifier untouched.
		api.Post("/webhooks/payments", routes.StripeWebhook)
	}

	admin := app.Party("/api/admin", accessTokenVerifierMiddleware, utils.AdminOnlyMiddleware)
	{
		admin.Get("/holds", routes.AdminListHolds)
		admin.Post("/holds/sweep", routes.AdminSweepHolds)
		admin.Post("/holds/{id}/expire", routes.AdminExpireHold)

		admin.Get("/bookings", routes.AdminListBookings)
		admin.Get("/bookings/{id}", routes.AdminGetBooking)

		admin.Post("/orgs", routes.AdminCreateOrg)
		admin.Get("/orgs/{id:uint}", routes.AdminGetOrg)
		admin.Put("/orgs/{id:uint}", routes.AdminUpdateOrg)
		admin.Post("/orgs/{id:uint}/promos", routes.AdminCreatePromo)
		admin.Get("/orgs/{id:uint}/promos", routes.AdminListPromos)
		admin.Delete("/orgs/{id:uint}/promos/{promoID:uint}", routes.AdminDeactivatePromo)

		admin.Post("/games", routes.AdminCreateGame)
		admin.Put("/games/{id:uint}", routes.AdminUpdateGame)
		admin.Put("/games/{id:uint}/schedule", routes.AdminSetSchedule)

		admin.Post("/rooms", routes.AdminCreateRoom)
		admin.Put("/rooms/{id:uint}", routes.AdminUpdateRoom)
	}

	addr := cfg.HTTPAddr
	if port := os.Getenv("PORT"); port != "" {
		addr = "0.0.0.0:" + port
	}

	fmt.Printf("🚀 Server starting on %s\n", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("❌ Server failed: %v", err)
	}
}
