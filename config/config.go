package config

import (
	"github.com/kelseyhightower/envconfig"
)

type App struct {
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	// Payments
	StripeSecretKey     string `envconfig:"STRIPE_SECRET_KEY" required:"true"`
	StripeWebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET" required:"true"`
	CheckoutSuccessURL  string `envconfig:"CHECKOUT_SUCCESS_URL" default:"http://localhost:3000/booking/success"`
	CheckoutCancelURL   string `envconfig:"CHECKOUT_CANCEL_URL" default:"http://localhost:3000/booking/canceled"`

	// Optional RabbitMQ for post-commit events; empty disables publishing.
	AMQPURL string `envconfig:"AMQP_URL"`
}

func Load() (App, error) {
	var c App
	err := envconfig.Process("", &c)
	return c, err
}
