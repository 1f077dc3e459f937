package config

import "time"

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	BaseURL     string `env:"BASE_URL,required,notEmpty"`
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	RedisURL    string `env:"REDIS_URL"`

	// SyncTimeout bounds a catalog sync; it is not tied to the request deadline.
	SyncTimeout time.Duration `env:"SYNC_TIMEOUT" envDefault:"10m"`

	Stripe Stripe `envPrefix:"STRIPE_"`
	Auth   Auth   `envPrefix:"AUTH_"`
	Kafka  Kafka  `envPrefix:"KAFKA_"`
	Coupon Coupon `envPrefix:"COUPON_"`
}

type Stripe struct {
	BaseApiURL       string        `env:"BASE_API_URL" envDefault:"https://api.stripe.com"`
	SecretKey        string        `env:"SECRET_KEY,required,notEmpty"`
	WebhookSecret    string        `env:"WEBHOOK_SECRET,required,notEmpty"`
	WebhookTolerance time.Duration `env:"WEBHOOK_TOLERANCE" envDefault:"5m"`
	Currency         string        `env:"CURRENCY" envDefault:"usd"`
	Timeout          time.Duration `env:"TIMEOUT" envDefault:"15s"`
	MaxRetries       int64         `env:"MAX_RETRIES" envDefault:"2"`
}

type Auth struct {
	JWTSecret string `env:"JWT_SECRET,required,notEmpty"`
}

type Kafka struct {
	Brokers []string `env:"BROKERS" envSeparator:","`
	Topic   string   `env:"TOPIC" envDefault:"orders"`
}

type Coupon struct {
	SingleUse    bool   `env:"SINGLE_USE" envDefault:"true"`
	DiscountRate string `env:"DISCOUNT_RATE" envDefault:"0.10"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host           string        `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port           string        `env:"HTTP_PORT" envDefault:"8080"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"20s"`
}
