package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort        string        `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL     string        `env:"DATABASE_URL,required,notEmpty"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	JWTSecret    string        `env:"JWT_SECRET,required,notEmpty"`
	JWTAccessTTL time.Duration `env:"JWT_ACCESS_TTL" envDefault:"720h"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	StripeSecretKey       string        `env:"STRIPE_SECRET_KEY,required,notEmpty"`
	StripeWebhookSecret   string        `env:"STRIPE_WEBHOOK_SECRET,required,notEmpty"`
	StripePriceID         string        `env:"STRIPE_PRICE_ID"`
	StripeRegisterPriceID string        `env:"STRIPE_REGISTER_PRICE_ID"`
	StripeAPIURL          string        `env:"STRIPE_API_URL"`
	StripeTimeout         time.Duration `env:"STRIPE_TIMEOUT" envDefault:"30s"`

	AMQPURL      string `env:"AMQP_URL"`
	AMQPExchange string `env:"AMQP_EXCHANGE" envDefault:"billing.events"`

	LoginRateLimit  int           `env:"LOGIN_RATE_LIMIT" envDefault:"10"`
	LoginRateWindow time.Duration `env:"LOGIN_RATE_WINDOW" envDefault:"15m"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// RegisterPriceID devuelve el plan usado por register-and-subscribe; si no hay uno propio
// se usa el plan general.
func (c *Config) RegisterPriceID() string {
	if c.StripeRegisterPriceID != "" {
		return c.StripeRegisterPriceID
	}
	return c.StripePriceID
}
