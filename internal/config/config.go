// Package config loads application configuration from environment variables.
package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/dmitrymomot/briefly/internal/coinmarketcap"
	"github.com/dmitrymomot/briefly/internal/db"
	"github.com/dmitrymomot/briefly/internal/logger"
	"github.com/dmitrymomot/briefly/internal/mailer"
	"github.com/dmitrymomot/briefly/internal/oauth"
	"github.com/dmitrymomot/briefly/internal/storage"
	"github.com/dmitrymomot/briefly/internal/weatherapi"
)

// ErrLoadConfig indicates environment parsing failed.
var ErrLoadConfig = errors.New("config: failed to parse environment")

// Config is the root application configuration. Each subsystem owns its
// Config struct; this type only composes them for env parsing.
type Config struct {
	// HTTP server.
	Addr            string        `env:"HTTP_ADDR" envDefault:":8080"`
	BaseURL         string        `env:"BASE_URL" envDefault:"http://localhost:8080"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Session cookie.
	CookieSecret  string        `env:"COOKIE_SECRET,required"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"720h"`
	SecureCookies bool          `env:"SECURE_COOKIES" envDefault:"true"`

	RedisURL string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`

	Database db.Config
	Logger   logger.SentryConfig
	Mailer   mailer.Config
	Resend   mailer.ResendConfig
	Weather  weatherapi.Config
	Crypto   coinmarketcap.Config
	Storage  storage.Config
	Google   oauth.GoogleConfig
}

// Load reads .env (if present) and parses the environment into Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Join(ErrLoadConfig, err)
	}
	return cfg, nil
}
