package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppPort    string `env:"APP_PORT" envDefault:"8080"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	CORSOrigin string `env:"CORS_ORIGIN" envDefault:"http://localhost:3000"`

	DatabaseDSN string `env:"DATABASE_URL,required,notEmpty"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL"`

	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	EmailFrom            string `env:"EMAIL_FROM" envDefault:"joaquinllenado@gmail.com"`

	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"720h"`
	OTPTTL     time.Duration `env:"OTP_TTL" envDefault:"10m"`

	// SecureCookies must stay on anywhere real; disable only for
	// plain-http local development.
	SecureCookies bool `env:"SECURE_COOKIES" envDefault:"true"`
}

// Load reads configuration from the environment, after loading a local
// .env file if one exists.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
