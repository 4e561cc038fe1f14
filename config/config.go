package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Admin      AdminConfig
	Cloudinary CloudinaryConfig
	PayHero    PayHeroConfig
	Payment    PaymentConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	Secret string
	Expiry time.Duration
	Issuer string
}

// AdminConfig seeds the back-office operator account.
type AdminConfig struct {
	Email    string
	Password string
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
}

// PayHeroConfig holds the STK push provider credentials. Username/Password
// form the Basic-auth credential; ChannelID identifies the till/paybill.
type PayHeroConfig struct {
	BaseURL         string
	APIUsername     string
	APIPassword     string
	ChannelID       string
	CallbackBaseURL string // callback will be CallbackBaseURL + /api/v1/webhooks/payhero
	WebhookSecret   string // optional; enables HMAC verification of callbacks
}

// PaymentConfig tunes the confirmation engine.
type PaymentConfig struct {
	Cooldown        time.Duration // minimum gap between initiation attempts per phone
	PollInterval    time.Duration // cadence of provider status queries
	MaxPollAttempts int           // attempt budget; total wait is roughly interval * budget
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         env("PORT", "8080"),
			Env:          env("APP_ENV", "development"),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:             env("DATABASE_DSN", "mkopo:mkopo@tcp(localhost:3306)/mkopo?charset=utf8mb4&parseTime=True&loc=Local"),
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: time.Hour,
		},
		JWT: JWTConfig{
			Secret: env("JWT_SECRET", "change-me-in-production"),
			Expiry: 12 * time.Hour,
			Issuer: "mkopo",
		},
		Admin: AdminConfig{
			Email:    env("ADMIN_EMAIL", "admin@mkopo.local"),
			Password: env("ADMIN_PASSWORD", "change-me"),
		},
		Cloudinary: CloudinaryConfig{
			CloudName: env("CLOUDINARY_CLOUD_NAME", ""),
			APIKey:    env("CLOUDINARY_API_KEY", ""),
			APISecret: env("CLOUDINARY_API_SECRET", ""),
		},
		PayHero: PayHeroConfig{
			BaseURL:         env("PAYHERO_BASE_URL", "https://backend.payhero.co.ke/api/v2"),
			APIUsername:     env("PAYHERO_API_USERNAME", ""),
			APIPassword:     env("PAYHERO_API_PASSWORD", ""),
			ChannelID:       env("PAYHERO_CHANNEL_ID", ""),
			CallbackBaseURL: env("CALLBACK_BASE_URL", ""),
			WebhookSecret:   env("PAYHERO_WEBHOOK_SECRET", ""),
		},
		Payment: PaymentConfig{
			Cooldown:        5 * time.Second,
			PollInterval:    5 * time.Second,
			MaxPollAttempts: envInt("PAYMENT_MAX_POLL_ATTEMPTS", 24),
		},
	}
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
