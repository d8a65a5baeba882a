package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	Cloudinary  CloudinaryConfig
	MercadoPago MercadoPagoConfig
	Payout      PayoutConfig
	Frontend    FrontendConfig
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
	AccessSecret  string
	RefreshSecret string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
	Issuer        string
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
}

type MercadoPagoConfig struct {
	AccessToken   string
	WebhookSecret string
	// NotificationURL is the public base the provider posts webhooks to,
	// e.g. https://api.example.com - path /api/v1/webhooks/payments is appended.
	NotificationURL string
}

type PayoutConfig struct {
	BaseURL string
	APIKey  string
	// PlatformFeePercent of the job total kept by the platform (0..100).
	PlatformFeePercent float64
	Timeout            time.Duration
}

type FrontendConfig struct {
	BaseURL string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Env:          getEnv("APP_ENV", "development"),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:             getEnv("DATABASE_DSN", "confiape:confiape@tcp(localhost:3306)/confiape?charset=utf8mb4&parseTime=True&loc=Local"),
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: time.Hour,
		},
		JWT: JWTConfig{
			AccessSecret:  getEnv("JWT_ACCESS_SECRET", "change-me-in-production"),
			RefreshSecret: getEnv("JWT_REFRESH_SECRET", "change-me-refresh"),
			AccessExpiry:  15 * time.Minute,
			RefreshExpiry: 168 * time.Hour,
			Issuer:        "confiape",
		},
		Cloudinary: CloudinaryConfig{
			CloudName: getEnv("CLOUDINARY_CLOUD_NAME", ""),
			APIKey:    getEnv("CLOUDINARY_API_KEY", ""),
			APISecret: getEnv("CLOUDINARY_API_SECRET", ""),
		},
		MercadoPago: MercadoPagoConfig{
			AccessToken:     getEnv("MP_ACCESS_TOKEN", ""),
			WebhookSecret:   getEnv("MP_WEBHOOK_SECRET", ""),
			NotificationURL: getEnv("MP_NOTIFICATION_BASE_URL", ""),
		},
		Payout: PayoutConfig{
			BaseURL:            getEnv("PAYOUT_API_BASE_URL", ""),
			APIKey:             getEnv("PAYOUT_API_KEY", ""),
			PlatformFeePercent: getEnvFloat("PLATFORM_FEE_PERCENT", 10),
			Timeout:            15 * time.Second,
		},
		Frontend: FrontendConfig{
			BaseURL: getEnv("FRONTEND_URL", "http://localhost:3000"),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
