package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort     string
	DatabaseType   string // sqlite, postgres or mysql
	DatabasePath   string // sqlite only
	DatabaseURL    string // postgres/mysql connection string
	MigrationsPath string

	SessionDuration time.Duration

	// Admin bootstrap account. Created on first admin login and flagged
	// is_admin in the families table.
	AdminEmail    string
	AdminPassword string

	// Notifications
	AdminNotificationEmail string
	NotifyWebhookURL       string
	NotifySigningSecret    string
	SESRegion              string
	SESFromEmail           string
	SESFromName            string

	// Billing provider (subscription status sync)
	BillingAPIBaseURL   string
	BillingClientID     string
	BillingClientSecret string
	BillingTokenURL     string
	BillingTimeout      time.Duration

	LoginRateLimit int // login/register attempts per minute per IP
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first if present.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env")
	}

	return &Config{
		ServerPort:     getEnv("PORT", "8080"),
		DatabaseType:   getEnv("DB_TYPE", "sqlite"),
		DatabasePath:   getEnv("DB_PATH", "./choreking.db"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "./migrations"),

		SessionDuration: getEnvDuration("SESSION_DURATION", 14*24*time.Hour),

		AdminEmail:    getEnv("ADMIN_EMAIL", "admin@choreking.app"),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),

		AdminNotificationEmail: getEnv("ADMIN_NOTIFICATION_EMAIL", "info@choreking.app"),
		NotifyWebhookURL:       getEnv("NOTIFY_WEBHOOK_URL", ""),
		NotifySigningSecret:    getEnv("NOTIFY_SIGNING_SECRET", ""),
		SESRegion:              getEnv("SES_REGION", "eu-west-1"),
		SESFromEmail:           getEnv("SES_FROM_EMAIL", ""),
		SESFromName:            getEnv("SES_FROM_NAME", "ChoreKing"),

		BillingAPIBaseURL:   getEnv("BILLING_API_URL", ""),
		BillingClientID:     getEnv("BILLING_CLIENT_ID", ""),
		BillingClientSecret: getEnv("BILLING_CLIENT_SECRET", ""),
		BillingTokenURL:     getEnv("BILLING_TOKEN_URL", ""),
		BillingTimeout:      getEnvDuration("BILLING_TIMEOUT", 10*time.Second),

		LoginRateLimit: getEnvInt("LOGIN_RATE_LIMIT", 10),
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Printf("Warning: invalid value for %s, using default", key)
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("Warning: invalid duration for %s, using default", key)
	}
	return defaultValue
}
