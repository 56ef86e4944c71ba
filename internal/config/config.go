package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI        string
	DBName          string
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	ResendAPIKey    string
	MailFrom        string
	StripeSecretKey string
	FrontendURL     string
	AllowedOrigins  []string
	Port            string
}

// Load reads .env (when present) and builds the process configuration.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}
	return Config{
		MongoURI:        getEnvOrDefault("MONGO_URI", "mongodb://localhost:27017"),
		DBName:          getEnvOrDefault("DB_NAME", "storefront"),
		JWTSecret:       getEnvOrDefault("JWT_SECRET", ""),
		AccessTokenTTL:  getDurationEnv("ACCESS_TOKEN_TTL", 20, time.Minute),
		RefreshTokenTTL: getDurationEnv("REFRESH_TOKEN_TTL", 7, 24*time.Hour),
		ResendAPIKey:    getEnvOrDefault("RESEND_API_KEY", ""),
		MailFrom:        getEnvOrDefault("MAIL_FROM", "onboarding@resend.dev"),
		StripeSecretKey: getEnvOrDefault("STRIPE_SECRET_KEY", ""),
		FrontendURL:     getEnvOrDefault("FRONTEND_URL", "http://localhost:3000"),
		AllowedOrigins:  getListEnv("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		Port:            getEnvOrDefault("PORT", "8080"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int, unit time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return time.Duration(parsed) * unit
		}
	}
	return time.Duration(defaultValue) * unit
}

func getListEnv(key string, defaultValue []string) []string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
