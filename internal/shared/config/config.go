package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the observability backend
type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Auth
	JWTSecret       string
	TokenExpiryMins int
	BcryptCost      int

	// Seed admin account (created at startup if missing)
	AdminEmail    string
	AdminPassword string

	// Metrics caching
	CacheTTLSeconds int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("ENV", "development"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		RedisURL:        getEnv("REDIS_URL", "redis://localhost:6379"),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		TokenExpiryMins: getEnvInt("TOKEN_EXPIRY_MINUTES", 30),
		BcryptCost:      getEnvInt("BCRYPT_COST", 10),
		AdminEmail:      getEnv("ADMIN_EMAIL", "admin@company.com"),
		AdminPassword:   getEnv("ADMIN_PASSWORD", ""),
		CacheTTLSeconds: getEnvInt("CACHE_TTL_SECONDS", 60),
	}

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
